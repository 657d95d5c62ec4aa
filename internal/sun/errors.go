package sun

import "errors"

// ErrUpstreamUnavailable is returned when the sun event source cannot
// compute or retrieve events for the requested date. Callers fall back
// to a last-known-good cache entry (<=7 days old) or, for
// good_night_timing, to sunset+30min.
var ErrUpstreamUnavailable = errors.New("sun: upstream unavailable")
