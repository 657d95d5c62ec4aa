// Package sun computes the current instant, local-zone wall time, and
// daily sunrise/sunset/civil-twilight instants the scene scheduler
// anchors schedules to.
package sun

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/golang-module/carbon"
	"github.com/nathan-osman/go-sunrise"

	"github.com/shadehub/shadehub/internal/log"
)

const cacheMaxAge = 7 * 24 * time.Hour

// source computes Events for a calendar date and coordinates. Swappable
// so tests can simulate an outage without touching the real clock.
type source func(date time.Time, lat, lon float64) (Events, error)

// Oracle serves sun_events with a last-known-good cache, so a transient
// computation failure degrades to a stale-but-recent answer instead of
// an error reaching the scheduler.
type Oracle struct {
	lat, lon float64
	source   source

	mu    sync.Mutex
	cache map[string]Events
}

// NewOracle returns an Oracle pinned to the given coordinates.
func NewOracle(lat, lon float64) *Oracle {
	return &Oracle{
		lat:    lat,
		lon:    lon,
		source: computeEvents,
		cache:  make(map[string]Events),
	}
}

// Now returns the current instant in UTC.
func (o *Oracle) Now() time.Time {
	return time.Now().UTC()
}

// NowIn returns the current local wall-clock time in the given IANA
// timezone.
func (o *Oracle) NowIn(tz string) (time.Time, error) {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.Time{}, fmt.Errorf("sun: load location %q: %w", tz, err)
	}
	return carbon.Now(tz).Carbon2Time().In(loc), nil
}

// SunEvents returns sunrise, sunset, and civil-twilight-end for the
// local calendar date in tz, as UTC instants. On a computation failure
// it serves the most recent cached entry within 7 days (Stale=true) and
// otherwise returns ErrUpstreamUnavailable.
func (o *Oracle) SunEvents(date time.Time, tz string) (Events, error) {
	key := date.Format("2006-01-02") + "|" + tz

	o.mu.Lock()
	if cached, ok := o.cache[key]; ok {
		o.mu.Unlock()
		return cached, nil
	}
	o.mu.Unlock()

	events, err := o.source(date, o.lat, o.lon)
	if err != nil {
		if stale, ok := o.lastKnownGood(date); ok {
			log.L().Warn().Err(err).Str("event", "sun.upstream_unavailable").
				Str("served_date", stale.Date).Msg("serving stale sun events")
			return stale, nil
		}
		return Events{}, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}

	events.Date = date.Format("2006-01-02")
	o.store(key, events)
	return events, nil
}

// GoodNightFallback returns the sunset+30min fallback used for
// good_night_timing when civil twilight cannot be computed or the
// oracle is degraded.
func GoodNightFallback(sunset time.Time) time.Time {
	return sunset.Add(30 * time.Minute)
}

func (o *Oracle) store(key string, events Events) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.cache[key] = events

	cutoff := events.Sunset.Add(-cacheMaxAge)
	for k, v := range o.cache {
		if v.Sunset.Before(cutoff) {
			delete(o.cache, k)
		}
	}
}

func (o *Oracle) lastKnownGood(forDate time.Time) (Events, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cutoff := forDate.Add(-cacheMaxAge)
	var candidates []Events
	for _, v := range o.cache {
		if !v.Sunset.Before(cutoff) {
			candidates = append(candidates, v)
		}
	}
	if len(candidates) == 0 {
		return Events{}, false
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Sunset.After(candidates[j].Sunset)
	})
	best := candidates[0]
	best.Stale = true
	return best, true
}

// computeEvents is the default source: sunrise/sunset via go-sunrise,
// civil twilight via the NOAA formula in noaa.go.
func computeEvents(date time.Time, lat, lon float64) (Events, error) {
	rise, set := sunrise.SunriseSunset(lat, lon, date.Year(), date.Month(), date.Day())
	if rise.IsZero() && set.IsZero() {
		return Events{}, fmt.Errorf("sun: no sunrise/sunset for %s at (%.4f,%.4f)", date.Format("2006-01-02"), lat, lon)
	}

	twilight, ok := civilTwilightEnd(date, lat, lon)
	if !ok {
		twilight = GoodNightFallback(set)
	}

	return Events{
		Sunrise:          rise,
		Sunset:           set,
		CivilTwilightEnd: twilight,
	}, nil
}
