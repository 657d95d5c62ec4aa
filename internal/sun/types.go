package sun

import "time"

// Events holds the three daily sun-relative instants this appliance
// schedules against, each in UTC.
type Events struct {
	Date              string // YYYY-MM-DD, the local calendar date these events belong to
	Sunrise           time.Time
	Sunset            time.Time
	CivilTwilightEnd  time.Time
	Stale             bool // true when served from the last-known-good cache or fallback
}

// Anchor names a sun-relative point schedules can offset from.
type Anchor string

const (
	AnchorSunrise          Anchor = "sunrise"
	AnchorSunset           Anchor = "sunset"
	AnchorCivilTwilightEnd Anchor = "civil_twilight_end"
)

// At returns the instant for the named anchor.
func (e Events) At(a Anchor) time.Time {
	switch a {
	case AnchorSunrise:
		return e.Sunrise
	case AnchorCivilTwilightEnd:
		return e.CivilTwilightEnd
	default:
		return e.Sunset
	}
}
