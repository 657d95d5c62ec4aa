package sun

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSunEventsReturnsOrderedTimesForDenver(t *testing.T) {
	o := NewOracle(39.7392, -104.9903)
	date := time.Date(2026, time.June, 21, 0, 0, 0, 0, time.UTC)

	events, err := o.SunEvents(date, "America/Denver")
	require.NoError(t, err)
	require.True(t, events.Sunrise.Before(events.Sunset))
	require.True(t, events.Sunset.Before(events.CivilTwilightEnd))
	require.False(t, events.Stale)
}

func TestSunEventsCachesWithinRun(t *testing.T) {
	o := NewOracle(39.7392, -104.9903)
	date := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	first, err := o.SunEvents(date, "America/Denver")
	require.NoError(t, err)

	calls := 0
	o.source = func(d time.Time, lat, lon float64) (Events, error) {
		calls++
		return computeEvents(d, lat, lon)
	}

	second, err := o.SunEvents(date, "America/Denver")
	require.NoError(t, err)
	require.Equal(t, first, second)
	require.Equal(t, 0, calls, "cached entry must not recompute")
}

func TestSunEventsFallsBackToLastKnownGoodOnFailure(t *testing.T) {
	o := NewOracle(39.7392, -104.9903)
	day1 := time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC)
	_, err := o.SunEvents(day1, "America/Denver")
	require.NoError(t, err)

	o.source = func(d time.Time, lat, lon float64) (Events, error) {
		return Events{}, errors.New("simulated outage")
	}

	day2 := time.Date(2026, time.May, 2, 0, 0, 0, 0, time.UTC)
	events, err := o.SunEvents(day2, "America/Denver")
	require.NoError(t, err)
	require.True(t, events.Stale)
}

func TestSunEventsReturnsUpstreamUnavailableWithNoCache(t *testing.T) {
	o := NewOracle(39.7392, -104.9903)
	o.source = func(d time.Time, lat, lon float64) (Events, error) {
		return Events{}, errors.New("simulated outage")
	}

	_, err := o.SunEvents(time.Date(2026, time.May, 1, 0, 0, 0, 0, time.UTC), "America/Denver")
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
}

func TestGoodNightFallbackAddsThirtyMinutes(t *testing.T) {
	sunset := time.Date(2026, time.May, 1, 20, 0, 0, 0, time.UTC)
	require.Equal(t, sunset.Add(30*time.Minute), GoodNightFallback(sunset))
}

func TestNowInConvertsToRequestedZone(t *testing.T) {
	o := NewOracle(0, 0)
	local, err := o.NowIn("America/Denver")
	require.NoError(t, err)
	require.Equal(t, "America/Denver", local.Location().String())
}

func TestNowInRejectsUnknownZone(t *testing.T) {
	o := NewOracle(0, 0)
	_, err := o.NowIn("Not/A_Zone")
	require.Error(t, err)
}
