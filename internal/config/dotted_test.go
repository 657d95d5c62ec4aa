package config

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestToDottedMapIncludesAllKeys(t *testing.T) {
	m := ToDottedMap(Default())
	require.Equal(t, "14:30", m["scenes.good_afternoon_time"])
	require.Equal(t, false, m["wake_up.enabled"])
	require.Nil(t, m["wake_up.last_triggered"])
}

func TestApplyDottedSetsTypedField(t *testing.T) {
	cfg := Default()
	require.NoError(t, ApplyDotted(&cfg, "location.timezone", "America/Denver"))
	require.Equal(t, "America/Denver", cfg.Location.Timezone)

	require.NoError(t, ApplyDotted(&cfg, "location.lat", 39.7392))
	require.Equal(t, 39.7392, cfg.Location.Lat)
}

func TestApplyDottedRejectsReadOnlyField(t *testing.T) {
	cfg := Default()
	err := ApplyDotted(&cfg, "wake_up.last_triggered", "2026-01-01T00:00:00Z")
	require.ErrorIs(t, err, ErrReadOnly)
}

func TestApplyDottedRejectsUnknownKey(t *testing.T) {
	cfg := Default()
	err := ApplyDotted(&cfg, "bogus.key", "x")
	require.True(t, errors.Is(err, ErrNotFound))
}

func TestApplyDottedRejectsInvalidGoodNightTiming(t *testing.T) {
	cfg := Default()
	err := ApplyDotted(&cfg, "scenes.good_night_timing", "midnight")
	var invalid *ErrInvalidValue
	require.True(t, errors.As(err, &invalid))
}

func TestApplyDottedRejectsWrongType(t *testing.T) {
	cfg := Default()
	err := ApplyDotted(&cfg, "wake_up.enabled", "yes")
	var invalid *ErrInvalidValue
	require.True(t, errors.As(err, &invalid))
}
