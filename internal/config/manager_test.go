package config

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewManagerSeedsDefaultWhenMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	m, err := NewManager(path)
	require.NoError(t, err)
	require.Equal(t, "14:30", m.Get().Scenes.GoodAfternoonTime)
	require.FileExists(t, path)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)

	cfg := m.Get()
	cfg.Location.Timezone = "America/Denver"
	cfg.WakeUp.Enabled = true
	require.NoError(t, m.Save(cfg))

	reloaded, err := NewManager(path)
	require.NoError(t, err)
	require.Equal(t, "America/Denver", reloaded.Get().Location.Timezone)
	require.True(t, reloaded.Get().WakeUp.Enabled)
}

func TestMutateAppliesAndPersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)

	err = m.Mutate(func(cfg *AppConfig) error {
		cfg.HomeAway.Status = StatusAway
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, StatusAway, m.Get().HomeAway.Status)
}

func TestMutateDoesNotPersistOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	m, err := NewManager(path)
	require.NoError(t, err)

	before := m.Get()
	err = m.Mutate(func(cfg *AppConfig) error {
		cfg.HomeAway.Status = StatusAway
		return assertErr
	})
	require.Error(t, err)
	require.Equal(t, before.HomeAway.Status, m.Get().HomeAway.Status)
}

var assertErr = &ErrInvalidValue{Key: "test", Reason: "forced failure"}
