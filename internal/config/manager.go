package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/shadehub/shadehub/internal/log"
)

// Manager owns the on-disk configuration document and the in-memory
// AppConfig view every component reads. Writes are atomic: a temp file
// is written alongside the target and renamed into place, so a crash
// mid-write never leaves a truncated config behind.
type Manager struct {
	path string

	mu  sync.RWMutex
	cfg AppConfig
}

// NewManager loads path if it exists, or seeds it with Default().
func NewManager(path string) (*Manager, error) {
	m := &Manager{path: path}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		m.cfg = Default()
		if err := m.persist(m.cfg); err != nil {
			return nil, fmt.Errorf("config: seed default: %w", err)
		}
		return m, nil
	}
	if err := m.Load(); err != nil {
		return nil, err
	}
	return m, nil
}

// Load reads the config document from disk and replaces the in-memory view.
func (m *Manager) Load() error {
	raw, err := os.ReadFile(m.path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", m.path, err)
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return fmt.Errorf("config: parse %s: %w", m.path, err)
	}

	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	return nil
}

// Get returns a copy of the current configuration.
func (m *Manager) Get() AppConfig {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.cfg
}

// Save replaces the in-memory configuration and persists it atomically.
func (m *Manager) Save(cfg AppConfig) error {
	if err := m.persist(cfg); err != nil {
		return err
	}
	m.mu.Lock()
	m.cfg = cfg
	m.mu.Unlock()
	log.L().Info().Str("event", "config.updated").Msg("configuration saved")
	return nil
}

// Mutate applies fn to a copy of the current configuration and persists
// the result if fn returns a nil error.
func (m *Manager) Mutate(fn func(cfg *AppConfig) error) error {
	m.mu.Lock()
	cfg := m.cfg
	m.mu.Unlock()

	if err := fn(&cfg); err != nil {
		return err
	}
	return m.Save(cfg)
}

func (m *Manager) persist(cfg AppConfig) error {
	raw, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("config: marshal: %w", err)
	}

	dir := filepath.Dir(m.path)
	tmp, err := os.CreateTemp(dir, ".config-*.yaml.tmp")
	if err != nil {
		return fmt.Errorf("config: create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return fmt.Errorf("config: write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("config: sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("config: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, m.path); err != nil {
		return fmt.Errorf("config: rename into place: %w", err)
	}
	return nil
}
