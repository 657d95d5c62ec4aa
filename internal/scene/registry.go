package scene

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/shadehub/shadehub/internal/log"
)

const (
	minRetryCount = 0
	maxRetryCount = 5
)

// ShadeExists reports whether a shade id is known to the shade
// registry. Injected so this package does not depend on internal/shade.
type ShadeExists func(shadeID string) bool

// Registry holds the currently loaded, validated scene document and
// supports an explicit reload from disk.
type Registry struct {
	path        string
	shadeExists ShadeExists

	mu     sync.RWMutex
	scenes map[string]Scene
}

// NewRegistry loads path immediately; a load failure is returned to the
// caller (process-fatal at startup per spec, not recovered here).
func NewRegistry(path string, shadeExists ShadeExists) (*Registry, error) {
	r := &Registry{path: path, shadeExists: shadeExists}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads and re-validates the scene document, replacing the
// registry's contents only if validation succeeds in full.
func (r *Registry) Reload() error {
	var doc Document
	if _, err := toml.DecodeFile(r.path, &doc); err != nil {
		return fmt.Errorf("scene: decode %s: %w", r.path, err)
	}

	scenes := make(map[string]Scene, len(doc.Scenes))
	for _, s := range doc.Scenes {
		if err := r.validate(s); err != nil {
			return err
		}
		scenes[s.Name] = s
	}

	r.mu.Lock()
	r.scenes = scenes
	r.mu.Unlock()

	log.L().Info().Str("event", "scene.reloaded").Int("count", len(scenes)).Msg("scene document reloaded")
	return nil
}

func (r *Registry) validate(s Scene) error {
	if s.Name == "" {
		return &InvalidScene{Scene: "<unnamed>", Reason: "name must not be empty"}
	}
	if len(s.Steps) == 0 {
		return &InvalidScene{Scene: s.Name, Reason: "must have at least one step"}
	}
	if s.RetryCount < minRetryCount || s.RetryCount > maxRetryCount {
		return &InvalidScene{Scene: s.Name, Reason: fmt.Sprintf("retry_count must be in [%d,%d]", minRetryCount, maxRetryCount)}
	}
	for i, step := range s.Steps {
		if r.shadeExists != nil && !r.shadeExists(step.ShadeID) {
			return &InvalidScene{Scene: s.Name, Reason: fmt.Sprintf("step %d: unknown shade_id %q", i, step.ShadeID)}
		}
		if step.DelayMsBefore < 0 {
			return &InvalidScene{Scene: s.Name, Reason: fmt.Sprintf("step %d: delay_ms_before must be >= 0", i)}
		}
	}
	return nil
}

// Get returns the named scene.
func (r *Registry) Get(name string) (Scene, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.scenes[name]
	if !ok {
		return Scene{}, &NotFoundError{Name: name}
	}
	return s, nil
}

// List returns the names of all loaded scenes.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.scenes))
	for name := range r.scenes {
		names = append(names, name)
	}
	return names
}
