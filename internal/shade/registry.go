package shade

import (
	"fmt"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/shadehub/shadehub/internal/log"
)

// Type is a shade's physical/functional category (spec.md §3).
type Type string

const (
	TypePrivacy  Type = "privacy"
	TypeSolar    Type = "solar"
	TypeBlackout Type = "blackout"
	TypeDimming  Type = "dimming"
)

func (t Type) valid() bool {
	switch t {
	case TypePrivacy, TypeSolar, TypeBlackout, TypeDimming:
		return true
	default:
		return false
	}
}

// Shade is one config-time shade definition: identity plus the
// human-facing name, room, type, and group membership (spec.md §3).
// Persistent and read-mostly; shades are never created or destroyed at
// runtime.
type Shade struct {
	ID    string `toml:"id"`
	Name  string `toml:"name"`
	Room  string `toml:"room"`
	Type  Type   `toml:"type"`
	Group string `toml:"group"`
}

// document is the on-disk shape of the shade topology file.
type document struct {
	Shades []Shade `toml:"shade"`
}

// Registry is the config-time set of known shades. Gateway commands and
// scene steps are validated against it.
type Registry struct {
	path string

	mu     sync.RWMutex
	shades map[string]Shade
}

// NewRegistry loads path immediately; a load failure is returned to the
// caller (process-fatal at startup, per spec.md's "config-time registry"
// lifecycle).
func NewRegistry(path string) (*Registry, error) {
	r := &Registry{path: path}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// Reload re-reads and re-validates the shade topology document,
// replacing the registry's contents only if validation succeeds in full.
func (r *Registry) Reload() error {
	var doc document
	if _, err := toml.DecodeFile(r.path, &doc); err != nil {
		return fmt.Errorf("shade: decode %s: %w", r.path, err)
	}

	shades := make(map[string]Shade, len(doc.Shades))
	for _, s := range doc.Shades {
		if s.ID == "" {
			return fmt.Errorf("shade: topology %s: entry with empty id", r.path)
		}
		if !s.Type.valid() {
			return fmt.Errorf("shade: topology %s: shade %q: invalid type %q", r.path, s.ID, s.Type)
		}
		shades[s.ID] = s
	}

	r.mu.Lock()
	r.shades = shades
	r.mu.Unlock()

	log.L().Info().Str("event", "shade.registry_reloaded").Int("count", len(shades)).Msg("shade topology reloaded")
	return nil
}

// Exists reports whether shadeID is registered.
func (r *Registry) Exists(shadeID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.shades[shadeID]
	return ok
}

// Get returns the full definition for a registered shade.
func (r *Registry) Get(shadeID string) (Shade, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.shades[shadeID]
	if !ok {
		return Shade{}, &NotFoundError{ShadeID: shadeID}
	}
	return s, nil
}

// List returns all registered shade ids.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.shades))
	for id := range r.shades {
		out = append(out, id)
	}
	return out
}

// All returns every registered shade's full definition.
func (r *Registry) All() []Shade {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Shade, 0, len(r.shades))
	for _, s := range r.shades {
		out = append(out, s)
	}
	return out
}

// ByGroup returns the ids of every shade belonging to group.
func (r *Registry) ByGroup(group string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []string
	for id, s := range r.shades {
		if s.Group == group {
			out = append(out, id)
		}
	}
	return out
}
