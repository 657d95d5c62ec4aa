package shade

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTopology(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "shades.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestNewRegistryLoadsValidTopology(t *testing.T) {
	path := writeTopology(t, `
[[shade]]
id = "living_room_1"
name = "Living Room Window"
room = "living_room"
type = "privacy"
group = "downstairs"
`)

	r, err := NewRegistry(path)
	require.NoError(t, err)
	require.True(t, r.Exists("living_room_1"))

	s, err := r.Get("living_room_1")
	require.NoError(t, err)
	require.Equal(t, "Living Room Window", s.Name)
	require.Equal(t, "living_room", s.Room)
	require.Equal(t, TypePrivacy, s.Type)
	require.Equal(t, "downstairs", s.Group)
}

func TestNewRegistryRejectsInvalidType(t *testing.T) {
	path := writeTopology(t, `
[[shade]]
id = "a"
name = "A"
room = "r"
type = "not_a_real_type"
group = "g"
`)
	_, err := NewRegistry(path)
	require.Error(t, err)
}

func TestNewRegistryRejectsEmptyID(t *testing.T) {
	path := writeTopology(t, `
[[shade]]
id = ""
name = "A"
room = "r"
type = "privacy"
group = "g"
`)
	_, err := NewRegistry(path)
	require.Error(t, err)
}

func TestRegistryByGroupReturnsMembers(t *testing.T) {
	path := writeTopology(t, `
[[shade]]
id = "a"
name = "A"
room = "r1"
type = "privacy"
group = "downstairs"

[[shade]]
id = "b"
name = "B"
room = "r2"
type = "blackout"
group = "downstairs"

[[shade]]
id = "c"
name = "C"
room = "r3"
type = "solar"
group = "upstairs"
`)
	r, err := NewRegistry(path)
	require.NoError(t, err)

	downstairs := r.ByGroup("downstairs")
	require.ElementsMatch(t, []string{"a", "b"}, downstairs)
}

func TestRegistryExistsFalseForUnknownID(t *testing.T) {
	path := writeTopology(t, `
[[shade]]
id = "a"
name = "A"
room = "r"
type = "privacy"
group = "g"
`)
	r, err := NewRegistry(path)
	require.NoError(t, err)
	require.False(t, r.Exists("ghost"))
}
