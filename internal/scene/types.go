// Package scene loads and validates the TOML-defined scene document:
// an ordered list of per-shade steps each scene replays through the
// shade command gateway.
package scene

// Step is one shade action within a scene.
type Step struct {
	ShadeID       string `toml:"shade_id"`
	Action        string `toml:"action"`
	DelayMsBefore int    `toml:"delay_ms_before"`
}

// Scene is a named, ordered sequence of steps sharing one retry_count
// and an overall timeout.
type Scene struct {
	Name           string `toml:"name"`
	RetryCount     int    `toml:"retry_count"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Steps          []Step `toml:"steps"`
}

// Document is the on-disk shape: a named list of scenes.
type Document struct {
	Scenes []Scene `toml:"scene"`
}
