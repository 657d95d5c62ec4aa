package audio

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func hashFilePath(path string) string { return path + ".sha256" }

// writeStatusFile persists st atomically (temp file + rename, matching the
// config manager's write discipline) alongside a sidecar sha256 so a
// reader can detect a torn or stale write.
func writeStatusFile(path string, st PersistedStatus) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("audio: marshal status: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".audio-status-*.tmp")
	if err != nil {
		return fmt.Errorf("audio: create temp status file: %w", err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("audio: write temp status file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("audio: close temp status file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("audio: rename status file: %w", err)
	}

	sum := sha256.Sum256(data)
	if err := os.WriteFile(hashFilePath(path), []byte(hex.EncodeToString(sum[:])), 0o644); err != nil {
		return fmt.Errorf("audio: write status hash: %w", err)
	}
	return nil
}

// statusFileReader reads the audio status file and verifies it against
// its sidecar hash before trusting its contents (spec.md's "SHOULD
// verify" guidance for this read-mostly file).
type statusFileReader struct {
	path string
}

func (r *statusFileReader) readVerified() (PersistedStatus, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return PersistedStatus{}, fmt.Errorf("audio: read status file: %w", err)
	}
	wantHex, err := os.ReadFile(hashFilePath(r.path))
	if err != nil {
		return PersistedStatus{}, fmt.Errorf("audio: read status hash: %w", err)
	}

	sum := sha256.Sum256(data)
	got := hex.EncodeToString(sum[:])
	if got != strings.TrimSpace(string(wantHex)) {
		return PersistedStatus{}, fmt.Errorf("audio: status file hash mismatch, possibly torn write")
	}

	var st PersistedStatus
	if err := json.Unmarshal(data, &st); err != nil {
		return PersistedStatus{}, fmt.Errorf("audio: unmarshal status file: %w", err)
	}
	return st, nil
}
