package config

import "errors"

// ErrNotFound is returned by dotted-key lookups for an unknown key.
var ErrNotFound = errors.New("config: key not found")

// ErrReadOnly is returned when a dotted-key write targets a field the
// HTTP config surface does not allow clients to mutate directly
// (last_triggered is orchestrator-owned).
var ErrReadOnly = errors.New("config: key is read-only")

// ErrInvalidValue is returned when a dotted-key write's JSON value does
// not match the target field's type or fails validation.
type ErrInvalidValue struct {
	Key    string
	Reason string
}

func (e *ErrInvalidValue) Error() string {
	return "config: invalid value for " + e.Key + ": " + e.Reason
}
