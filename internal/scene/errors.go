package scene

import "fmt"

// InvalidScene reports a referential-integrity or range violation found
// while validating a loaded scene document.
type InvalidScene struct {
	Scene  string
	Reason string
}

func (e *InvalidScene) Error() string {
	return fmt.Sprintf("scene: invalid scene %q: %s", e.Scene, e.Reason)
}

// NotFoundError is returned when a named scene does not exist in the
// registry.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("scene: %q not found", e.Name)
}
