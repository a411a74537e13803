package frame

import "fmt"

// MissingExportError occurs when a module lacks an export its
// convention requires.
type MissingExportError struct {
	Module string
	Export string
	Hint   string
}

func (e *MissingExportError) Error() string {
	msg := fmt.Sprintf("module '%s' does not export '%s'", e.Module, e.Export)
	if e.Hint != "" {
		msg += ": " + e.Hint
	}
	return msg
}

// UnknownConventionError occurs when a convention name cannot be parsed.
type UnknownConventionError struct {
	Name string
}

func (e *UnknownConventionError) Error() string {
	return fmt.Sprintf("unknown export convention '%s' (want descriptor or direct)", e.Name)
}
