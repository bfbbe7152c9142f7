package form

import (
	"fmt"
	"sort"
	"strings"
)

// ValidationError lists the problems that block a submission, keyed by field
// path. Table cells use "table.index.column".
type ValidationError struct {
	Fields map[string][]string
}

func (e *ValidationError) Error() string {
	if e == nil || len(e.Fields) == 0 {
		return "form: validation failed"
	}
	paths := e.Paths()
	return fmt.Sprintf("form: validation failed for %s", strings.Join(paths, ", "))
}

// Paths returns the failing paths sorted.
func (e *ValidationError) Paths() []string {
	if e == nil {
		return nil
	}
	paths := make([]string, 0, len(e.Fields))
	for path := range e.Fields {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func (e *ValidationError) add(path, message string) {
	e.Fields[path] = append(e.Fields[path], message)
}

// FieldError reports a value that could not be coerced for a field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("form: %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error {
	return e.Err
}

// AsValidation converts the coercion failure into a ValidationError so
// callers can report it next to the input.
func (e *FieldError) AsValidation() *ValidationError {
	return &ValidationError{Fields: map[string][]string{e.Field: {e.Err.Error()}}}
}
