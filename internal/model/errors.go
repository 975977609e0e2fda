package model

import (
	"fmt"

	"go.uber.org/multierr"
)

// ValidationError describes malformed input rejected at the boundary.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// ValidationErrors unpacks an error produced by the parse step into the
// individual field errors.
func ValidationErrors(err error) []*ValidationError {
	var out []*ValidationError
	for _, e := range multierr.Errors(err) {
		if ve, ok := e.(*ValidationError); ok {
			out = append(out, ve)
		}
	}
	return out
}
