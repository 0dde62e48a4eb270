package catalog

import (
	"errors"
	"fmt"
)

// ErrValidation marks a malformed catalog row; match with errors.Is.
var ErrValidation = errors.New("catalog: validation failed")

// ValidationError names the offending 1-based data row and column.
type ValidationError struct {
	Row    int
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog: row %d: field %q: %s", e.Row, e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
