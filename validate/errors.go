package validate

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is matched by every *FieldError.
	ErrInvalidInput = errors.New("validate: invalid input")

	// ErrSchemaMismatch is returned by Strict when a document does not match
	// its schema.
	ErrSchemaMismatch = errors.New("validate: schema mismatch")

	// ErrInvalidSchema is returned when a schema cannot be resolved.
	ErrInvalidSchema = errors.New("validate: invalid schema")
)

// FieldError describes why a single parameter was rejected.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("validate: %s: %s", e.Field, e.Reason)
}

// Is reports whether target is ErrInvalidInput.
func (e *FieldError) Is(target error) bool {
	return target == ErrInvalidInput
}
