package entities

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMode is returned when an operation is not allowed in the session's current mode
	ErrInvalidMode = errors.New("operation not allowed in current mode")
	// ErrOutOfTurn is returned when an appended turn would break speaker alternation
	ErrOutOfTurn = errors.New("turn is out of order")
)

// ValidationError reports rejected user input. The session is never mutated
// when one is returned.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// IsValidationError reports whether err wraps a *ValidationError
func IsValidationError(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
