package entity

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an invoice, client, template, payment or
	// notification does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when an optimistic version check or a
	// compare-and-set update loses against a concurrent writer. Callers may
	// retry a bounded number of times.
	ErrConflict = errors.New("concurrent modification conflict")
)

// ValidationError reports rejected input. It is surfaced to the caller and
// never silently corrected.
type ValidationError struct {
	Field  string
	Reason string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation failed: %s", e.Reason)
	}
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NewValidationError creates a ValidationError for a field.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// IsValidation returns true if err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
