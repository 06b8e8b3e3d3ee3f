// Package apperr defines the sentinel errors for the portal's error taxonomy.
// Handlers map these to HTTP statuses in exactly one place; services return
// them so guards can fail closed without leaking cause.
package apperr

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized maps to 401. The cause (bad password, inactive
	// account, expired token) is never disclosed to the caller.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden maps to 403: valid identity, missing permission.
	ErrForbidden = errors.New("forbidden")

	// ErrNotFound maps to 404. Scope misses return this same error so that
	// resource existence in another tenant cannot be inferred.
	ErrNotFound = errors.New("not found")

	// ErrConflict maps to 409 on unique-constraint violations.
	ErrConflict = errors.New("conflict")
)

// ValidationError maps to 400 with field-level detail. Secret values are
// never placed in Message.
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

// Validation builds a field-level validation error
func Validation(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// IsValidation reports whether err is a ValidationError
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
