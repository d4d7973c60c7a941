// Package apperr defines the error taxonomy shared by the store, services
// and HTTP handlers. Callers match with errors.Is against the sentinels.
package apperr

import (
	"errors"
	"fmt"
)

var (
	ErrValidation           = errors.New("validation failed")
	ErrEmptyCart            = errors.New("cart is empty")
	ErrNotFound             = errors.New("not found")
	ErrAuthRequired         = errors.New("authentication required")
	ErrBackendUnavailable   = errors.New("backend unavailable")
	ErrConfirmationRequired = errors.New("explicit confirmation required")
	ErrConflict             = errors.New("conflict")
)

// ValidationError reports a missing or malformed input field.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func Invalid(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// NotFound wraps ErrNotFound with the kind and id of the missing record.
func NotFound(kind, id string) error {
	return fmt.Errorf("%s %s: %w", kind, id, ErrNotFound)
}

// Backend marks err as a storage or network failure. Nil stays nil and
// errors already classified are returned unchanged.
func Backend(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrBackendUnavailable) || errors.Is(err, ErrNotFound) {
		return err
	}
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
