package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound             = errors.New("not found")
	ErrAuthDenied           = errors.New("auth denied")
	ErrProviderUnavailable  = errors.New("provider unavailable")
	ErrRateLimited          = errors.New("rate limited")
	ErrTransient            = errors.New("transient failure")
	ErrValidation           = errors.New("validation failed")
	ErrCancelled            = errors.New("cancelled")
	ErrConfirmationRequired = errors.New("confirmation required")
	ErrBusy                 = errors.New("busy")
)

// ValidationError reports an invalid request input. Key names the message in
// the i18n catalog so handlers can localize it.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s", e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// Invalid builds a ValidationError.
func Invalid(key, message string) error {
	return &ValidationError{Key: key, Message: message}
}

// IsTierFallback reports whether err allows one retry on the fallback tier.
func IsTierFallback(err error) bool {
	return errors.Is(err, ErrAuthDenied) ||
		errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrProviderUnavailable)
}
