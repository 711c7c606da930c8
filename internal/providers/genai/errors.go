package genai

import (
	"fmt"
	"net/http"
	"strings"

	"studio/internal/domain"
)

// APIError is a failed provider call. It unwraps to the domain sentinel that
// classifies it, so callers only ever match with errors.Is.
type APIError struct {
	Status  int
	Code    string
	Message string
	cause   error
}

func (e *APIError) Error() string {
	switch {
	case e.Status > 0 && e.Code != "":
		return fmt.Sprintf("gemini status %d (%s): %s", e.Status, e.Code, e.Message)
	case e.Status > 0:
		return fmt.Sprintf("gemini status %d: %s", e.Status, e.Message)
	default:
		return fmt.Sprintf("gemini %s: %s", strings.ToLower(e.Code), e.Message)
	}
}

// Unwrap exposes the sentinel and, for transport failures, the cause.
func (e *APIError) Unwrap() []error {
	if e.cause != nil {
		return []error{e.Kind(), e.cause}
	}
	return []error{e.Kind()}
}

// Kind maps the status to the domain taxonomy.
func (e *APIError) Kind() error {
	switch strings.ToUpper(e.Code) {
	case "PERMISSION_DENIED", "UNAUTHENTICATED":
		return domain.ErrAuthDenied
	case "NOT_FOUND":
		return domain.ErrNotFound
	case "UNAVAILABLE":
		return domain.ErrProviderUnavailable
	case "RESOURCE_EXHAUSTED":
		return domain.ErrRateLimited
	}
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrAuthDenied
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusServiceUnavailable:
		return domain.ErrProviderUnavailable
	case http.StatusTooManyRequests:
		return domain.ErrRateLimited
	}
	return domain.ErrTransient
}
