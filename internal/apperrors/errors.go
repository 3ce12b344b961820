package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a caller-visible application error with a stable code.
type Error struct {
	Code    string // Stable machine-readable code.
	Message string // Human-readable message.
	Status  int    // HTTP status equivalent.
	Err     error  // Wrapped cause, not exposed to callers.
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped cause.
func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether the caller may retry after a delay.
func (e *Error) Retryable() bool {
	return e.Status == http.StatusTooManyRequests || e.Status == http.StatusServiceUnavailable
}

// Validation builds a 400 validation error.
func Validation(message string) *Error {
	return &Error{Code: "validation_error", Message: message, Status: http.StatusBadRequest}
}

// Unauthenticated builds a 401 error.
func Unauthenticated(message string) *Error {
	return &Error{Code: "unauthenticated", Message: message, Status: http.StatusUnauthorized}
}

// Forbidden builds a 403 error.
func Forbidden(message string) *Error {
	return &Error{Code: "forbidden", Message: message, Status: http.StatusForbidden}
}

// NotFound builds a 404 error.
func NotFound(message string) *Error {
	return &Error{Code: "not_found", Message: message, Status: http.StatusNotFound}
}

// RateLimitExceeded builds a retryable 429 quota breach error.
func RateLimitExceeded(message string) *Error {
	return &Error{Code: "rate_limit_exceeded", Message: message, Status: http.StatusTooManyRequests}
}

// ProviderUnavailable builds a 503 misconfiguration error.
func ProviderUnavailable(err error) *Error {
	return &Error{Code: "provider_unavailable", Message: "generation provider is not configured", Status: http.StatusServiceUnavailable, Err: err}
}

// GenerationFailed builds a 502 error after primary and fallback both failed.
func GenerationFailed(err error) *Error {
	return &Error{Code: "generation_failed", Message: "generation failed on primary and fallback models", Status: http.StatusBadGateway, Err: err}
}

// InvalidPeriod builds a 400 error for out-of-range usage windows.
func InvalidPeriod(message string) *Error {
	return &Error{Code: "invalid_period", Message: message, Status: http.StatusBadRequest}
}

// Internal builds a 500 error.
func Internal(message string, err error) *Error {
	return &Error{Code: "internal_error", Message: message, Status: http.StatusInternalServerError, Err: err}
}

// From extracts an *Error from err, wrapping unknown errors as internal.
func From(err error) *Error {
	if err == nil {
		return nil
	}
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return Internal("unexpected error", err)
}
