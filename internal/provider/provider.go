// Package provider wraps generative-text backends behind a uniform call
// contract. Each client normalizes its upstream's errors into a
// status-coded *Error so callers can apply a single retry policy.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single upstream call.
const DefaultTimeout = 30 * time.Second

// ErrUnavailable indicates the client or its credentials are not configured.
// Maps to a retryable 503 at the API surface.
var ErrUnavailable = errors.New("provider: client not configured")

// Options carries per-call generation parameters.
type Options struct {
	Temperature     float64 // Sampling temperature, 0 is deterministic.
	MaxOutputTokens int     // Output token ceiling, 0 uses the provider default.
}

// Result is the uniform output of a generation call.
type Result struct {
	Text       string // Generated text, may be empty.
	TokensUsed int64  // Total token cost, 0 when the provider reports none.
}

// Client is the uniform contract over a single generative-text backend.
// Implementations must be safe for concurrent use.
type Client interface {
	// Generate runs one completion call against the given model.
	Generate(ctx context.Context, model, content string, opts Options) (Result, error)
	// Name identifies the backend for logging and usage records.
	Name() string
}

// Error is a normalized upstream failure.
type Error struct {
	Provider string // Client name.
	Status   int    // Normalized HTTP status.
	Message  string // Upstream message.
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("provider %s: status %d: %s", e.Provider, e.Status, e.Message)
}

// normalizeStatus maps quota-exhaustion messages to 429 regardless of the
// status the upstream chose to report them under.
func normalizeStatus(status int, message string) int {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "quota") ||
		strings.Contains(lower, "rate limit") ||
		strings.Contains(lower, "resource_exhausted") {
		return http.StatusTooManyRequests
	}
	if status == 0 {
		return http.StatusBadGateway
	}
	return status
}

// timeoutError converts context timeouts into a normalized gateway-timeout
// error so the facade can fall back on slow providers.
func timeoutError(name string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Provider: name, Status: http.StatusGatewayTimeout, Message: "provider call timed out"}
	}
	return nil
}
