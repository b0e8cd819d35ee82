package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrConfigNotFound indicates a configuration key is not set.
	ErrConfigNotFound = errors.New("config key not found")

	// Run Errors.

	// ErrRunInProgress indicates a dump run is already active.
	// A second start request is rejected, never queued.
	ErrRunInProgress = errors.New("a dump is already in progress")

	// ErrNotRunning indicates a stop was requested while no run is active.
	ErrNotRunning = errors.New("no dump is running")

	// ErrNoToken indicates no auth token could be resolved.
	ErrNoToken = errors.New("no auth token found: run 'chronicle auth login' first")

	// ErrNoScopes indicates the account has no reachable servers.
	ErrNoScopes = errors.New("no servers found for this account")

	// Authentication Errors.

	// ErrAuthInvalid indicates the authentication credentials are invalid.
	ErrAuthInvalid = errors.New("authentication invalid")

	// Transport Errors.

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")

	// ErrForbidden indicates the account cannot read the requested resource.
	ErrForbidden = errors.New("forbidden")

	// ErrRemoteUnavailable indicates the remote classifier is not configured.
	ErrRemoteUnavailable = errors.New("remote classifier unavailable")
)

// RateLimitError is returned by a message source when the API asks the
// caller to cool down before retrying the same request.
type RateLimitError struct {
	// RetryAfter is the server-provided cool-down.
	RetryAfter time.Duration

	// Known is false when the server did not say how long to wait.
	Known bool
}

// Error implements the error interface.
func (e *RateLimitError) Error() string {
	if !e.Known {
		return "rate limited"
	}
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter)
}

// Unwrap allows errors.Is(err, ErrRateLimited).
func (e *RateLimitError) Unwrap() error {
	return ErrRateLimited
}

// APIError represents a non-success response from the remote API.
type APIError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.StatusCode)
	}
	return fmt.Sprintf("api error: status %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps well-known statuses onto domain sentinels.
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case 401:
		return ErrAuthInvalid
	case 403:
		return ErrForbidden
	case 404:
		return ErrNotFound
	default:
		return nil
	}
}

// IsRateLimited reports whether err signals a rate limit.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsForbidden reports whether err signals an inaccessible resource.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}

// RetryAfter extracts the cool-down from a rate limit error.
// The second result is false when err carries no usable duration.
func RetryAfter(err error) (time.Duration, bool) {
	var rle *RateLimitError
	if errors.As(err, &rle) && rle.Known {
		return rle.RetryAfter, true
	}
	return 0, false
}
