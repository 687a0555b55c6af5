package domain

import "errors"

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrInvalidISRC signals a malformed track identifier.
	ErrInvalidISRC = errors.New("invalid isrc")
	// ErrRateLimited signals a rate limit hit at an LLM or embedding provider.
	ErrRateLimited = errors.New("rate limited")
	// ErrAuthFailed signals rejected provider credentials.
	ErrAuthFailed = errors.New("authentication failed")
	// ErrProviderUnavailable signals a transient LLM/embedding provider failure.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrDimensionMismatch signals an embedding of unexpected length.
	// This is a model/config mismatch, never a transient fault.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	// ErrIndexUnavailable signals a failure in the search index backend.
	ErrIndexUnavailable = errors.New("index unavailable")
)

// Retryable reports whether err represents a transient provider fault.
// Rate limits and server-side failures are retryable; auth rejections and
// dimension mismatches are not.
func Retryable(err error) bool {
	switch {
	case errors.Is(err, ErrRateLimited),
		errors.Is(err, ErrProviderUnavailable),
		errors.Is(err, ErrIndexUnavailable):
		return true
	default:
		return false
	}
}
