package tunedex

import (
	"errors"
	"fmt"
)

// Error codes returned by the API.
const (
	CodeEmptyQuery           = "EMPTY_QUERY"
	CodeLLMUnavailable       = "LLM_UNAVAILABLE"
	CodeEmbeddingUnavailable = "EMBEDDING_UNAVAILABLE"
	CodeIndexUnavailable     = "INDEX_UNAVAILABLE"
	CodeTimeout              = "TIMEOUT"
	CodeInternal             = "INTERNAL_ERROR"
	CodeBackfillRunning      = "BACKFILL_RUNNING"
	CodeNotFound             = "NOT_FOUND"
	CodeUnauthorized         = "UNAUTHORIZED"
)

// APIError is a typed error returned by the tunedex API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tunedex: %s: %s", e.Code, e.Message)
}

// IsRetryable reports whether the error is transient and the caller may
// retry the request.
func IsRetryable(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Retryable
	}
	return false
}
