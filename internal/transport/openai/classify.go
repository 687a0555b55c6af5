package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

// classifyAPIError maps a go-openai error onto the domain taxonomy:
// 429 -> ErrRateLimited (retryable), 401/403 -> ErrAuthFailed (non-retryable),
// 5xx and transport-level failures -> ErrProviderUnavailable (retryable).
func classifyAPIError(op string, err error) error {
	status := 0

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}

	switch {
	case status == http.StatusTooManyRequests:
		return fmt.Errorf("%s: status %d: %w", op, status, domain.ErrRateLimited)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%s: status %d: %w", op, status, domain.ErrAuthFailed)
	case status >= 500:
		return fmt.Errorf("%s: status %d: %w", op, status, domain.ErrProviderUnavailable)
	case status >= 400:
		// Other client errors are caller bugs, not transient faults.
		return fmt.Errorf("%s: status %d: %w", op, status, err)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s: %w: %w", op, err, domain.ErrProviderUnavailable)
	default:
		// Connection refused/reset and other transport faults.
		return fmt.Errorf("%s: %v: %w", op, err, domain.ErrProviderUnavailable)
	}
}
