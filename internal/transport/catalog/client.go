// Package catalog provides HTTP clients for the external per-track signal
// providers: audio features and lyrics. For both, a 404 means the signal is
// absent for that track, which is a normal outcome and not an error.
package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

// Config holds settings for one signal provider.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

type client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func newClient(cfg Config) client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return client{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// getJSON fetches path and decodes the body into out.
// Returns (false, nil) on 404 without touching out.
func (c client) getJSON(ctx context.Context, path string, out any) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("build request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("do request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		_, _ = io.Copy(io.Discard, resp.Body)
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrRateLimited)
	case resp.StatusCode >= 500:
		return false, fmt.Errorf("status %d: %w", resp.StatusCode, domain.ErrProviderUnavailable)
	case resp.StatusCode != http.StatusOK:
		return false, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("decode response: %w", err)
	}
	return true, nil
}

func isrcPath(prefix string, isrc domain.ISRC) string {
	return prefix + url.PathEscape(isrc.String())
}
