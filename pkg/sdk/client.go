// Package tunedex is the HTTP client for the tunedex discovery API.
package tunedex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultTimeout = 30 * time.Second

// Client talks to a tunedex server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a Client for the given server base URL.
func New(baseURL string, opts ...Option) *Client {
	cfg := &clientConfig{timeout: defaultTimeout}
	for _, o := range opts {
		o.apply(cfg)
	}

	hc := cfg.httpClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.timeout}
	}

	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     cfg.apiKey,
		httpClient: hc,
	}
}

// Search runs a discovery query. Page is zero-based; pageSize 0 uses the
// server default.
func (c *Client) Search(ctx context.Context, query string, page, pageSize int) (*SearchResponse, error) {
	body := map[string]any{
		"query":     query,
		"page":      page,
		"page_size": pageSize,
	}

	var resp SearchResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/search", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IngestTrack triggers ingestion of a single track. With force set the
// server bypasses its idempotency window.
func (c *Client) IngestTrack(ctx context.Context, track Track, force bool) (*IngestResult, error) {
	body := map[string]any{
		"isrc":        track.ISRC,
		"title":       track.Title,
		"artist":      track.Artist,
		"album":       track.Album,
		"artwork_url": track.ArtworkURL,
		"force":       force,
	}

	var resp IngestResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/tracks/ingest", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleTrack asks the server to ingest the track if it is not already
// indexed.
func (c *Client) ScheduleTrack(ctx context.Context, track Track) (*Decision, error) {
	var resp Decision
	if err := c.do(ctx, http.MethodPost, "/api/v1/tracks/schedule", track, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ScheduleAlbum schedules a batch of tracks. Decisions come back in input
// order.
func (c *Client) ScheduleAlbum(ctx context.Context, tracks []Track) (*AlbumResult, error) {
	body := map[string]any{"tracks": tracks}

	var resp AlbumResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/albums/schedule", body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// StartBackfill launches a full re-ingestion run. Returns an APIError with
// code BACKFILL_RUNNING when one is already in flight.
func (c *Client) StartBackfill(ctx context.Context) (*BackfillProgress, error) {
	var resp BackfillProgress
	if err := c.do(ctx, http.MethodPost, "/api/v1/backfill", struct{}{}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BackfillStatus reports the current or last backfill run.
func (c *Client) BackfillStatus(ctx context.Context) (*BackfillProgress, error) {
	var resp BackfillProgress
	if err := c.do(ctx, http.MethodGet, "/api/v1/backfill", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Ping checks that the server reports itself healthy.
func (c *Client) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("tunedex: encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("tunedex: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("tunedex: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("tunedex: decode response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{StatusCode: resp.StatusCode}
	if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = CodeInternal
		apiErr.Message = resp.Status
	}
	return apiErr
}
