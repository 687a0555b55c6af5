package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

// LyricsClient fetches track lyrics by ISRC.
type LyricsClient struct {
	client
}

// NewLyricsClient creates a lyrics provider client.
func NewLyricsClient(cfg Config) *LyricsClient {
	return &LyricsClient{client: newClient(cfg)}
}

type lyricsPayload struct {
	Body string `json:"body"`
}

// Fetch returns the lyrics for a track, or (nil, nil) when the track is
// instrumental or the provider has no lyrics for that ISRC.
func (c *LyricsClient) Fetch(ctx context.Context, isrc domain.ISRC) (*domain.Lyrics, error) {
	var payload lyricsPayload
	found, err := c.getJSON(ctx, isrcPath("/v1/lyrics/", isrc), &payload)
	if err != nil {
		return nil, fmt.Errorf("fetch lyrics %s: %w", isrc, err)
	}
	if !found || strings.TrimSpace(payload.Body) == "" {
		return nil, nil
	}
	return &domain.Lyrics{Body: payload.Body}, nil
}
