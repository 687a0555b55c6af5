package catalog

import (
	"context"
	"fmt"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

// AudioFeaturesClient fetches per-track audio analysis by ISRC.
type AudioFeaturesClient struct {
	client
}

// NewAudioFeaturesClient creates an audio-features provider client.
func NewAudioFeaturesClient(cfg Config) *AudioFeaturesClient {
	return &AudioFeaturesClient{client: newClient(cfg)}
}

// Fetch returns the audio features for a track, or (nil, nil) when the
// provider has no analysis for that ISRC.
func (c *AudioFeaturesClient) Fetch(ctx context.Context, isrc domain.ISRC) (*domain.AudioFeatures, error) {
	var features domain.AudioFeatures
	found, err := c.getJSON(ctx, isrcPath("/v1/audio-features/", isrc), &features)
	if err != nil {
		return nil, fmt.Errorf("fetch audio features %s: %w", isrc, err)
	}
	if !found {
		return nil, nil
	}
	return &features, nil
}
