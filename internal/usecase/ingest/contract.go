package ingest

import (
	"context"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

// AudioFeaturesSource fetches the audio analysis signal for a track.
// A (nil, nil) return means the provider has nothing for this ISRC, which is
// an acceptable outcome, not a failure.
type AudioFeaturesSource interface {
	Fetch(ctx context.Context, isrc domain.ISRC) (*domain.AudioFeatures, error)
}

// LyricsSource fetches lyrics for a track. (nil, nil) means instrumental.
type LyricsSource interface {
	Fetch(ctx context.Context, isrc domain.ISRC) (*domain.Lyrics, error)
}

// Indexer stores the finished track document.
type Indexer interface {
	Upsert(ctx context.Context, doc *domain.TrackDocument, vector []float32) error
}

// Sink receives pipeline completion and failure signals.
type Sink interface {
	Completed(ctx context.Context, c domain.IngestionCompletion)
	Failed(ctx context.Context, f domain.IngestionFailure)
}
