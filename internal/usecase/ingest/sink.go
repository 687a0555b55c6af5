package ingest

import (
	"context"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

// LogSink publishes pipeline signals to the structured log. It is the
// default sink when no downstream consumer is wired.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a logging sink.
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Completed logs the completion summary.
func (s *LogSink) Completed(_ context.Context, c domain.IngestionCompletion) {
	s.logger.Info("Ingestion completed",
		zap.String("isrc", string(c.ISRC)),
		zap.Bool("has_lyrics", c.HasLyrics),
		zap.Bool("has_audio_features", c.HasAudioFeatures),
		zap.Bool("has_interpretation", c.HasInterpretation),
		zap.Bool("has_short_description", c.HasShortDescription),
		zap.Int("embedding_dimension", c.EmbeddingDimension))
}

// Failed logs the failure signal.
func (s *LogSink) Failed(_ context.Context, f domain.IngestionFailure) {
	s.logger.Error("Ingestion failed",
		zap.String("isrc", string(f.ISRC)),
		zap.String("step", f.Step),
		zap.Int("retries", f.Retries),
		zap.String("message", f.Message))
}
