// Package ingest implements the per-track ingestion pipeline: signal
// fetching, interpretation, description, embedding and document upsert.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/metrics"
)

// Step names surfaced in failure signals and metrics.
const (
	StepFetchAudioFeatures = "fetch-audio-features"
	StepFetchLyrics        = "fetch-lyrics"
	StepInterpretation     = "generate-interpretation"
	StepShortDescription   = "generate-short-description"
	StepEmbed              = "embed-interpretation"
	StepStore              = "store-document"
)

// Config holds workflow parameters.
type Config struct {
	// Dimension is the dense vector size; zero-vector placeholders use it.
	Dimension       int
	StepTimeout     time.Duration
	StepRetries     int
	RetryBackoff    time.Duration
	MaxOutputTokens int
}

// Workflow runs the ingestion pipeline for one track at a time. Steps are
// strictly sequential; each is retried independently.
type Workflow struct {
	features  AudioFeaturesSource
	lyrics    LyricsSource
	generator domain.Generator
	embedder  domain.Embedder
	indexer   Indexer
	sink      Sink
	cfg       Config
	logger    *zap.Logger
}

// NewWorkflow creates an ingestion workflow. The embedder is expected to
// carry the document instruction prefix already.
func NewWorkflow(
	features AudioFeaturesSource,
	lyrics LyricsSource,
	generator domain.Generator,
	embedder domain.Embedder,
	indexer Indexer,
	sink Sink,
	cfg Config,
	logger *zap.Logger,
) *Workflow {
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 500 * time.Millisecond
	}
	return &Workflow{
		features:  features,
		lyrics:    lyrics,
		generator: generator,
		embedder:  embedder,
		indexer:   indexer,
		sink:      sink,
		cfg:       cfg,
		logger:    logger,
	}
}

// stepError carries the failed step name and consumed retry count.
type stepError struct {
	step    string
	retries int
	err     error
}

func (e *stepError) Error() string {
	return fmt.Sprintf("step %s failed after %d retries: %v", e.step, e.retries, e.err)
}

func (e *stepError) Unwrap() error { return e.err }

// Run executes the full pipeline for one request and returns the completion
// summary. On step exhaustion a failure signal is emitted and the step error
// returned.
func (w *Workflow) Run(ctx context.Context, req domain.IngestionRequest) (domain.IngestionCompletion, error) {
	log := w.logger.With(zap.String("isrc", string(req.ISRC)))

	var features *domain.AudioFeatures
	err := w.runStep(ctx, log, StepFetchAudioFeatures, func(ctx context.Context) error {
		var ferr error
		features, ferr = w.features.Fetch(ctx, req.ISRC)
		return ferr
	})
	if err != nil {
		return domain.IngestionCompletion{}, w.fail(ctx, log, req, err)
	}

	var lyrics *domain.Lyrics
	err = w.runStep(ctx, log, StepFetchLyrics, func(ctx context.Context) error {
		var lerr error
		lyrics, lerr = w.lyrics.Fetch(ctx, req.ISRC)
		return lerr
	})
	if err != nil {
		return domain.IngestionCompletion{}, w.fail(ctx, log, req, err)
	}

	// Instrumental tracks never reach the interpretation model.
	var interp *domain.Interpretation
	if lyrics != nil {
		err = w.runStep(ctx, log, StepInterpretation, func(ctx context.Context) error {
			var ierr error
			interp, ierr = w.interpret(ctx, req, lyrics)
			return ierr
		})
		if err != nil {
			return domain.IngestionCompletion{}, w.fail(ctx, log, req, err)
		}
	}

	desc := w.describe(ctx, log, req, interp, features)

	var vector []float32
	if interp != nil {
		err = w.runStep(ctx, log, StepEmbed, func(ctx context.Context) error {
			res, eerr := w.embedder.Embed(ctx, interp.Text)
			if eerr != nil {
				return eerr
			}
			vector = res.Embedding
			return nil
		})
		if err != nil {
			return domain.IngestionCompletion{}, w.fail(ctx, log, req, err)
		}
	} else {
		vector = domain.ZeroVector(w.cfg.Dimension)
	}

	doc := &domain.TrackDocument{
		ID:               req.ISRC.DocumentID(),
		ISRC:             req.ISRC,
		Title:            req.Title,
		Artist:           req.Artist,
		Album:            req.Album,
		ArtworkURL:       req.ArtworkURL,
		Lyrics:           lyrics,
		Interpretation:   interp,
		ShortDescription: desc,
		AudioFeatures:    features,
	}

	err = w.runStep(ctx, log, StepStore, func(ctx context.Context) error {
		return w.indexer.Upsert(ctx, doc, vector)
	})
	if err != nil {
		return domain.IngestionCompletion{}, w.fail(ctx, log, req, err)
	}

	completion := domain.IngestionCompletion{
		ISRC:                req.ISRC,
		HasLyrics:           lyrics != nil,
		HasAudioFeatures:    features.HasAny(),
		HasInterpretation:   interp != nil,
		HasShortDescription: desc != nil,
		EmbeddingDimension:  len(vector),
	}
	w.sink.Completed(ctx, completion)
	metrics.IngestTracksTotal.WithLabelValues("success").Inc()

	log.Info("Track ingested",
		zap.Bool("has_lyrics", completion.HasLyrics),
		zap.Bool("has_interpretation", completion.HasInterpretation),
		zap.Bool("has_audio_features", completion.HasAudioFeatures))

	return completion, nil
}

const interpretationPrompt = `You are a music analyst. Read the lyrics below and write an
interpretation of the track: its themes, mood, imagery and what the song is
about. Write flowing prose, no lists, at most 300 words.

Track: %q by %q
Lyrics:
%s`

func (w *Workflow) interpret(ctx context.Context, req domain.IngestionRequest, lyrics *domain.Lyrics) (*domain.Interpretation, error) {
	prompt := fmt.Sprintf(interpretationPrompt, req.Title, req.Artist, lyrics.Body)

	res, err := w.generator.Generate(ctx, prompt, w.cfg.MaxOutputTokens)
	if err != nil {
		return nil, err
	}
	text := strings.TrimSpace(res.Text)
	if text == "" {
		return nil, fmt.Errorf("empty interpretation: %w", domain.ErrProviderUnavailable)
	}
	return &domain.Interpretation{
		Text:         text,
		Model:        res.Model,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
	}, nil
}

// fail emits the failure signal for the exhausted step. The raw error is
// still returned so synchronous callers see it.
func (w *Workflow) fail(ctx context.Context, log *zap.Logger, req domain.IngestionRequest, err error) error {
	failure := domain.IngestionFailure{ISRC: req.ISRC, Message: err.Error()}
	var serr *stepError
	if errors.As(err, &serr) {
		failure.Step = serr.step
		failure.Retries = serr.retries
		failure.Message = serr.err.Error()
	}

	w.sink.Failed(ctx, failure)
	metrics.IngestTracksTotal.WithLabelValues("failure").Inc()

	log.Error("Track ingestion failed",
		zap.String("step", failure.Step),
		zap.Int("retries", failure.Retries),
		zap.Error(err))
	return err
}

// runStep executes one pipeline step with a per-attempt timeout and a
// bounded retry budget. Only retryable errors consume retries; everything
// else fails immediately.
func (w *Workflow) runStep(ctx context.Context, log *zap.Logger, step string, fn func(ctx context.Context) error) error {
	var lastErr error

	for attempt := 0; attempt <= w.cfg.StepRetries; attempt++ {
		if attempt > 0 {
			metrics.IngestStepRetriesTotal.WithLabelValues(step).Inc()
			if err := sleepBackoff(ctx, w.cfg.RetryBackoff, attempt); err != nil {
				return &stepError{step: step, retries: attempt - 1, err: err}
			}
		}

		start := time.Now()
		sctx := ctx
		var cancel context.CancelFunc
		if w.cfg.StepTimeout > 0 {
			sctx, cancel = context.WithTimeout(ctx, w.cfg.StepTimeout)
		}
		err := fn(sctx)
		if cancel != nil {
			cancel()
		}
		metrics.IngestStepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())

		if err == nil {
			return nil
		}
		lastErr = err

		if !domain.Retryable(err) {
			return &stepError{step: step, retries: attempt, err: err}
		}

		log.Warn("Ingestion step failed, will retry",
			zap.String("step", step),
			zap.Int("attempt", attempt+1),
			zap.Error(err))
	}

	return &stepError{step: step, retries: w.cfg.StepRetries, err: lastErr}
}

// sleepBackoff waits attempt-scaled exponential backoff or until ctx is done.
func sleepBackoff(ctx context.Context, base time.Duration, attempt int) error {
	d := base << (attempt - 1)
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
