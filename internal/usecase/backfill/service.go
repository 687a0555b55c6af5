// Package backfill re-ingests every indexed track with a resumable cursor,
// for schema or model migrations.
package backfill

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/db"
	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/usecase/ingest"
)

// ErrAlreadyRunning is returned when a backfill start races a running one.
var ErrAlreadyRunning = errors.New("backfill already running")

// persistEvery bounds progress-write frequency during a run.
const persistEvery = 10

var progressKey = domain.KeyPrefix + "backfill:progress"

// Index is the document-scan contract consumed by backfill.
type Index interface {
	Keys(ctx context.Context) ([]string, error)
	GetByKey(ctx context.Context, key string) (*domain.TrackDocument, error)
}

// Ingestor runs one ingestion synchronously.
type Ingestor interface {
	RunSync(ctx context.Context, req domain.IngestionRequest) (domain.IngestionCompletion, error)
}

// store persists the progress cursor.
type store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
}

// Progress is the resumable backfill cursor. It survives restarts in the
// key-value store and is terminal once IsComplete.
type Progress struct {
	LastPointID    string    `json:"last_point_id,omitempty"`
	ProcessedCount int       `json:"processed_count"`
	SuccessCount   int       `json:"success_count"`
	ErrorCount     int       `json:"error_count"`
	SkippedCount   int       `json:"skipped_count"`
	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	IsComplete     bool      `json:"is_complete"`
}

// Service drives one backfill run at a time over the whole index.
type Service struct {
	index  Index
	runner Ingestor
	store  store
	logger *zap.Logger

	mu       sync.Mutex
	running  bool
	progress Progress
}

// New creates a backfill service.
func New(index Index, runner Ingestor, s store, logger *zap.Logger) *Service {
	return &Service{index: index, runner: runner, store: s, logger: logger}
}

// Start begins or resumes a backfill in the background and returns the
// starting cursor. A completed previous run starts over from scratch.
func (s *Service) Start(ctx context.Context) (Progress, error) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return Progress{}, ErrAlreadyRunning
	}

	progress, err := s.load(ctx)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		s.mu.Unlock()
		return Progress{}, fmt.Errorf("load progress: %w", err)
	}
	if errors.Is(err, domain.ErrNotFound) || progress.IsComplete {
		progress = Progress{StartedAt: time.Now().UTC()}
	}

	s.running = true
	s.progress = progress
	s.mu.Unlock()

	go s.run(context.WithoutCancel(ctx), progress)

	return progress, nil
}

// Status returns the current cursor: the in-memory one while running, the
// stored one otherwise.
func (s *Service) Status(ctx context.Context) (Progress, error) {
	s.mu.Lock()
	if s.running {
		p := s.progress
		s.mu.Unlock()
		return p, nil
	}
	s.mu.Unlock()
	return s.load(ctx)
}

func (s *Service) run(ctx context.Context, progress Progress) {
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	keys, err := s.index.Keys(ctx)
	if err != nil {
		s.logger.Error("Backfill scan failed", zap.Error(err))
		return
	}
	sort.Strings(keys)

	// Resume after the last processed key.
	if progress.LastPointID != "" {
		i := sort.SearchStrings(keys, progress.LastPointID)
		if i < len(keys) && keys[i] == progress.LastPointID {
			i++
		}
		keys = keys[i:]
	}

	s.logger.Info("Backfill started",
		zap.Int("remaining", len(keys)),
		zap.Int("processed", progress.ProcessedCount))

	for i, key := range keys {
		s.processKey(ctx, key, &progress)

		progress.LastPointID = key
		progress.ProcessedCount++
		progress.UpdatedAt = time.Now().UTC()

		if (i+1)%persistEvery == 0 {
			s.persist(ctx, progress)
		}
	}

	progress.IsComplete = true
	progress.UpdatedAt = time.Now().UTC()
	s.persist(ctx, progress)

	s.logger.Info("Backfill complete",
		zap.Int("processed", progress.ProcessedCount),
		zap.Int("success", progress.SuccessCount),
		zap.Int("errors", progress.ErrorCount),
		zap.Int("skipped", progress.SkippedCount))
}

func (s *Service) processKey(ctx context.Context, key string, progress *Progress) {
	defer s.snapshot(progress)

	doc, err := s.index.GetByKey(ctx, key)
	if err != nil {
		s.logger.Warn("Backfill: unreadable document", zap.String("key", key), zap.Error(err))
		progress.ErrorCount++
		return
	}
	if doc.ISRC == "" {
		progress.SkippedCount++
		return
	}

	_, err = s.runner.RunSync(ctx, domain.IngestionRequest{
		ISRC:       doc.ISRC,
		Title:      doc.Title,
		Artist:     doc.Artist,
		Album:      doc.Album,
		ArtworkURL: doc.ArtworkURL,
		Force:      true,
	})
	switch {
	case errors.Is(err, ingest.ErrSuppressed):
		progress.SkippedCount++
	case err != nil:
		s.logger.Warn("Backfill: re-ingestion failed",
			zap.String("isrc", string(doc.ISRC)), zap.Error(err))
		progress.ErrorCount++
	default:
		progress.SuccessCount++
	}
}

// snapshot publishes the working cursor so Status can report mid-run.
func (s *Service) snapshot(progress *Progress) {
	s.mu.Lock()
	s.progress = *progress
	s.mu.Unlock()
}

func (s *Service) load(ctx context.Context) (Progress, error) {
	data, err := s.store.Get(ctx, progressKey)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return Progress{}, domain.ErrNotFound
		}
		return Progress{}, fmt.Errorf("read progress: %w", err)
	}
	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return Progress{}, fmt.Errorf("unmarshal progress: %w", err)
	}
	return p, nil
}

func (s *Service) persist(ctx context.Context, p Progress) {
	data, err := json.Marshal(p)
	if err != nil {
		return
	}
	if err := s.store.Set(ctx, progressKey, data); err != nil {
		s.logger.Warn("Failed to persist backfill progress", zap.Error(err))
	}
}
