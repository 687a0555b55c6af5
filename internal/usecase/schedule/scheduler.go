// Package schedule decides which tracks need ingestion at library-add time
// and dispatches workflow requests with bounded parallelism.
package schedule

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

// ExistenceChecker reports which tracks are already indexed.
type ExistenceChecker interface {
	Exists(ctx context.Context, isrc domain.ISRC) (bool, error)
	CheckExistence(ctx context.Context, isrcs []domain.ISRC) ([]bool, error)
}

// Dispatcher hands an ingestion request to the asynchronous runner. The
// return value reports acceptance, not ingestion success.
type Dispatcher interface {
	Dispatch(req domain.IngestionRequest) bool
}

// Track is one unvalidated library entry to consider for ingestion.
type Track struct {
	ISRC       string
	Title      string
	Artist     string
	Album      string
	ArtworkURL string
}

// Decision records what the scheduler did with one track.
type Decision struct {
	ISRC      string `json:"isrc"`
	Scheduled bool   `json:"scheduled"`
	Reason    string `json:"reason,omitempty"`
}

// Config holds scheduler parameters.
type Config struct {
	// Workers bounds album-batch dispatch parallelism.
	Workers      int
	SLAThreshold time.Duration
}

// Scheduler is the library-add side of the ingestion pipeline. Scheduling is
// best-effort: nothing here ever fails the library mutation that triggered it.
type Scheduler struct {
	checker    ExistenceChecker
	dispatcher Dispatcher
	cfg        Config
	logger     *zap.Logger
}

// New creates a scheduler.
func New(checker ExistenceChecker, dispatcher Dispatcher, cfg Config, logger *zap.Logger) *Scheduler {
	if cfg.Workers <= 0 {
		cfg.Workers = 5
	}
	return &Scheduler{
		checker:    checker,
		dispatcher: dispatcher,
		cfg:        cfg,
		logger:     logger,
	}
}

// ScheduleTrack considers one track. Invalid ISRCs are skipped with a
// reason; an existence-check failure is treated as "not indexed" so a broken
// check can never block scheduling.
func (s *Scheduler) ScheduleTrack(ctx context.Context, track Track) Decision {
	isrc, err := domain.ParseISRC(track.ISRC)
	if err != nil {
		s.logger.Debug("Skipping track with invalid ISRC",
			zap.String("isrc", track.ISRC),
			zap.String("title", track.Title),
			zap.Error(err))
		return Decision{ISRC: track.ISRC, Reason: fmt.Sprintf("invalid isrc: %v", err)}
	}

	exists, err := s.checker.Exists(ctx, isrc)
	if err != nil {
		s.logger.Warn("Existence check failed, scheduling anyway",
			zap.String("isrc", string(isrc)),
			zap.Error(err))
		exists = false
	}
	if exists {
		return Decision{ISRC: string(isrc), Reason: "already indexed"}
	}

	return s.dispatch(isrc, track)
}

// ScheduleAlbum considers every track of an album: per-track validation, one
// batched existence check, then bounded-parallel dispatch of the missing
// ones. Decisions are returned in track order.
func (s *Scheduler) ScheduleAlbum(ctx context.Context, tracks []Track) []Decision {
	start := time.Now()

	decisions := make([]Decision, len(tracks))
	valid := make([]domain.ISRC, 0, len(tracks))
	validPos := make([]int, 0, len(tracks))

	for i, track := range tracks {
		isrc, err := domain.ParseISRC(track.ISRC)
		if err != nil {
			decisions[i] = Decision{ISRC: track.ISRC, Reason: fmt.Sprintf("invalid isrc: %v", err)}
			continue
		}
		valid = append(valid, isrc)
		validPos = append(validPos, i)
	}

	indexed := s.batchExistence(ctx, valid)

	g := new(errgroup.Group)
	g.SetLimit(s.cfg.Workers)

	for j, isrc := range valid {
		pos := validPos[j]
		if indexed[j] {
			decisions[pos] = Decision{ISRC: string(isrc), Reason: "already indexed"}
			continue
		}
		g.Go(func() error {
			decisions[pos] = s.dispatch(isrc, tracks[pos])
			return nil
		})
	}
	_ = g.Wait()

	if elapsed := time.Since(start); s.cfg.SLAThreshold > 0 && elapsed > s.cfg.SLAThreshold {
		s.logger.Warn("Album scheduling exceeded SLA threshold",
			zap.Duration("elapsed", elapsed),
			zap.Duration("threshold", s.cfg.SLAThreshold),
			zap.Int("tracks", len(tracks)))
	}

	return decisions
}

// batchExistence runs the one-call existence check, failing open to
// all-missing when the check itself breaks.
func (s *Scheduler) batchExistence(ctx context.Context, isrcs []domain.ISRC) []bool {
	if len(isrcs) == 0 {
		return nil
	}
	indexed, err := s.checker.CheckExistence(ctx, isrcs)
	if err != nil || len(indexed) != len(isrcs) {
		s.logger.Warn("Batch existence check failed, scheduling all",
			zap.Int("tracks", len(isrcs)),
			zap.Error(err))
		return make([]bool, len(isrcs))
	}
	return indexed
}

func (s *Scheduler) dispatch(isrc domain.ISRC, track Track) Decision {
	accepted := s.dispatcher.Dispatch(domain.IngestionRequest{
		ISRC:       isrc,
		Title:      track.Title,
		Artist:     track.Artist,
		Album:      track.Album,
		ArtworkURL: track.ArtworkURL,
	})
	if !accepted {
		return Decision{ISRC: string(isrc), Reason: "recently ingested"}
	}
	return Decision{ISRC: string(isrc), Scheduled: true}
}
