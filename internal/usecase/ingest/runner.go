package ingest

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
	"golang.org/x/time/rate"

	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/metrics"
)

// ErrSuppressed is returned by synchronous runs for an ISRC still inside the
// idempotency window.
var ErrSuppressed = errors.New("ingestion suppressed by idempotency window")

// idempotencyCacheSize bounds the tracked-ISRC set; entries also expire with
// the configured window.
const idempotencyCacheSize = 8192

// RunnerConfig holds runner parameters.
type RunnerConfig struct {
	Concurrency       int
	ThrottlePerSec    float64
	ThrottleBurst     int
	IdempotencyWindow time.Duration
}

// Runner executes ingestion workflows with bounded concurrency, an outbound
// throttle and an ISRC-keyed idempotency window. Distinct ISRCs run in
// parallel; duplicate triggers inside the window collapse to one execution.
type Runner struct {
	workflow *Workflow
	sem      *semaphore.Weighted
	limiter  *rate.Limiter
	claimMu  sync.Mutex
	recent   *expirable.LRU[domain.ISRC, time.Time]
	logger   *zap.Logger

	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner creates an ingestion runner.
func NewRunner(workflow *Workflow, cfg RunnerConfig, logger *zap.Logger) *Runner {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ThrottlePerSec <= 0 {
		cfg.ThrottlePerSec = 2
	}
	if cfg.ThrottleBurst <= 0 {
		cfg.ThrottleBurst = 1
	}
	if cfg.IdempotencyWindow <= 0 {
		cfg.IdempotencyWindow = 24 * time.Hour
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		workflow: workflow,
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
		limiter:  rate.NewLimiter(rate.Limit(cfg.ThrottlePerSec), cfg.ThrottleBurst),
		recent:   expirable.NewLRU[domain.ISRC, time.Time](idempotencyCacheSize, nil, cfg.IdempotencyWindow),
		logger:   logger,
		baseCtx:  ctx,
		cancel:   cancel,
	}
}

// Dispatch schedules one ingestion asynchronously and returns whether it was
// accepted. The run is detached from the caller's lifetime; its outcome goes
// to the sink and logs, never back to the caller.
func (r *Runner) Dispatch(req domain.IngestionRequest) bool {
	if !r.claim(req) {
		return false
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.execute(r.baseCtx, req)
	}()
	return true
}

// RunSync executes one ingestion synchronously under the same concurrency
// and throttle bounds. Used by backfill and the manual trigger endpoint.
func (r *Runner) RunSync(ctx context.Context, req domain.IngestionRequest) (domain.IngestionCompletion, error) {
	if !r.claim(req) {
		return domain.IngestionCompletion{}, ErrSuppressed
	}

	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.release(req)
		return domain.IngestionCompletion{}, err
	}
	defer r.sem.Release(1)

	if err := r.limiter.Wait(ctx); err != nil {
		r.release(req)
		return domain.IngestionCompletion{}, err
	}

	completion, err := r.workflow.Run(ctx, req)
	if err != nil {
		r.release(req)
		return domain.IngestionCompletion{}, err
	}
	return completion, nil
}

// Shutdown waits for in-flight ingestions to finish, or cancels them when
// the context expires.
func (r *Runner) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		r.cancel()
		return nil
	case <-ctx.Done():
		r.cancel()
		return ctx.Err()
	}
}

// claim reserves the ISRC in the idempotency window. The check and the
// reservation happen under one lock so concurrent duplicate triggers
// collapse to a single claim.
func (r *Runner) claim(req domain.IngestionRequest) bool {
	r.claimMu.Lock()
	defer r.claimMu.Unlock()

	if !req.Force {
		if _, seen := r.recent.Get(req.ISRC); seen {
			metrics.IngestTracksTotal.WithLabelValues("suppressed").Inc()
			r.logger.Debug("Ingestion suppressed by idempotency window",
				zap.String("isrc", string(req.ISRC)))
			return false
		}
	}
	r.recent.Add(req.ISRC, time.Now())
	return true
}

// release frees the idempotency claim after a failed or aborted run so a
// later trigger is not suppressed.
func (r *Runner) release(req domain.IngestionRequest) {
	r.claimMu.Lock()
	defer r.claimMu.Unlock()
	r.recent.Remove(req.ISRC)
}

func (r *Runner) execute(ctx context.Context, req domain.IngestionRequest) {
	if err := r.sem.Acquire(ctx, 1); err != nil {
		r.release(req)
		return
	}
	defer r.sem.Release(1)

	if err := r.limiter.Wait(ctx); err != nil {
		r.release(req)
		return
	}

	if _, err := r.workflow.Run(ctx, req); err != nil {
		r.release(req)
	}
}
