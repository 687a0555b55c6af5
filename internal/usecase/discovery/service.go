// Package discovery orchestrates hybrid track search: query expansion,
// per-phrase embedding, fused retrieval and pagination.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/domain/search"
	"github.com/kailas-cloud/tunedex/internal/metrics"
	"github.com/kailas-cloud/tunedex/internal/sparse"
)

// Config holds search service parameters.
type Config struct {
	// ResultCeiling bounds the total reportable results; pages past it are
	// empty but not errors.
	ResultCeiling  int
	RequestTimeout time.Duration
	// Limits bounds query validation; zero fields use the search package
	// defaults.
	Limits search.Limits
}

// Service is the stateless discovery search orchestrator.
type Service struct {
	expander Expander
	embedder domain.Embedder
	index    Index
	cfg      Config
	logger   *zap.Logger
}

// New creates a discovery search service. The embedder is expected to carry
// the query instruction prefix already.
func New(expander Expander, embedder domain.Embedder, index Index, cfg Config, logger *zap.Logger) *Service {
	return &Service{
		expander: expander,
		embedder: embedder,
		index:    index,
		cfg:      cfg,
		logger:   logger,
	}
}

// Search runs one discovery query and returns a page of fused results.
// Failures come back as *search.Error; raw collaborator errors never escape.
func (s *Service) Search(ctx context.Context, rawQuery string, page, pageSize int) (*search.Response, error) {
	q, err := search.NewQuery(rawQuery, page, pageSize, s.cfg.Limits)
	if err != nil {
		// The taxonomy has one input-error code; an over-long query reports
		// it too, with the message carrying the actual reason.
		s.countSearch(search.CodeEmptyQuery)
		return nil, search.NewError(search.CodeEmptyQuery, err.Error(), false)
	}

	if s.cfg.RequestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RequestTimeout)
		defer cancel()
	}

	resp, serr := s.search(ctx, q)
	if serr != nil {
		s.countSearch(serr.Code)
		s.logger.Warn("Discovery search failed",
			zap.String("code", string(serr.Code)),
			zap.Bool("retryable", serr.Retryable),
			zap.String("message", serr.Message))
		return nil, serr
	}

	s.countSearch("OK")
	return resp, nil
}

func (s *Service) search(ctx context.Context, q search.Query) (*search.Response, *search.Error) {
	exp, err := s.expander.Expand(ctx, q.Text())
	if err != nil {
		return nil, s.classify(err, search.CodeLLMUnavailable, "query expansion failed")
	}

	expanded, err := s.embedAll(ctx, exp.Queries)
	if err != nil {
		return nil, s.classify(err, search.CodeEmbeddingUnavailable, "query embedding failed")
	}

	offset := q.Offset()
	if offset >= s.cfg.ResultCeiling {
		return s.emptyPage(q, exp.Queries), nil
	}

	results, total, err := s.index.HybridSearch(ctx, expanded, q.PageSize(), offset)
	if err != nil {
		return nil, s.classify(err, search.CodeIndexUnavailable, "index retrieval failed")
	}

	hasMore := offset+len(results) < total && len(results) == q.PageSize()

	return &search.Response{
		Results:         results,
		Query:           q.Text(),
		ExpandedQueries: exp.Queries,
		Page:            q.Page(),
		PageSize:        q.PageSize(),
		TotalResults:    total,
		HasMore:         hasMore,
	}, nil
}

// embedAll embeds every expanded phrasing concurrently and builds its sparse
// companion. Result order follows the input order.
func (s *Service) embedAll(ctx context.Context, phrases []string) ([]search.ExpandedQuery, error) {
	expanded := make([]search.ExpandedQuery, len(phrases))

	g, gctx := errgroup.WithContext(ctx)
	for i, phrase := range phrases {
		g.Go(func() error {
			res, err := s.embedder.Embed(gctx, phrase)
			if err != nil {
				return fmt.Errorf("embed %q: %w", phrase, err)
			}
			expanded[i] = search.ExpandedQuery{
				Text:   phrase,
				Dense:  res.Embedding,
				Sparse: sparse.Build(phrase),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return expanded, nil
}

func (s *Service) emptyPage(q search.Query, queries []string) *search.Response {
	return &search.Response{
		Results:         []search.Result{},
		Query:           q.Text(),
		ExpandedQueries: queries,
		Page:            q.Page(),
		PageSize:        q.PageSize(),
		TotalResults:    0,
		HasMore:         false,
	}
}

// classify maps a collaborator error to the discovery taxonomy. Deadline
// expiry wins over the step code; everything unrecognized is an internal
// error, retryable by default.
func (s *Service) classify(err error, code search.Code, msg string) *search.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return search.NewError(search.CodeTimeout, msg+": request timed out", true)
	}
	if errors.Is(err, context.Canceled) {
		return search.NewError(search.CodeInternal, msg+": request canceled", true)
	}

	switch {
	case errors.Is(err, domain.ErrRateLimited),
		errors.Is(err, domain.ErrProviderUnavailable),
		errors.Is(err, domain.ErrIndexUnavailable):
		return search.NewError(code, fmt.Sprintf("%s: %v", msg, err), true)
	case errors.Is(err, domain.ErrAuthFailed),
		errors.Is(err, domain.ErrDimensionMismatch):
		return search.NewError(code, fmt.Sprintf("%s: %v", msg, err), false)
	}

	return search.NewError(search.CodeInternal, fmt.Sprintf("%s: %v", msg, err), true)
}

func (s *Service) countSearch(code search.Code) {
	metrics.SearchRequestsTotal.WithLabelValues(string(code)).Inc()
}
