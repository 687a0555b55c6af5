package discovery

import (
	"context"

	"github.com/kailas-cloud/tunedex/internal/domain/search"
	"github.com/kailas-cloud/tunedex/internal/usecase/expansion"
)

// Expander rewrites a query into alternate phrasings.
type Expander interface {
	Expand(ctx context.Context, query string) (expansion.Expansion, error)
}

// Index is the hybrid-retrieval contract consumed by the search service.
type Index interface {
	HybridSearch(ctx context.Context, queries []search.ExpandedQuery, limit, offset int) ([]search.Result, int, error)
}
