package search

import (
	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/sparse"
)

// ExpandedQuery is one rewritten phrasing ready for hybrid retrieval.
type ExpandedQuery struct {
	Text   string
	Dense  []float32
	Sparse sparse.Vector
}

// Result is one candidate track returned by the index.
type Result struct {
	ID         string      `json:"id"`
	ISRC       domain.ISRC `json:"isrc"`
	Title      string      `json:"title"`
	Artist     string      `json:"artist"`
	Album      string      `json:"album"`
	Score      float64     `json:"score"`
	ArtworkURL string      `json:"artwork_url,omitempty"`
}

// Response is one page of fused discovery results.
type Response struct {
	Results         []Result `json:"results"`
	Query           string   `json:"query"`
	ExpandedQueries []string `json:"expanded_queries"`
	Page            int      `json:"page"`
	PageSize        int      `json:"page_size"`
	TotalResults    int      `json:"total_results"`
	HasMore         bool     `json:"has_more"`
}
