package tunedex

import "time"

// TrackResult is a single search hit.
type TrackResult struct {
	ID         string  `json:"id"`
	ISRC       string  `json:"isrc"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Album      string  `json:"album"`
	Score      float64 `json:"score"`
	ArtworkURL string  `json:"artwork_url,omitempty"`
}

// SearchResponse is a page of discovery results.
type SearchResponse struct {
	Results         []TrackResult `json:"results"`
	Query           string        `json:"query"`
	ExpandedQueries []string      `json:"expanded_queries"`
	Page            int           `json:"page"`
	PageSize        int           `json:"page_size"`
	TotalResults    int           `json:"total_results"`
	HasMore         bool          `json:"has_more"`
}

// Track identifies a track to ingest or schedule.
type Track struct {
	ISRC       string `json:"isrc"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	ArtworkURL string `json:"artwork_url,omitempty"`
}

// IngestResult reports whether a manual ingestion trigger was accepted.
type IngestResult struct {
	ISRC     string `json:"isrc"`
	Accepted bool   `json:"accepted"`
}

// Decision is the scheduling outcome for one track.
type Decision struct {
	ISRC      string `json:"isrc"`
	Scheduled bool   `json:"scheduled"`
	Reason    string `json:"reason,omitempty"`
}

// AlbumResult aggregates scheduling decisions for an album batch.
type AlbumResult struct {
	Decisions []Decision `json:"decisions"`
	Scheduled int        `json:"scheduled"`
}

// BackfillProgress reports the state of a re-ingestion run.
type BackfillProgress struct {
	LastPointID    string    `json:"last_point_id,omitempty"`
	ProcessedCount int       `json:"processed_count"`
	SuccessCount   int       `json:"success_count"`
	ErrorCount     int       `json:"error_count"`
	SkippedCount   int       `json:"skipped_count"`
	StartedAt      time.Time `json:"started_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	IsComplete     bool      `json:"is_complete"`
}
