// Package index is the track index: document upsert, existence checks and
// hybrid dense+lexical retrieval over the FT search store.
package index

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/db"
	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/domain/search"
	"github.com/kailas-cloud/tunedex/internal/sparse"
)

// store is the consumer interface for index operations (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	ExistsMulti(ctx context.Context, keys []string) ([]bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	SearchText(ctx context.Context, q *db.TextQuery) (*db.SearchResult, error)
}

// Config holds index construction parameters.
type Config struct {
	KeyPrefix string
	Dimension int
	// Ceiling bounds how many fused results a search can ever report.
	Ceiling int
}

// Index stores track documents as hashes and searches them through a single
// FT index with a vector and a text field.
type Index struct {
	store     store
	keyPrefix string
	dimension int
	ceiling   int
	logger    *zap.Logger
}

// New creates a track index over the given store.
func New(s store, cfg Config, logger *zap.Logger) *Index {
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = domain.KeyPrefix
	}
	return &Index{
		store:     s,
		keyPrefix: prefix,
		dimension: cfg.Dimension,
		ceiling:   cfg.Ceiling,
		logger:    logger,
	}
}

func (ix *Index) indexName() string {
	return ix.keyPrefix + "tracks:idx"
}

func (ix *Index) docKey(id string) string {
	return ix.keyPrefix + "track:" + id
}

// EnsureIndex creates the FT index if it does not exist yet. Safe to call on
// every startup.
func (ix *Index) EnsureIndex(ctx context.Context) error {
	exists, err := ix.store.IndexExists(ctx, ix.indexName())
	if err != nil {
		return fmt.Errorf("check index: %w", err)
	}
	if exists {
		return nil
	}

	def := &db.IndexDefinition{
		Name:     ix.indexName(),
		Prefixes: []string{ix.keyPrefix + "track:"},
		Fields: []db.IndexField{
			{Name: "isrc", Type: db.IndexFieldTag},
			{Name: "text", Type: db.IndexFieldText},
			{
				Name:           "vector",
				Type:           db.IndexFieldVector,
				VectorDim:      ix.dimension,
				VectorDistance: db.DistanceCosine,
			},
		},
	}

	if err := ix.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index: %w", err)
	}

	ix.logger.Info("track index created",
		zap.String("index", ix.indexName()),
		zap.Int("dimension", ix.dimension))
	return nil
}

// Upsert writes a track document and its embedding. The key is derived from
// the ISRC, so re-ingesting the same track overwrites in place.
func (ix *Index) Upsert(ctx context.Context, doc *domain.TrackDocument, vector []float32) error {
	if len(vector) != ix.dimension {
		return fmt.Errorf("upsert %s: vector has %d dimensions, index expects %d: %w",
			doc.ISRC, len(vector), ix.dimension, domain.ErrDimensionMismatch)
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal document %s: %w", doc.ISRC, err)
	}

	fields := map[string]string{
		"isrc":        string(doc.ISRC),
		"title":       doc.Title,
		"artist":      doc.Artist,
		"album":       doc.Album,
		"artwork_url": doc.ArtworkURL,
		"text":        doc.SearchableText(),
		"payload":     string(payload),
		"vector":      db.VectorBytes(vector),
	}

	if err := ix.store.HSet(ctx, ix.docKey(doc.ID), fields); err != nil {
		return fmt.Errorf("upsert %s: %w", doc.ISRC, err)
	}
	return nil
}

// Get loads a stored track document by ISRC.
func (ix *Index) Get(ctx context.Context, isrc domain.ISRC) (*domain.TrackDocument, error) {
	fields, err := ix.store.HGetAll(ctx, ix.docKey(isrc.DocumentID()))
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", isrc, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	return documentFromFields(fields)
}

// GetByKey loads a stored track document by its full storage key. Used by
// backfill scans, which walk raw keys.
func (ix *Index) GetByKey(ctx context.Context, key string) (*domain.TrackDocument, error) {
	fields, err := ix.store.HGetAll(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", key, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}
	return documentFromFields(fields)
}

// Exists reports whether a track document is already indexed.
func (ix *Index) Exists(ctx context.Context, isrc domain.ISRC) (bool, error) {
	return ix.store.Exists(ctx, ix.docKey(isrc.DocumentID()))
}

// CheckExistence batch-checks which of the given ISRCs are already indexed.
// The returned slice is parallel to the input.
func (ix *Index) CheckExistence(ctx context.Context, isrcs []domain.ISRC) ([]bool, error) {
	if len(isrcs) == 0 {
		return nil, nil
	}
	keys := make([]string, len(isrcs))
	for i, isrc := range isrcs {
		keys[i] = ix.docKey(isrc.DocumentID())
	}
	found, err := ix.store.ExistsMulti(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("check existence: %w", err)
	}
	return found, nil
}

// Keys lists all stored track document keys. Used by backfill scans.
func (ix *Index) Keys(ctx context.Context) ([]string, error) {
	return ix.store.Scan(ctx, ix.keyPrefix+"track:*")
}

// HybridSearch runs dense and lexical retrieval for every expanded query,
// fuses the branches per query, merges across queries with documents
// deduplicated by ISRC, and returns the requested page of the merged ranking.
// The second return value is the total count of fused results, bounded by the
// configured ceiling.
func (ix *Index) HybridSearch(
	ctx context.Context, queries []search.ExpandedQuery, limit, offset int,
) ([]search.Result, int, error) {
	perQuery := make([][]candidate, 0, len(queries))

	for _, q := range queries {
		dense, err := ix.searchDense(ctx, q.Dense)
		if err != nil {
			return nil, 0, err
		}
		lexical, err := ix.searchLexical(ctx, q.Text)
		if err != nil {
			return nil, 0, err
		}
		perQuery = append(perQuery, fuseRRF([][]candidate{dense, lexical}))
	}

	fused := fuseRRF(perQuery)
	if len(fused) > ix.ceiling {
		fused = fused[:ix.ceiling]
	}

	total := len(fused)
	if offset >= total {
		return []search.Result{}, total, nil
	}
	end := offset + limit
	if end > total {
		end = total
	}

	page := make([]search.Result, 0, end-offset)
	for _, c := range fused[offset:end] {
		page = append(page, c.result)
	}
	return page, total, nil
}

func (ix *Index) searchDense(ctx context.Context, vector []float32) ([]candidate, error) {
	if len(vector) == 0 {
		return nil, nil
	}
	sr, err := ix.store.SearchKNN(ctx, &db.KNNQuery{
		IndexName:    ix.indexName(),
		Vector:       vector,
		K:            ix.ceiling,
		ReturnFields: denseResultFields,
	})
	if err != nil {
		return nil, fmt.Errorf("dense search: %w: %v", domain.ErrIndexUnavailable, err)
	}
	return candidatesFromEntries(sr), nil
}

func (ix *Index) searchLexical(ctx context.Context, text string) ([]candidate, error) {
	terms := sparse.Tokenize(text)
	if len(terms) == 0 {
		return nil, nil
	}
	sr, err := ix.store.SearchText(ctx, &db.TextQuery{
		IndexName:    ix.indexName(),
		Terms:        terms,
		TopK:         ix.ceiling,
		ReturnFields: resultFields,
	})
	if err != nil {
		return nil, fmt.Errorf("lexical search: %w: %v", domain.ErrIndexUnavailable, err)
	}
	return candidatesFromEntries(sr), nil
}

var resultFields = []string{"isrc", "title", "artist", "album", "artwork_url"}

// The KNN leg also asks for the distance so entries carry their score back.
var denseResultFields = append(resultFields[:len(resultFields):len(resultFields)], "__vector_score")

func candidatesFromEntries(sr *db.SearchResult) []candidate {
	if sr == nil || len(sr.Entries) == 0 {
		return nil
	}
	out := make([]candidate, 0, len(sr.Entries))
	for _, e := range sr.Entries {
		isrc := e.Fields["isrc"]
		if isrc == "" {
			continue
		}
		out = append(out, candidate{
			result: search.Result{
				ID:         e.Key,
				ISRC:       domain.ISRC(isrc),
				Title:      e.Fields["title"],
				Artist:     e.Fields["artist"],
				Album:      e.Fields["album"],
				ArtworkURL: e.Fields["artwork_url"],
				Score:      e.Score,
			},
		})
	}
	return out
}

func documentFromFields(fields map[string]string) (*domain.TrackDocument, error) {
	payload, ok := fields["payload"]
	if !ok || strings.TrimSpace(payload) == "" {
		return nil, errors.New("document payload missing")
	}
	var doc domain.TrackDocument
	if err := json.Unmarshal([]byte(payload), &doc); err != nil {
		return nil, fmt.Errorf("unmarshal document: %w", err)
	}
	return &doc, nil
}
