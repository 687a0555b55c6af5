// Package expansion rewrites a user query into alternate search phrasings
// through the text-generation provider.
package expansion

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/metrics"
)

// Branch identifies how the provider response was turned into phrasings.
type Branch string

const (
	// BranchStrict means the full response parsed as a JSON string array.
	BranchStrict Branch = "strict"
	// BranchExtracted means a bracketed substring of the response parsed.
	BranchExtracted Branch = "extracted"
	// BranchEcho means parsing failed entirely and the original query was echoed.
	BranchEcho Branch = "echo"
)

// Expansion is the outcome of one expansion call.
type Expansion struct {
	Queries      []string
	Branch       Branch
	Model        string
	InputTokens  int
	OutputTokens int
}

// Expander asks the generation provider for alternate phrasings.
type Expander struct {
	generator       domain.Generator
	maxExpansions   int
	maxOutputTokens int
	logger          *zap.Logger
}

// New creates an expander. maxExpansions is clamped to at least 1.
func New(generator domain.Generator, maxExpansions, maxOutputTokens int, logger *zap.Logger) *Expander {
	if maxExpansions < 1 {
		maxExpansions = 1
	}
	return &Expander{
		generator:       generator,
		maxExpansions:   maxExpansions,
		maxOutputTokens: maxOutputTokens,
		logger:          logger,
	}
}

const promptTemplate = `You rewrite music discovery queries for a search engine.
Rewrite the user query below into 1 to %d alternate search phrasings that
preserve its intent. Respond with ONLY a JSON array of strings, nothing else.

User query: %q`

// Expand rewrites the query into 1..maxExpansions phrasings. Provider call
// failures are returned as-is for upstream classification; malformed provider
// output never fails the caller, it degrades to echoing the original query.
func (e *Expander) Expand(ctx context.Context, query string) (Expansion, error) {
	prompt := fmt.Sprintf(promptTemplate, e.maxExpansions, query)

	res, err := e.generator.Generate(ctx, prompt, e.maxOutputTokens)
	if err != nil {
		return Expansion{}, fmt.Errorf("expand query: %w", err)
	}

	queries, branch := e.parseQueries(res.Text, query)
	metrics.SearchExpansionBranchTotal.WithLabelValues(string(branch)).Inc()

	if branch == BranchEcho {
		e.logger.Warn("Expansion response unparseable, echoing original query",
			zap.String("model", res.Model),
			zap.Int("response_len", len(res.Text)))
	}

	return Expansion{
		Queries:      queries,
		Branch:       branch,
		Model:        res.Model,
		InputTokens:  res.InputTokens,
		OutputTokens: res.OutputTokens,
	}, nil
}

var arrayPattern = regexp.MustCompile(`(?s)\[.*?\]`)

func (e *Expander) parseQueries(text, original string) ([]string, Branch) {
	if qs, ok := e.parseArray(text); ok {
		return qs, BranchStrict
	}
	if m := arrayPattern.FindString(text); m != "" {
		if qs, ok := e.parseArray(m); ok {
			return qs, BranchExtracted
		}
	}
	return []string{original}, BranchEcho
}

// parseArray accepts a JSON array of 1..maxExpansions non-empty strings.
// Extra entries are dropped rather than rejected.
func (e *Expander) parseArray(s string) ([]string, bool) {
	var raw []string
	if err := json.Unmarshal([]byte(strings.TrimSpace(s)), &raw); err != nil {
		return nil, false
	}

	queries := make([]string, 0, len(raw))
	for _, q := range raw {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		queries = append(queries, q)
		if len(queries) == e.maxExpansions {
			break
		}
	}
	if len(queries) == 0 {
		return nil, false
	}
	return queries, true
}
