package expansion

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

type mockGenerator struct {
	result  domain.GenerationResult
	err     error
	prompts []string
}

func (m *mockGenerator) Generate(_ context.Context, prompt string, _ int) (domain.GenerationResult, error) {
	m.prompts = append(m.prompts, prompt)
	return m.result, m.err
}

func newTestExpander(gen *mockGenerator) *Expander {
	return New(gen, 3, 256, zap.NewNop())
}

func TestExpand_StrictParse(t *testing.T) {
	gen := &mockGenerator{result: domain.GenerationResult{
		Text:         `["hopeful uplifting songs", "music about overcoming challenges"]`,
		Model:        "gen-v1",
		InputTokens:  42,
		OutputTokens: 17,
	}}
	e := newTestExpander(gen)

	exp, err := e.Expand(context.Background(), "uplifting songs about hope")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp.Branch != BranchStrict {
		t.Errorf("expected strict branch, got %s", exp.Branch)
	}
	if len(exp.Queries) != 2 || exp.Queries[0] != "hopeful uplifting songs" {
		t.Errorf("unexpected queries: %v", exp.Queries)
	}
	if exp.Model != "gen-v1" || exp.InputTokens != 42 || exp.OutputTokens != 17 {
		t.Errorf("usage not carried through: %+v", exp)
	}
}

func TestExpand_ExtractedParse(t *testing.T) {
	gen := &mockGenerator{result: domain.GenerationResult{
		Text: "Sure! Here are the phrasings:\n[\"sad piano ballads\"]\nHope that helps.",
	}}
	e := newTestExpander(gen)

	exp, err := e.Expand(context.Background(), "sad songs with piano")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exp.Branch != BranchExtracted {
		t.Errorf("expected extracted branch, got %s", exp.Branch)
	}
	if len(exp.Queries) != 1 || exp.Queries[0] != "sad piano ballads" {
		t.Errorf("unexpected queries: %v", exp.Queries)
	}
}

func TestExpand_EchoFallback(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"prose only", "I cannot answer that."},
		{"numbers not strings", "[1, 2, 3]"},
		{"empty array", "[]"},
		{"blank strings", `["", "  "]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockGenerator{result: domain.GenerationResult{Text: tt.text}}
			e := newTestExpander(gen)

			exp, err := e.Expand(context.Background(), "uplifting songs about hope")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if exp.Branch != BranchEcho {
				t.Errorf("expected echo branch, got %s", exp.Branch)
			}
			if len(exp.Queries) != 1 || exp.Queries[0] != "uplifting songs about hope" {
				t.Errorf("expected original query echoed, got %v", exp.Queries)
			}
		})
	}
}

func TestExpand_TruncatesToMax(t *testing.T) {
	gen := &mockGenerator{result: domain.GenerationResult{
		Text: `["one", "two", "three", "four", "five"]`,
	}}
	e := newTestExpander(gen)

	exp, err := e.Expand(context.Background(), "anything")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(exp.Queries) != 3 {
		t.Errorf("expected 3 queries, got %d", len(exp.Queries))
	}
}

func TestExpand_ProviderErrorSurfaces(t *testing.T) {
	gen := &mockGenerator{err: domain.ErrRateLimited}
	e := newTestExpander(gen)

	_, err := e.Expand(context.Background(), "uplifting songs about hope")
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
}

func TestExpand_PromptCarriesQuery(t *testing.T) {
	gen := &mockGenerator{result: domain.GenerationResult{Text: `["x y"]`}}
	e := newTestExpander(gen)

	if _, err := e.Expand(context.Background(), "late night driving"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(gen.prompts) != 1 {
		t.Fatalf("expected one generate call, got %d", len(gen.prompts))
	}
	if want := `"late night driving"`; !strings.Contains(gen.prompts[0], want) {
		t.Errorf("prompt missing query: %s", gen.prompts[0])
	}
}
