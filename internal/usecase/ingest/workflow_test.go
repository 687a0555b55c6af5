package ingest

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

type mockFeatures struct {
	features *domain.AudioFeatures
	err      error
	calls    int
}

func (m *mockFeatures) Fetch(_ context.Context, _ domain.ISRC) (*domain.AudioFeatures, error) {
	m.calls++
	return m.features, m.err
}

type mockLyrics struct {
	lyrics *domain.Lyrics
	err    error
	calls  int
}

func (m *mockLyrics) Fetch(_ context.Context, _ domain.ISRC) (*domain.Lyrics, error) {
	m.calls++
	return m.lyrics, m.err
}

// mockGenerator routes by prompt: the summary prompt starts with "Summarize",
// everything else is interpretation.
type mockGenerator struct {
	interpText  string
	interpErr   error
	summaryText string
	summaryErr  error

	interpCalls  int
	summaryCalls int
}

func (m *mockGenerator) Generate(_ context.Context, prompt string, _ int) (domain.GenerationResult, error) {
	if strings.HasPrefix(prompt, "Summarize") {
		m.summaryCalls++
		if m.summaryErr != nil {
			return domain.GenerationResult{}, m.summaryErr
		}
		return domain.GenerationResult{Text: m.summaryText, Model: "gen-v1", OutputTokens: 12}, nil
	}
	m.interpCalls++
	if m.interpErr != nil {
		return domain.GenerationResult{}, m.interpErr
	}
	return domain.GenerationResult{Text: m.interpText, Model: "gen-v1", InputTokens: 200, OutputTokens: 80}, nil
}

type mockWorkflowEmbedder struct {
	err   error
	calls int
}

func (m *mockWorkflowEmbedder) Embed(_ context.Context, _ string) (domain.EmbeddingResult, error) {
	m.calls++
	if m.err != nil {
		return domain.EmbeddingResult{}, m.err
	}
	return domain.EmbeddingResult{Embedding: []float32{0.5, 0.5, 0.5, 0.5}, TotalTokens: 30}, nil
}

type mockIndexer struct {
	doc    *domain.TrackDocument
	vector []float32
	err    error
	calls  int
}

func (m *mockIndexer) Upsert(_ context.Context, doc *domain.TrackDocument, vector []float32) error {
	m.calls++
	m.doc = doc
	m.vector = vector
	return m.err
}

type mockSink struct {
	completions []domain.IngestionCompletion
	failures    []domain.IngestionFailure
}

func (m *mockSink) Completed(_ context.Context, c domain.IngestionCompletion) {
	m.completions = append(m.completions, c)
}

func (m *mockSink) Failed(_ context.Context, f domain.IngestionFailure) {
	m.failures = append(m.failures, f)
}

type workflowDeps struct {
	features *mockFeatures
	lyrics   *mockLyrics
	gen      *mockGenerator
	embedder *mockWorkflowEmbedder
	indexer  *mockIndexer
	sink     *mockSink
}

func newTestWorkflow(d *workflowDeps) *Workflow {
	return NewWorkflow(d.features, d.lyrics, d.gen, d.embedder, d.indexer, d.sink, Config{
		Dimension:       4,
		StepTimeout:     time.Second,
		StepRetries:     2,
		RetryBackoff:    time.Millisecond,
		MaxOutputTokens: 512,
	}, zap.NewNop())
}

func defaultDeps() *workflowDeps {
	return &workflowDeps{
		features: &mockFeatures{},
		lyrics:   &mockLyrics{},
		gen: &mockGenerator{
			interpText:  "A defiant meditation on fate and confession.",
			summaryText: "A sweeping confession of guilt and fate.",
		},
		embedder: &mockWorkflowEmbedder{},
		indexer:  &mockIndexer{},
		sink:     &mockSink{},
	}
}

func request(t *testing.T, isrc string) domain.IngestionRequest {
	t.Helper()
	parsed, err := domain.ParseISRC(isrc)
	if err != nil {
		t.Fatalf("parse isrc: %v", err)
	}
	return domain.IngestionRequest{
		ISRC:   parsed,
		Title:  "Bohemian Rhapsody",
		Artist: "Queen",
		Album:  "A Night at the Opera",
	}
}

func TestRun_WithLyrics(t *testing.T) {
	deps := defaultDeps()
	deps.lyrics.lyrics = &domain.Lyrics{Body: "Is this the real life? Is this just fantasy?"}
	w := newTestWorkflow(deps)

	completion, err := w.Run(context.Background(), request(t, "USRC11700001"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !completion.HasLyrics || !completion.HasInterpretation || !completion.HasShortDescription {
		t.Errorf("unexpected completion: %+v", completion)
	}
	if completion.EmbeddingDimension != 4 {
		t.Errorf("expected dimension 4, got %d", completion.EmbeddingDimension)
	}
	if deps.gen.interpCalls != 1 || deps.gen.summaryCalls != 1 {
		t.Errorf("expected 1 interpretation + 1 summary call, got %d/%d",
			deps.gen.interpCalls, deps.gen.summaryCalls)
	}
	if deps.embedder.calls != 1 {
		t.Errorf("expected interpretation embedded, got %d calls", deps.embedder.calls)
	}
	// embedding of the interpretation, not a placeholder
	if deps.indexer.vector[0] == 0 {
		t.Error("expected non-zero embedding vector")
	}
	if deps.indexer.doc.ID != deps.indexer.doc.ISRC.DocumentID() {
		t.Error("document id must derive from the ISRC")
	}
	if len(deps.sink.completions) != 1 {
		t.Fatalf("expected completion signal, got %d", len(deps.sink.completions))
	}
}

func TestRun_NoLyrics(t *testing.T) {
	energy := 0.2
	deps := defaultDeps()
	deps.features.features = &domain.AudioFeatures{Energy: &energy}
	w := newTestWorkflow(deps)

	completion, err := w.Run(context.Background(), request(t, "USRC11700002"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if completion.HasLyrics || completion.HasInterpretation {
		t.Errorf("expected instrumental completion, got %+v", completion)
	}
	if !completion.HasAudioFeatures {
		t.Error("expected audio features present")
	}
	if deps.gen.interpCalls != 0 {
		t.Errorf("instrumental track must not reach the interpretation model, got %d calls", deps.gen.interpCalls)
	}
	if deps.embedder.calls != 0 {
		t.Errorf("expected no embedding call, got %d", deps.embedder.calls)
	}
	// zero-vector placeholder of the configured dimension
	if len(deps.indexer.vector) != 4 {
		t.Fatalf("expected 4-dim vector, got %d", len(deps.indexer.vector))
	}
	for i, v := range deps.indexer.vector {
		if v != 0 {
			t.Fatalf("expected zero vector, found %f at %d", v, i)
		}
	}
	// tier (b): qualitative description from features, no model involved
	desc := deps.indexer.doc.ShortDescription
	if desc == nil || desc.Model != "" {
		t.Errorf("expected local feature description, got %+v", desc)
	}
	if !strings.Contains(desc.Text, "calm") {
		t.Errorf("expected qualitative wording, got %q", desc.Text)
	}
}

func TestRun_MetadataOnlyDescription(t *testing.T) {
	deps := defaultDeps()
	w := newTestWorkflow(deps)

	completion, err := w.Run(context.Background(), request(t, "USRC11700003"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !completion.HasShortDescription {
		t.Error("expected metadata-only description")
	}
	desc := deps.indexer.doc.ShortDescription
	if !strings.Contains(desc.Text, "Queen") {
		t.Errorf("expected artist in description, got %q", desc.Text)
	}
}

func TestRun_DescriptionFailureSwallowed(t *testing.T) {
	deps := defaultDeps()
	deps.lyrics.lyrics = &domain.Lyrics{Body: "words"}
	deps.gen.summaryErr = domain.ErrProviderUnavailable
	w := newTestWorkflow(deps)

	completion, err := w.Run(context.Background(), request(t, "USRC11700004"))
	if err != nil {
		t.Fatalf("expected description failure to be swallowed, got %v", err)
	}
	if completion.HasShortDescription {
		t.Error("expected null short description")
	}
	if deps.indexer.doc.ShortDescription != nil {
		t.Error("expected nil description stored")
	}
	if len(deps.sink.failures) != 0 {
		t.Errorf("description failure must not emit a failure signal, got %d", len(deps.sink.failures))
	}
}

func TestRun_StepExhaustionEmitsFailure(t *testing.T) {
	deps := defaultDeps()
	deps.lyrics.err = domain.ErrProviderUnavailable
	w := newTestWorkflow(deps)

	_, err := w.Run(context.Background(), request(t, "USRC11700005"))
	if err == nil {
		t.Fatal("expected error")
	}

	if len(deps.sink.failures) != 1 {
		t.Fatalf("expected one failure signal, got %d", len(deps.sink.failures))
	}
	f := deps.sink.failures[0]
	if f.Step != StepFetchLyrics {
		t.Errorf("expected step %s, got %s", StepFetchLyrics, f.Step)
	}
	if f.Retries != 2 {
		t.Errorf("expected retry budget 2 consumed, got %d", f.Retries)
	}
	// initial attempt + 2 retries
	if deps.lyrics.calls != 3 {
		t.Errorf("expected 3 attempts, got %d", deps.lyrics.calls)
	}
	if len(deps.sink.completions) != 0 {
		t.Error("failed pipeline must not emit completion")
	}
	if deps.indexer.calls != 0 {
		t.Error("failed pipeline must not upsert")
	}
}

func TestRun_NonRetryableFailsImmediately(t *testing.T) {
	deps := defaultDeps()
	deps.lyrics.lyrics = &domain.Lyrics{Body: "words"}
	deps.gen.interpErr = domain.ErrAuthFailed
	w := newTestWorkflow(deps)

	_, err := w.Run(context.Background(), request(t, "USRC11700006"))
	if !errors.Is(err, domain.ErrAuthFailed) {
		t.Fatalf("expected ErrAuthFailed, got %v", err)
	}
	if deps.gen.interpCalls != 1 {
		t.Errorf("expected single attempt for non-retryable error, got %d", deps.gen.interpCalls)
	}
	if deps.sink.failures[0].Step != StepInterpretation {
		t.Errorf("unexpected failed step %s", deps.sink.failures[0].Step)
	}
}

func TestDescribeFeatures_Qualities(t *testing.T) {
	energy, valence, tempo := 0.9, 0.8, 128.0
	f := &domain.AudioFeatures{Energy: &energy, Valence: &valence, Tempo: &tempo}
	req := domain.IngestionRequest{Title: "Night Drive", Artist: "The Commuters"}

	text := describeFeatures(req, f)

	for _, want := range []string{"high-energy", "upbeat", "128 BPM", "The Commuters"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in %q", want, text)
		}
	}
	if len(strings.Fields(text)) > maxDescriptionWords {
		t.Errorf("description exceeds %d words: %q", maxDescriptionWords, text)
	}
}

func TestClipWords(t *testing.T) {
	long := strings.Repeat("word ", 80)
	clipped := clipWords(long, maxDescriptionWords)
	if got := len(strings.Fields(clipped)); got != maxDescriptionWords {
		t.Errorf("expected %d words, got %d", maxDescriptionWords, got)
	}
}
