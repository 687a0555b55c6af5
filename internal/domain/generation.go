package domain

import "context"

// Generator is the LLM text-generation contract consumed by query expansion
// and the ingestion pipeline.
type Generator interface {
	Generate(ctx context.Context, prompt string, maxOutputTokens int) (GenerationResult, error)
}

// GenerationResult carries the model output and token usage.
type GenerationResult struct {
	Text         string
	Model        string
	InputTokens  int
	OutputTokens int
}
