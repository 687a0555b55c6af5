// Package openai provides LLM generation and embedding over any
// OpenAI-compatible API (e.g. Nebius).
package openai

import (
	"context"
	"fmt"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/metrics"
)

// Generator is a text-generation provider using the OpenAI-compatible chat API.
type Generator struct {
	client  *openai.Client
	model   string
	timeout time.Duration
	logger  *zap.Logger
}

// GeneratorConfig holds the generation provider settings.
type GeneratorConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// RequestTimeout bounds one completion call; zero means the caller's
	// context is the only bound.
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// NewGenerator creates an OpenAI-compatible generation provider.
func NewGenerator(cfg *GeneratorConfig) *Generator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &Generator{
		client:  openai.NewClientWithConfig(clientCfg),
		model:   cfg.Model,
		timeout: cfg.RequestTimeout,
		logger:  cfg.Logger,
	}
}

// Generate implements domain.Generator.
func (g *Generator) Generate(
	ctx context.Context, prompt string, maxOutputTokens int,
) (domain.GenerationResult, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens: maxOutputTokens,
	}

	start := time.Now()

	resp, err := g.client.CreateChatCompletion(ctx, req)

	duration := time.Since(start)

	if err != nil {
		metrics.LLMRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return domain.GenerationResult{}, classifyAPIError("chat completion", err)
	}

	if len(resp.Choices) == 0 {
		metrics.LLMRequestsTotal.WithLabelValues(g.model, "error").Inc()
		return domain.GenerationResult{}, fmt.Errorf(
			"empty completion response: %w", domain.ErrProviderUnavailable)
	}

	metrics.LLMRequestsTotal.WithLabelValues(g.model, "success").Inc()
	metrics.LLMRequestDuration.WithLabelValues(g.model).Observe(duration.Seconds())
	metrics.LLMTokensTotal.WithLabelValues(g.model, "input").Add(float64(resp.Usage.PromptTokens))
	metrics.LLMTokensTotal.WithLabelValues(g.model, "output").Add(float64(resp.Usage.CompletionTokens))

	return domain.GenerationResult{
		Text:         resp.Choices[0].Message.Content,
		Model:        resp.Model,
		InputTokens:  resp.Usage.PromptTokens,
		OutputTokens: resp.Usage.CompletionTokens,
	}, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (g *Generator) HealthCheck(ctx context.Context) error {
	if _, err := g.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}
