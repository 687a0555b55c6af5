package openai

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/tunedex/internal/domain"
)

func completionServer(t *testing.T, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"object": "chat.completion",
			"model": "test-model",
			"choices": [{"index": 0, "message": {"role": "assistant", "content": ` + jsonString(text) + `}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 34, "total_tokens": 46}
		}`))
	}))
}

func jsonString(s string) string {
	out := `"`
	for _, r := range s {
		switch r {
		case '"':
			out += `\"`
		case '\\':
			out += `\\`
		case '\n':
			out += `\n`
		default:
			out += string(r)
		}
	}
	return out + `"`
}

func TestGenerator_Generate(t *testing.T) {
	server := completionServer(t, `["hopeful uplifting songs"]`)
	defer server.Close()

	gen := NewGenerator(&GeneratorConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	result, err := gen.Generate(context.Background(), "expand this query", 256)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	if result.Text != `["hopeful uplifting songs"]` {
		t.Errorf("Text = %q", result.Text)
	}
	if result.InputTokens != 12 || result.OutputTokens != 34 {
		t.Errorf("tokens = %d/%d, want 12/34", result.InputTokens, result.OutputTokens)
	}
	if result.Model != "test-model" {
		t.Errorf("Model = %q", result.Model)
	}
}

func TestGenerator_RequestTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer server.Close()

	gen := NewGenerator(&GeneratorConfig{
		APIKey:         "test-key",
		BaseURL:        server.URL,
		Model:          "test-model",
		RequestTimeout: 20 * time.Millisecond,
		Logger:         zap.NewNop(),
	})

	_, err := gen.Generate(context.Background(), "prompt", 16)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
	if !domain.Retryable(err) {
		t.Error("timeout must be retryable")
	}
}

func TestGenerator_RateLimited(t *testing.T) {
	server := statusServer(http.StatusTooManyRequests)
	defer server.Close()

	gen := NewGenerator(&GeneratorConfig{
		APIKey:  "test-key",
		BaseURL: server.URL,
		Model:   "test-model",
		Logger:  zap.NewNop(),
	})

	_, err := gen.Generate(context.Background(), "prompt", 16)
	if !errors.Is(err, domain.ErrRateLimited) {
		t.Fatalf("error = %v, want ErrRateLimited", err)
	}
	if !domain.Retryable(err) {
		t.Error("rate limit must be retryable")
	}
}
