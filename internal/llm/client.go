package llm

import (
	"context"
	"time"

	"github.com/Veraticus/the-budget-must-balance/internal/model"
)

// Transcriber converts recorded audio into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audio model.Audio) (string, error)
}

// Completer sends a prompt to a language model and returns its raw reply.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// Config holds configuration for the remote clients.
type Config struct {
	Provider           string
	APIKey             string
	Model              string
	TranscriptionModel string
	BaseURL            string
	MaxRetries         int
	RetryDelay         time.Duration
	CacheTTL           time.Duration
	RateLimit          int
	Temperature        float64
	MaxTokens          int
	Timeout            time.Duration
}

func (cfg Config) timeout() time.Duration {
	if cfg.Timeout > 0 {
		return cfg.Timeout
	}
	return 30 * time.Second
}
