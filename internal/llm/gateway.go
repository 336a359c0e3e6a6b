package llm

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
	"github.com/Veraticus/the-budget-must-balance/internal/model"
	"github.com/Veraticus/the-budget-must-balance/internal/service"
)

// Gateway wraps raw clients with rate limiting, retries, and a
// completion cache. It implements both Transcriber and Completer.
type Gateway struct {
	transcriber Transcriber
	completer   Completer
	cache       *completionCache
	limiter     *rateLimiter
	logger      *slog.Logger
	retryOpts   service.RetryOptions
}

var (
	_ Transcriber = (*Gateway)(nil)
	_ Completer   = (*Gateway)(nil)
)

// NewGateway wraps the given clients. Either may be nil, in which case the
// corresponding call fails with common.ErrNoCredential.
func NewGateway(transcriber Transcriber, completer Completer, cfg Config, logger *slog.Logger) *Gateway {
	if logger == nil {
		logger = slog.Default()
	}

	maxRetries := cfg.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	retryDelay := cfg.RetryDelay
	if retryDelay <= 0 {
		retryDelay = time.Second
	}

	return &Gateway{
		transcriber: transcriber,
		completer:   completer,
		cache:       newCompletionCache(cfg.CacheTTL),
		limiter:     newRateLimiter(cfg.RateLimit),
		logger:      logger,
		retryOpts: service.RetryOptions{
			MaxAttempts:  maxRetries,
			InitialDelay: retryDelay,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
			OnRetry: func(attempt int, delay time.Duration, err error) {
				_, hinted := common.RetryAfter(err)
				logger.Warn("retrying provider call",
					"attempt", attempt,
					"delay", delay,
					"retry_after", hinted,
					"error", err)
			},
		},
	}
}

// throttle takes a limiter token for call, logging when the local budget
// forced a wait.
func (g *Gateway) throttle(ctx context.Context, call string) error {
	waited, err := g.limiter.wait(ctx)
	if err != nil {
		return &common.RetryableError{Err: err, Retryable: false}
	}
	if waited > 0 {
		g.logger.Info("waited for request budget", "call", call, "waited", waited)
	}
	return nil
}

// Transcribe converts audio to text. Empty audio or an empty transcript
// yields common.ErrEmptyTranscription.
func (g *Gateway) Transcribe(ctx context.Context, audio model.Audio) (string, error) {
	if g.transcriber == nil {
		return "", common.ErrNoCredential
	}
	if audio.Empty() {
		return "", common.ErrEmptyTranscription
	}

	var text string
	err := common.WithRetry(ctx, func() error {
		if err := g.throttle(ctx, "transcribe"); err != nil {
			return err
		}

		var err error
		text, err = g.transcriber.Transcribe(ctx, audio)
		return g.classify(err)
	}, g.retryOpts)
	if err != nil {
		g.logger.Warn("transcription failed", "error", err, "retryable", common.IsRetryable(err))
		return "", err
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", common.ErrEmptyTranscription
	}

	g.logger.Debug("transcribed audio",
		"bytes", len(audio.Data),
		"chars", len(text))
	return text, nil
}

// Complete sends the prompt to the configured model, answering from cache
// when the same prompt was seen within the cache TTL.
func (g *Gateway) Complete(ctx context.Context, systemPrompt, prompt string) (string, error) {
	if g.completer == nil {
		return "", common.ErrNoCredential
	}

	key := cacheKey(systemPrompt, prompt)
	if content, ok := g.cache.get(key); ok {
		g.logger.Debug("using cached completion", "key", key[:12])
		return content, nil
	}

	var content string
	err := common.WithRetry(ctx, func() error {
		if err := g.throttle(ctx, "complete"); err != nil {
			return err
		}

		var err error
		content, err = g.completer.Complete(ctx, systemPrompt, prompt)
		return g.classify(err)
	}, g.retryOpts)
	if err != nil {
		g.logger.Warn("completion failed", "error", err, "retryable", common.IsRetryable(err))
		return "", err
	}

	g.cache.set(key, content)
	return content, nil
}

// classify stops retries for errors another attempt cannot fix.
func (g *Gateway) classify(err error) error {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, common.ErrNoCredential),
		errors.Is(err, common.ErrMalformedResponse),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return &common.RetryableError{Err: err, Retryable: false}
	}
	return err
}

// Close releases background goroutines.
func (g *Gateway) Close() {
	g.cache.Close()
}
