package common

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/the-budget-must-balance/internal/service"
)

var (
	// ErrRateLimit indicates that a provider answered 429 Too Many Requests.
	ErrRateLimit = errors.New("rate limit exceeded")
	// ErrMaxRetries indicates that all retry attempts have been exhausted.
	ErrMaxRetries = errors.New("max retries exceeded")
)

// RetryableError tags a remote failure with whether another attempt can
// help and, for throttled calls, how long the provider asked us to wait.
type RetryableError struct {
	Err        error
	Retryable  bool
	RetryAfter time.Duration
}

func (e *RetryableError) Error() string {
	return e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// RetryAfter reports the server-requested delay carried by err, if any.
func RetryAfter(err error) (time.Duration, bool) {
	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) && retryableErr.RetryAfter > 0 {
		return retryableErr.RetryAfter, true
	}
	return 0, false
}

// backoff yields the delay before each retry. Exponential growth is
// overridden by a provider's Retry-After hint, and a rate limit without a
// hint waits the full ceiling.
type backoff struct {
	next time.Duration
	max  time.Duration
	mult float64
}

func newBackoff(opts service.RetryOptions) *backoff {
	return &backoff{next: opts.InitialDelay, max: opts.MaxDelay, mult: opts.Multiplier}
}

func (b *backoff) delayFor(err error) time.Duration {
	delay := b.next
	b.next = min(time.Duration(float64(b.next)*b.mult), b.max)

	if hint, ok := RetryAfter(err); ok {
		return min(hint, b.max)
	}
	if errors.Is(err, ErrRateLimit) {
		return b.max
	}
	return delay
}

func withDefaults(opts service.RetryOptions) service.RetryOptions {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 3
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = 100 * time.Millisecond
	}
	if opts.MaxDelay <= 0 {
		opts.MaxDelay = 30 * time.Second
	}
	if opts.Multiplier <= 0 {
		opts.Multiplier = 2.0
	}
	if opts.OnRetry == nil {
		opts.OnRetry = func(attempt int, delay time.Duration, err error) {
			slog.Warn("retrying remote call", "attempt", attempt, "delay", delay, "error", err)
		}
	}
	return opts
}

// WithRetry runs operation until it succeeds, returns a non-retryable
// RetryableError, or runs out of attempts.
func WithRetry(ctx context.Context, operation func() error, opts service.RetryOptions) error {
	opts = withDefaults(opts)
	b := newBackoff(opts)

	for attempt := 1; ; attempt++ {
		err := operation()
		if err == nil {
			return nil
		}

		var retryableErr *RetryableError
		if errors.As(err, &retryableErr) && !retryableErr.Retryable {
			return err
		}
		if attempt >= opts.MaxAttempts {
			return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetries, opts.MaxAttempts, err)
		}

		delay := b.delayFor(err)
		opts.OnRetry(attempt, delay, err)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}
