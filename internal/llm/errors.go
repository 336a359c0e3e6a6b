package llm

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/the-budget-must-balance/internal/common"
)

// statusError converts a non-2xx response into a classified error.
// Rate limits and server errors are retryable; other client errors are not.
// A 429 carries the provider's requested wait when the headers name one.
func statusError(provider string, status int, header http.Header, body []byte) error {
	err := fmt.Errorf("%w: %s API error (status %d): %s", common.ErrRemoteUnavailable, provider, status, truncate(string(body), 512))

	switch {
	case status == http.StatusTooManyRequests:
		return &common.RetryableError{
			Err:        fmt.Errorf("%w: %w", common.ErrRateLimit, err),
			Retryable:  true,
			RetryAfter: retryAfter(header, time.Now()),
		}
	case status >= 500:
		return &common.RetryableError{Err: err, Retryable: true}
	default:
		return &common.RetryableError{Err: err, Retryable: false}
	}
}

// retryAfter reads OpenAI's retry-after-ms or the standard Retry-After,
// which is either delta-seconds or an HTTP date. Zero means no usable hint.
func retryAfter(header http.Header, now time.Time) time.Duration {
	if v := strings.TrimSpace(header.Get("Retry-After-Ms")); v != "" {
		if ms, err := strconv.ParseFloat(v, 64); err == nil && ms > 0 {
			return time.Duration(ms * float64(time.Millisecond))
		}
	}

	v := strings.TrimSpace(header.Get("Retry-After"))
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs <= 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil && at.After(now) {
		return at.Sub(now)
	}
	return 0
}

// transportError wraps a failed round trip.
func transportError(provider string, err error) error {
	return fmt.Errorf("%w: %s request failed: %w", common.ErrRemoteUnavailable, provider, err)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
