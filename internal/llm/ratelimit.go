package llm

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// rateLimiter is a token bucket shared by transcription and completion
// calls. The bucket is kept as accrued time rather than whole tokens, so
// a caller that has to wait knows exactly how long.
type rateLimiter struct {
	mu       sync.Mutex
	now      func() time.Time
	credit   time.Duration
	burst    time.Duration
	interval time.Duration // cost of one call
	updated  time.Time
}

// newRateLimiter allows requestsPerMinute calls, all of which may burst.
func newRateLimiter(requestsPerMinute int) *rateLimiter {
	if requestsPerMinute <= 0 {
		requestsPerMinute = 60
	}
	interval := time.Minute / time.Duration(requestsPerMinute)
	burst := interval * time.Duration(requestsPerMinute)
	return &rateLimiter{
		now:      time.Now,
		credit:   burst,
		burst:    burst,
		interval: interval,
	}
}

// reserve takes a call's worth of credit if available, otherwise returns
// how long until enough accrues.
func (rl *rateLimiter) reserve() time.Duration {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if !rl.updated.IsZero() {
		rl.credit = min(rl.burst, rl.credit+now.Sub(rl.updated))
	}
	rl.updated = now

	if rl.credit >= rl.interval {
		rl.credit -= rl.interval
		return 0
	}
	return rl.interval - rl.credit
}

// wait blocks until a token is taken and reports the time spent blocked.
func (rl *rateLimiter) wait(ctx context.Context) (time.Duration, error) {
	var waited time.Duration
	for {
		delay := rl.reserve()
		if delay <= 0 {
			return waited, nil
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return waited, fmt.Errorf("rate limiter canceled: %w", ctx.Err())
		case <-timer.C:
			waited += delay
		}
	}
}
