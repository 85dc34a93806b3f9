package horizon

import (
	"context"
	"sync"
	"time"
)

// DefaultRateLimit is the default request ceiling per window.
const DefaultRateLimit = 5

// RateLimiter enforces a request ceiling over a sliding time window. Callers
// block in Wait until a slot opens rather than failing. One limiter instance
// is shared by every client that talks to the same upstream; tests construct
// their own isolated instances.
type RateLimiter struct {
	mu       sync.Mutex
	limit    int
	window   time.Duration
	requests []time.Time
	now      func() time.Time
}

// NewRateLimiter creates a limiter allowing limit requests per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

// Wait blocks until a request slot is available or ctx is cancelled. The
// wait is bounded by the window length.
func (l *RateLimiter) Wait(ctx context.Context) error {
	for {
		wait := l.reserve()
		if wait <= 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(wait):
		}
	}
}

// reserve takes a slot if one is free, otherwise returns how long until the
// oldest tracked request leaves the window.
func (l *RateLimiter) reserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	cutoff := now.Add(-l.window)

	// Drop requests that fell out of the window.
	kept := l.requests[:0]
	for _, t := range l.requests {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.requests = kept

	if len(l.requests) < l.limit {
		l.requests = append(l.requests, now)
		return 0
	}
	return l.requests[0].Sub(cutoff)
}
