package api

import (
	"sync"
	"time"
)

// reloadLimiter is a token bucket guarding the reload endpoint. A nil
// limiter allows every call.
type reloadLimiter struct {
	mu          sync.Mutex
	burst       float64
	tokens      float64
	refillEvery time.Duration
	lastRefill  time.Time
}

// newReloadLimiter allows burst reloads at once and one more every
// refillEvery. Non-positive parameters disable limiting.
func newReloadLimiter(burst int, refillEvery time.Duration, now time.Time) *reloadLimiter {
	if burst <= 0 || refillEvery <= 0 {
		return nil
	}
	return &reloadLimiter{
		burst:       float64(burst),
		tokens:      float64(burst),
		refillEvery: refillEvery,
		lastRefill:  now,
	}
}

func (l *reloadLimiter) allow(now time.Time) bool {
	if l == nil {
		return true
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if now.Before(l.lastRefill) {
		l.lastRefill = now
	}
	if elapsed := now.Sub(l.lastRefill); elapsed >= l.refillEvery {
		l.tokens += float64(elapsed) / float64(l.refillEvery)
		if l.tokens > l.burst {
			l.tokens = l.burst
		}
		l.lastRefill = now
	}
	if l.tokens < 1 {
		return false
	}
	l.tokens--
	return true
}
