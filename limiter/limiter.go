package limiter

import (
	"context"
	"sync"
	"time"
)

// New creates a Limiter that keeps successive calls at least interval
// apart. One Limiter is shared by every caller of one upstream family.
func New(interval time.Duration) *Limiter {
	return &Limiter{interval: interval}
}

// A Limiter serializes callers against a minimum spacing. Waiters are
// released in lock-acquisition order; no fairness beyond that.
type Limiter struct {
	mu       sync.Mutex
	interval time.Duration
	nextAt   time.Time
}

// Wait blocks until at least the configured interval has elapsed since the
// previous Wait returned, then stamps the new time. The mutex is held
// across the sleep, so no two calls can ever fire closer together than the
// interval.
func (lim *Limiter) Wait(ctx context.Context) error {
	lim.mu.Lock()
	defer lim.mu.Unlock()

	if now := time.Now(); lim.nextAt.After(now) {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lim.nextAt.Sub(now)):
		}
	}

	lim.nextAt = time.Now().Add(lim.interval)
	return nil
}
