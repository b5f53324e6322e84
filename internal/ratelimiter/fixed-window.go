package ratelimiter

import (
	"sync"
	"time"
)

// FixedWindowRateLimiter counts requests per client IP inside a fixed
// window. Checkout and callback endpoints share one limiter instance.
type FixedWindowRateLimiter struct {
	mu      sync.Mutex
	counts  map[string]int
	started map[string]time.Time
	limit   int
	window  time.Duration
}

func NewFixedWindowLimiter(limit int, window time.Duration) *FixedWindowRateLimiter {
	return &FixedWindowRateLimiter{
		counts:  make(map[string]int),
		started: make(map[string]time.Time),
		limit:   limit,
		window:  window,
	}
}

// Allow reports whether the client may proceed. When the limit is hit it
// returns the time remaining until the window resets.
func (rl *FixedWindowRateLimiter) Allow(ip string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	start, ok := rl.started[ip]
	if !ok || now.Sub(start) >= rl.window {
		rl.counts[ip] = 0
		rl.started[ip] = now
		start = now
	}

	if rl.counts[ip] >= rl.limit {
		return false, rl.window - now.Sub(start)
	}

	rl.counts[ip]++
	return true, 0
}
