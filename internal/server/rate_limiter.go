// Package server throttles the commands a single connection may issue
// with a token bucket sized from RateLimitConfig.
package server

import (
	"sync"
	"time"
)

// rateLimiter refills Burst tokens every RefillInterval, one fraction at a time.
type rateLimiter struct {
	mu       sync.Mutex
	burst    float64
	perToken time.Duration
	tokens   float64
	updated  time.Time
	now      func() time.Time
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	burst := max(cfg.Burst, 1)
	interval := cfg.RefillInterval
	if interval <= 0 {
		interval = time.Second
	}

	rl := &rateLimiter{
		burst:    float64(burst),
		perToken: max(interval/time.Duration(burst), time.Nanosecond),
		tokens:   float64(burst),
		now:      time.Now,
	}
	rl.updated = rl.now()
	return rl
}

// take consumes one token. When the bucket is empty it reports how long the
// caller has to wait before the next token becomes available.
func (rl *rateLimiter) take() (time.Duration, bool) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if elapsed := now.Sub(rl.updated); elapsed > 0 {
		rl.tokens = min(rl.burst, rl.tokens+float64(elapsed)/float64(rl.perToken))
	}
	rl.updated = now

	if rl.tokens < 1 {
		return time.Duration((1 - rl.tokens) * float64(rl.perToken)), false
	}
	rl.tokens--
	return 0, true
}
