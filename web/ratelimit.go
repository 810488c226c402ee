package web

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig holds the per-IP limits for credential submissions.
type RateLimiterConfig struct {
	Rate    rate.Limit
	Burst   int
	IdleTTL time.Duration
}

// DefaultRateLimiterConfig allows a burst of 5 and one more every 2s.
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		Rate:    rate.Every(2 * time.Second),
		Burst:   5,
		IdleTTL: 10 * time.Minute,
	}
}

type ipLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// RateLimiter keeps one token bucket per remote address.
type RateLimiter struct {
	config RateLimiterConfig

	mu        sync.Mutex
	limiters  map[string]*ipLimiter
	lastSweep time.Time
}

func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	if config.IdleTTL <= 0 {
		config.IdleTTL = DefaultRateLimiterConfig().IdleTTL
	}
	return &RateLimiter{
		config:    config,
		limiters:  make(map[string]*ipLimiter),
		lastSweep: time.Now(),
	}
}

// Allow consumes one token for key.
func (rl *RateLimiter) Allow(key string) bool {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > rl.config.IdleTTL {
		rl.sweep(now)
	}

	l, ok := rl.limiters[key]
	if !ok {
		l = &ipLimiter{limiter: rate.NewLimiter(rl.config.Rate, rl.config.Burst)}
		rl.limiters[key] = l
	}
	l.lastAccess = now

	return l.limiter.AllowN(now, 1)
}

// Len is the number of tracked addresses.
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.limiters)
}

func (rl *RateLimiter) sweep(now time.Time) {
	for key, l := range rl.limiters {
		if now.Sub(l.lastAccess) > rl.config.IdleTTL {
			delete(rl.limiters, key)
		}
	}
	rl.lastSweep = now
}
