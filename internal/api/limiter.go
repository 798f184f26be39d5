package api

import (
	"context"
	"sync"

	"venuebook/internal/config"

	"golang.org/x/time/rate"
)

// rateLimiter throttles outbound calls per session user so one busy session
// cannot exhaust the backend's per-user quota for the others.
type rateLimiter struct {
	limiters sync.Map
	cfg      config.RateLimitConfig
}

func newRateLimiter(cfg config.RateLimitConfig) *rateLimiter {
	return &rateLimiter{
		cfg: cfg,
	}
}

func (l *rateLimiter) getLimiter(key string) *rate.Limiter {
	if v, ok := l.limiters.Load(key); ok {
		if lim, ok := v.(*rate.Limiter); ok {
			return lim
		}
	}

	burst := l.cfg.Burst
	if burst <= 0 {
		burst = 5
	}
	limit := rate.Limit(l.cfg.RPS)
	if l.cfg.RPS <= 0 {
		limit = rate.Inf
	}

	lim := rate.NewLimiter(limit, burst)
	actual, loaded := l.limiters.LoadOrStore(key, lim)
	if loaded {
		if actualLim, ok := actual.(*rate.Limiter); ok {
			return actualLim
		}
	}
	return lim
}

// wait blocks until the key may send another request or ctx ends.
func (l *rateLimiter) wait(ctx context.Context, key string) error {
	if key == "" {
		key = "anonymous"
	}
	return l.getLimiter(key).Wait(ctx)
}
