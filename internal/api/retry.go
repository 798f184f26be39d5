package api

import (
	"errors"
	"net/http"
	"time"

	"venuebook/internal/config"
)

const defaultRetryDelay = 300 * time.Millisecond

// RetryPolicy decides whether a failed backend call is repeated and how long
// to wait before it is. Only reads are ever repeated.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

func newRetryPolicy(cfg config.RetryConfig) RetryPolicy {
	return RetryPolicy{
		MaxRetries:    cfg.MaxRetries,
		InitialDelay:  time.Duration(cfg.InitialDelayMS) * time.Millisecond,
		MaxDelay:      time.Duration(cfg.MaxDelayMS) * time.Millisecond,
		BackoffFactor: cfg.BackoffFactor,
	}
}

// Retry reports whether a call that failed on the given attempt (0-based)
// should be made again. transient marks failures that happened before a
// reply was read; replies are retried only for 429 and 5xx.
func (r RetryPolicy) Retry(method string, attempt int, transient bool, err error) bool {
	if err == nil || method != http.MethodGet || attempt >= r.MaxRetries {
		return false
	}
	if transient {
		return true
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusTooManyRequests || apiErr.Status >= http.StatusInternalServerError
	}
	return false
}

// Backoff returns the wait before retry n (1-based), growing by
// BackoffFactor each time and never above MaxDelay.
func (r RetryPolicy) Backoff(n int) time.Duration {
	delay := r.InitialDelay
	if delay <= 0 {
		delay = defaultRetryDelay
	}
	factor := r.BackoffFactor
	if factor < 1 {
		factor = 2
	}
	for i := 1; i < n; i++ {
		if r.MaxDelay > 0 && delay >= r.MaxDelay {
			break
		}
		delay = time.Duration(float64(delay) * factor)
	}
	if r.MaxDelay > 0 && delay > r.MaxDelay {
		delay = r.MaxDelay
	}
	return delay
}
