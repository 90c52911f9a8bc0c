// Package ratelimit throttles write traffic per client key. Two backends are
// provided: an in-process token bucket and a Redis sliding window shared by
// every instance of the service.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

var ErrRateLimited = errors.New("rate limit exceeded")

type Result struct {
	Allowed   bool
	Remaining int
	Limit     int
	ResetAt   time.Time
}

// RetryAfter is how long a rejected caller should wait; zero when allowed.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || !r.ResetAt.After(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// Noop lets everything through; used when limiting is switched off.
type Noop struct{}

func (Noop) Allow(context.Context, string) (Result, error) {
	return Result{Allowed: true, Remaining: -1}, nil
}
