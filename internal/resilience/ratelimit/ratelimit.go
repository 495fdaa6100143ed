// Package ratelimit provides per-dependency token buckets for outbound calls.
package ratelimit

import (
	"context"
	"sync/atomic"
	"time"

	"order-sync-gateway/pkg/apperror"

	"golang.org/x/time/rate"
)

// Limiter is a token bucket guarding one dependency. Tokens refill lazily
// from elapsed time; waiters are served in reservation order.
type Limiter struct {
	name    string
	limiter *rate.Limiter
	maxWait time.Duration

	acquired    atomic.Int64
	rejected    atomic.Int64
	totalWaitNs atomic.Int64
}

// Stats is a point-in-time view of limiter activity.
type Stats struct {
	Name     string        `json:"name"`
	Rate     float64       `json:"rate"`
	Burst    int           `json:"burst"`
	Acquired int64         `json:"acquired"`
	Rejected int64         `json:"rejected"`
	AvgWait  time.Duration `json:"avg_wait"`
}

// New creates a limiter refilling ratePerSec tokens per second with burst
// capacity. maxWait bounds every acquisition in addition to the caller's
// deadline; zero means only the caller's deadline applies.
func New(name string, ratePerSec float64, burst int, maxWait time.Duration) *Limiter {
	if burst < 1 {
		burst = 1
	}
	return &Limiter{
		name:    name,
		limiter: rate.NewLimiter(rate.Limit(ratePerSec), burst),
		maxWait: maxWait,
	}
}

// Name returns the dependency the limiter guards.
func (l *Limiter) Name() string { return l.name }

// Acquire blocks until a token is available or the earlier of the caller's
// deadline and maxWait would elapse. It fails fast, without consuming a
// token, when the wait is known to exceed the deadline.
func (l *Limiter) Acquire(ctx context.Context) error {
	waitCtx := ctx
	if l.maxWait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.maxWait)
		defer cancel()
	}

	start := time.Now()
	if err := l.limiter.Wait(waitCtx); err != nil {
		l.rejected.Add(1)
		e := apperror.RateLimitExceeded(l.name, l.retryAfter())
		e.Err = err
		return e
	}

	l.acquired.Add(1)
	l.totalWaitNs.Add(int64(time.Since(start)))
	return nil
}

func (l *Limiter) retryAfter() time.Duration {
	if l.limiter.Limit() <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / float64(l.limiter.Limit()))
}

// Stats returns a snapshot of limiter counters.
func (l *Limiter) Stats() Stats {
	acquired := l.acquired.Load()
	var avg time.Duration
	if acquired > 0 {
		avg = time.Duration(l.totalWaitNs.Load() / acquired)
	}
	return Stats{
		Name:     l.name,
		Rate:     float64(l.limiter.Limit()),
		Burst:    l.limiter.Burst(),
		Acquired: acquired,
		Rejected: l.rejected.Load(),
		AvgWait:  avg,
	}
}
