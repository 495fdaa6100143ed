// Package retry runs operations under exponential backoff with jitter and a
// fixed attempt budget.
package retry

import (
	"context"
	"time"

	"order-sync-gateway/pkg/apperror"

	"github.com/cenkalti/backoff/v4"
)

// Policy configures one processing stage's retries.
type Policy struct {
	MaxAttempts         int
	InitialInterval     time.Duration
	MaxInterval         time.Duration
	Multiplier          float64
	RandomizationFactor float64
}

// Notify is called before each backoff sleep with the attempt that failed.
type Notify func(err error, attempt int, wait time.Duration)

// Retryable reports whether err should be retried by the pipeline. An open
// circuit is retried after its cool-down even though callers see it as
// final.
func Retryable(err error) bool {
	ce := apperror.From(err)
	return ce.Retryable || ce.Kind == apperror.KindCircuitOpen
}

// Do runs op until it succeeds, returns a non-retryable error, or
// MaxAttempts attempts have been made. The last error is returned on
// exhaustion. A retry-after hint on the error (throttling, open circuit)
// stretches the next wait; when that wait would outlive ctx, Do stops early.
func (p Policy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error, notify Notify) error {
	maxAttempts := p.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}

	hinted := &hintBackOff{delegate: p.exponential(), ctx: ctx}
	b := backoff.WithContext(backoff.WithMaxRetries(hinted, uint64(maxAttempts-1)), ctx)

	attempt := 0
	operation := func() error {
		attempt++
		err := op(ctx, attempt)
		if err == nil {
			return nil
		}
		if !Retryable(err) {
			return backoff.Permanent(err)
		}
		hinted.hint = 0
		if ce, ok := apperror.As(err); ok {
			hinted.hint = ce.RetryAfter()
		}
		return err
	}

	var onRetry backoff.Notify
	if notify != nil {
		onRetry = func(err error, wait time.Duration) { notify(err, attempt, wait) }
	}
	return backoff.RetryNotify(operation, b, onRetry)
}

func (p Policy) exponential() *backoff.ExponentialBackOff {
	eb := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		eb.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		eb.MaxInterval = p.MaxInterval
	}
	if p.Multiplier >= 1 {
		eb.Multiplier = p.Multiplier
	}
	eb.RandomizationFactor = p.RandomizationFactor
	eb.MaxElapsedTime = 0
	eb.Reset()
	return eb
}

// hintBackOff waits at least the hint carried by the last error.
type hintBackOff struct {
	delegate backoff.BackOff
	ctx      context.Context
	hint     time.Duration
}

func (h *hintBackOff) NextBackOff() time.Duration {
	next := h.delegate.NextBackOff()
	if next == backoff.Stop {
		return next
	}
	if h.hint > next {
		next = h.hint
	}
	if deadline, ok := h.ctx.Deadline(); ok && next > time.Until(deadline) {
		return backoff.Stop
	}
	return next
}

func (h *hintBackOff) Reset() {
	h.hint = 0
	h.delegate.Reset()
}
