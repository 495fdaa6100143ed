package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"order-sync-gateway/pkg/apperror"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(max int) Policy {
	return Policy{
		MaxAttempts:         max,
		InitialInterval:     time.Millisecond,
		MaxInterval:         5 * time.Millisecond,
		Multiplier:          2,
		RandomizationFactor: 0.5,
	}
}

func TestDo_ExhaustsExactlyMaxAttempts(t *testing.T) {
	for _, max := range []int{1, 3, 5} {
		calls := 0
		err := fastPolicy(max).Do(context.Background(), func(ctx context.Context, attempt int) error {
			calls++
			assert.Equal(t, calls, attempt)
			return apperror.New(apperror.KindNetwork, "connection reset")
		}, nil)

		require.Error(t, err)
		assert.Equal(t, apperror.KindNetwork, apperror.KindOf(err))
		assert.Equal(t, max, calls)
	}
}

func TestDo_NonRetryableStopsImmediately(t *testing.T) {
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return apperror.New(apperror.KindOrderCreationFailed, "400 bad request")
	}, nil)

	assert.Equal(t, apperror.KindOrderCreationFailed, apperror.KindOf(err))
	assert.Equal(t, 1, calls)
}

func TestDo_SucceedsAfterTransientFailures(t *testing.T) {
	var notified []int
	calls := 0
	err := fastPolicy(5).Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if calls <= 3 {
			return apperror.New(apperror.KindFulfillmentAPI, "503").WithRetryable(true)
		}
		return nil
	}, func(err error, attempt int, wait time.Duration) {
		notified = append(notified, attempt)
	})

	require.NoError(t, err)
	assert.Equal(t, 4, calls)
	assert.Equal(t, []int{1, 2, 3}, notified)
}

func TestDo_UnknownErrorsAreNotRetried(t *testing.T) {
	calls := 0
	err := fastPolicy(3).Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		return errors.New("nil pointer")
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestDo_CircuitOpenIsRetried(t *testing.T) {
	calls := 0
	err := fastPolicy(2).Do(context.Background(), func(ctx context.Context, attempt int) error {
		calls++
		if calls == 1 {
			return apperror.CircuitOpen("fulfillment", time.Millisecond)
		}
		return nil
	}, nil)

	require.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestDo_RetryAfterBeyondDeadlineStopsEarly(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	calls := 0
	start := time.Now()
	err := fastPolicy(5).Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		return apperror.RateLimitExceeded("fulfillment", time.Minute)
	}, nil)

	assert.Equal(t, apperror.KindRateLimitExceeded, apperror.KindOf(err))
	assert.Equal(t, 1, calls)
	assert.Less(t, time.Since(start), 100*time.Millisecond)
}

func TestDo_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	err := fastPolicy(5).Do(ctx, func(ctx context.Context, attempt int) error {
		calls++
		cancel()
		return apperror.New(apperror.KindNetwork, "reset")
	}, nil)

	require.Error(t, err)
	assert.Equal(t, 1, calls)
	assert.True(t, apperror.IsRetryable(err))
}

func TestRetryable(t *testing.T) {
	assert.True(t, Retryable(apperror.New(apperror.KindTimeout, "t")))
	assert.True(t, Retryable(apperror.CircuitOpen("x", 0)))
	assert.False(t, Retryable(apperror.New(apperror.KindTransformationFailed, "t")))
	assert.False(t, Retryable(apperror.New(apperror.KindTrackingSyncFailed, "t").WithRetryable(false)))
}
