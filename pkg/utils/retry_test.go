package utils

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "ibkr-terminal/internal/errors"
)

func fastRetryConfig(attempts int) RetryConfig {
	return RetryConfig{
		MaxAttempts:   attempts,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
}

func TestRetryWithResult(t *testing.T) {
	ctx := context.Background()

	t.Run("first attempt succeeds", func(t *testing.T) {
		calls := 0
		got, err := RetryWithResult(ctx, fastRetryConfig(3), func() (int, error) {
			calls++
			return 42, nil
		})
		require.NoError(t, err)
		assert.Equal(t, 42, got)
		assert.Equal(t, 1, calls)
	})

	t.Run("recovers after transient failures", func(t *testing.T) {
		calls := 0
		got, err := RetryWithResult(ctx, fastRetryConfig(3), func() (string, error) {
			calls++
			if calls < 3 {
				return "", apperrors.ErrUpstreamFetch
			}
			return "ok", nil
		})
		require.NoError(t, err)
		assert.Equal(t, "ok", got)
		assert.Equal(t, 3, calls)
	})

	t.Run("exhaustion returns the last error", func(t *testing.T) {
		calls := 0
		_, err := RetryWithResult(ctx, fastRetryConfig(3), func() (int, error) {
			calls++
			return 0, apperrors.ErrUpstreamFetch
		})
		assert.ErrorIs(t, err, apperrors.ErrUpstreamFetch)
		assert.Equal(t, 3, calls)
	})

	t.Run("cancelled context aborts the backoff", func(t *testing.T) {
		cancelled, cancel := context.WithCancel(ctx)
		cancel()
		calls := 0
		_, err := RetryWithResult(cancelled, fastRetryConfig(3), func() (int, error) {
			calls++
			return 0, apperrors.ErrUpstreamFetch
		})
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, 1, calls)
	})
}

func TestRetry(t *testing.T) {
	calls := 0
	err := Retry(context.Background(), fastRetryConfig(2), func() error {
		calls++
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
