package retry

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	errs "igharvest/pkg/errors"
)

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   1 * time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, 1 * time.Second},
		{6, 1 * time.Second},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, backoff.NextDelay(tt.attempt), "attempt %d", tt.attempt)
	}
}

func TestDownloadScheduleWithoutCap(t *testing.T) {
	backoff := &ExponentialBackoff{BaseDelay: 800 * time.Millisecond, Multiplier: 1.7}

	assert.InDelta(t, float64(800*time.Millisecond), float64(backoff.NextDelay(1)), float64(time.Millisecond))
	assert.InDelta(t, float64(1360*time.Millisecond), float64(backoff.NextDelay(2)), float64(time.Millisecond))
	assert.InDelta(t, float64(2312*time.Millisecond), float64(backoff.NextDelay(3)), float64(time.Millisecond))
}

func TestExponentialBackoffJitterStaysInBounds(t *testing.T) {
	backoff := &ExponentialBackoff{BaseDelay: 100 * time.Millisecond, Multiplier: 2.0, JitterFactor: 0.3}

	seen := map[time.Duration]bool{}
	for i := 0; i < 20; i++ {
		d := backoff.NextDelay(2)
		assert.GreaterOrEqual(t, d, 140*time.Millisecond)
		assert.LessOrEqual(t, d, 260*time.Millisecond)
		seen[d] = true
	}
	assert.Greater(t, len(seen), 1)
}

func TestDoSucceedsAfterRetries(t *testing.T) {
	attempts := 0
	err := Do(func() error {
		attempts++
		if attempts < 3 {
			return errs.Transport("u", io.ErrUnexpectedEOF)
		}
		return nil
	}, &Config{MaxAttempts: 5, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestDoExhaustsBudget(t *testing.T) {
	attempts := 0
	var delays []time.Duration
	lastErr := errs.Transport("u", io.ErrUnexpectedEOF)

	err := Do(func() error {
		attempts++
		return lastErr
	}, &Config{
		MaxAttempts: 3,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		OnRetry: func(_ int, _ error, d time.Duration) {
			delays = append(delays, d)
		},
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
	assert.Len(t, delays, 3)
	assert.ErrorIs(t, err, io.ErrUnexpectedEOF)
	assert.Contains(t, err.Error(), "max retry attempts (3) exceeded")
}

func TestDoStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	statusErr := errs.HTTPStatus(404, "https://cdn.example/a.jpg")

	err := Do(func() error {
		attempts++
		return statusErr
	}, &Config{MaxAttempts: 5, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	assert.Same(t, statusErr, err)
	assert.Equal(t, 1, attempts)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(errors.New("untyped")))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(errs.HTTPStatus(500, "u")))
	assert.True(t, DefaultRetryIf(errs.Transport("u", io.EOF)))
}

func TestDoHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	attempts := 0

	err := Do(func() error {
		attempts++
		if attempts == 2 {
			cancel()
		}
		return errs.Transport("u", io.EOF)
	}, &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: 50 * time.Millisecond},
		Context:     ctx,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, attempts)
}

func TestDoWithResult(t *testing.T) {
	attempts := 0
	result, err := DoWithResult(func() (string, error) {
		attempts++
		if attempts < 2 {
			return "", errs.Transport("u", io.EOF)
		}
		return "done", nil
	}, &Config{MaxAttempts: 3, Backoff: &ConstantBackoff{Delay: time.Millisecond}})

	require.NoError(t, err)
	assert.Equal(t, "done", result)
}
