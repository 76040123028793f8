package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryWithResult(t *testing.T) {
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, BackoffFactor: 2}

	calls := 0
	got, err := RetryWithResult(context.Background(), cfg, func() (int, error) {
		calls++
		if calls < 3 {
			return 0, errors.New("transient")
		}
		return 42, nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 3, calls)
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	permanent := errors.New("unauthorized")
	cfg := RetryConfig{
		MaxAttempts:   5,
		InitialDelay:  time.Millisecond,
		BackoffFactor: 2,
		Retryable:     func(err error) bool { return !errors.Is(err, permanent) },
	}

	calls := 0
	err := Retry(context.Background(), cfg, func() error {
		calls++
		return permanent
	})
	assert.ErrorIs(t, err, permanent)
	assert.Equal(t, 1, calls)
}

func TestRetry_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := RetryConfig{MaxAttempts: 3, InitialDelay: time.Second, BackoffFactor: 2}

	err := Retry(ctx, cfg, func() error { return errors.New("fail") })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCalculateBackoff(t *testing.T) {
	assert.Equal(t, 100*time.Millisecond, CalculateBackoff(0, 100*time.Millisecond, time.Second, 2))
	assert.Equal(t, 400*time.Millisecond, CalculateBackoff(2, 100*time.Millisecond, time.Second, 2))
	assert.Equal(t, time.Second, CalculateBackoff(10, 100*time.Millisecond, time.Second, 2))
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "$1,234.50", FormatUSD(1234.5))
	assert.Equal(t, "-$360.00", FormatUSD(-360))
	assert.Equal(t, "+38.89%", FormatPercent(38.888))
	assert.Equal(t, "95", FormatStrike(95))
	assert.Equal(t, "97.50", FormatStrike(97.5))
	assert.Equal(t, "1.5K", FormatCompact(1500))
	assert.Equal(t, "12,345", FormatCount(12345))
}

func TestMarketCalendar(t *testing.T) {
	// Friday 2026-01-16 10:00 ET
	open := time.Date(2026, 1, 16, 15, 0, 0, 0, time.UTC)
	assert.True(t, IsMarketOpen(open))

	saturday := time.Date(2026, 1, 17, 15, 0, 0, 0, time.UTC)
	assert.Equal(t, MarketClosed, GetMarketStatus(saturday))

	next := GetNextMarketOpen(saturday)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())

	assert.Equal(t, 30, DaysUntil(time.Date(2025, 12, 17, 15, 0, 0, 0, time.UTC), time.Date(2026, 1, 16, 0, 0, 0, 0, time.UTC)))
}
