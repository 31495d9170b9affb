package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	errs "dyscraper/pkg/errors"
	"dyscraper/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastConfig(attempts int) *Config {
	return &Config{
		MaxAttempts: attempts,
		Backoff:     &ConstantBackoff{Delay: time.Millisecond},
		Logger:      logger.NewNopLogger(),
	}
}

func TestExponentialBackoff(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:  100 * time.Millisecond,
		MaxDelay:   time.Second,
		Multiplier: 2.0,
	}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 0},
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second},
		{9, time.Second},
	}

	for _, tt := range tests {
		if got := backoff.NextDelay(tt.attempt); got != tt.want {
			t.Errorf("attempt %d: expected %v, got %v", tt.attempt, tt.want, got)
		}
	}
}

func TestExponentialBackoffJitterBounds(t *testing.T) {
	backoff := &ExponentialBackoff{
		BaseDelay:    time.Second,
		MaxDelay:     time.Minute,
		Multiplier:   2.0,
		JitterFactor: 0.25,
	}
	for i := 0; i < 50; i++ {
		d := backoff.NextDelay(2)
		if d < 1500*time.Millisecond || d > 2500*time.Millisecond {
			t.Fatalf("delay %v outside jitter window", d)
		}
	}
}

func TestWait(t *testing.T) {
	assert.NoError(t, Wait(context.Background(), 0))
	assert.NoError(t, Wait(context.Background(), time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, Wait(ctx, time.Hour), context.Canceled)
}

func TestDoSucceedsAfterTransientErrors(t *testing.T) {
	calls := 0
	var retried []int
	cfg := fastConfig(3)
	cfg.OnRetry = func(attempt int, err error, delay time.Duration) {
		retried = append(retried, attempt)
	}

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return errs.New(errs.ErrorTypeNetwork, "connection reset")
		}
		return nil
	}, cfg)

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []int{1, 2}, retried)
}

func TestDoStopsOnNonRetryable(t *testing.T) {
	calls := 0
	notFound := errs.FromStatus(404, "https://example.com/v.mp4")

	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return notFound
	}, fastConfig(5))

	assert.Same(t, notFound, err)
	assert.Equal(t, 1, calls)
}

func TestDoGivesUp(t *testing.T) {
	calls := 0
	err := Do(context.Background(), func(ctx context.Context) error {
		calls++
		return errs.FromStatus(503, "u")
	}, fastConfig(3))

	require.Error(t, err)
	assert.Equal(t, 3, calls)
	assert.Contains(t, err.Error(), "giving up after 3 attempts")
	assert.True(t, errs.IsType(err, errs.ErrorTypeServerError))
}

func TestDoSingleAttemptReturnsRawError(t *testing.T) {
	boom := errors.New("boom")
	err := Do(context.Background(), func(ctx context.Context) error { return boom }, fastConfig(0))
	assert.Same(t, boom, err)
}

func TestDoHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := &Config{
		MaxAttempts: 5,
		Backoff:     &ConstantBackoff{Delay: time.Hour},
		Logger:      logger.NewNopLogger(),
		OnRetry: func(int, error, time.Duration) {
			cancel()
		},
	}

	calls := 0
	err := Do(ctx, func(ctx context.Context) error {
		calls++
		return errs.New(errs.ErrorTypeNetwork, "timeout")
	}, cfg)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry cancelled")
	assert.Equal(t, 1, calls)
}

func TestRateLimitStretchesDelay(t *testing.T) {
	var seen time.Duration
	cfg := fastConfig(2)
	cfg.OnRetry = func(_ int, _ error, delay time.Duration) { seen = delay }

	_ = Do(context.Background(), func(ctx context.Context) error {
		return errs.FromStatus(429, "u")
	}, cfg)

	assert.Equal(t, 3*time.Millisecond, seen)
}

func TestDefaultRetryIf(t *testing.T) {
	assert.False(t, DefaultRetryIf(nil))
	assert.False(t, DefaultRetryIf(context.Canceled))
	assert.False(t, DefaultRetryIf(errs.New(errs.ErrorTypeParsing, "bad json")))
	assert.True(t, DefaultRetryIf(errs.New(errs.ErrorTypeRateLimit, "slow down")))
	assert.True(t, DefaultRetryIf(errors.New("unexpected EOF")))
	assert.True(t, DefaultRetryIf(errs.FromStatus(503, "https://v26.douyinvod.com/a.mp4")))
	assert.False(t, DefaultRetryIf(errs.FromStatus(404, "https://v26.douyinvod.com/a.mp4")))
}

func TestDoWithResult(t *testing.T) {
	calls := 0
	got, err := DoWithResult(context.Background(), func(ctx context.Context) (string, error) {
		calls++
		if calls == 1 {
			return "", errs.New(errs.ErrorTypeNetwork, "reset")
		}
		return "aweme_list", nil
	}, fastConfig(2))

	require.NoError(t, err)
	assert.Equal(t, "aweme_list", got)
}
