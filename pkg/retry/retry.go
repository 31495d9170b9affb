package retry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"dyscraper/pkg/config"
	errs "dyscraper/pkg/errors"
	"dyscraper/pkg/logger"
)

// Operation is one attempt of a retried call.
type Operation func(ctx context.Context) error

// Config holds retry configuration
type Config struct {
	// MaxAttempts counts the first try; values below 1 mean a single try.
	MaxAttempts int
	Backoff     BackoffStrategy
	// RetryIf decides whether err is worth another attempt.
	RetryIf func(error) bool
	// OnRetry runs before sleeping ahead of attempt+1.
	OnRetry func(attempt int, err error, delay time.Duration)
	Logger  logger.Logger
}

// DefaultConfig returns a retry configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		MaxAttempts: 3,
		Backoff:     DefaultExponentialBackoff(),
		RetryIf:     DefaultRetryIf,
		Logger:      logger.GetLogger(),
	}
}

// FromSettings builds a Config from the retry section of the configuration.
func FromSettings(rc config.RetryConfig, log logger.Logger) *Config {
	return &Config{
		MaxAttempts: rc.MaxAttempts,
		Backoff: &ExponentialBackoff{
			BaseDelay:    rc.InitialDelay,
			MaxDelay:     rc.MaxDelay,
			Multiplier:   rc.Multiplier,
			JitterFactor: 0.1,
		},
		RetryIf: DefaultRetryIf,
		Logger:  log,
	}
}

// DefaultRetryIf retries typed errors whose status or type is retryable and
// any untyped error except context cancellation.
func DefaultRetryIf(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var typed *errs.Error
	if errors.As(err, &typed) {
		if typed.Code != 0 {
			return errs.IsRetryableStatusCode(typed.Code)
		}
		return errs.IsRetryable(typed.Type)
	}
	return true
}

// rateLimitFactor stretches the pause after a 429.
const rateLimitFactor = 3

// Do runs op until it succeeds, returns a non-retryable error, runs out of
// attempts, or ctx is cancelled.
func Do(ctx context.Context, op Operation, cfg *Config) error {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	retryIf := cfg.RetryIf
	if retryIf == nil {
		retryIf = DefaultRetryIf
	}
	backoff := cfg.Backoff
	if backoff == nil {
		backoff = DefaultExponentialBackoff()
	}
	maxAttempts := cfg.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	log := cfg.Logger
	if log == nil {
		log = logger.NewNopLogger()
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("retry cancelled: %w", lastErr)
			}
			return err
		}

		err := op(ctx)
		if err == nil {
			if attempt > 1 {
				log.DebugWithFields("operation succeeded after retry", map[string]interface{}{
					"attempt": attempt,
				})
			}
			return nil
		}
		lastErr = err

		if !retryIf(err) {
			return err
		}
		if attempt == maxAttempts {
			break
		}

		delay := backoff.NextDelay(attempt)
		if errs.IsType(err, errs.ErrorTypeRateLimit) {
			delay *= rateLimitFactor
		}
		if cfg.OnRetry != nil {
			cfg.OnRetry(attempt, err, delay)
		}
		log.WarnWithFields("retrying operation", map[string]interface{}{
			"attempt":      attempt,
			"max_attempts": maxAttempts,
			"error":        err.Error(),
			"delay":        delay,
		})

		if err := Wait(ctx, delay); err != nil {
			return fmt.Errorf("retry cancelled: %w", lastErr)
		}
	}

	if maxAttempts == 1 {
		return lastErr
	}
	return fmt.Errorf("giving up after %d attempts: %w", maxAttempts, lastErr)
}

// DoWithResult is Do for operations that produce a value.
func DoWithResult[T any](ctx context.Context, op func(ctx context.Context) (T, error), cfg *Config) (T, error) {
	var result T
	err := Do(ctx, func(ctx context.Context) error {
		var opErr error
		result, opErr = op(ctx)
		return opErr
	}, cfg)
	return result, err
}
