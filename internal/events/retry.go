package events

import (
	"context"
	"time"
)

// Backoff defaults for broker writes
const (
	DefaultMaxRetries        = 3
	DefaultInitialBackoff    = 100 * time.Millisecond
	DefaultMaxBackoff        = 2 * time.Second
	DefaultBackoffMultiplier = 2.0
)

// RetryConfig configures exponential backoff for publishing
type RetryConfig struct {
	MaxRetries int           // Attempts in total, including the first
	BaseDelay  time.Duration // Delay after the first failure
	MaxDelay   time.Duration // Upper bound for any delay
	Multiplier float64       // Growth factor between delays
}

// DefaultRetryConfig returns the defaults used when the caller sets none
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: DefaultMaxRetries,
		BaseDelay:  DefaultInitialBackoff,
		MaxDelay:   DefaultMaxBackoff,
		Multiplier: DefaultBackoffMultiplier,
	}
}

// retryWithBackoff runs fn until it succeeds or the attempts run out. It
// stops early once ctx is done and returns the context error.
func retryWithBackoff(ctx context.Context, cfg RetryConfig, fn func() error) error {
	attempts := max(cfg.MaxRetries, 1)
	backoff := cfg.BaseDelay

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if attempt == attempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff = time.Duration(float64(backoff) * cfg.Multiplier)
		if backoff > cfg.MaxDelay {
			backoff = cfg.MaxDelay
		}
	}
	return lastErr
}
