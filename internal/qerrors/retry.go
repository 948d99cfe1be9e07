package qerrors

import (
	"context"
	"fmt"
	"time"
)

// RetryConfig configures bounded exponential backoff for callers that
// choose to retry a transient storage error (spec: "retried with bounded
// backoff at the caller's discretion; the engine surfaces them").
type RetryConfig struct {
	MaxRetries   int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}

// DefaultRetryConfig returns a conservative default.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:   3,
		InitialDelay: 200 * time.Millisecond,
		MaxDelay:     5 * time.Second,
		Multiplier:   2.0,
	}
}

// Retry runs fn, retrying with exponential backoff while the returned
// error is Retryable(). Cancellation errors are returned immediately and
// are never retried.
func Retry(ctx context.Context, cfg RetryConfig, fn func() error) error {
	delay := cfg.InitialDelay
	var lastErr error
	attempts := 0

	for attempt := 0; attempt <= cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return New(KindCancelled, "retry cancelled", ctx.Err())
		default:
		}

		err := fn()
		attempts++
		if err == nil {
			return nil
		}
		if KindOf(err) == KindCancelled {
			return err
		}
		lastErr = err
		if !IsRetryable(err) || attempt >= cfg.MaxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return New(KindCancelled, "retry cancelled", ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * cfg.Multiplier)
		if delay > cfg.MaxDelay {
			delay = cfg.MaxDelay
		}
	}

	return fmt.Errorf("retry: giving up after %d attempts: %w", attempts, lastErr)
}
