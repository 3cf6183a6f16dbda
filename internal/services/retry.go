package services

import (
	"context"
	"time"
)

// RetryPolicy bounds local retries of a sub-task before the failure escalates.
type RetryPolicy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	// Sleep overrides how delays are performed (tests).
	Sleep func(time.Duration)
}

// DefaultRetryPolicy returns the retry budget applied to pipeline sub-tasks
// when the configuration does not override it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts: 3,
		BaseDelay:   500 * time.Millisecond,
		MaxDelay:    10 * time.Second,
	}
}

// Retry runs op until it succeeds, returns a non-retryable error, exhausts
// the attempt budget, or the context is cancelled. Delays grow exponentially
// from BaseDelay and are capped at MaxDelay.
func Retry(ctx context.Context, policy RetryPolicy, op func(context.Context) error) error {
	attempts := policy.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	delay := policy.BaseDelay
	if delay <= 0 {
		delay = 500 * time.Millisecond
	}
	maxDelay := policy.MaxDelay
	if maxDelay <= 0 {
		maxDelay = 10 * time.Second
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		lastErr = op(ctx)
		if lastErr == nil {
			return nil
		}
		if !IsRetryable(lastErr) || attempt == attempts {
			break
		}
		if policy.Sleep != nil {
			policy.Sleep(delay)
		} else {
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if next := delay * 2; next <= maxDelay {
			delay = next
		} else {
			delay = maxDelay
		}
	}
	return lastErr
}
