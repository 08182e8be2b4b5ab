package llm

import (
	"context"
	"time"
)

const (
	defaultMaxAttempts = 3
	baseRetryDelay     = time.Second
)

// withRetry runs fn up to maxAttempts times, doubling the delay between
// attempts starting from baseRetryDelay. Only transient errors are retried;
// terminal errors and context cancellation return immediately.
func withRetry(ctx context.Context, maxAttempts int, fn func() (Result, error)) (Result, error) {
	if maxAttempts <= 0 {
		maxAttempts = defaultMaxAttempts
	}

	var lastErr error
	delay := baseRetryDelay
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		res, err := fn()
		if err == nil {
			return res, nil
		}
		lastErr = err
		if !IsTransient(err) || attempt == maxAttempts {
			return Result{}, err
		}

		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return Result{}, lastErr
}
