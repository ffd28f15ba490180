package llm

import (
	"context"
	"fmt"
	"time"
)

// DefaultRetryAttempts is the bounded number of attempts for model calls.
const DefaultRetryAttempts = 3

// DefaultRetryBaseDelay is the backoff delay after the first failed attempt.
// Subsequent delays double.
const DefaultRetryBaseDelay = 2 * time.Second

// RetryOptions configures WithRetry.
type RetryOptions struct {
	Attempts  int
	BaseDelay time.Duration
	// Sleep is overridable for tests. Defaults to a context-aware sleep.
	Sleep func(ctx context.Context, d time.Duration) error
}

// DefaultRetryOptions returns the retry policy shared by extraction,
// template generation, and refinement.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		Attempts:  DefaultRetryAttempts,
		BaseDelay: DefaultRetryBaseDelay,
	}
}

// WithRetry runs fn up to opts.Attempts times with exponential backoff.
// Any error is retryable: model calls are idempotent and failures are
// opaque (transport errors, empty responses, malformed output all look
// the same from here). The final error names the attempt count and the
// last failure.
func WithRetry[T any](ctx context.Context, opts RetryOptions, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T
	if opts.Attempts < 1 {
		opts.Attempts = DefaultRetryAttempts
	}
	if opts.BaseDelay <= 0 {
		opts.BaseDelay = DefaultRetryBaseDelay
	}
	sleep := opts.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var lastErr error
	for attempt := 1; attempt <= opts.Attempts; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			return result, nil
		}
		lastErr = err

		if attempt < opts.Attempts {
			delay := opts.BaseDelay << (attempt - 1)
			if err := sleep(ctx, delay); err != nil {
				return zero, err
			}
		}
	}

	return zero, fmt.Errorf("model call failed after %d attempts: %w", opts.Attempts, lastErr)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
