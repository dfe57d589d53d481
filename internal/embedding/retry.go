package embedding

import (
	"context"
	"errors"
	"time"
)

// RetryConfig configures exponential backoff retry behavior.
type RetryConfig struct {
	MaxRetries int           // total attempts, at least 1
	BaseDelay  time.Duration // delay before the second attempt
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultRetryConfig returns the retry policy used for embedding APIs.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries: 3,
		BaseDelay:  200 * time.Millisecond,
		MaxDelay:   5 * time.Second,
		Multiplier: 2.0,
	}
}

// permanentError marks a failure that retrying cannot fix, such as a 4xx response.
type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

func permanent(err error) error { return &permanentError{err: err} }

// retryWithBackoff runs fn until it succeeds, returns a permanent error, the context ends,
// or MaxRetries attempts have been made.
func retryWithBackoff[T any](ctx context.Context, config RetryConfig, fn func() (T, error)) (T, error) {
	var zero T
	var lastErr error
	attempts := config.MaxRetries
	if attempts < 1 {
		attempts = 1
	}
	backoff := config.BaseDelay

	for attempt := 0; attempt < attempts; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		lastErr = err

		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return zero, perm.err
		}

		if attempt < attempts-1 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				return zero, ctx.Err()
			case <-timer.C:
			}
			backoff = time.Duration(float64(backoff) * config.Multiplier)
			if config.MaxDelay > 0 && backoff > config.MaxDelay {
				backoff = config.MaxDelay
			}
		}
	}
	return zero, lastErr
}
