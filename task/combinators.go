package task

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// WithRetry wraps runnable with linear backoff: it retries on any error,
// waiting backoff multiplied by the attempt number, ported from the
// teacher's asynctask.WithRetry almost verbatim — it has no coupling to
// anything FrankenPHP-specific.
func WithRetry(runnable Runnable, retries int, backoff time.Duration) Runnable {
	return RunnableFunc(func(ctx context.Context) (any, error) {
		var lastErr error
		for i := 0; i <= retries; i++ {
			value, err := runnable.Run(ctx)
			if err == nil {
				return value, nil
			}
			lastErr = err

			if i < retries {
				select {
				case <-time.After(backoff * time.Duration(i+1)):
				case <-ctx.Done():
					return nil, ctx.Err()
				}
			}
		}
		return nil, fmt.Errorf("after %d retries: %w", retries, lastErr)
	})
}

// WithTimeout wraps runnable with a deadline, returning ErrTaskTimeout if
// it is exceeded.
func WithTimeout(runnable Runnable, timeout time.Duration) Runnable {
	return RunnableFunc(func(ctx context.Context) (any, error) {
		timeoutCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		type outcome struct {
			value any
			err   error
		}
		resultCh := make(chan outcome, 1)

		go func() {
			value, err := runnable.Run(timeoutCtx)
			resultCh <- outcome{value, err}
		}()

		select {
		case o := <-resultCh:
			return o.value, o.err
		case <-timeoutCtx.Done():
			if errors.Is(timeoutCtx.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("%w: exceeded %v", ErrTaskTimeout, timeout)
			}
			return nil, timeoutCtx.Err()
		}
	})
}
