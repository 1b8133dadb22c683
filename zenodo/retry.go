package zenodo

import (
	"context"
	"errors"
	"net"
	"time"
)

// retryOperation retries a function with a fixed inter-attempt delay.
// Only transient failures (transport errors and 5xx responses) are retried;
// caller errors break out immediately. The final error is returned after the
// attempt budget is exhausted. Cancelling ctx aborts both the delay and any
// further attempts.
func retryOperation(ctx context.Context, attempts int, delay time.Duration, sleep func(context.Context, time.Duration), operation func() error) error {
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			sleep(ctx, delay)
		}
		if err := ctx.Err(); err != nil {
			return err
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		if !isRetryableError(err) {
			break
		}
	}

	return lastErr
}

// sleepContext waits for d or until ctx is cancelled, whichever comes first.
func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// isRetryableError determines if an error should trigger a retry.
// Transport-level failures and 5xx responses are retryable; context
// cancellation and 4xx responses are not.
func isRetryableError(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.Transient
	}

	var netErr net.Error
	return errors.As(err, &netErr)
}
