package resilience

import (
	"context"
	"time"

	crerr "github.com/cockroachdb/errors"
)

// ErrTransient marks failures worth retrying and counting against a breaker.
var ErrTransient = crerr.New("transient provider failure")

// MarkTransient tags err so IsTransient reports true for it.
func MarkTransient(err error) error {
	if err == nil {
		return nil
	}
	return crerr.Mark(err, ErrTransient)
}

func IsTransient(err error) bool {
	return err != nil && crerr.Is(err, ErrTransient)
}

// LinearBackoff waits step, 2*step, 3*step... between attempts.
func LinearBackoff(step time.Duration) func(attempt int) time.Duration {
	return func(attempt int) time.Duration {
		return time.Duration(attempt+1) * step
	}
}

// Retry calls fn up to maxRetries+1 times. Only transient errors are retried.
func Retry(ctx context.Context, maxRetries int, backoff func(int) time.Duration, fn func(attempt int) error) error {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if backoff == nil {
		backoff = LinearBackoff(time.Second)
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		lastErr = fn(attempt)
		if lastErr == nil || !IsTransient(lastErr) {
			return lastErr
		}
		if attempt == maxRetries {
			break
		}

		timer := time.NewTimer(backoff(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return lastErr
}
