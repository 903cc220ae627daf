package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRetry(t *testing.T) {
	t.Parallel()

	noWait := func(int) time.Duration { return time.Millisecond }

	t.Run("retries transient until success", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := Retry(context.Background(), 3, noWait, func(int) error {
			calls++
			if calls < 3 {
				return MarkTransient(errors.New("status=503"))
			}
			return nil
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if calls != 3 {
			t.Fatalf("expected 3 calls, got %d", calls)
		}
	})

	t.Run("stops on permanent error", func(t *testing.T) {
		t.Parallel()
		calls := 0
		permanent := errors.New("status=404")
		err := Retry(context.Background(), 3, noWait, func(int) error {
			calls++
			return permanent
		})
		if !errors.Is(err, permanent) || calls != 1 {
			t.Fatalf("expected one call with permanent error, calls=%d err=%v", calls, err)
		}
	})

	t.Run("zero retries runs once", func(t *testing.T) {
		t.Parallel()
		calls := 0
		err := Retry(context.Background(), 0, noWait, func(int) error {
			calls++
			return MarkTransient(errors.New("timeout"))
		})
		if !IsTransient(err) || calls != 1 {
			t.Fatalf("expected single transient failure, calls=%d err=%v", calls, err)
		}
	})

	t.Run("context cancellation aborts backoff", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := Retry(ctx, 2, func(int) time.Duration { return time.Hour }, func(int) error {
			return MarkTransient(errors.New("reset"))
		})
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context canceled, got %v", err)
		}
	})
}
