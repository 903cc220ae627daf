package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestStore_GetOrLoad_UsesSingleFlight(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	var calls atomic.Int32

	loader := func(context.Context) (string, error) {
		calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return "index", nil
	}

	const workers = 32
	start := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(workers)
	errCh := make(chan error, workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			<-start
			v, err := store.GetOrLoad(context.Background(), "comps:index:batter", loader)
			if err != nil {
				errCh <- err
				return
			}
			if v != "index" {
				errCh <- errUnexpectedValue
			}
		}()
	}

	close(start)
	wg.Wait()
	close(errCh)
	for err := range errCh {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if got := calls.Load(); got != 1 {
		t.Fatalf("loader called %d times, want 1", got)
	}
}

func TestStore_GetOrLoad_DoesNotCacheErrors(t *testing.T) {
	t.Parallel()

	store := NewStore[int](0)
	var calls atomic.Int32
	boom := errors.New("fit failed")

	_, err := store.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		calls.Add(1)
		return 0, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected loader error, got %v", err)
	}

	got, err := store.GetOrLoad(context.Background(), "k", func(context.Context) (int, error) {
		calls.Add(1)
		return 42, nil
	})
	if err != nil || got != 42 {
		t.Fatalf("expected 42 after retry, got %d err=%v", got, err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected loader to run twice, got %d", calls.Load())
	}
}

func TestStore_TTLExpiry(t *testing.T) {
	t.Parallel()

	store := NewStore[string](time.Minute)
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	store.Set(context.Background(), "k", "v")
	if _, ok := store.Get(context.Background(), "k"); !ok {
		t.Fatalf("expected entry before expiry")
	}

	now = now.Add(2 * time.Minute)
	if _, ok := store.Get(context.Background(), "k"); ok {
		t.Fatalf("expected entry to expire")
	}
	if store.Len() != 0 {
		t.Fatalf("expected expired entry to be evicted, len=%d", store.Len())
	}
}

func TestStore_DeletePrefix(t *testing.T) {
	t.Parallel()

	store := NewStore[int](0)
	ctx := context.Background()
	store.Set(ctx, "comps:index:batter", 1)
	store.Set(ctx, "comps:index:pitcher", 2)
	store.Set(ctx, "odds:latest", 3)

	if removed := store.DeletePrefix(ctx, "comps:index:"); removed != 2 {
		t.Fatalf("expected 2 removed, got %d", removed)
	}
	if _, ok := store.Get(ctx, "odds:latest"); !ok {
		t.Fatalf("unrelated key must survive prefix delete")
	}
}

func TestStore_GetOrLoad_InvalidationDuringLoad(t *testing.T) {
	t.Parallel()

	store := NewStore[string](0)
	ctx := context.Background()
	const key = "comps:index:batter"

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan string, 1)
	go func() {
		v, _ := store.GetOrLoad(ctx, key, func(context.Context) (string, error) {
			close(started)
			<-release
			return "old", nil
		})
		done <- v
	}()

	<-started
	store.DeletePrefix(ctx, "comps:index:")

	// A caller after the invalidation runs its own load instead of joining
	// the one already in progress.
	fresh, err := store.GetOrLoad(ctx, key, func(context.Context) (string, error) {
		return "new", nil
	})
	if err != nil {
		t.Fatalf("GetOrLoad: %v", err)
	}
	if fresh != "new" {
		t.Fatalf("expected fresh load, got %q", fresh)
	}

	close(release)
	if v := <-done; v != "old" {
		t.Fatalf("in-flight caller should get its own result, got %q", v)
	}
	if v, ok := store.Get(ctx, key); !ok || v != "new" {
		t.Fatalf("stale load overwrote the cache: got %q ok=%v", v, ok)
	}
}

var errUnexpectedValue = errors.New("unexpected loaded value")
