package resilience

import (
	"context"
	"fmt"
	"sync"
)

// SingleFlight collapses concurrent loads of the same key, such as several
// requests asking FanGraphs for one leaderboard page or several projections
// waiting on the first history build. The zero value is ready to use.
type SingleFlight[V any] struct {
	mu    sync.Mutex
	calls map[string]*flight[V]
}

type flight[V any] struct {
	done chan struct{}
	val  V
	err  error
}

// Do runs fn for key unless a call for key is already running, in which case
// it waits for that result. A waiter whose ctx ends stops waiting and gets
// ctx.Err(); the running call is not cancelled. shared reports whether the
// result came from another caller's fn.
func (g *SingleFlight[V]) Do(ctx context.Context, key string, fn func() (V, error)) (v V, shared bool, err error) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*flight[V])
	}
	if f, ok := g.calls[key]; ok {
		g.mu.Unlock()
		select {
		case <-f.done:
			return f.val, true, f.err
		case <-ctx.Done():
			return v, true, ctx.Err()
		}
	}

	f := &flight[V]{
		done: make(chan struct{}),
		err:  fmt.Errorf("load %q panicked", key),
	}
	g.calls[key] = f
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		delete(g.calls, key)
		g.mu.Unlock()
		close(f.done)
	}()

	f.val, f.err = fn()
	return f.val, false, f.err
}
