package query_test

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ndktu/quizdash/internal/query"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// counter returns a fetcher yielding value and counting its calls.
func counter(value any) (func(context.Context) (any, error), *atomic.Int32) {
	var n atomic.Int32
	return func(context.Context) (any, error) {
		n.Add(1)
		return value, nil
	}, &n
}

type countingRecorder struct {
	mu     sync.Mutex
	counts map[query.Event]int
}

func (r *countingRecorder) Record(e query.Event, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts == nil {
		r.counts = make(map[query.Event]int)
	}
	r.counts[e] += n
}

func (r *countingRecorder) get(e query.Event) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[e]
}
