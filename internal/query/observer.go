package query

import (
	"context"
	"sync"
)

// Observer is a mounted consumer of one key at a time, the server-side
// counterpart of a list page bound to its query. Changing the key discards
// any response still in flight for the previous key.
type Observer struct {
	c            *Client
	keepPrevious bool

	mu      sync.Mutex
	key     Key
	parts   []string
	fetch   Fetcher
	opts    []Option
	seq     uint64
	current Result
	changed chan struct{}
	closed  bool
}

// ObserverOption configures an Observer.
type ObserverOption func(*Observer)

// KeepPrevious shows the previous key's data, flagged as placeholder, while
// a new key loads.
func KeepPrevious() ObserverOption {
	return func(o *Observer) {
		o.keepPrevious = true
	}
}

// Observe mounts a new observer on the client.
func (c *Client) Observe(opts ...ObserverOption) *Observer {
	o := &Observer{c: c, changed: make(chan struct{}), current: Result{Status: StatusIdle}}
	for _, opt := range opts {
		opt(o)
	}
	c.attach(o)
	return o
}

// SetKey points the observer at key. Setting the same key again is a no-op.
// A fresh cached value is shown at once; otherwise a fetch starts in the
// background and Result reports IsFetching until it lands.
func (o *Observer) SetKey(key Key, fetch Fetcher, opts ...Option) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	parts := key.parts()
	if o.key != nil && equalParts(o.parts, parts) {
		o.fetch, o.opts = fetch, opts
		return
	}

	if o.key != nil {
		o.c.release(o.key)
	}
	prev := o.current
	o.key = append(Key(nil), key...)
	o.parts = parts
	o.fetch, o.opts = fetch, opts
	o.seq++
	o.c.retain(o.key)

	cfg := o.c.readConfig(opts)
	if !cfg.enabled {
		o.publishLocked(Result{Status: StatusIdle})
		return
	}

	if res, fresh := o.c.Peek(key, opts...); fresh {
		o.publishLocked(res)
		return
	}

	next := Result{Status: StatusPending, IsFetching: true}
	if res, _ := o.c.Peek(key, opts...); res.Status != StatusPending {
		next = res
		next.IsFetching = true
	} else if o.keepPrevious && prev.Data != nil {
		next.Data = prev.Data
		next.IsPlaceholder = true
		next.UpdatedAt = prev.UpdatedAt
	}
	o.publishLocked(next)
	o.startLocked()
}

// startLocked launches a fetch for the current key. o.mu must be held.
func (o *Observer) startLocked() {
	seq, key, fetch, opts := o.seq, o.key, o.fetch, o.opts
	go func() {
		res := o.c.GetOrFetch(context.Background(), key, fetch, opts...)
		o.deliver(seq, res)
	}()
}

func (o *Observer) deliver(seq uint64, res Result) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || seq != o.seq {
		return
	}
	o.publishLocked(res)
}

func (o *Observer) publishLocked(res Result) {
	o.current = res
	close(o.changed)
	o.changed = make(chan struct{})
}

// invalidated refetches when the observed key falls under prefix.
func (o *Observer) invalidated(prefix []string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed || o.key == nil || !hasPrefix(o.parts, prefix) {
		return
	}
	if !o.c.readConfig(o.opts).enabled {
		return
	}
	o.seq++
	next := o.current
	next.IsFetching = true
	o.publishLocked(next)
	o.startLocked()
}

// Refetch forces a refetch of the current key.
func (o *Observer) Refetch() {
	o.mu.Lock()
	key := o.key
	o.mu.Unlock()
	if key != nil {
		o.c.Invalidate(key)
	}
}

// Key returns the key currently observed.
func (o *Observer) Key() Key {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.key
}

// Result returns the latest snapshot without blocking.
func (o *Observer) Result() Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Wait blocks until no fetch is running for the current key or ctx ends,
// then returns the latest snapshot.
func (o *Observer) Wait(ctx context.Context) Result {
	for {
		o.mu.Lock()
		res, ch := o.current, o.changed
		done := !res.IsFetching || o.closed
		o.mu.Unlock()
		if done {
			return res
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return res
		}
	}
}

// Close unmounts the observer. Pending responses are dropped.
func (o *Observer) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}
	o.closed = true
	if o.key != nil {
		o.c.release(o.key)
	}
	o.c.detach(o)
	close(o.changed)
	o.changed = make(chan struct{})
}

func equalParts(a, b []string) bool {
	return len(a) == len(b) && hasPrefix(a, b)
}
