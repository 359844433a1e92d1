// Package query is a keyed read cache with in-flight de-duplication,
// prefix invalidation and mounted observers. One Client serves one session.
package query

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ErrDisabled is returned by typed reads whose Enabled option is false.
var ErrDisabled = errors.New("query disabled")

// errSuperseded marks a fetch whose entry was invalidated while it ran.
var errSuperseded = errors.New("fetch superseded by invalidation")

// maxAttempts bounds how often a read restarts after its fetch was superseded.
const maxAttempts = 3

// Fetcher loads the value for a key.
type Fetcher func(ctx context.Context) (any, error)

type entry struct {
	key       Key
	parts     []string
	data      any
	hasData   bool
	err       error
	updatedAt time.Time
	lastUsed  time.Time
	stale     bool
	gen       uint64
	inflight  int
	observers int
}

func (e *entry) result() Result {
	r := Result{Data: e.data, Err: e.err, UpdatedAt: e.updatedAt, IsFetching: e.inflight > 0}
	switch {
	case e.err != nil:
		r.Status = StatusError
	case e.hasData:
		r.Status = StatusSuccess
	default:
		r.Status = StatusPending
	}
	return r
}

// Client is the per-session cache.
type Client struct {
	mu        sync.Mutex
	entries   map[string]*entry
	observers map[*Observer]struct{}
	group     singleflight.Group
	epoch     uint64

	clock     Clock
	staleTime time.Duration
	timeout   time.Duration
	gcTime    time.Duration
	recorder  Recorder
}

// NewClient creates an empty cache.
func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		entries:   make(map[string]*entry),
		observers: make(map[*Observer]struct{}),
		clock:     systemClock{},
		staleTime: DefaultStaleTime,
		timeout:   DefaultTimeout,
		gcTime:    DefaultGCTime,
		recorder:  nopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) readConfig(opts []Option) readConfig {
	cfg := readConfig{enabled: true, staleTime: c.staleTime, timeout: c.timeout}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// entryLocked returns the entry for key, creating it. c.mu must be held.
func (c *Client) entryLocked(key Key) (*entry, string) {
	parts := key.parts()
	hash := "[" + strings.Join(parts, ",") + "]"
	e, ok := c.entries[hash]
	if !ok {
		e = &entry{key: append(Key(nil), key...), parts: parts}
		c.entries[hash] = e
	}
	return e, hash
}

func (c *Client) freshLocked(e *entry, staleTime time.Duration) bool {
	return e.hasData && e.err == nil && !e.stale && c.clock.Now().Sub(e.updatedAt) < staleTime
}

// Peek returns the cached state of key without fetching. ok is false when
// nothing is cached or the entry is stale.
func (c *Client) Peek(key Key, opts ...Option) (Result, bool) {
	cfg := c.readConfig(opts)
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key.Hash()]
	if !ok {
		return Result{Status: StatusPending}, false
	}
	return e.result(), c.freshLocked(e, cfg.staleTime)
}

// GetOrFetch serves key from cache when fresh, otherwise fetches it.
// Concurrent callers for the same key share one fetch. The fetch runs
// detached from ctx so one caller leaving does not fail the others; ctx
// only bounds how long this caller waits.
func (c *Client) GetOrFetch(ctx context.Context, key Key, fetch Fetcher, opts ...Option) Result {
	cfg := c.readConfig(opts)
	if !cfg.enabled {
		return Result{Status: StatusIdle}
	}

	for attempt := 1; ; attempt++ {
		c.mu.Lock()
		e, hash := c.entryLocked(key)
		e.lastUsed = c.clock.Now()
		if c.freshLocked(e, cfg.staleTime) {
			res := e.result()
			c.mu.Unlock()
			c.recorder.Record(EventHit, 1)
			return res
		}
		gen, epoch := e.gen, c.epoch
		c.mu.Unlock()
		if attempt == 1 {
			c.recorder.Record(EventMiss, 1)
		}

		flight := hash + "#" + strconv.FormatUint(epoch, 10) + "." + strconv.FormatUint(gen, 10)
		ch := c.group.DoChan(flight, func() (any, error) {
			return nil, c.run(ctx, hash, epoch, gen, fetch, cfg.timeout)
		})

		select {
		case r := <-ch:
			if r.Shared {
				c.recorder.Record(EventShared, 1)
			}
			if errors.Is(r.Err, errSuperseded) && attempt < maxAttempts {
				continue
			}
			return c.snapshot(hash)
		case <-ctx.Done():
			res := c.snapshot(hash)
			if res.Err == nil {
				res.Err = ctx.Err()
			}
			return res
		}
	}
}

// run performs one fetch and stores its outcome unless the entry moved on.
func (c *Client) run(ctx context.Context, hash string, epoch, gen uint64, fetch Fetcher, timeout time.Duration) error {
	c.mu.Lock()
	if e, ok := c.entries[hash]; ok && c.epoch == epoch {
		e.inflight++
	}
	c.mu.Unlock()
	c.recorder.Record(EventFetch, 1)

	fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeout)
	v, err := fetch(fctx)
	cancel()

	c.mu.Lock()
	e, ok := c.entries[hash]
	if !ok || c.epoch != epoch {
		c.mu.Unlock()
		c.recorder.Record(EventDiscarded, 1)
		return errSuperseded
	}
	e.inflight--
	if e.gen != gen {
		c.mu.Unlock()
		c.recorder.Record(EventDiscarded, 1)
		return errSuperseded
	}
	now := c.clock.Now()
	if err != nil {
		e.err = err
	} else {
		e.data = v
		e.hasData = true
		e.err = nil
		e.updatedAt = now
		e.stale = false
	}
	c.mu.Unlock()

	if err != nil {
		c.recorder.Record(EventError, 1)
	}
	return nil
}

func (c *Client) snapshot(hash string) Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[hash]; ok {
		return e.result()
	}
	return Result{Status: StatusPending}
}

// Invalidate marks every entry under prefix stale and tells mounted
// observers to refetch. Fetches already in flight for those entries will
// not satisfy later reads. It returns how many entries matched.
func (c *Client) Invalidate(prefix Key) int {
	want := prefix.parts()

	c.mu.Lock()
	n := 0
	for _, e := range c.entries {
		if hasPrefix(e.parts, want) {
			e.gen++
			e.stale = true
			n++
		}
	}
	observers := make([]*Observer, 0, len(c.observers))
	for o := range c.observers {
		observers = append(observers, o)
	}
	c.mu.Unlock()

	c.recorder.Record(EventInvalidate, n)
	for _, o := range observers {
		o.invalidated(want)
	}
	return n
}

// Sweep evicts entries nobody observes, nobody fetches, and nobody has read
// for longer than the GC time.
func (c *Client) Sweep() int {
	c.mu.Lock()
	now := c.clock.Now()
	n := 0
	for hash, e := range c.entries {
		if e.observers == 0 && e.inflight == 0 && now.Sub(e.lastUsed) > c.gcTime {
			delete(c.entries, hash)
			n++
		}
	}
	c.mu.Unlock()

	if n > 0 {
		c.recorder.Record(EventEvicted, n)
	}
	return n
}

// Clear drops every entry. In-flight fetches finish into the void.
func (c *Client) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
	c.epoch++
}

// Len returns the number of cached entries.
func (c *Client) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *Client) retain(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, _ := c.entryLocked(key)
	e.observers++
	e.lastUsed = c.clock.Now()
}

func (c *Client) release(key Key) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key.Hash()]; ok && e.observers > 0 {
		e.observers--
		e.lastUsed = c.clock.Now()
	}
}

func (c *Client) attach(o *Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers[o] = struct{}{}
}

func (c *Client) detach(o *Observer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.observers, o)
}
