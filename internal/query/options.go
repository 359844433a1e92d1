package query

import "time"

// Defaults used when neither the client nor the call overrides them.
const (
	DefaultStaleTime = 30 * time.Second
	DefaultTimeout   = 20 * time.Second
	DefaultGCTime    = 5 * time.Minute
)

// Clock supplies the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Event is something the cache reports to a Recorder.
type Event string

const (
	EventHit        Event = "hit"
	EventMiss       Event = "miss"
	EventFetch      Event = "fetch"
	EventShared     Event = "shared"
	EventError      Event = "error"
	EventDiscarded  Event = "discarded"
	EventInvalidate Event = "invalidate"
	EventEvicted    Event = "evicted"
)

// Recorder receives cache events, typically to feed metrics.
type Recorder interface {
	Record(e Event, n int)
}

type nopRecorder struct{}

func (nopRecorder) Record(Event, int) {}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithClock replaces the wall clock.
func WithClock(c Clock) ClientOption {
	return func(cl *Client) {
		cl.clock = c
	}
}

// WithStaleTime sets how long a successful read is served without refetching.
func WithStaleTime(d time.Duration) ClientOption {
	return func(cl *Client) {
		cl.staleTime = d
	}
}

// WithTimeout bounds every fetch.
func WithTimeout(d time.Duration) ClientOption {
	return func(cl *Client) {
		cl.timeout = d
	}
}

// WithGCTime sets how long an unobserved entry survives Sweep.
func WithGCTime(d time.Duration) ClientOption {
	return func(cl *Client) {
		cl.gcTime = d
	}
}

// WithRecorder attaches a Recorder.
func WithRecorder(r Recorder) ClientOption {
	return func(cl *Client) {
		cl.recorder = r
	}
}

// Option tunes a single read.
type Option func(*readConfig)

type readConfig struct {
	enabled   bool
	staleTime time.Duration
	timeout   time.Duration
}

// Enabled gates the read. A disabled read never fetches and yields no data.
func Enabled(on bool) Option {
	return func(c *readConfig) {
		c.enabled = on
	}
}

// StaleTime overrides the client's stale time for one read.
func StaleTime(d time.Duration) Option {
	return func(c *readConfig) {
		c.staleTime = d
	}
}

// Timeout overrides the client's fetch timeout for one read.
func Timeout(d time.Duration) Option {
	return func(c *readConfig) {
		c.timeout = d
	}
}
