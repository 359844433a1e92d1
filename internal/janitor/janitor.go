// Package janitor periodically removes idle sessions and their workspaces.
package janitor

import (
	"context"
	"log/slog"
	"time"
)

// SessionSweeper deletes sessions idle for too long.
type SessionSweeper interface {
	SweepIdle(ctx context.Context) (int, error)
}

// WorkspaceSweeper drops idle workspaces and evicts stale cache entries.
type WorkspaceSweeper interface {
	Sweep() (dropped, evicted int)
	Len() int
}

// Observer receives the outcome of each pass.
type Observer interface {
	Swept(sessions, workspaces, evicted, live int)
}

// Janitor runs sweeps on a fixed interval.
type Janitor struct {
	sessions   SessionSweeper
	workspaces WorkspaceSweeper
	observer   Observer
	interval   time.Duration
}

// Option configures a Janitor.
type Option func(*Janitor)

// WithObserver reports every pass to o.
func WithObserver(o Observer) Option {
	return func(j *Janitor) {
		j.observer = o
	}
}

// New creates a Janitor.
func New(sessions SessionSweeper, workspaces WorkspaceSweeper, interval time.Duration, opts ...Option) *Janitor {
	j := &Janitor{sessions: sessions, workspaces: workspaces, interval: interval}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

// Start runs a pass every interval. It blocks until ctx is cancelled.
func (j *Janitor) Start(ctx context.Context) {
	slog.Info("janitor started", "interval", j.interval.String())
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("janitor stopped")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

// RunOnce sweeps sessions first, so workspaces of sessions deleted in this
// pass are already gone when the workspace sweep runs.
func (j *Janitor) RunOnce(ctx context.Context) {
	swept, err := j.sessions.SweepIdle(ctx)
	if err != nil {
		slog.Error("janitor: failed to sweep sessions", "error", err)
	}
	if ctx.Err() != nil {
		return
	}

	dropped, evicted := j.workspaces.Sweep()
	live := j.workspaces.Len()
	if swept > 0 || dropped > 0 {
		slog.Info("janitor: swept idle sessions",
			"sessions", swept,
			"workspaces", dropped,
			"evicted", evicted,
			"live", live,
		)
	}
	if j.observer != nil {
		j.observer.Swept(swept, dropped, evicted, live)
	}
}
