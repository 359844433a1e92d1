// Package workspace keeps the per-session state of signed-in users: their
// query cache, typed resources and mounted list views.
package workspace

import (
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/query"
	"github.com/ndktu/quizdash/internal/resource"
	"github.com/ndktu/quizdash/internal/session"
	"github.com/ndktu/quizdash/internal/view"
)

// Workspace is everything one session has mounted. Caches are never shared
// between sessions, so one user's rows cannot leak to another.
type Workspace struct {
	ID        uuid.UUID
	Principal session.Principal
	Cache     *query.Client
	Resources *resource.Set
	Views     *view.Registry

	mu       sync.Mutex
	token    string
	lastUsed time.Time
}

func (w *Workspace) accessToken() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.token
}

func (w *Workspace) touch(token string, now time.Time) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.token = token
	w.lastUsed = now
}

func (w *Workspace) idleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

func (w *Workspace) close() {
	w.Views.Close()
	w.Cache.Clear()
}

// Registry maps session ids to workspaces.
type Registry struct {
	api       *backend.Client
	cacheOpts []query.ClientOption
	viewOpts  []view.RegistryOption
	idle      time.Duration
	now       func() time.Time

	mu    sync.Mutex
	items map[uuid.UUID]*Workspace
}

// Option configures a Registry.
type Option func(*Registry)

// WithCacheOptions are applied to every new query client.
func WithCacheOptions(opts ...query.ClientOption) Option {
	return func(r *Registry) {
		r.cacheOpts = append(r.cacheOpts, opts...)
	}
}

// WithViewOptions are applied to every new view registry.
func WithViewOptions(opts ...view.RegistryOption) Option {
	return func(r *Registry) {
		r.viewOpts = append(r.viewOpts, opts...)
	}
}

// WithIdleTimeout sets how long an unused workspace survives Sweep.
func WithIdleTimeout(d time.Duration) Option {
	return func(r *Registry) {
		r.idle = d
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		r.now = now
	}
}

// NewRegistry creates an empty registry over api.
func NewRegistry(api *backend.Client, opts ...Option) *Registry {
	r := &Registry{
		api:   api,
		idle:  30 * time.Minute,
		now:   time.Now,
		items: make(map[uuid.UUID]*Workspace),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Acquire returns the workspace of s, creating it on first use. A refreshed
// token is picked up by the existing workspace; a changed principal gets a
// fresh one.
func (r *Registry) Acquire(s *session.Session) *Workspace {
	now := r.now()

	r.mu.Lock()
	w, ok := r.items[s.ID]
	var replaced *Workspace
	if ok && !samePrincipal(w.Principal, *s.Principal) {
		replaced, ok = w, false
	}
	if !ok {
		w = r.build(s)
		r.items[s.ID] = w
	}
	r.mu.Unlock()

	if replaced != nil {
		replaced.close()
	}

	w.touch(s.Tokens.AccessToken, now)
	return w
}

func (r *Registry) build(s *session.Session) *Workspace {
	w := &Workspace{
		ID:        s.ID,
		Principal: *s.Principal,
		Cache:     query.NewClient(r.cacheOpts...),
	}
	w.Resources = resource.NewSet(w.Cache, r.api.WithTokenSource(w.accessToken))
	w.Views = view.NewRegistry(w.Cache, resource.Sources(w.Resources, &w.Principal), r.viewOpts...)
	return w
}

func samePrincipal(a, b session.Principal) bool {
	return a.ID == b.ID && slices.Equal(a.Roles, b.Roles)
}

// Drop discards the workspace of a session. It has the shape of a
// session.TeardownFunc.
func (r *Registry) Drop(id uuid.UUID) {
	r.mu.Lock()
	w, ok := r.items[id]
	delete(r.items, id)
	r.mu.Unlock()
	if ok {
		w.close()
	}
}

// Sweep drops workspaces idle for longer than the idle timeout and evicts
// expired entries from the caches of the others.
func (r *Registry) Sweep() (dropped, evicted int) {
	cutoff := r.now().Add(-r.idle)

	r.mu.Lock()
	var stale, live []*Workspace
	for id, w := range r.items {
		if w.idleSince().Before(cutoff) {
			delete(r.items, id)
			stale = append(stale, w)
		} else {
			live = append(live, w)
		}
	}
	r.mu.Unlock()

	for _, w := range stale {
		w.close()
	}
	for _, w := range live {
		evicted += w.Cache.Sweep()
	}
	return len(stale), evicted
}

// Len is the number of live workspaces.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}
