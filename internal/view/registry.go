package view

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/ndktu/quizdash/internal/listing"
	"github.com/ndktu/quizdash/internal/query"
)

// ErrUnknownView is returned for a view name with no source.
var ErrUnknownView = errors.New("unknown view")

// Registry mounts list views for one session on demand.
type Registry struct {
	c        *query.Client
	sources  map[string]Source
	debounce time.Duration
	after    listing.AfterFunc

	mu      sync.Mutex
	mounted map[string]*List
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithDebounce sets the search debounce delay.
func WithDebounce(d time.Duration) RegistryOption {
	return func(r *Registry) {
		r.debounce = d
	}
}

// WithAfterFunc replaces time.AfterFunc for the debouncers.
func WithAfterFunc(f listing.AfterFunc) RegistryOption {
	return func(r *Registry) {
		r.after = f
	}
}

// NewRegistry creates a registry over sources.
func NewRegistry(c *query.Client, sources []Source, opts ...RegistryOption) *Registry {
	r := &Registry{
		c:        c,
		sources:  make(map[string]Source, len(sources)),
		debounce: listing.DefaultDebounce,
		mounted:  make(map[string]*List),
	}
	for _, s := range sources {
		r.sources[s.Name] = s
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Source looks up a source by view name.
func (r *Registry) Source(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// Names lists the available views.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.sources))
	for n := range r.sources {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Mount returns the mounted view called name, mounting it first if needed.
func (r *Registry) Mount(name string) (*List, error) {
	src, ok := r.sources[name]
	if !ok {
		return nil, ErrUnknownView
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.mounted[name]; ok {
		return v, nil
	}
	v := Mount(r.c, src, listing.NewDebouncer(r.debounce, r.after))
	r.mounted[name] = v
	return v, nil
}

// Unmount closes the view called name. It reports whether one was mounted.
func (r *Registry) Unmount(name string) bool {
	r.mu.Lock()
	v, ok := r.mounted[name]
	delete(r.mounted, name)
	r.mu.Unlock()
	if ok {
		v.Close()
	}
	return ok
}

// Close unmounts every view.
func (r *Registry) Close() {
	r.mu.Lock()
	views := r.mounted
	r.mounted = make(map[string]*List)
	r.mu.Unlock()
	for _, v := range views {
		v.Close()
	}
}
