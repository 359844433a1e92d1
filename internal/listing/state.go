package listing

import (
	"maps"
	"strings"
	"sync"
)

// Params is the query-relevant part of a list's state.
type Params struct {
	Page    int               `json:"page"`
	Limit   int               `json:"limit"`
	Search  string            `json:"search"`
	Filters map[string]string `json:"filters"`
}

// State is one mounted list. Search text goes through the debouncer before it
// reaches Params; a search or filter change resets the page to 1, a page
// change keeps everything else.
type State struct {
	deb      *Debouncer
	onChange func(Params)

	// nmu serializes onChange; sent is the last value it received.
	nmu  sync.Mutex
	sent Params

	mu      sync.Mutex
	held    int
	page    int
	limit   int
	input   string
	search  string
	filters map[string]string
}

// NewState creates a list on page 1. onChange, if set, receives every new
// Params value, one call at a time and never older than a value it already
// received. It runs without the state's lock held. The initial Params are not
// delivered.
func NewState(limit int, deb *Debouncer, onChange func(Params)) *State {
	if limit < 1 {
		limit = 10
	}
	s := &State{
		deb:      deb,
		onChange: onChange,
		page:     1,
		limit:    limit,
		filters:  make(map[string]string),
	}
	s.sent = s.paramsLocked()
	return s
}

// Batch runs fn and delivers at most one onChange for all the changes it
// makes. Changes from a debounced search that lands meanwhile are folded in.
func (s *State) Batch(fn func()) {
	s.mu.Lock()
	s.held++
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		s.held--
		s.mu.Unlock()
		s.notify()
	}()
	fn()
}

// Params returns the current applied state.
func (s *State) Params() Params {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paramsLocked()
}

func (s *State) paramsLocked() Params {
	return Params{Page: s.page, Limit: s.limit, Search: s.search, Filters: maps.Clone(s.filters)}
}

// Input is the raw, possibly not yet applied, search text.
func (s *State) Input() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.input
}

// SetSearch records keystrokes. The text is applied once the debouncer settles.
func (s *State) SetSearch(text string) {
	s.mu.Lock()
	s.input = text
	s.mu.Unlock()
	s.deb.Trigger(s.applySearch)
}

// FlushSearch applies the pending search text immediately.
func (s *State) FlushSearch() {
	s.deb.Cancel()
	s.applySearch()
}

func (s *State) applySearch() {
	s.mu.Lock()
	text := strings.TrimSpace(s.input)
	if text == s.search {
		s.mu.Unlock()
		return
	}
	s.search = text
	s.page = 1
	s.mu.Unlock()
	s.notify()
}

// SetFilter sets or, with an empty value, clears a filter.
func (s *State) SetFilter(name, value string) {
	s.mu.Lock()
	if s.filters[name] == value {
		s.mu.Unlock()
		return
	}
	if value == "" {
		delete(s.filters, name)
	} else {
		s.filters[name] = value
	}
	s.page = 1
	s.mu.Unlock()
	s.notify()
}

// SetPage moves to page, clamped to at least 1.
func (s *State) SetPage(page int) {
	if page < 1 {
		page = 1
	}
	s.mu.Lock()
	if s.page == page {
		s.mu.Unlock()
		return
	}
	s.page = page
	s.mu.Unlock()
	s.notify()
}

// SetLimit changes the page size and returns to page 1.
func (s *State) SetLimit(limit int) {
	if limit < 1 {
		return
	}
	s.mu.Lock()
	if s.limit == limit {
		s.mu.Unlock()
		return
	}
	s.limit = limit
	s.page = 1
	s.mu.Unlock()
	s.notify()
}

// Close cancels a pending search.
func (s *State) Close() {
	s.deb.Cancel()
}

// notify hands the current Params to onChange. The value is read while nmu
// is held, so when two goroutines race the last delivery is the newest state.
func (s *State) notify() {
	if s.onChange == nil || s.holding() {
		return
	}
	s.nmu.Lock()
	defer s.nmu.Unlock()

	s.mu.Lock()
	if s.held > 0 {
		s.mu.Unlock()
		return
	}
	p := s.paramsLocked()
	s.mu.Unlock()

	if sameParams(p, s.sent) {
		return
	}
	s.sent = p
	s.onChange(p)
}

func (s *State) holding() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.held > 0
}

func sameParams(a, b Params) bool {
	return a.Page == b.Page && a.Limit == b.Limit && a.Search == b.Search && maps.Equal(a.Filters, b.Filters)
}
