// Package view holds the server side of every mounted list page: its listing
// state bound to a query observer, rendered as a JSON view model.
package view

import (
	"maps"

	"github.com/ndktu/quizdash/internal/listing"
	"github.com/ndktu/quizdash/internal/query"
)

// Source describes where a list view gets its rows.
type Source struct {
	Name  string
	Route string

	// DefaultLimit is the page size of a freshly mounted view.
	DefaultLimit int
	// Filters are the filter names a client may set.
	Filters []string
	// Scope holds filters forced by the principal's role; they override
	// anything in Params.Filters.
	Scope map[string]string

	Key     func(listing.Params) query.Key
	Fetch   func(listing.Params) query.Fetcher
	Enabled func(listing.Params) bool
}

func (s Source) effective(p listing.Params) listing.Params {
	if len(s.Scope) == 0 {
		return p
	}
	p.Filters = maps.Clone(p.Filters)
	if p.Filters == nil {
		p.Filters = make(map[string]string, len(s.Scope))
	}
	maps.Copy(p.Filters, s.Scope)
	return p
}

func (s Source) enabled(p listing.Params) bool {
	return s.Enabled == nil || s.Enabled(p)
}

func (s Source) allows(filter string) bool {
	if _, scoped := s.Scope[filter]; scoped {
		return false
	}
	for _, f := range s.Filters {
		if f == filter {
			return true
		}
	}
	return false
}
