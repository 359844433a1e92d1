package view

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ndktu/quizdash/internal/listing"
	"github.com/ndktu/quizdash/internal/query"
)

// ErrUnknownFilter is returned for a filter the view does not accept.
var ErrUnknownFilter = errors.New("unknown filter")

// Page is what a list fetcher must return.
type Page interface {
	Rows() any
	Count() int
}

// Model is the rendered state of a list view.
type Model struct {
	Name          string            `json:"name"`
	Items         any               `json:"items"`
	Total         int               `json:"total"`
	Page          int               `json:"page"`
	Limit         int               `json:"limit"`
	TotalPages    int               `json:"totalPages"`
	IsLoading     bool              `json:"isLoading"`
	IsFetching    bool              `json:"isFetching"`
	IsError       bool              `json:"isError"`
	Error         string            `json:"error,omitempty"`
	Err           error             `json:"-"`
	IsPlaceholder bool              `json:"isPlaceholder"`
	Search        string            `json:"search"`
	Input         string            `json:"input"`
	Filters       map[string]string `json:"filters"`
	UpdatedAt     *time.Time        `json:"updatedAt,omitempty"`
}

// Patch is a client's change to a view. Nil fields are left alone; an empty
// filter value clears that filter.
type Patch struct {
	Search  *string           `json:"search"`
	Flush   bool              `json:"flush"`
	Page    *int              `json:"page" validate:"omitempty,gte=1"`
	Limit   *int              `json:"limit" validate:"omitempty,gte=1,lte=200"`
	Filters map[string]string `json:"filters"`
}

// List is one mounted list view.
type List struct {
	src   Source
	state *listing.State
	obs   *query.Observer
}

// Mount creates a list view on page 1 and starts loading it.
func Mount(c *query.Client, src Source, deb *listing.Debouncer) *List {
	v := &List{src: src, obs: c.Observe(query.KeepPrevious())}
	v.state = listing.NewState(src.DefaultLimit, deb, v.load)
	v.load(v.state.Params())
	return v
}

func (v *List) load(p listing.Params) {
	p = v.src.effective(p)
	v.obs.SetKey(v.src.Key(p), v.src.Fetch(p), query.Enabled(v.src.enabled(p)))
}

// Source returns the view's source.
func (v *List) Source() Source {
	return v.src
}

// Apply changes the view. Filters are applied before the page so a patch can
// set both; search text is debounced unless Flush is set. The whole patch
// moves the view to its new key at most once.
func (v *List) Apply(p Patch) error {
	for name := range p.Filters {
		if !v.src.allows(name) {
			return fmt.Errorf("%w: %s", ErrUnknownFilter, name)
		}
	}
	v.state.Batch(func() {
		for name, value := range p.Filters {
			v.state.SetFilter(name, value)
		}
		if p.Limit != nil {
			v.state.SetLimit(*p.Limit)
		}
		if p.Search != nil {
			v.state.SetSearch(*p.Search)
		}
		if p.Flush {
			v.state.FlushSearch()
		}
		if p.Page != nil {
			v.state.SetPage(*p.Page)
		}
	})
	return nil
}

// Refetch reloads the current page.
func (v *List) Refetch() {
	v.obs.Refetch()
}

// Model renders the current state without waiting.
func (v *List) Model() Model {
	return v.render(v.obs.Result())
}

// Wait renders the state once the running fetch, if any, lands or ctx ends.
func (v *List) Wait(ctx context.Context) Model {
	return v.render(v.obs.Wait(ctx))
}

func (v *List) render(res query.Result) Model {
	p := v.src.effective(v.state.Params())
	m := Model{
		Name:          v.src.Name,
		Items:         []any{},
		Page:          p.Page,
		Limit:         p.Limit,
		IsLoading:     res.IsLoading(),
		IsFetching:    res.IsFetching,
		IsError:       res.IsError(),
		IsPlaceholder: res.IsPlaceholder,
		Search:        p.Search,
		Input:         v.state.Input(),
		Filters:       p.Filters,
	}
	if res.Err != nil {
		m.Err = res.Err
		m.Error = res.Err.Error()
	}
	if !res.UpdatedAt.IsZero() {
		at := res.UpdatedAt
		m.UpdatedAt = &at
	}
	if page, ok := res.Data.(Page); ok {
		m.Items = page.Rows()
		m.Total = page.Count()
	}
	if m.Limit > 0 {
		m.TotalPages = (m.Total + m.Limit - 1) / m.Limit
	}
	return m
}

// Close unmounts the view.
func (v *List) Close() {
	v.state.Close()
	v.obs.Close()
}
