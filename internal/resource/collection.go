// Package resource binds backend endpoints to the per-session query cache:
// every read goes through a key, every write names the keys it makes stale.
package resource

import (
	"context"

	"github.com/ndktu/quizdash/internal/backend"
	"github.com/ndktu/quizdash/internal/query"
)

// Collection is a cached CRUD resource. Lists live under Key{list, ...},
// single items under Key{detail, id}.
type Collection[T any, In any, F backend.Filter] struct {
	list   string
	detail string
	also   []query.Key
	q      *query.Client
	api    backend.Collection[T, In]
	keyOf  func(F) query.Key
}

func newCollection[T any, In any, F backend.Filter](q *query.Client, api backend.Collection[T, In], list, detail string, keyOf func(F) query.Key, also ...query.Key) Collection[T, In, F] {
	return Collection[T, In, F]{list: list, detail: detail, also: also, q: q, api: api, keyOf: keyOf}
}

// Name is the list key family.
func (c Collection[T, In, F]) Name() string {
	return c.list
}

// ListKey is the cache key of one page.
func (c Collection[T, In, F]) ListKey(f F) query.Key {
	return c.keyOf(f)
}

// DetailKey is the cache key of one item.
func (c Collection[T, In, F]) DetailKey(id int64) query.Key {
	return query.Key{c.detail, id}
}

// ListFetcher loads one page, for use with an observer.
func (c Collection[T, In, F]) ListFetcher(f F) query.Fetcher {
	return func(ctx context.Context) (any, error) {
		return c.api.List(ctx, f)
	}
}

// List reads one page through the cache.
func (c Collection[T, In, F]) List(ctx context.Context, f F) (*backend.List[T], query.Result, error) {
	return query.Get(ctx, c.q, c.ListKey(f), func(ctx context.Context) (*backend.List[T], error) {
		return c.api.List(ctx, f)
	})
}

// Get reads one item through the cache. A zero id disables the read.
func (c Collection[T, In, F]) Get(ctx context.Context, id int64) (*T, error) {
	v, _, err := query.Get(ctx, c.q, c.DetailKey(id), func(ctx context.Context) (*T, error) {
		return c.api.Get(ctx, id)
	}, query.Enabled(id != 0))
	return v, err
}

// Create adds an item and makes every list stale.
func (c Collection[T, In, F]) Create(ctx context.Context, in In) (*T, error) {
	m := query.Mutation{Resource: c.list, Op: query.OpCreate, Affects: c.affects()}
	return query.Mutate(ctx, c.q, m, func(ctx context.Context) (*T, error) {
		return c.api.Create(ctx, in)
	})
}

// Update replaces an item and makes the lists and its detail stale.
func (c Collection[T, In, F]) Update(ctx context.Context, id int64, in In) (*T, error) {
	m := query.Mutation{Resource: c.list, Op: query.OpUpdate, Affects: c.affects(c.DetailKey(id))}
	return query.Mutate(ctx, c.q, m, func(ctx context.Context) (*T, error) {
		return c.api.Update(ctx, id, in)
	})
}

// Delete removes an item and makes the lists and its detail stale.
func (c Collection[T, In, F]) Delete(ctx context.Context, id int64) error {
	m := query.Mutation{Resource: c.list, Op: query.OpDelete, Affects: c.affects(c.DetailKey(id))}
	_, err := query.Mutate(ctx, c.q, m, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.api.Delete(ctx, id)
	})
	return err
}

func (c Collection[T, In, F]) affects(extra ...query.Key) []query.Key {
	keys := []query.Key{{c.list}}
	keys = append(keys, c.also...)
	return append(keys, extra...)
}
