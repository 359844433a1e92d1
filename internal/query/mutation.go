package query

import "context"

// Op names the kind of write a Mutation performs.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpAssign Op = "assign"
	OpRepeat Op = "repeat"
	OpSubmit Op = "submit"
)

// Mutation describes a write and the key prefixes it makes stale.
type Mutation struct {
	Resource string
	Op       Op
	Affects  []Key
}

// Mutate runs fn exactly once. On success every prefix in m.Affects is
// invalidated; on failure the error is returned untouched and the cache is
// left alone.
func Mutate[T any](ctx context.Context, c *Client, m Mutation, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := fn(ctx)
	if err != nil {
		return v, err
	}
	for _, k := range m.Affects {
		c.Invalidate(k)
	}
	return v, nil
}

// Get is the typed form of GetOrFetch. A disabled read returns ErrDisabled;
// a failed read returns the fetch error together with the last good value.
func Get[T any](ctx context.Context, c *Client, key Key, fetch func(ctx context.Context) (T, error), opts ...Option) (T, Result, error) {
	res := c.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
		return fetch(ctx)
	}, opts...)

	var zero T
	if res.Status == StatusIdle {
		return zero, res, ErrDisabled
	}
	v, _ := res.Data.(T)
	if res.Err != nil {
		return v, res, res.Err
	}
	return v, res, nil
}
