package query_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ndktu/quizdash/internal/query"
)

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestObserver_LoadsKey(t *testing.T) {
	t.Parallel()

	c := newClient(newFakeClock())
	o := c.Observe()
	defer o.Close()

	fetch, calls := counter("page 1")
	o.SetKey(query.Key{"groups", 1}, fetch)

	res := o.Wait(waitCtx(t))
	assert.Equal(t, "page 1", res.Data)
	assert.Equal(t, query.StatusSuccess, res.Status)
	assert.False(t, res.IsFetching)

	o.SetKey(query.Key{"groups", 1}, fetch)
	o.Wait(waitCtx(t))
	assert.Equal(t, int32(1), calls.Load(), "same key is a no-op")
}

func TestObserver_FreshCacheIsImmediate(t *testing.T) {
	t.Parallel()

	c := newClient(newFakeClock())
	fetch, calls := counter("cached")
	c.GetOrFetch(context.Background(), query.Key{"faculties", 1}, fetch)

	o := c.Observe()
	defer o.Close()
	o.SetKey(query.Key{"faculties", 1}, fetch)

	res := o.Result()
	assert.Equal(t, "cached", res.Data)
	assert.False(t, res.IsFetching)
	assert.Equal(t, int32(1), calls.Load())
}

func TestObserver_LastKeyWins(t *testing.T) {
	t.Parallel()

	c := newClient(newFakeClock())
	o := c.Observe()
	defer o.Close()

	slowStarted := make(chan struct{})
	releaseSlow := make(chan struct{})
	slow := func(context.Context) (any, error) {
		close(slowStarted)
		<-releaseSlow
		return "search=a", nil
	}
	fast, _ := counter("search=ab")

	o.SetKey(query.Key{"teachers", 1, "a"}, slow)
	<-slowStarted
	o.SetKey(query.Key{"teachers", 1, "ab"}, fast)
	res := o.Wait(waitCtx(t))
	require.Equal(t, "search=ab", res.Data)

	close(releaseSlow)
	time.Sleep(20 * time.Millisecond)

	assert.Equal(t, "search=ab", o.Result().Data)
	assert.Equal(t, query.Key{"teachers", 1, "ab"}, o.Key())
}

func TestObserver_KeepPreviousShowsPlaceholder(t *testing.T) {
	t.Parallel()

	c := newClient(newFakeClock())
	o := c.Observe(query.KeepPrevious())
	defer o.Close()

	page1, _ := counter("page 1")
	o.SetKey(query.Key{"quizzes", 1}, page1)
	o.Wait(waitCtx(t))

	release := make(chan struct{})
	page2 := func(context.Context) (any, error) {
		<-release
		return "page 2", nil
	}
	o.SetKey(query.Key{"quizzes", 2}, page2)

	res := o.Result()
	assert.Equal(t, "page 1", res.Data)
	assert.True(t, res.IsPlaceholder)
	assert.True(t, res.IsFetching)

	close(release)
	res = o.Wait(waitCtx(t))
	assert.Equal(t, "page 2", res.Data)
	assert.False(t, res.IsPlaceholder)
}

func TestObserver_WithoutKeepPreviousStartsEmpty(t *testing.T) {
	t.Parallel()

	c := newClient(newFakeClock())
	o := c.Observe()
	defer o.Close()

	page1, _ := counter("page 1")
	o.SetKey(query.Key{"quizzes", 1}, page1)
	o.Wait(waitCtx(t))

	release := make(chan struct{})
	defer close(release)
	o.SetKey(query.Key{"quizzes", 2}, func(context.Context) (any, error) {
		<-release
		return "page 2", nil
	})

	res := o.Result()
	assert.Nil(t, res.Data)
	assert.True(t, res.IsLoading())
}

func TestObserver_RefetchesOnInvalidation(t *testing.T) {
	t.Parallel()

	c := newClient(newFakeClock())
	o := c.Observe()
	defer o.Close()

	var version atomic.Int32
	fetch := func(context.Context) (any, error) {
		return version.Add(1), nil
	}

	o.SetKey(query.Key{"quizzes", 1, 10}, fetch)
	assert.Equal(t, int32(1), o.Wait(waitCtx(t)).Data)

	c.Invalidate(query.Key{"quizzes"})
	assert.Equal(t, int32(2), o.Wait(waitCtx(t)).Data)

	c.Invalidate(query.Key{"groups"})
	assert.Equal(t, int32(2), o.Wait(waitCtx(t)).Data)
	assert.Equal(t, int32(2), version.Load())
}

func TestObserver_Disabled(t *testing.T) {
	t.Parallel()

	c := newClient(newFakeClock())
	o := c.Observe(query.KeepPrevious())
	defer o.Close()

	fetch, calls := counter("x")
	o.SetKey(query.Key{"group-students", 3}, fetch)
	o.Wait(waitCtx(t))

	o.SetKey(query.Key{"group-students", nil}, fetch, query.Enabled(false))
	res := o.Result()
	assert.Equal(t, query.StatusIdle, res.Status)
	assert.Nil(t, res.Data)

	c.Invalidate(query.Key{"group-students"})
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

func TestObserver_CloseDropsPending(t *testing.T) {
	t.Parallel()

	c := newClient(newFakeClock())
	o := c.Observe()

	release := make(chan struct{})
	o.SetKey(query.Key{"slow"}, func(context.Context) (any, error) {
		<-release
		return "late", nil
	})
	o.Close()
	close(release)
	time.Sleep(10 * time.Millisecond)

	assert.Nil(t, o.Result().Data)
	res := o.Wait(waitCtx(t))
	assert.Nil(t, res.Data)
}

func TestMutate(t *testing.T) {
	t.Parallel()

	c := newClient(newFakeClock())
	ctx := context.Background()
	fetch, calls := counter("list")
	c.GetOrFetch(ctx, query.Key{"quizzes", 1}, fetch)

	m := query.Mutation{Resource: "quiz", Op: query.OpCreate, Affects: []query.Key{{"quizzes"}}}

	var runs int
	_, err := query.Mutate(ctx, c, m, func(context.Context) (string, error) {
		runs++
		return "", assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, 1, runs, "no retry")
	_, fresh := c.Peek(query.Key{"quizzes", 1})
	assert.True(t, fresh, "failed write leaves the cache alone")

	v, err := query.Mutate(ctx, c, m, func(context.Context) (string, error) {
		runs++
		return "created", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "created", v)
	assert.Equal(t, 2, runs)

	_, fresh = c.Peek(query.Key{"quizzes", 1})
	assert.False(t, fresh)
	c.GetOrFetch(ctx, query.Key{"quizzes", 1}, fetch)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGet_Typed(t *testing.T) {
	t.Parallel()

	c := newClient(newFakeClock())
	ctx := context.Background()

	n, _, err := query.Get(ctx, c, query.Key{"count"}, func(context.Context) (int, error) { return 42, nil })
	require.NoError(t, err)
	assert.Equal(t, 42, n)

	_, res, err := query.Get(ctx, c, query.Key{"off"}, func(context.Context) (int, error) { return 1, nil }, query.Enabled(false))
	assert.ErrorIs(t, err, query.ErrDisabled)
	assert.Equal(t, query.StatusIdle, res.Status)
}
