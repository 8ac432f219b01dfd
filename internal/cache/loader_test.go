package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/rainfall-dashboard/internal/clock"
)

func newTestLoader(t *testing.T, ttl time.Duration) (*Loader[[]int], *clock.Fake) {
	t.Helper()

	fake := clock.NewFake(time.Unix(0, 0))
	l, err := NewLoader[[]int](ttl, WithClock(fake), WithScheduler(fake))
	require.NoError(t, err)
	t.Cleanup(l.Close)
	return l, fake
}

func TestLoaderCachesSuccess(t *testing.T) {
	l, fake := newTestLoader(t, time.Hour)

	var calls atomic.Int32
	fetch := func(context.Context) ([]int, error) {
		calls.Add(1)
		return []int{1, 2}, nil
	}

	for i := 0; i < 3; i++ {
		v, err := l.Load(context.Background(), "k", fetch)
		require.NoError(t, err)
		assert.Equal(t, []int{1, 2}, v)
	}
	assert.EqualValues(t, 1, calls.Load())

	fake.Advance(time.Hour + time.Second)
	_, err := l.Load(context.Background(), "k", fetch)
	require.NoError(t, err)
	assert.EqualValues(t, 2, calls.Load(), "expired value is fetched again")
}

func TestLoaderCachesEmptyResult(t *testing.T) {
	l, _ := newTestLoader(t, time.Hour)

	var calls atomic.Int32
	fetch := func(context.Context) ([]int, error) {
		calls.Add(1)
		return nil, nil
	}

	for i := 0; i < 2; i++ {
		v, err := l.Load(context.Background(), "k", fetch)
		require.NoError(t, err)
		assert.Empty(t, v)
	}
	assert.EqualValues(t, 1, calls.Load())
}

func TestLoaderDoesNotCacheFailure(t *testing.T) {
	l, _ := newTestLoader(t, time.Hour)

	boom := errors.New("boom")
	_, err := l.Load(context.Background(), "k", func(context.Context) ([]int, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
	assert.False(t, l.Cache().Has("k"))

	v, err := l.Load(context.Background(), "k", func(context.Context) ([]int, error) {
		return []int{7}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{7}, v)
}

func TestLoaderCollapsesConcurrentLoads(t *testing.T) {
	l, _ := newTestLoader(t, time.Hour)

	var calls atomic.Int32
	started := make(chan struct{})
	release := make(chan struct{})
	fetch := func(context.Context) ([]int, error) {
		if calls.Add(1) == 1 {
			close(started)
		}
		<-release
		return []int{42}, nil
	}

	const callers = 8
	var wg sync.WaitGroup
	results := make([][]int, callers)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0], _ = l.Load(context.Background(), "k", fetch)
	}()
	<-started

	for i := 1; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = l.Load(context.Background(), "k", fetch)
		}(i)
	}
	close(release)
	wg.Wait()

	assert.EqualValues(t, 1, calls.Load())
	for _, r := range results {
		assert.Equal(t, []int{42}, r)
	}
}

func TestLoaderFetchIgnoresCallerCancellation(t *testing.T) {
	l, _ := newTestLoader(t, time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	v, err := l.Load(ctx, "k", func(fctx context.Context) ([]int, error) {
		if err := fctx.Err(); err != nil {
			return nil, err
		}
		return []int{1}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []int{1}, v)
}

func TestLoaderForget(t *testing.T) {
	l, _ := newTestLoader(t, time.Hour)

	_, err := l.Load(context.Background(), "k", func(context.Context) ([]int, error) {
		return []int{1}, nil
	})
	require.NoError(t, err)

	l.Forget("k")
	assert.Equal(t, 0, l.Cache().Size())
}
