package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader is a read-through cache keyed by string. Concurrent loads of the
// same key share one in-flight fetch, successful results are kept for the
// cache ttl, and failures are never cached.
type Loader[V any] struct {
	cache *Cache[string, V]
	group singleflight.Group
}

// NewLoader creates a Loader whose results live for ttl.
func NewLoader[V any](ttl time.Duration, opts ...Option) (*Loader[V], error) {
	c, err := New[string, V](ttl, opts...)
	if err != nil {
		return nil, err
	}
	return &Loader[V]{cache: c}, nil
}

// Cache exposes the underlying cache.
func (l *Loader[V]) Cache() *Cache[string, V] {
	return l.cache
}

// Load returns the cached value for key or runs fetch to produce it.
//
// fetch is detached from ctx cancellation: once started it runs to completion
// so callers that joined the same flight still get its result.
func (l *Loader[V]) Load(ctx context.Context, key string, fetch func(context.Context) (V, error)) (V, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}

	res, err, _ := l.group.Do(key, func() (any, error) {
		// Another flight may have filled the key while we waited for Do.
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}

		v, err := fetch(context.WithoutCancel(ctx))
		if err != nil {
			l.cache.Delete(key)
			return nil, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return res.(V), nil
}

// Forget drops key from the cache.
func (l *Loader[V]) Forget(key string) {
	l.cache.Delete(key)
	l.group.Forget(key)
}

// Close stops the sweeper of the underlying cache.
func (l *Loader[V]) Close() {
	l.cache.Close()
}
