// Package cache provides a generic key-value store whose entries expire a
// fixed time after insertion.
//
// Expiry happens in two tiers. Every read checks the entry age and drops
// stale entries (lazy expiry). In addition, once a cache holds at least
// DefaultSweepThreshold entries a background sweeper is armed; it runs once
// per ttl, removes everything older than ttl and disarms itself when the
// cache shrinks below the threshold again.
//
// Loader layers load collapsing on top of a Cache: concurrent loads of the
// same key share one in-flight fetch.
package cache

import (
	"errors"
	"sync"
	"time"

	"github.com/i474232898/rainfall-dashboard/internal/clock"
)

// DefaultSweepThreshold is the entry count at which the sweeper is armed.
const DefaultSweepThreshold = 20

// ErrInvalidTTL is returned by New when ttl is not positive.
var ErrInvalidTTL = errors.New("cache: ttl must be positive")

// State is the sweeper state of a Cache.
type State int

const (
	// StateIdle means the sweeper was never armed.
	StateIdle State = iota
	// StateArmed means a sweep is scheduled every ttl.
	StateArmed
	// StateDisarmed means the sweeper ran and stopped itself, or was closed.
	StateDisarmed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateArmed:
		return "armed"
	case StateDisarmed:
		return "disarmed"
	default:
		return "unknown"
	}
}

type entry[V any] struct {
	value      V
	insertedAt time.Time
}

type settings struct {
	clock     clock.Clock
	scheduler clock.Scheduler
	threshold int
}

// Option configures a Cache.
type Option func(*settings)

// WithClock sets the time source used to stamp and age entries.
func WithClock(c clock.Clock) Option {
	return func(s *settings) { s.clock = c }
}

// WithScheduler sets the scheduler driving the background sweeper.
func WithScheduler(sch clock.Scheduler) Option {
	return func(s *settings) { s.scheduler = sch }
}

// WithSweepThreshold overrides DefaultSweepThreshold. Values below 1 are ignored.
func WithSweepThreshold(n int) Option {
	return func(s *settings) {
		if n > 0 {
			s.threshold = n
		}
	}
}

// Cache is a TTL-bounded map safe for concurrent use.
type Cache[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]entry[V]
	ttl   time.Duration

	clock     clock.Clock
	scheduler clock.Scheduler
	threshold int

	state State
	stop  func()
	// gen identifies the current arming; ticks from an older arming are ignored.
	gen uint64
}

// New creates a Cache whose entries live for ttl.
func New[K comparable, V any](ttl time.Duration, opts ...Option) (*Cache[K, V], error) {
	if ttl <= 0 {
		return nil, ErrInvalidTTL
	}

	s := settings{
		clock:     clock.Real{},
		scheduler: clock.Real{},
		threshold: DefaultSweepThreshold,
	}
	for _, opt := range opts {
		opt(&s)
	}

	return &Cache[K, V]{
		items:     make(map[K]entry[V]),
		ttl:       ttl,
		clock:     s.clock,
		scheduler: s.scheduler,
		threshold: s.threshold,
	}, nil
}

// TTL returns the lifetime of an entry.
func (c *Cache[K, V]) TTL() time.Duration {
	return c.ttl
}

// Set stores value under key, replacing any previous entry.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{value: value, insertedAt: c.clock.Now()}
	c.armLocked()
}

// Get returns the value for key if it is present and not older than ttl.
// An expired entry is removed.
func (c *Cache[K, V]) Get(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var zero V
	e, ok := c.items[key]
	if !ok {
		return zero, false
	}
	if c.expired(e, c.clock.Now()) {
		delete(c.items, key)
		return zero, false
	}
	return e.value, true
}

// Has reports whether Get would return a value, with the same side effect.
func (c *Cache[K, V]) Has(key K) bool {
	_, ok := c.Get(key)
	return ok
}

// Delete removes key. Missing keys are ignored.
func (c *Cache[K, V]) Delete(key K) {
	c.mu.Lock()
	delete(c.items, key)
	c.mu.Unlock()
}

// Clear removes every entry. An armed sweeper disarms on its next run.
func (c *Cache[K, V]) Clear() {
	c.mu.Lock()
	clear(c.items)
	c.mu.Unlock()
}

// Size returns the number of stored entries, including stale ones that have
// not been read or swept yet.
func (c *Cache[K, V]) Size() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

// ForEach calls fn for every stored entry without checking expiry.
// fn runs on a snapshot, so it may call back into the cache.
func (c *Cache[K, V]) ForEach(fn func(value V, key K)) {
	c.mu.Lock()
	keys := make([]K, 0, len(c.items))
	values := make([]V, 0, len(c.items))
	for k, e := range c.items {
		keys = append(keys, k)
		values = append(values, e.value)
	}
	c.mu.Unlock()

	for i := range keys {
		fn(values[i], keys[i])
	}
}

func (c *Cache[K, V]) expired(e entry[V], now time.Time) bool {
	return now.Sub(e.insertedAt) > c.ttl
}
