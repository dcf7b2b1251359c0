// Package cache provides a small in-process time-to-live cache keyed by
// string. Expiry is lazy: an expired entry behaves as absent on Get and is
// dropped at that point.
package cache

import (
	"sync"
	"time"

	"github.com/rubiojr/crmdesk/pkg/clock"
)

type entry[V any] struct {
	val V
	exp time.Time
}

// TTL is safe for concurrent use. It has no capacity bound; callers are
// expected to keep the key space small.
type TTL[V any] struct {
	mu    sync.RWMutex
	ttl   time.Duration
	clock clock.Clock
	data  map[string]entry[V]
}

// New returns a cache whose entries live for ttl.
func New[V any](ttl time.Duration) *TTL[V] {
	return NewWithClock[V](ttl, clock.Real())
}

// NewWithClock is New with an explicit time source.
func NewWithClock[V any](ttl time.Duration, c clock.Clock) *TTL[V] {
	return &TTL[V]{
		ttl:   ttl,
		clock: c,
		data:  make(map[string]entry[V]),
	}
}

// Get returns the value for key if present and not expired.
func (t *TTL[V]) Get(key string) (V, bool) {
	t.mu.RLock()
	e, ok := t.data[key]
	t.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if !t.clock.Now().Before(e.exp) {
		t.mu.Lock()
		// Re-check: a concurrent Set may have refreshed the entry.
		if cur, ok := t.data[key]; ok && !t.clock.Now().Before(cur.exp) {
			delete(t.data, key)
		}
		t.mu.Unlock()
		return zero, false
	}
	return e.val, true
}

// Set stores val under key, replacing any previous entry.
func (t *TTL[V]) Set(key string, val V) {
	t.mu.Lock()
	t.data[key] = entry[V]{val: val, exp: t.clock.Now().Add(t.ttl)}
	t.mu.Unlock()
}

// Delete removes key.
func (t *TTL[V]) Delete(key string) {
	t.mu.Lock()
	delete(t.data, key)
	t.mu.Unlock()
}

// Clear removes every entry.
func (t *TTL[V]) Clear() {
	t.mu.Lock()
	t.data = make(map[string]entry[V])
	t.mu.Unlock()
}

// Len returns the number of stored entries, expired ones included.
func (t *TTL[V]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.data)
}
