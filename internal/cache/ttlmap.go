// Package cache provides a small expiring map used for rate-limit counters
// and short-lived session state.
package cache

import (
	"sync"
	"time"
)

// TTLMap is a thread-safe map whose entries expire after a per-entry TTL.
// Expired entries are dropped lazily on read and swept periodically.
type TTLMap[V any] struct {
	mu         sync.RWMutex
	items      map[string]*entry[V]
	defaultTTL time.Duration
	stop       chan struct{}
	stopOnce   sync.Once
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// NewTTLMap creates a map with the given default TTL and starts its
// background sweep.
func NewTTLMap[V any](defaultTTL, sweepInterval time.Duration) *TTLMap[V] {
	m := &TTLMap[V]{
		items:      make(map[string]*entry[V]),
		defaultTTL: defaultTTL,
		stop:       make(chan struct{}),
	}

	go m.sweep(sweepInterval)

	return m
}

// Get returns the value for key if present and not expired
func (m *TTLMap[V]) Get(key string) (V, bool) {
	m.mu.RLock()
	item, ok := m.items[key]
	m.mu.RUnlock()

	var zero V
	if !ok {
		return zero, false
	}
	if time.Now().After(item.expiresAt) {
		m.Delete(key)
		return zero, false
	}

	return item.value, true
}

// Set stores value under key with the default TTL
func (m *TTLMap[V]) Set(key string, value V) {
	m.SetWithTTL(key, value, m.defaultTTL)
}

// SetWithTTL stores value under key with an explicit TTL
func (m *TTLMap[V]) SetWithTTL(key string, value V, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items[key] = &entry[V]{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
}

// Update atomically applies fn to the current value for key (zero value if
// absent or expired) and stores the result with the default TTL. The
// existing entry's expiry is kept so updates do not extend a window.
func (m *TTLMap[V]) Update(key string, fn func(current V, found bool) V) V {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	var current V
	found := false
	expiresAt := now.Add(m.defaultTTL)

	if item, ok := m.items[key]; ok && now.Before(item.expiresAt) {
		current = item.value
		found = true
		expiresAt = item.expiresAt
	}

	next := fn(current, found)
	m.items[key] = &entry[V]{value: next, expiresAt: expiresAt}

	return next
}

// Delete removes key
func (m *TTLMap[V]) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, key)
}

// Len returns the number of entries, including any not yet swept
func (m *TTLMap[V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.items)
}

// Close stops the background sweep
func (m *TTLMap[V]) Close() {
	m.stopOnce.Do(func() {
		close(m.stop)
	})
}

func (m *TTLMap[V]) sweep(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.mu.Lock()
			now := time.Now()
			for key, item := range m.items {
				if now.After(item.expiresAt) {
					delete(m.items, key)
				}
			}
			m.mu.Unlock()
		case <-m.stop:
			return
		}
	}
}
