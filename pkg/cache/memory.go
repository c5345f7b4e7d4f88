package cache

import (
	"context"
	"sync"
	"time"
)

// Memory is an in-process cache of arbitrary values. It is safe for
// concurrent use.
//
// Expired entries are dropped lazily on access and when room is needed.
// With a size limit, an entry that does not fit after expired entries are
// purged is silently not stored and any previous value for its key is kept;
// nothing is evicted to make room. Writing an already expired entry removes
// the key.
type Memory struct {
	mu    sync.Mutex
	items map[string]*memoryItem
	limit int64
	used  int64
	now   func() time.Time
}

type memoryItem struct {
	value any
	life  lifetime
	size  int64
}

// MemoryOption configures a Memory store.
type MemoryOption func(*Memory)

// WithSizeLimit bounds the sum of entry sizes. Every entry must then carry
// an Expiration.Size.
func WithSizeLimit(limit int64) MemoryOption {
	return func(m *Memory) { m.limit = limit }
}

// NewMemory creates an empty in-process cache.
func NewMemory(opts ...MemoryOption) *Memory {
	m := &Memory{
		items: make(map[string]*memoryItem),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Get returns the value stored under key.
func (m *Memory) Get(key string) (any, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok {
		return nil, false
	}
	now := m.now()
	if it.life.expired(now) {
		m.remove(key, it)
		return nil, false
	}
	it.life.touch(now)
	return it.value, true
}

// Set stores v under key, replacing any previous entry.
func (m *Memory) Set(key string, v any, exp Expiration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limit > 0 && exp.Size <= 0 {
		return ErrSizeRequired
	}

	now := m.now()
	it := &memoryItem{value: v, life: exp.start(now), size: exp.Size}
	old, replacing := m.items[key]
	if it.life.expired(now) {
		if replacing {
			m.remove(key, old)
		}
		return nil
	}

	if m.limit > 0 && m.used+it.size > m.limit {
		m.purge(now)
		old, replacing = m.items[key]
		freed := int64(0)
		if replacing {
			freed = old.size
		}
		// An entry that does not fit leaves the previous one in place.
		if m.used-freed+it.size > m.limit {
			return nil
		}
	}
	if replacing {
		m.remove(key, old)
	}
	m.items[key] = it
	m.used += it.size
	return nil
}

// Delete removes key.
func (m *Memory) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if it, ok := m.items[key]; ok {
		m.remove(key, it)
	}
}

// Clear removes every entry.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = make(map[string]*memoryItem)
	m.used = 0
}

// Len returns the number of live entries.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purge(m.now())
	return len(m.items)
}

// Name implements Named.
func (m *Memory) Name() string { return "memory" }

func (m *Memory) remove(key string, it *memoryItem) {
	delete(m.items, key)
	m.used -= it.size
}

func (m *Memory) purge(now time.Time) {
	for k, it := range m.items {
		if it.life.expired(now) {
			m.remove(k, it)
		}
	}
}

// local adapts a Memory to a typed Store.
type local[T any] struct {
	m *Memory
}

// Local returns a typed view of m. A stored value of another type reads as a
// miss.
func Local[T any](m *Memory) Store[T] {
	return local[T]{m: m}
}

func (l local[T]) TryGet(_ context.Context, key string) (T, bool, error) {
	var zero T
	v, ok := l.m.Get(key)
	if !ok {
		return zero, false, nil
	}
	t, ok := v.(T)
	if !ok {
		return zero, false, nil
	}
	return t, true, nil
}

func (l local[T]) Set(_ context.Context, key string, v T, exp Expiration) error {
	return l.m.Set(key, v, exp)
}

func (l local[T]) Name() string { return l.m.Name() }
