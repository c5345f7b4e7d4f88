package cache

import (
	"context"
	stderrors "errors"
	"sync"
	"testing"
	"time"
)

func newTestMemory(c *clock, opts ...MemoryOption) *Memory {
	m := NewMemory(opts...)
	m.now = c.Now
	return m
}

func TestMemoryGetSet(t *testing.T) {
	m := NewMemory()

	if _, ok := m.Get("a"); ok {
		t.Fatal("empty cache should miss")
	}
	if err := m.Set("a", 42, Expiration{}); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	v, ok := m.Get("a")
	if !ok || v != 42 {
		t.Errorf("Get = %v, %v; want 42, true", v, ok)
	}

	m.Delete("a")
	if _, ok := m.Get("a"); ok {
		t.Error("Delete should remove the entry")
	}
}

func TestMemoryExpiry(t *testing.T) {
	c := newClock()
	m := newTestMemory(c)

	_ = m.Set("ttl", "v", For(time.Minute))
	_ = m.Set("sliding", "v", Expiration{Sliding: time.Minute})

	c.Advance(45 * time.Second)
	if _, ok := m.Get("sliding"); !ok {
		t.Fatal("sliding entry should be live")
	}

	c.Advance(45 * time.Second)
	if _, ok := m.Get("ttl"); ok {
		t.Error("ttl entry should have expired")
	}
	if _, ok := m.Get("sliding"); !ok {
		t.Error("read should have renewed the sliding entry")
	}

	c.Advance(2 * time.Minute)
	if _, ok := m.Get("sliding"); ok {
		t.Error("sliding entry should expire when not read")
	}
	if n := m.Len(); n != 0 {
		t.Errorf("Len = %d, want 0", n)
	}
}

func TestMemorySizeLimit(t *testing.T) {
	c := newClock()
	m := newTestMemory(c, WithSizeLimit(10))

	if err := m.Set("nosize", "v", Expiration{}); !stderrors.Is(err, ErrSizeRequired) {
		t.Fatalf("Set without size error = %v, want ErrSizeRequired", err)
	}

	_ = m.Set("a", "v", Expiration{Size: 6, TTL: time.Minute})
	_ = m.Set("b", "v", Expiration{Size: 6})
	if _, ok := m.Get("b"); ok {
		t.Error("entry exceeding the limit should not be stored")
	}
	if _, ok := m.Get("a"); !ok {
		t.Error("existing entry should not be evicted to make room")
	}

	c.Advance(2 * time.Minute)
	_ = m.Set("b", "v", Expiration{Size: 6})
	if _, ok := m.Get("b"); !ok {
		t.Error("expired entries should be purged to make room")
	}

	// Replacing an entry releases its size first.
	_ = m.Set("b", "w", Expiration{Size: 10})
	if v, ok := m.Get("b"); !ok || v != "w" {
		t.Errorf("Get(b) = %v, %v; want w, true", v, ok)
	}
}

func TestMemorySetKeepsOrDropsPrevious(t *testing.T) {
	c := newClock()

	t.Run("oversized replacement keeps previous", func(t *testing.T) {
		m := newTestMemory(c, WithSizeLimit(10))
		_ = m.Set("a", "old", Expiration{Size: 4})
		_ = m.Set("a", "new", Expiration{Size: 11})
		if v, ok := m.Get("a"); !ok || v != "old" {
			t.Errorf("Get(a) = %v, %v; want old, true", v, ok)
		}
		if m.used != 4 {
			t.Errorf("used = %d, want 4", m.used)
		}
	})

	t.Run("expired write removes previous", func(t *testing.T) {
		m := newTestMemory(c, WithSizeLimit(10))
		_ = m.Set("a", "old", Expiration{Size: 4})
		_ = m.Set("a", "new", Expiration{Size: 4, ExpiresAt: c.Now().Add(-time.Second)})
		if v, ok := m.Get("a"); ok {
			t.Errorf("Get(a) = %v, want miss", v)
		}
		if m.used != 0 {
			t.Errorf("used = %d, want 0", m.used)
		}
	})
}

func TestMemoryClear(t *testing.T) {
	m := NewMemory()
	for _, k := range []string{"a", "b", "c"} {
		_ = m.Set(k, k, Expiration{})
	}
	if n := m.Len(); n != 3 {
		t.Fatalf("Len = %d, want 3", n)
	}
	m.Clear()
	if n := m.Len(); n != 0 {
		t.Errorf("Len after Clear = %d, want 0", n)
	}
}

func TestMemoryConcurrentAccess(t *testing.T) {
	m := NewMemory()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.Set("k", i, Expiration{Sliding: time.Minute})
			m.Get("k")
		}(i)
	}
	wg.Wait()
	if _, ok := m.Get("k"); !ok {
		t.Error("expected an entry after concurrent writes")
	}
}

func TestLocal(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()
	ints := Local[int](m)

	if _, ok, err := ints.TryGet(ctx, "k"); ok || err != nil {
		t.Fatalf("TryGet on empty = %v, %v; want miss", ok, err)
	}
	if err := ints.Set(ctx, "k", 7, Expiration{}); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	v, ok, err := ints.TryGet(ctx, "k")
	if err != nil || !ok || v != 7 {
		t.Errorf("TryGet = %v, %v, %v; want 7, true, nil", v, ok, err)
	}

	// A value of another type is a miss.
	strs := Local[string](m)
	if _, ok, _ := strs.TryGet(ctx, "k"); ok {
		t.Error("type mismatch should read as a miss")
	}
}
