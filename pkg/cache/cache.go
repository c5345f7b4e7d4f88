// Package cache provides the stores behind cached requests.
//
// Two shapes are supported. A [Store] holds typed values and is what the
// cached request helpers consume. A [StringStore] holds strings and models a
// distributed cache shared between processes; [JSON] adapts it to a typed
// Store by serializing values as JSON.
//
// # Implementations
//
//   - [Memory]: in-process, typed values, optional size limit (use with [Local])
//   - [Redis]: Redis hashes with server-side expiry
//   - [Mongo]: one document per key with a TTL index
//   - [File]: JSON files in a shared directory
//   - [Null]: stores nothing
//
// Every store honors the same [Expiration] policy: an absolute deadline,
// an optional sliding window renewed on each read, or both.
package cache

import (
	"context"
	"time"
)

// Store is a typed key-value cache.
//
// TryGet reports a miss with ok == false and a nil error. A non-nil error
// means the backend itself failed.
type Store[V any] interface {
	TryGet(ctx context.Context, key string) (v V, ok bool, err error)
	Set(ctx context.Context, key string, v V, exp Expiration) error
}

// StringStore is a string-valued cache, typically shared between processes.
// GetString returns "" for an absent or expired key.
type StringStore interface {
	GetString(ctx context.Context, key string) (string, error)
	SetString(ctx context.Context, key, value string, exp Expiration) error
}

// Named is implemented by stores that report a backend name for logs and
// metrics.
type Named interface {
	Name() string
}

// Expiration is the lifetime of a cache entry. The zero value never expires.
type Expiration struct {
	// TTL expires the entry this long after it was written.
	TTL time.Duration
	// ExpiresAt expires the entry at a fixed time. When both TTL and
	// ExpiresAt are set, the earlier deadline applies.
	ExpiresAt time.Time
	// Sliding expires the entry when it has not been read for this long.
	// Reads extend the entry, but never past the absolute deadline.
	Sliding time.Duration
	// Size is the cost of the entry in a size-limited Memory store.
	Size int64
}

// For returns an Expiration with the given TTL.
func For(ttl time.Duration) Expiration { return Expiration{TTL: ttl} }

// IsZero reports whether the entry never expires.
func (e Expiration) IsZero() bool {
	return e.TTL <= 0 && e.ExpiresAt.IsZero() && e.Sliding <= 0
}

// absolute returns the absolute deadline for an entry written at now, or
// the zero time when there is none.
func (e Expiration) absolute(now time.Time) time.Time {
	var at time.Time
	if e.TTL > 0 {
		at = now.Add(e.TTL)
	}
	if !e.ExpiresAt.IsZero() && (at.IsZero() || e.ExpiresAt.Before(at)) {
		at = e.ExpiresAt
	}
	return at
}

// start returns the lifetime of an entry written at now.
func (e Expiration) start(now time.Time) lifetime {
	l := lifetime{Absolute: e.absolute(now), TouchedAt: now}
	if e.Sliding > 0 {
		l.Sliding = e.Sliding
	}
	return l
}

// lifetime is the persisted form of an Expiration.
type lifetime struct {
	Absolute  time.Time     `json:"absolute,omitempty"`
	Sliding   time.Duration `json:"sliding,omitempty"`
	TouchedAt time.Time     `json:"touched_at"`
}

// deadline returns when the entry expires if it is not read again, or the
// zero time if it never expires.
func (l lifetime) deadline() time.Time {
	at := l.Absolute
	if l.Sliding > 0 {
		s := l.TouchedAt.Add(l.Sliding)
		if at.IsZero() || s.Before(at) {
			at = s
		}
	}
	return at
}

func (l lifetime) expired(now time.Time) bool {
	d := l.deadline()
	return !d.IsZero() && !now.Before(d)
}

// touch renews the sliding window after a read at now.
func (l *lifetime) touch(now time.Time) {
	if l.Sliding > 0 {
		l.TouchedAt = now
	}
}

// remaining returns the time left until the deadline. ok is false when the
// entry never expires.
func (l lifetime) remaining(now time.Time) (d time.Duration, ok bool) {
	at := l.deadline()
	if at.IsZero() {
		return 0, false
	}
	return at.Sub(now), true
}
