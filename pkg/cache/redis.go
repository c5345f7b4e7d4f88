package cache

import (
	"context"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Hash fields of a Redis entry.
const (
	redisData     = "data"
	redisAbsolute = "absexp" // absolute deadline, Unix milliseconds; 0 when none
	redisSliding  = "sldexp" // sliding window, milliseconds; 0 when none
)

// Redis is a StringStore backed by Redis. Each entry is a hash holding the
// value and its expiration policy; the key's server-side TTL is kept at the
// entry's current deadline and renewed on reads of sliding entries.
type Redis struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewRedis creates a store on client. prefix is prepended to every key.
func NewRedis(client redis.UniversalClient, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix, now: time.Now}
}

// GetString implements StringStore.
func (r *Redis) GetString(ctx context.Context, key string) (string, error) {
	k := r.prefix + key
	fields, err := r.client.HGetAll(ctx, k).Result()
	if err != nil {
		return "", backendError(err, "get", r.Name(), key)
	}
	value, ok := fields[redisData]
	if !ok {
		return "", nil
	}

	life := lifetime{
		Absolute: fromMillis(fields[redisAbsolute]),
		Sliding:  time.Duration(parseInt(fields[redisSliding])) * time.Millisecond,
	}
	if life.Sliding > 0 {
		now := r.now()
		life.TouchedAt = now
		if ttl, ok := life.remaining(now); ok {
			if ttl <= 0 {
				return "", nil
			}
			if err := r.client.PExpire(ctx, k, ttl).Err(); err != nil {
				return "", backendError(err, "touch", r.Name(), key)
			}
		}
	}
	return value, nil
}

// SetString implements StringStore.
func (r *Redis) SetString(ctx context.Context, key, value string, exp Expiration) error {
	k := r.prefix + key
	now := r.now()
	life := exp.start(now)
	ttl, expires := life.remaining(now)
	if expires && ttl <= 0 {
		return backendError(r.client.Del(ctx, k).Err(), "delete", r.Name(), key)
	}

	var abs int64
	if !life.Absolute.IsZero() {
		abs = life.Absolute.UnixMilli()
	}
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, k)
		pipe.HSet(ctx, k,
			redisData, value,
			redisAbsolute, abs,
			redisSliding, life.Sliding.Milliseconds(),
		)
		if expires {
			pipe.PExpire(ctx, k, ttl)
		}
		return nil
	})
	return backendError(err, "set", r.Name(), key)
}

// Delete removes key.
func (r *Redis) Delete(ctx context.Context, key string) error {
	return backendError(r.client.Del(ctx, r.prefix+key).Err(), "delete", r.Name(), key)
}

// Name implements Named.
func (r *Redis) Name() string { return "redis" }

func parseInt(s string) int64 {
	n, _ := strconv.ParseInt(s, 10, 64)
	return n
}

func fromMillis(s string) time.Time {
	if ms := parseInt(s); ms > 0 {
		return time.UnixMilli(ms)
	}
	return time.Time{}
}

// Ensure Redis implements StringStore.
var _ StringStore = (*Redis)(nil)
