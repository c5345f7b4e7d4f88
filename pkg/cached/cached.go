// Package cached wraps the request helpers with a read-through cache.
//
// A cached call looks up the resolved request URI in a cache.Store. On a hit
// the stored value is returned as a successful result without touching the
// network. On a miss the request is sent and, only if it succeeds, the
// converted value is stored with the given expiration. Failures are never
// cached.
//
// The key is the resolved URI alone: the method, headers and body are not
// part of it, so callers must only cache requests whose result depends on the
// URI.
//
// Concurrent misses on one key are not coalesced. Each sends its own request
// and the last successful write wins.
package cached

import (
	"context"
	"net/http"

	"github.com/matzehuels/lighthttp/pkg/cache"
	"github.com/matzehuels/lighthttp/pkg/observability"
	"github.com/matzehuels/lighthttp/pkg/request"
)

// Send is request.SendJSON behind store.
func Send[T any](ctx context.Context, store cache.Store[T], c *request.Client, method, uri string, exp cache.Expiration, opts ...request.CallOption) (request.Result[T], error) {
	return through(ctx, store, c, uri, exp, func() (request.Result[T], error) {
		return request.SendJSON[T](ctx, c, method, uri, opts...)
	})
}

// SendWith is request.SendWith behind store.
func SendWith[T any](ctx context.Context, store cache.Store[T], c *request.Client, handler request.Handler[T], method, uri string, exp cache.Expiration, opts ...request.CallOption) (request.Result[T], error) {
	return through(ctx, store, c, uri, exp, func() (request.Result[T], error) {
		return request.SendWith(ctx, c, handler, method, uri, opts...)
	})
}

// SendLocal caches decoded JSON values in process memory.
func SendLocal[T any](ctx context.Context, m *cache.Memory, c *request.Client, method, uri string, exp cache.Expiration, opts ...request.CallOption) (request.Result[T], error) {
	return Send(ctx, cache.Local[T](m), c, method, uri, exp, opts...)
}

// SendLocalWith caches handler results in process memory.
func SendLocalWith[T any](ctx context.Context, m *cache.Memory, c *request.Client, handler request.Handler[T], method, uri string, exp cache.Expiration, opts ...request.CallOption) (request.Result[T], error) {
	return SendWith(ctx, cache.Local[T](m), c, handler, method, uri, exp, opts...)
}

// SendDistributed caches decoded JSON values in s, stored as JSON text.
func SendDistributed[T any](ctx context.Context, s cache.StringStore, c *request.Client, method, uri string, exp cache.Expiration, opts ...request.CallOption) (request.Result[T], error) {
	return Send(ctx, cache.JSON[T](s), c, method, uri, exp, opts...)
}

// SendDistributedWith caches handler results in s, stored as JSON text.
func SendDistributedWith[T any](ctx context.Context, s cache.StringStore, c *request.Client, handler request.Handler[T], method, uri string, exp cache.Expiration, opts ...request.CallOption) (request.Result[T], error) {
	return SendWith(ctx, cache.JSON[T](s), c, handler, method, uri, exp, opts...)
}

// GetJSON is Send with the GET method.
func GetJSON[T any](ctx context.Context, store cache.Store[T], c *request.Client, uri string, exp cache.Expiration, opts ...request.CallOption) (request.Result[T], error) {
	return Send(ctx, store, c, http.MethodGet, uri, exp, opts...)
}

// Key returns the cache key a request for uri is stored under.
func Key(c *request.Client, uri string) (string, error) {
	u, err := c.Resolve(uri)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func through[T any](ctx context.Context, store cache.Store[T], c *request.Client, uri string, exp cache.Expiration, fetch func() (request.Result[T], error)) (request.Result[T], error) {
	key, err := Key(c, uri)
	if err != nil {
		return request.Result[T]{}, err
	}
	backend := backendName(store)
	hooks := observability.Cache()
	logger := c.Logger()

	v, ok, err := store.TryGet(ctx, key)
	if err != nil {
		logger.Error("cache read failed", "backend", backend, "key", key, "err", err)
		return request.Result[T]{}, err
	}
	if ok {
		hooks.OnCacheHit(ctx, backend)
		logger.Debug("cache hit", "backend", backend, "key", key)
		return request.Cached(v), nil
	}
	hooks.OnCacheMiss(ctx, backend)
	logger.Debug("cache miss", "backend", backend, "key", key)

	res, err := fetch()
	if err != nil || !res.Status.Success {
		return res, err
	}

	if err := store.Set(ctx, key, res.Value, exp); err != nil {
		logger.Error("cache write failed", "backend", backend, "key", key, "err", err)
		return res, err
	}
	hooks.OnCacheSet(ctx, backend)
	return res, nil
}

func backendName(store any) string {
	if n, ok := store.(cache.Named); ok {
		return n.Name()
	}
	return "custom"
}
