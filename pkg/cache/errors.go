package cache

import (
	stderrors "errors"

	"github.com/matzehuels/lighthttp/pkg/errors"
)

// Sentinel errors for cache operations.
var (
	// ErrSizeRequired is returned by a size-limited Memory store when an
	// entry is written without a Size.
	ErrSizeRequired = stderrors.New("cache entry size is required when the cache has a size limit")
)

// backendError wraps a failure of a cache backend with the CACHE_ERROR code.
func backendError(err error, op, backend, key string) error {
	if err == nil {
		return nil
	}
	if errors.GetCode(err) != "" {
		return err
	}
	return errors.Wrap(errors.ErrCodeCache, err, "%s %s %q", backend, op, key)
}
