package cache

import (
	"context"
	"encoding/json"

	"github.com/matzehuels/lighthttp/pkg/errors"
)

type jsonStore[T any] struct {
	s StringStore
}

// JSON returns a typed view of s that stores values as JSON text.
// An empty stored string reads as a miss. A stored string that does not
// decode into T is a DECODE_FAILED error.
func JSON[T any](s StringStore) Store[T] {
	return jsonStore[T]{s: s}
}

func (j jsonStore[T]) TryGet(ctx context.Context, key string) (T, bool, error) {
	var v T
	raw, err := j.s.GetString(ctx, key)
	if err != nil {
		return v, false, backendError(err, "get", j.Name(), key)
	}
	if raw == "" {
		return v, false, nil
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, false, errors.Wrap(errors.ErrCodeDecode, err, "decode cached value for %q", key)
	}
	return v, true, nil
}

func (j jsonStore[T]) Set(ctx context.Context, key string, v T, exp Expiration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return errors.Wrap(errors.ErrCodeEncode, err, "encode value for %q", key)
	}
	return backendError(j.s.SetString(ctx, key, string(data), exp), "set", j.Name(), key)
}

func (j jsonStore[T]) Name() string {
	if n, ok := j.s.(Named); ok {
		return n.Name()
	}
	return "distributed"
}
