package request

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/matzehuels/lighthttp/pkg/errors"
)

// Handler converts a response into a value. It must not close resp.Body;
// the caller does that after the handler returns.
type Handler[T any] func(resp *http.Response) (T, error)

// ReadBytes reads the whole response body.
func ReadBytes(resp *http.Response) ([]byte, error) {
	return io.ReadAll(resp.Body)
}

// ReadString reads the whole response body as text.
func ReadString(resp *http.Response) (string, error) {
	data, err := io.ReadAll(resp.Body)
	return string(data), err
}

// DecodeJSON returns a handler that streams the body through a JSON decoder.
// An empty body yields the zero value of T.
func DecodeJSON[T any]() Handler[T] {
	return func(resp *http.Response) (T, error) {
		var v T
		if err := json.NewDecoder(resp.Body).Decode(&v); err != nil && err != io.EOF {
			return v, err
		}
		return v, nil
	}
}

// materialize runs handler on resp unless the request failed and the caller
// only wants successful bodies converted. Transport errors raised while the
// handler reads the body become a transport status; other handler errors are
// returned.
func materialize[T any](c *Client, handler Handler[T], resp *http.Response, status Status, onlyOnSuccess bool, method, uri string) (Result[T], error) {
	res := Result[T]{Status: status}
	if resp == nil || (!status.Success && onlyOnSuccess) {
		return res, nil
	}

	v, err := handler(resp)
	if err != nil {
		c.logger.Error("response handler failed", "method", method, "uri", uri, "err", err)
		if terr, ok := classify(err); ok {
			return Result[T]{Status: transportStatus(terr)}, nil
		}
		if errors.GetCode(err) != "" {
			return res, err
		}
		return res, errors.Wrap(errors.ErrCodeDecode, err, "convert %s %s response", method, uri)
	}
	res.Value = v
	return res, nil
}
