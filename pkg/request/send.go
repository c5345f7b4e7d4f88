package request

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/matzehuels/lighthttp/pkg/errors"
	"github.com/matzehuels/lighthttp/pkg/observability"
)

type header struct{ name, value string }

type callOptions struct {
	body          io.Reader
	headers       []header
	onlyOnSuccess bool
	err           error
}

// CallOption configures a single request.
type CallOption func(*callOptions)

// WithBody sets the request body.
func WithBody(r io.Reader) CallOption {
	return func(o *callOptions) { o.body = r }
}

// WithJSONBody marshals v as the request body and sets the Content-Type
// header to application/json. A marshal failure is returned by the send
// call as an ENCODE_FAILED error.
func WithJSONBody(v any) CallOption {
	data, err := json.Marshal(v)
	return func(o *callOptions) {
		if err != nil {
			o.err = errors.Wrap(errors.ErrCodeEncode, err, "marshal request body")
			return
		}
		o.body = bytes.NewReader(data)
		o.headers = append(o.headers, header{"Content-Type", "application/json"})
	}
}

// WithHeader adds a request header.
func WithHeader(name, value string) CallOption {
	return func(o *callOptions) { o.headers = append(o.headers, header{name, value}) }
}

// WithHeaders adds request headers.
func WithHeaders(h map[string]string) CallOption {
	return func(o *callOptions) {
		for k, v := range h {
			o.headers = append(o.headers, header{k, v})
		}
	}
}

// ParseOnFailure makes SendWith and SendJSON convert the response body even
// when the status code indicates failure. By default the body of a failed
// request is never handed to the handler.
func ParseOnFailure() CallOption {
	return func(o *callOptions) { o.onlyOnSuccess = false }
}

func newCallOptions(opts []CallOption) *callOptions {
	o := &callOptions{onlyOnSuccess: true}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Send performs one exchange and reports only its status. The response body
// is released before Send returns and is never parsed.
//
// The returned error is non-nil only for failures that are not network
// failures: an unresolvable URI, invalid input, or an unexpected error from
// the transport. Timeouts, cancellations, connection errors and non-2xx
// responses are reported in the Status.
func Send(ctx context.Context, c *Client, method, uri string, opts ...CallOption) (Status, error) {
	resp, status, err := c.execute(ctx, method, uri, newCallOptions(opts))
	if err != nil {
		return Status{}, err
	}
	if resp != nil {
		resp.Body.Close()
	}
	return status, nil
}

// SendWith performs one exchange and converts the response with handler.
//
// Unless ParseOnFailure is given, handler is only invoked for 2xx responses.
// A handler error caused by the network (timeout, cancellation, connection
// reset while reading the body) turns the result into a transport failure;
// any other handler error is returned as a DECODE_FAILED error.
func SendWith[T any](ctx context.Context, c *Client, handler Handler[T], method, uri string, opts ...CallOption) (Result[T], error) {
	return sendWith(ctx, c, handler, method, uri, newCallOptions(opts))
}

// SendJSON performs one exchange and decodes the JSON response body into T.
//
// The body is decoded for 2xx responses, or for every response when
// ParseOnFailure is given. An empty body yields the zero value of T.
// Malformed JSON is returned as a DECODE_FAILED error.
func SendJSON[T any](ctx context.Context, c *Client, method, uri string, opts ...CallOption) (Result[T], error) {
	o := newCallOptions(opts)
	raw, err := sendWith(ctx, c, ReadBytes, method, uri, o)
	if err != nil {
		return Result[T]{}, err
	}

	res := Result[T]{Status: raw.Status}
	if raw.Status.Kind == KindTransport || (!raw.Status.Success && o.onlyOnSuccess) {
		return res, nil
	}
	if err := unmarshalBody(raw.Value, &res.Value); err != nil {
		c.logger.Error("response decoding failed", "method", method, "uri", uri, "err", err)
		return res, errors.Wrap(errors.ErrCodeDecode, err, "decode %s %s response", method, uri)
	}
	return res, nil
}

// GetJSON is SendJSON with the GET method.
func GetJSON[T any](ctx context.Context, c *Client, uri string, opts ...CallOption) (Result[T], error) {
	return SendJSON[T](ctx, c, http.MethodGet, uri, opts...)
}

// PostJSON is SendJSON with the POST method and v as the JSON request body.
func PostJSON[T any](ctx context.Context, c *Client, uri string, v any, opts ...CallOption) (Result[T], error) {
	return SendJSON[T](ctx, c, http.MethodPost, uri, append([]CallOption{WithJSONBody(v)}, opts...)...)
}

func sendWith[T any](ctx context.Context, c *Client, handler Handler[T], method, uri string, o *callOptions) (Result[T], error) {
	if handler == nil {
		return Result[T]{}, errors.New(errors.ErrCodeInvalidInput, "response handler is nil")
	}
	resp, status, err := c.execute(ctx, method, uri, o)
	if err != nil {
		return Result[T]{}, err
	}
	if resp != nil {
		defer resp.Body.Close()
	}
	return materialize(c, handler, resp, status, o.onlyOnSuccess, method, uri)
}

// execute sends one request and classifies the outcome. On a non-nil
// response the caller owns resp.Body.
func (c *Client) execute(ctx context.Context, method, uri string, o *callOptions) (*http.Response, Status, error) {
	if o.err != nil {
		return nil, Status{}, o.err
	}
	if err := errors.ValidateMethod(method); err != nil {
		return nil, Status{}, err
	}
	target, err := c.Resolve(uri)
	if err != nil {
		return nil, Status{}, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), o.body)
	if err != nil {
		return nil, Status{}, errors.Wrap(errors.ErrCodeInvalidInput, err, "build %s %s", method, target)
	}
	for k, v := range c.headers {
		if err := errors.ValidateHeader(k, v); err != nil {
			return nil, Status{}, err
		}
		req.Header.Set(k, v)
	}
	for _, h := range o.headers {
		if err := errors.ValidateHeader(h.name, h.value); err != nil {
			return nil, Status{}, err
		}
		req.Header.Add(h.name, h.value)
	}

	logURI := target.Redacted()
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, target.Host, target.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		terr, ok := classify(err)
		if !ok {
			c.logger.Error("request failed with unexpected error", "method", method, "uri", logURI, "err", err)
			return nil, Status{}, err
		}
		hooks.OnError(ctx, method, target.Host, target.Path, terr)
		c.logger.Warn("request failed", "method", method, "uri", logURI, "code", errors.GetCode(terr), "err", err)
		return nil, transportStatus(terr), nil
	}
	if resp == nil {
		return nil, Status{}, errors.New(errors.ErrCodeInternal, "transport returned neither response nor error for %s %s", method, logURI)
	}
	if resp.Body == nil {
		resp.Body = http.NoBody
	}
	hooks.OnResponse(ctx, method, target.Host, target.Path, resp.StatusCode, time.Since(start))

	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return resp, successStatus(resp.StatusCode), nil
	}

	reason := statusText(resp)
	if resp.StatusCode != http.StatusInternalServerError {
		body, err := bufferBody(resp)
		if err != nil {
			c.logger.Debug("could not read error body", "uri", logURI, "err", err)
		} else if len(body) > 0 {
			reason = collapseNewlines(string(body))
		}
	}
	c.logger.Warn("request failed", "method", method, "uri", logURI, "status", resp.StatusCode, "reason", reason)
	return resp, failedStatus(resp.StatusCode, reason), nil
}

// classify maps transport errors to coded errors. ok is false for errors
// that did not come from the network and must reach the caller unchanged.
func classify(err error) (coded error, ok bool) {
	if errors.IsTransport(err) {
		return err, true
	}
	switch {
	case stderrors.Is(err, context.Canceled):
		return errors.Wrap(errors.ErrCodeCanceled, err, "request canceled"), true
	case stderrors.Is(err, context.DeadlineExceeded), isTimeout(err):
		return errors.Wrap(errors.ErrCodeTimeout, err, "request timed out"), true
	case isNetwork(err):
		return errors.Wrap(errors.ErrCodeNetwork, err, "request failed"), true
	}
	return nil, false
}

func isTimeout(err error) bool {
	var ne net.Error
	return stderrors.As(err, &ne) && ne.Timeout()
}

// isNetwork reports whether err was caused by the connection. *url.Error
// wraps every error http.Client returns and implements net.Error itself, so
// only its cause is inspected.
func isNetwork(err error) bool {
	var ue *url.Error
	if stderrors.As(err, &ue) {
		err = ue.Err
	}
	if err == nil {
		return false
	}

	var (
		ne       net.Error
		opErr    *net.OpError
		recErr   tls.RecordHeaderError
		alertErr tls.AlertError
		verErr   *tls.CertificateVerificationError
		authErr  x509.UnknownAuthorityError
		hostErr  x509.HostnameError
		certErr  x509.CertificateInvalidError
	)
	switch {
	case stderrors.As(err, &ne), stderrors.As(err, &opErr):
		return true
	case stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF):
		return true
	case stderrors.Is(err, syscall.ECONNREFUSED), stderrors.Is(err, syscall.ECONNRESET),
		stderrors.Is(err, syscall.ECONNABORTED), stderrors.Is(err, syscall.EPIPE):
		return true
	case stderrors.As(err, &recErr), stderrors.As(err, &alertErr), stderrors.As(err, &verErr),
		stderrors.As(err, &authErr), stderrors.As(err, &hostErr), stderrors.As(err, &certErr):
		return true
	}
	return false
}

// bufferBody reads the whole body and puts an in-memory copy back so a
// later handler can read it again.
func bufferBody(resp *http.Response) ([]byte, error) {
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, nil
	}
	data, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(data))
	return data, err
}

func statusText(resp *http.Response) string {
	if s := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode))); s != "" {
		return s
	}
	return http.StatusText(resp.StatusCode)
}

var newlineReplacer = strings.NewReplacer("\r\n", ". ", "\n", ". ", "\r", ". ")

// collapseNewlines turns a multi-line server message into one reason line.
func collapseNewlines(s string) string {
	return newlineReplacer.Replace(s)
}

func unmarshalBody(data []byte, v any) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	return json.Unmarshal(data, v)
}
