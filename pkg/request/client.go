package request

import (
	"maps"
	"net/http"
	"net/url"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/lighthttp/pkg/errors"
)

const defaultTimeout = 30 * time.Second

// Doer sends a single HTTP request. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// DoerFunc adapts a function to the Doer interface.
type DoerFunc func(*http.Request) (*http.Response, error)

// Do calls f(req).
func (f DoerFunc) Do(req *http.Request) (*http.Response, error) { return f(req) }

// Client holds what every request shares: the transport, an optional base
// address, default headers and the logger failures are reported to.
//
// A Client is safe for concurrent use if its Doer is.
type Client struct {
	http    Doer
	base    *url.URL
	headers map[string]string
	logger  *log.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithDoer replaces the default *http.Client.
func WithDoer(d Doer) Option {
	return func(c *Client) {
		if d != nil {
			c.http = d
		}
	}
}

// WithTimeout sets the timeout of the default *http.Client.
// It has no effect after WithDoer installed a custom transport.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if hc, ok := c.http.(*http.Client); ok {
			hc.Timeout = d
		}
	}
}

// WithDefaultHeaders sets headers applied to every request. h is copied.
// Per-request headers are added after these.
func WithDefaultHeaders(h map[string]string) Option {
	return func(c *Client) {
		c.headers = maps.Clone(h)
	}
}

// WithLogger sets the logger used for failure diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient creates a Client. baseURL may be empty, in which case every
// request URI must be absolute; otherwise it must be an absolute http(s) URL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	c := &Client{
		http:   &http.Client{Timeout: defaultTimeout},
		logger: log.Default(),
	}
	if baseURL != "" {
		if err := errors.ValidateURL(baseURL); err != nil {
			return nil, err
		}
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidURI, err, "invalid base URL %q", baseURL)
		}
		c.base = u
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns a copy of the configured base address, or nil.
func (c *Client) BaseURL() *url.URL {
	if c.base == nil {
		return nil
	}
	u := *c.base
	return &u
}

// Resolve returns the absolute URI a request for uri is sent to.
// See ResolveURI.
func (c *Client) Resolve(uri string) (*url.URL, error) {
	return ResolveURI(c.base, uri)
}

// Logger returns the client's logger.
func (c *Client) Logger() *log.Logger { return c.logger }
