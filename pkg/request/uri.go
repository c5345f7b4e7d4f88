package request

import (
	"net/url"

	"github.com/matzehuels/lighthttp/pkg/errors"
)

// ResolveURI combines base and uri into the absolute URI a request is sent
// to. The result is also the cache key of cached requests.
//
//   - base set, uri empty: base itself
//   - base set, uri non-empty: uri resolved against base (RFC 3986)
//   - base nil: uri, which must be absolute (scheme and host)
//
// The result must use the http or https scheme.
//
// Resolution failures are INVALID_URI errors.
func ResolveURI(base *url.URL, uri string) (*url.URL, error) {
	if base != nil {
		if uri == "" {
			u := *base
			return &u, nil
		}
		ref, err := url.Parse(uri)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeInvalidURI, err, "cannot parse uri %q", uri)
		}
		return checkScheme(base.ResolveReference(ref))
	}

	if uri == "" {
		return nil, errors.New(errors.ErrCodeInvalidURI, "uri is required when the client has no base address")
	}
	u, err := url.Parse(uri)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidURI, err, "cannot parse uri %q", uri)
	}
	if !u.IsAbs() || u.Host == "" {
		return nil, errors.New(errors.ErrCodeInvalidURI, "uri %q is not absolute and the client has no base address", uri)
	}
	return checkScheme(u)
}

func checkScheme(u *url.URL) (*url.URL, error) {
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, errors.New(errors.ErrCodeInvalidURI, "uri %q must use http or https", u.Redacted())
	}
	return u, nil
}
