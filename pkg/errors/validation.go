package errors

import (
	"strings"
	"unicode"
)

// ValidateMethod validates an HTTP method name.
// A method must be a non-empty RFC 9110 token (no spaces, separators or
// control characters).
func ValidateMethod(method string) error {
	if method == "" {
		return New(ErrCodeInvalidMethod, "method cannot be empty")
	}
	for _, r := range method {
		if !isTokenChar(r) {
			return New(ErrCodeInvalidMethod, "method %q contains invalid character %q", method, r)
		}
	}
	return nil
}

// ValidateHeader validates a header name and value.
//
// Validation rules:
//   - Name must be a non-empty token
//   - Value must not contain CR, LF or null bytes (header injection)
func ValidateHeader(name, value string) error {
	if name == "" {
		return New(ErrCodeInvalidHeader, "header name cannot be empty")
	}
	for _, r := range name {
		if !isTokenChar(r) {
			return New(ErrCodeInvalidHeader, "header name %q contains invalid character %q", name, r)
		}
	}
	if strings.ContainsAny(value, "\r\n\x00") {
		return New(ErrCodeInvalidHeader, "header %q value contains line breaks or null bytes", name)
	}
	return nil
}

// ValidateURL validates a URL string for safety.
// It ensures the URL has a safe scheme (http or https).
func ValidateURL(rawURL string) error {
	if rawURL == "" {
		return New(ErrCodeInvalidURI, "URL cannot be empty")
	}

	for _, r := range rawURL {
		if unicode.IsControl(r) {
			return New(ErrCodeInvalidURI, "URL contains control characters")
		}
	}

	// Simple scheme validation without full URL parsing
	lower := strings.ToLower(rawURL)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		return New(ErrCodeInvalidURI, "URL must use http or https scheme")
	}

	return nil
}

// tchar per RFC 9110 section 5.6.2.
func isTokenChar(r rune) bool {
	if r > unicode.MaxASCII {
		return false
	}
	if 'a' <= r && r <= 'z' || 'A' <= r && r <= 'Z' || '0' <= r && r <= '9' {
		return true
	}
	return strings.ContainsRune("!#$%&'*+-.^_`|~", r)
}
