package request

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/matzehuels/lighthttp/pkg/errors"
)

func TestResolveURI(t *testing.T) {
	base, _ := url.Parse("https://api.example.com/v1/")

	tests := []struct {
		name    string
		base    *url.URL
		uri     string
		want    string
		wantErr bool
	}{
		{"relative path", base, "items/1", "https://api.example.com/v1/items/1", false},
		{"rooted path", base, "/health", "https://api.example.com/health", false},
		{"empty uri uses base", base, "", "https://api.example.com/v1/", false},
		{"query only", base, "?page=2", "https://api.example.com/v1/?page=2", false},
		{"absolute overrides base", base, "https://other.example.com/x", "https://other.example.com/x", false},
		{"dot segments", base, "../v2/items", "https://api.example.com/v2/items", false},
		{"no base absolute", nil, "http://localhost:8080/a?b=c", "http://localhost:8080/a?b=c", false},

		{"no base relative", nil, "items/1", "", true},
		{"no base empty", nil, "", "", true},
		{"no base missing host", nil, "mailto:a@example.com", "", true},
		{"unparsable", base, "%zz", "", true},
		{"no base ftp", nil, "ftp://example.com/file", "", true},
		{"absolute ftp over base", base, "ftp://example.com/file", "", true},
		{"uppercase scheme", nil, "HTTPS://api.example.com/x", "https://api.example.com/x", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolveURI(tt.base, tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ResolveURI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			}
			if err != nil {
				if !errors.Is(err, errors.ErrCodeInvalidURI) {
					t.Errorf("error code = %q, want INVALID_URI", errors.GetCode(err))
				}
				return
			}
			if got.String() != tt.want {
				t.Errorf("ResolveURI(%q) = %q, want %q", tt.uri, got, tt.want)
			}
		})
	}
}

func TestResolveURIDoesNotAliasBase(t *testing.T) {
	base, _ := url.Parse("https://api.example.com/v1/")
	got, _ := ResolveURI(base, "")
	got.Path = "/changed"
	if base.Path != "/v1/" {
		t.Errorf("base mutated to %q", base.Path)
	}
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name    string
		base    string
		wantErr bool
	}{
		{"no base", "", false},
		{"https base", "https://api.example.com/v1/", false},
		{"relative base", "/v1", true},
		{"unsupported scheme", "ftp://example.com", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.base)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewClient(%q) error = %v, wantErr %v", tt.base, err, tt.wantErr)
			}
			if err == nil && tt.base == "" && c.BaseURL() != nil {
				t.Error("BaseURL() should be nil without a base")
			}
		})
	}
}

func TestDefaultHeadersAreCopied(t *testing.T) {
	headers := map[string]string{"X-Client": "one"}
	var got string
	d := &stubDoer{resp: func(req *http.Request) *http.Response {
		got = req.Header.Get("X-Client")
		return respond(http.StatusOK, &trackedBody{})(req)
	}}
	c := newTestClient(t, "https://api.example.com", WithDoer(d), WithDefaultHeaders(headers))

	headers["X-Client"] = "two"
	if _, err := Send(context.Background(), c, http.MethodGet, "/items/1"); err != nil {
		t.Fatalf("Send() error: %v", err)
	}
	if got != "one" {
		t.Errorf("X-Client = %q, want the value at construction", got)
	}
}
