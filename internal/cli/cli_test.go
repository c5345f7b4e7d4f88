package cli

import (
	"bytes"
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/matzehuels/lighthttp/pkg/errors"
	"github.com/matzehuels/lighthttp/pkg/observability"
)

type testServer struct {
	*httptest.Server
	hits      atomic.Int32
	lastID    atomic.Value
	lastBody  atomic.Value
	lastAgent atomic.Value
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	s := &testServer{}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.hits.Add(1)
			s.lastID.Store(r.Header.Get(requestIDHeader))
			s.lastAgent.Store(r.Header.Get("X-Client"))
			next.ServeHTTP(w, r)
		})
	})
	r.Get("/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"id":"`+chi.URLParam(r, "id")+`","tags":["a","b"]}`)
	})
	r.Post("/items", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		s.lastBody.Store(string(body))
		w.WriteHeader(http.StatusCreated)
	})
	r.Get("/missing", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		io.WriteString(w, "no such thing")
	})
	s.Server = httptest.NewServer(r)
	t.Cleanup(s.Close)
	return s
}

// execute runs the CLI with args and returns what it printed.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("LIGHTHTTP_BASE_URL", "")

	c := New(io.Discard, LogInfo)
	var out bytes.Buffer
	c.Out = &out

	root := c.RootCommand()
	root.SetArgs(args)
	root.SetOut(&out)
	root.SetErr(&out)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestSendCommand(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, "send", "--base", srv.URL, "items/7")
	if err != nil {
		t.Fatalf("send error: %v", err)
	}
	if !strings.Contains(out, "200") || !strings.Contains(out, "Success") {
		t.Errorf("output missing status line:\n%s", out)
	}
	if !strings.Contains(out, `{"id":"7","tags":["a","b"]}`) {
		t.Errorf("output missing body:\n%s", out)
	}

	id, _ := srv.lastID.Load().(string)
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("%s = %q, want a UUID", requestIDHeader, id)
	}
}

func TestSendCommandJSON(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, "send", "--json", srv.URL+"/items/1")
	if err != nil {
		t.Fatalf("send error: %v", err)
	}
	if !strings.Contains(out, "\"tags\": [\n    \"a\",") {
		t.Errorf("body should be indented:\n%s", out)
	}
}

func TestSendCommandFailure(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, "send", srv.URL+"/missing")
	if !stderrors.Is(err, ErrRequestFailed) {
		t.Fatalf("send error = %v, want ErrRequestFailed", err)
	}
	if !strings.Contains(out, "404") || !strings.Contains(out, "no such thing") {
		t.Errorf("output missing failure reason:\n%s", out)
	}
	if strings.Count(out, "no such thing") != 1 {
		t.Errorf("body should not be printed without --always-parse:\n%s", out)
	}

	out, _ = execute(t, "send", "--always-parse", srv.URL+"/missing")
	if strings.Count(out, "no such thing") != 2 {
		t.Errorf("--always-parse should print the body:\n%s", out)
	}
}

func TestSendCommandHeadersAndBody(t *testing.T) {
	srv := newTestServer(t)
	path := filepath.Join(t.TempDir(), "item.json")
	if err := os.WriteFile(path, []byte(`{"name":"x"}`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "send", "-X", "POST", "-H", "X-Client: tests", "-d", "@"+path, srv.URL+"/items")
	if err != nil {
		t.Fatalf("send error: %v", err)
	}
	if got, _ := srv.lastBody.Load().(string); got != `{"name":"x"}` {
		t.Errorf("body = %q", got)
	}
	if got, _ := srv.lastAgent.Load().(string); got != "tests" {
		t.Errorf("X-Client = %q", got)
	}
}

func TestSendCommandMemoryCache(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, "send", "--cache", "memory", "--repeat", "3", srv.URL+"/items/1")
	if err != nil {
		t.Fatalf("send error: %v", err)
	}
	if n := srv.hits.Load(); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
	if strings.Count(out, iconCached) != 2 {
		t.Errorf("expected two cached results:\n%s", out)
	}
}

func TestSendCommandFileCache(t *testing.T) {
	srv := newTestServer(t)
	t.Setenv("XDG_CACHE_HOME", t.TempDir())

	for i := 0; i < 2; i++ {
		if _, err := execute(t, "send", "--cache", "file", "--ttl", "1m", srv.URL+"/items/1"); err != nil {
			t.Fatalf("send %d error: %v", i, err)
		}
	}
	if n := srv.hits.Load(); n != 1 {
		t.Errorf("server hit %d times across processes, want 1", n)
	}

	if _, err := execute(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear error: %v", err)
	}
	if _, err := execute(t, "send", "--cache", "file", srv.URL+"/items/1"); err != nil {
		t.Fatal(err)
	}
	if n := srv.hits.Load(); n != 2 {
		t.Errorf("server hit %d times after clear, want 2", n)
	}
}

func TestSendCommandUnknownBackend(t *testing.T) {
	_, err := execute(t, "send", "--cache", "memcached", "https://example.com")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("error = %v, want INVALID_INPUT", err)
	}
}

func TestSendCommandConfigFile(t *testing.T) {
	srv := newTestServer(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	content := "base_url = \"" + srv.URL + "/\"\n[headers]\nX-Client = \"from-config\"\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := execute(t, "--config", path, "send", "items/3"); err != nil {
		t.Fatalf("send error: %v", err)
	}
	if got, _ := srv.lastAgent.Load().(string); got != "from-config" {
		t.Errorf("X-Client = %q, want header from config", got)
	}
}

func TestStatusCommand(t *testing.T) {
	srv := newTestServer(t)

	out, err := execute(t, "status", srv.URL+"/items/1")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	if strings.Contains(out, `"tags"`) {
		t.Errorf("status should not print the body:\n%s", out)
	}

	if _, err := execute(t, "status", srv.URL+"/missing"); !stderrors.Is(err, ErrRequestFailed) {
		t.Errorf("status error = %v, want ErrRequestFailed", err)
	}
}

func TestMetricsFlag(t *testing.T) {
	t.Cleanup(observability.Reset)
	srv := newTestServer(t)

	out, err := execute(t, "--metrics", "send", "--cache", "memory", "--repeat", "2", srv.URL+"/items/1")
	if err != nil {
		t.Fatalf("send error: %v", err)
	}
	for _, want := range []string{"lighthttp_requests_total", "lighthttp_cache_events_total", "event=hit"} {
		if !strings.Contains(out, want) {
			t.Errorf("metrics output missing %q:\n%s", want, out)
		}
	}
}

func TestParseHeader(t *testing.T) {
	tests := []struct {
		in        string
		wantName  string
		wantValue string
		wantErr   bool
	}{
		{"Accept: application/json", "Accept", "application/json", false},
		{"X-Empty:", "X-Empty", "", false},
		{"X-Time: 12:30", "X-Time", "12:30", false},
		{"no colon", "", "", true},
		{"Bad Name: x", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			name, value, err := parseHeader(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseHeader(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if name != tt.wantName || value != tt.wantValue {
				t.Errorf("parseHeader(%q) = %q, %q", tt.in, name, value)
			}
		})
	}
}

func TestCachePathCommand(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)

	out, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := strings.TrimSpace(out), filepath.Join(dir, appName); got != want {
		t.Errorf("cache path = %q, want %q", got, want)
	}
}
