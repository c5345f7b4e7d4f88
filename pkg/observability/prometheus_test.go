package observability

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/lighthttp/pkg/errors"
)

func TestPrometheusHTTPHooks(t *testing.T) {
	p := NewPrometheus(prometheus.NewRegistry())
	ctx := context.Background()

	p.OnRequest(ctx, "GET", "api.example.com", "/items")
	p.OnResponse(ctx, "GET", "api.example.com", "/items", 200, 15*time.Millisecond)
	p.OnResponse(ctx, "GET", "api.example.com", "/items", 200, 25*time.Millisecond)
	p.OnResponse(ctx, "GET", "api.example.com", "/items", 404, time.Millisecond)

	if got := testutil.ToFloat64(p.requestsTotal.WithLabelValues("GET", "api.example.com", "200")); got != 2 {
		t.Errorf("requests{200} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.requestsTotal.WithLabelValues("GET", "api.example.com", "404")); got != 1 {
		t.Errorf("requests{404} = %v, want 1", got)
	}
	if got := testutil.CollectAndCount(p.requestDuration); got != 1 {
		t.Errorf("duration series = %d, want 1", got)
	}
}

func TestPrometheusErrorCodes(t *testing.T) {
	p := NewPrometheus(prometheus.NewRegistry())
	ctx := context.Background()

	p.OnError(ctx, "GET", "h", "/", errors.New(errors.ErrCodeTimeout, "timed out"))
	p.OnError(ctx, "GET", "h", "/", stderrors.New("plain"))

	if got := testutil.ToFloat64(p.errorsTotal.WithLabelValues("GET", "h", "TIMEOUT")); got != 1 {
		t.Errorf("errors{TIMEOUT} = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.errorsTotal.WithLabelValues("GET", "h", "unknown")); got != 1 {
		t.Errorf("errors{unknown} = %v, want 1", got)
	}
}

func TestPrometheusCacheHooks(t *testing.T) {
	p := NewPrometheus(prometheus.NewRegistry())
	ctx := context.Background()

	p.OnCacheMiss(ctx, "memory")
	p.OnCacheSet(ctx, "memory")
	p.OnCacheHit(ctx, "memory")
	p.OnCacheHit(ctx, "memory")

	tests := []struct {
		event string
		want  float64
	}{
		{"hit", 2},
		{"miss", 1},
		{"set", 1},
	}
	for _, tt := range tests {
		t.Run(tt.event, func(t *testing.T) {
			if got := testutil.ToFloat64(p.cacheEvents.WithLabelValues("memory", tt.event)); got != tt.want {
				t.Errorf("cache{%s} = %v, want %v", tt.event, got, tt.want)
			}
		})
	}
}

func TestNewPrometheusDuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheus(reg)

	defer func() {
		if recover() == nil {
			t.Error("registering twice on one registry should panic")
		}
	}()
	NewPrometheus(reg)
}
