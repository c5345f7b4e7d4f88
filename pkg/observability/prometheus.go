package observability

import (
	"context"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/matzehuels/lighthttp/pkg/errors"
)

// Prometheus implements HTTPHooks and CacheHooks with Prometheus collectors.
// It is safe for concurrent use.
type Prometheus struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	errorsTotal     *prometheus.CounterVec
	cacheEvents     *prometheus.CounterVec
}

var (
	_ HTTPHooks  = (*Prometheus)(nil)
	_ CacheHooks = (*Prometheus)(nil)
)

// NewPrometheus registers the lighthttp collectors on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Prometheus{
		requestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lighthttp_requests_total",
				Help: "Total number of HTTP responses received, by status code",
			},
			[]string{"method", "host", "status_code"},
		),
		requestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "lighthttp_request_duration_seconds",
				Help:    "Time until response headers were received",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "host"},
		),
		errorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lighthttp_transport_errors_total",
				Help: "Total number of requests that failed without a response",
			},
			[]string{"method", "host", "code"},
		),
		cacheEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "lighthttp_cache_events_total",
				Help: "Cache lookups and writes, by backend and event",
			},
			[]string{"backend", "event"},
		),
	}
}

func (p *Prometheus) OnRequest(context.Context, string, string, string) {}

func (p *Prometheus) OnResponse(_ context.Context, method, host, _ string, statusCode int, d time.Duration) {
	p.requestsTotal.WithLabelValues(method, host, strconv.Itoa(statusCode)).Inc()
	p.requestDuration.WithLabelValues(method, host).Observe(d.Seconds())
}

func (p *Prometheus) OnError(_ context.Context, method, host, _ string, err error) {
	code := string(errors.GetCode(err))
	if code == "" {
		code = "unknown"
	}
	p.errorsTotal.WithLabelValues(method, host, code).Inc()
}

func (p *Prometheus) OnCacheHit(_ context.Context, backend string) {
	p.cacheEvents.WithLabelValues(backend, "hit").Inc()
}

func (p *Prometheus) OnCacheMiss(_ context.Context, backend string) {
	p.cacheEvents.WithLabelValues(backend, "miss").Inc()
}

func (p *Prometheus) OnCacheSet(_ context.Context, backend string) {
	p.cacheEvents.WithLabelValues(backend, "set").Inc()
}
