package server

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the server's Prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal     *prometheus.CounterVec
	RequestDurationMs *prometheus.HistogramVec
	PageCacheHits     prometheus.Counter
	PageCacheMisses   prometheus.Counter
	LookupFailures    prometheus.Counter
	RateLimited       prometheus.Counter
}

// NewMetrics creates and registers the collectors.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "crimemap_requests_total",
			Help: "Total HTTP requests by route and status",
		}, []string{"route", "status"}),
		RequestDurationMs: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "crimemap_request_duration_ms",
			Help:    "Request duration in milliseconds",
			Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
		}, []string{"route"}),
		PageCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crimemap_page_cache_hits_total",
			Help: "Total rendered page cache hits",
		}),
		PageCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crimemap_page_cache_misses_total",
			Help: "Total rendered page cache misses",
		}),
		LookupFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crimemap_lookup_failures_total",
			Help: "Total selections naming a department absent from the boundary index",
		}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "crimemap_rate_limited_total",
			Help: "Total requests rejected by the rate limiter",
		}),
	}

	m.registry.MustRegister(
		m.RequestsTotal,
		m.RequestDurationMs,
		m.PageCacheHits,
		m.PageCacheMisses,
		m.LookupFailures,
		m.RateLimited,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
