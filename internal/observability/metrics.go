package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles the service's prometheus collectors.
type Metrics struct {
	Registry *prometheus.Registry

	requestCount      *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	errorCount        *prometheus.CounterVec
	cacheHits         *prometheus.CounterVec
	cacheMisses       *prometheus.CounterVec
	cacheInvalidation *prometheus.CounterVec
	eventsPublished   *prometheus.CounterVec
	eventsDropped     prometheus.Counter
}

// NewMetrics initializes and registers all collectors on a private registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		Registry: registry,
		requestCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_http_requests_total",
			Help: "HTTP requests by path, method and status.",
		}, []string{"path", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "helpdesk_http_request_duration_seconds",
			Help:    "HTTP request latency.",
			Buckets: prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errorCount: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_errors_total",
			Help: "Errors surfaced to callers by code.",
		}, []string{"path", "method", "code"}),
		cacheHits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_cache_hits_total",
			Help: "Cache hits by key prefix.",
		}, []string{"prefix"}),
		cacheMisses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_cache_misses_total",
			Help: "Cache misses by key prefix.",
		}, []string{"prefix"}),
		cacheInvalidation: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_cache_invalidations_total",
			Help: "Prefix invalidations by key prefix.",
		}, []string{"prefix"}),
		eventsPublished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "helpdesk_events_published_total",
			Help: "Broadcast events by type.",
		}, []string{"type"}),
		eventsDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "helpdesk_events_dropped_total",
			Help: "Events dropped because a subscriber buffer was full.",
		}),
	}
	registry.MustRegister(
		m.requestCount,
		m.requestDuration,
		m.errorCount,
		m.cacheHits,
		m.cacheMisses,
		m.cacheInvalidation,
		m.eventsPublished,
		m.eventsDropped,
	)
	return m
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestCount.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	m.requestDuration.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errorCount.WithLabelValues(path, method, code).Inc()
}

// RecordCacheHit counts a cache hit for a key prefix.
func (m *Metrics) RecordCacheHit(prefix string) {
	if m == nil {
		return
	}
	m.cacheHits.WithLabelValues(prefix).Inc()
}

// RecordCacheMiss counts a cache miss for a key prefix.
func (m *Metrics) RecordCacheMiss(prefix string) {
	if m == nil {
		return
	}
	m.cacheMisses.WithLabelValues(prefix).Inc()
}

// RecordCacheInvalidation counts a prefix invalidation.
func (m *Metrics) RecordCacheInvalidation(prefix string) {
	if m == nil {
		return
	}
	m.cacheInvalidation.WithLabelValues(prefix).Inc()
}

// RecordEventPublished counts a published broadcast event.
func (m *Metrics) RecordEventPublished(eventType string) {
	if m == nil {
		return
	}
	m.eventsPublished.WithLabelValues(eventType).Inc()
}

// RecordEventDropped counts an event dropped on a full subscriber buffer.
func (m *Metrics) RecordEventDropped() {
	if m == nil {
		return
	}
	m.eventsDropped.Inc()
}
