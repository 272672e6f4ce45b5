// Package metrics exposes the relay's Prometheus instrumentation:
// request outcomes, streaming volume, session lifecycle, and catalog
// refresh health.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector owns every metric the relay registers. All record methods
// are safe for concurrent use.
type Collector struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	streamChunks    prometheus.Counter

	sessionsActive  prometheus.Gauge
	sessionsPeak    prometheus.Gauge
	sessionMessages prometheus.Counter

	catalogRefreshes *prometheus.CounterVec
	estimatedCost    *prometheus.CounterVec
}

// NewCollector builds the collector and registers every metric on a
// fresh registry.
func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = "relay"
	}

	registry := prometheus.NewRegistry()

	c := &Collector{
		registry: registry,

		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "requests_total",
			Help:      "Completion requests by surface and outcome.",
		}, []string{"surface", "outcome"}),

		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "request_duration_seconds",
			Help:      "Completion request duration by surface.",
			// LLM latencies run from sub-second to tens of seconds.
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"surface"}),

		streamChunks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_chunks_total",
			Help:      "Stream frames forwarded to callers.",
		}),

		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Currently active duplex sessions.",
		}),

		sessionsPeak: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_peak",
			Help:      "Peak concurrent duplex sessions.",
		}),

		sessionMessages: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "session_messages_total",
			Help:      "Inbound duplex wire messages.",
		}),

		catalogRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "catalog_refreshes_total",
			Help:      "Model catalog refresh attempts by outcome.",
		}, []string{"outcome"}),

		estimatedCost: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "estimated_cost_usd_total",
			Help:      "Estimated cumulative cost by model. Heuristic, not billing.",
		}, []string{"model"}),
	}

	registry.MustRegister(
		c.requestsTotal,
		c.requestDuration,
		c.streamChunks,
		c.sessionsActive,
		c.sessionsPeak,
		c.sessionMessages,
		c.catalogRefreshes,
		c.estimatedCost,
	)

	return c
}

// RecordRequest records one completed request. Surface is "http" or
// "ws"; outcome is the error taxonomy type or "success".
func (c *Collector) RecordRequest(surface, outcome string, duration time.Duration) {
	c.requestsTotal.WithLabelValues(surface, outcome).Inc()
	c.requestDuration.WithLabelValues(surface).Observe(duration.Seconds())
}

// RecordStreamChunk counts one forwarded stream frame.
func (c *Collector) RecordStreamChunk() {
	c.streamChunks.Inc()
}

// UpdateSessions mirrors the session manager's active and peak counts.
func (c *Collector) UpdateSessions(active, peak int64) {
	c.sessionsActive.Set(float64(active))
	c.sessionsPeak.Set(float64(peak))
}

// AddSessionMessages adds to the inbound duplex message counter. The
// server mirrors the session manager's counter periodically, so the
// increment is a delta, not always one.
func (c *Collector) AddSessionMessages(n int64) {
	if n > 0 {
		c.sessionMessages.Add(float64(n))
	}
}

// RecordCatalogRefresh records one catalog refresh attempt.
func (c *Collector) RecordCatalogRefresh(err error) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	c.catalogRefreshes.WithLabelValues(outcome).Inc()
}

// RecordCost accumulates estimated request cost for the model.
func (c *Collector) RecordCost(model string, cost float64) {
	if cost > 0 {
		c.estimatedCost.WithLabelValues(model).Add(cost)
	}
}

// Registry returns the underlying registry for the /metrics handler.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}
