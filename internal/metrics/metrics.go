// Package metrics exposes Prometheus counters and gauges for channel streams.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service's collectors on a private registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry           *prometheus.Registry
	requestsTotal      prometheus.Counter
	errorsTotal        prometheus.Counter
	streamsStarted     prometheus.Counter
	streamsEnded       *prometheus.CounterVec
	activeStreams      prometheus.Gauge
	stepsTotal         *prometheus.CounterVec
	skipsTotal         *prometheus.CounterVec
	bytesStreamed      prometheus.Counter
	guideFetchDuration *prometheus.HistogramVec
}

// New creates and registers the collectors
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		requestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epgcast_http_requests_total",
			Help: "Total number of HTTP requests received",
		}),
		errorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epgcast_http_errors_total",
			Help: "Total number of HTTP responses with error status (4xx or 5xx)",
		}),
		streamsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epgcast_streams_started_total",
			Help: "Total number of channel streams started",
		}),
		streamsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epgcast_streams_ended_total",
			Help: "Total number of channel streams ended, by how they ended",
		}, []string{"reason"}),
		activeStreams: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "epgcast_active_streams",
			Help: "Number of channel streams currently writing to a client",
		}),
		stepsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epgcast_steps_total",
			Help: "Timeline steps played, by kind and outcome",
		}, []string{"kind", "outcome"}),
		skipsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "epgcast_step_skips_total",
			Help: "Programmes skipped before streaming, by reason",
		}, []string{"reason"}),
		bytesStreamed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "epgcast_bytes_streamed_total",
			Help: "Bytes written to stream clients",
		}),
		guideFetchDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "epgcast_guide_fetch_duration_seconds",
			Help:    "Time taken to download and parse the guide",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"result"}),
	}

	registry.MustRegister(
		m.requestsTotal,
		m.errorsTotal,
		m.streamsStarted,
		m.streamsEnded,
		m.activeStreams,
		m.stepsTotal,
		m.skipsTotal,
		m.bytesStreamed,
		m.guideFetchDuration,
	)
	return m
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	if m == nil {
		return
	}
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	if m == nil {
		return
	}
	m.errorsTotal.Inc()
}

// StreamStarted counts a new stream and raises the active gauge
func (m *Metrics) StreamStarted() {
	if m == nil {
		return
	}
	m.streamsStarted.Inc()
	m.activeStreams.Inc()
}

// StreamEnded counts a finished stream and lowers the active gauge
func (m *Metrics) StreamEnded(reason string) {
	if m == nil {
		return
	}
	m.streamsEnded.WithLabelValues(reason).Inc()
	m.activeStreams.Dec()
}

// ObserveStep counts one played step
func (m *Metrics) ObserveStep(kind, outcome string, bytes int64) {
	if m == nil {
		return
	}
	m.stepsTotal.WithLabelValues(kind, outcome).Inc()
	m.bytesStreamed.Add(float64(bytes))
}

// IncSkips counts a programme skipped before streaming
func (m *Metrics) IncSkips(reason string) {
	if m == nil {
		return
	}
	m.skipsTotal.WithLabelValues(reason).Inc()
}

// ObserveGuideFetch records how long a guide fetch took
func (m *Metrics) ObserveGuideFetch(ok bool, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "error"
	}
	m.guideFetchDuration.WithLabelValues(result).Observe(d.Seconds())
}

// Handler returns an http.Handler that serves Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
