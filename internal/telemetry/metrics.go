package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects viewer-side counters. A nil *Metrics is valid and
// records nothing, which keeps tests free of registry plumbing.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestSeconds  *prometheus.HistogramVec
	PollCyclesTotal *prometheus.CounterVec
	MarkersShown    *prometheus.GaugeVec
	AlertsTotal     prometheus.Counter
}

// NewMetrics creates the viewer metrics and registers them on registry
func NewMetrics(registry *prometheus.Registry) *Metrics {
	metrics := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_webservice_requests_total",
				Help: "Requests to the transit web service by endpoint and outcome",
			},
			[]string{"endpoint", "outcome"},
		),
		RequestSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "viewer_webservice_request_seconds",
				Help:    "Time from GET to decoded response per endpoint",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		PollCyclesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "viewer_poll_cycles_total",
				Help: "Completed poll cycles by poller and outcome",
			},
			[]string{"poller", "outcome"},
		),
		MarkersShown: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "viewer_markers_shown",
				Help: "Markers currently placed on the map per layer",
			},
			[]string{"layer"},
		),
		AlertsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "viewer_alerts_total",
			Help: "Blocking alerts raised to the user",
		}),
	}

	registry.MustRegister(
		metrics.RequestsTotal,
		metrics.RequestSeconds,
		metrics.PollCyclesTotal,
		metrics.MarkersShown,
		metrics.AlertsTotal,
	)

	return metrics
}

// NewRegistry returns a registry with Go runtime and process collectors
func NewRegistry() *prometheus.Registry {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return registry
}

// Handler serves the registry in the Prometheus exposition format
func Handler(registry *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// ObserveRequest records one web service request
func (m *Metrics) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	m.RequestSeconds.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// CountCycle records the outcome of one poll cycle
func (m *Metrics) CountCycle(poller, outcome string) {
	if m == nil {
		return
	}
	m.PollCyclesTotal.WithLabelValues(poller, outcome).Inc()
}

// SetMarkers records how many markers a layer currently shows
func (m *Metrics) SetMarkers(layer string, n int) {
	if m == nil {
		return
	}
	m.MarkersShown.WithLabelValues(layer).Set(float64(n))
}

// CountAlert records one user-facing alert
func (m *Metrics) CountAlert() {
	if m == nil {
		return
	}
	m.AlertsTotal.Inc()
}
