package lb

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the Prometheus series the per-connection handler,
// health supervisor, and controller report against. It is built on a private
// registry (not prometheus.DefaultRegisterer) so that more than one
// Controller can exist in the same process, e.g. in tests, without
// colliding on metric registration.
type Metrics struct {
	registry *prometheus.Registry

	activeConnections *prometheus.GaugeVec
	backendAvailable  *prometheus.GaugeVec
	requestsTotal     *prometheus.CounterVec
	requestDuration   *prometheus.HistogramVec
	healthProbes      *prometheus.CounterVec
}

// NewMetrics constructs and registers the collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	const ns = "lbproxy"

	m := &Metrics{
		registry: reg,
		activeConnections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "backend_active_connections",
			Help:      "Current in-flight connections to a backend.",
		}, []string{"backend"}),
		backendAvailable: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "backend_available",
			Help:      "1 if the backend is currently available, else 0.",
		}, []string{"backend"}),
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "requests_total",
			Help:      "Count of proxied requests by backend and outcome.",
		}, []string{"backend", "outcome"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "request_duration_seconds",
			Help:      "Time to relay one request/response pair.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"backend"}),
		healthProbes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "health_probes_total",
			Help:      "Count of health probes by backend and result.",
		}, []string{"backend", "result"}),
	}

	reg.MustRegister(m.activeConnections, m.backendAvailable, m.requestsTotal, m.requestDuration, m.healthProbes)
	return m
}

// Registry exposes the private registry for a promhttp.HandlerFor call.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// SetActiveConnections updates the active-connection gauge for a backend.
// Safe to call on a nil *Metrics (a no-op), so handlers don't need a guard.
func (m *Metrics) SetActiveConnections(backend string, n int64) {
	if m == nil {
		return
	}
	m.activeConnections.WithLabelValues(backend).Set(float64(n))
}

// SetAvailable updates the availability gauge for a backend.
func (m *Metrics) SetAvailable(backend string, available bool) {
	if m == nil {
		return
	}
	v := 0.0
	if available {
		v = 1.0
	}
	m.backendAvailable.WithLabelValues(backend).Set(v)
}

// ObserveOutcome increments the request counter for a backend/outcome pair.
func (m *Metrics) ObserveOutcome(backend, outcome string) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(backend, outcome).Inc()
}

// ObserveLatency records one request's duration.
func (m *Metrics) ObserveLatency(backend string, d time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(backend).Observe(d.Seconds())
}

// ObserveProbe increments the health-probe counter for a backend/result pair.
func (m *Metrics) ObserveProbe(backend, result string) {
	if m == nil {
		return
	}
	m.healthProbes.WithLabelValues(backend, result).Inc()
}
