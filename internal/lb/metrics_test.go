package lb

import (
	"testing"
	"time"
)

func TestMetricsCollectorsRegistered(t *testing.T) {
	m := NewMetrics()
	m.SetActiveConnections("10.0.0.1:80", 3)
	m.SetAvailable("10.0.0.1:80", true)
	m.ObserveOutcome("10.0.0.1:80", "ok")
	m.ObserveLatency("10.0.0.1:80", 5*time.Millisecond)
	m.ObserveProbe("10.0.0.1:80", "success")

	families, err := m.Registry().Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"lbproxy_backend_active_connections",
		"lbproxy_backend_available",
		"lbproxy_requests_total",
		"lbproxy_request_duration_seconds",
		"lbproxy_health_probes_total",
	} {
		if !names[want] {
			t.Errorf("expected metric family %q to be registered", want)
		}
	}
}

func TestNilMetricsIsNoOp(t *testing.T) {
	var m *Metrics
	m.SetActiveConnections("x", 1)
	m.SetAvailable("x", true)
	m.ObserveOutcome("x", "ok")
	m.ObserveLatency("x", time.Second)
	m.ObserveProbe("x", "success")
	if m.Registry() != nil {
		t.Error("expected nil registry from nil *Metrics")
	}
}
