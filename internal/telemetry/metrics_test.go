package telemetry

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestMetricsExposition(t *testing.T) {
	registry := NewRegistry()
	m := NewMetrics(registry)

	m.ObserveRequest("vehicleService", "ok", 120*time.Millisecond)
	m.CountCycle("vehicles", "ok")
	m.SetMarkers("vehicles", 3)
	m.CountAlert()

	rr := httptest.NewRecorder()
	Handler(registry).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}

	body := rr.Body.String()
	for _, want := range []string{
		`viewer_webservice_requests_total{endpoint="vehicleService",outcome="ok"} 1`,
		`viewer_poll_cycles_total{outcome="ok",poller="vehicles"} 1`,
		`viewer_markers_shown{layer="vehicles"} 3`,
		`viewer_alerts_total 1`,
		`go_goroutines`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q in metrics output", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveRequest("tripService", "error", time.Second)
	m.CountCycle("monitor", "error")
	m.SetMarkers("stops", 1)
	m.CountAlert()
}
