package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"vessel-proximity/internal/metrics"
	"vessel-proximity/internal/model"
	"vessel-proximity/pkg/logger"
)

type staticStatus struct {
	state   model.CollectorState
	tracked int
}

func (s staticStatus) Status() (model.CollectorState, int) {
	return s.state, s.tracked
}

func newTestServer(status StatusProvider) (*httptest.Server, *metrics.Metrics) {
	m := metrics.NewMetrics()
	mux := http.NewServeMux()
	NewServer(logger.NewNop(), m, status).SetupRoutes(mux)
	return httptest.NewServer(mux), m
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name       string
		status     staticStatus
		wantStatus string
	}{
		{"collecting", staticStatus{model.StateCollecting, 3}, "healthy"},
		{"failed", staticStatus{model.StateFailed, 1}, "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, _ := newTestServer(tt.status)
			defer srv.Close()

			resp, err := http.Get(srv.URL + "/health")
			if err != nil {
				t.Fatalf("get: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				t.Fatalf("expected 200, got %d", resp.StatusCode)
			}

			var body map[string]interface{}
			if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if body["status"] != tt.wantStatus {
				t.Fatalf("expected status %q, got %v", tt.wantStatus, body["status"])
			}
			if body["collector_state"] != string(tt.status.state) {
				t.Fatalf("expected state %s, got %v", tt.status.state, body["collector_state"])
			}
			if body["tracked_vessels"] != float64(tt.status.tracked) {
				t.Fatalf("expected %d tracked vessels, got %v", tt.status.tracked, body["tracked_vessels"])
			}
		})
	}
}

func TestHealthRejectsPost(t *testing.T) {
	srv, _ := newTestServer(staticStatus{model.StateIdle, 0})
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/health", "application/json", nil)
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", resp.StatusCode)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, m := newTestServer(staticStatus{model.StateIdle, 0})
	defer srv.Close()

	m.IncrementMessages(metrics.OutcomeAccepted)

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `vessel_proximity_messages_total{outcome="accepted"} 1`) {
		t.Fatalf("expected message counter in exposition, got:\n%s", data)
	}
}
