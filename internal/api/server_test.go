package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/uitrail/uitrail/internal/collector"
	"github.com/uitrail/uitrail/internal/daemon"
)

func testServer(t *testing.T, metrics bool) *httptest.Server {
	t.Helper()
	orch := collector.NewOrchestrator(
		daemon.DefaultConfig(), nil,
		collector.NewProgressLogger(&bytes.Buffer{}), nil,
	)
	srv := NewServer(orch, "test")
	if metrics {
		srv.EnableMetrics()
	}
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthEndpoint(t *testing.T) {
	ts := testServer(t, false)

	resp, err := http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}

	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want ok", body["status"])
	}
}

func TestVersionEndpoint(t *testing.T) {
	ts := testServer(t, false)

	resp, err := http.Get(ts.URL + "/api/version")
	if err != nil {
		t.Fatalf("GET /api/version: %v", err)
	}
	defer resp.Body.Close()

	var body map[string]string
	json.NewDecoder(resp.Body).Decode(&body)
	if body["version"] != "test" {
		t.Errorf("version = %q, want test", body["version"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	ts := testServer(t, false)

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("GET /api/status: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var st StatusResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Counters.Committed != 0 || st.QueueDepth != 0 {
		t.Errorf("fresh run must report zero progress: %+v", st)
	}
}

func TestMetricsEndpointToggle(t *testing.T) {
	withMetrics := testServer(t, true)
	resp, err := http.Get(withMetrics.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("enabled metrics status = %d, want 200", resp.StatusCode)
	}

	without := testServer(t, false)
	resp, err = http.Get(without.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("disabled metrics status = %d, want 404", resp.StatusCode)
	}
}
