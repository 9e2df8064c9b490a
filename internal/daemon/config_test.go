package daemon

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Collect.Workers != 5 {
		t.Errorf("Collect.Workers = %d, want %d", cfg.Collect.Workers, 5)
	}
	if cfg.Collect.MaxSteps != 20 {
		t.Errorf("Collect.MaxSteps = %d, want %d", cfg.Collect.MaxSteps, 20)
	}
	if cfg.Endpoints.BasePort != 8080 {
		t.Errorf("Endpoints.BasePort = %d, want %d", cfg.Endpoints.BasePort, 8080)
	}
	if cfg.API.Port != 7633 {
		t.Errorf("API.Port = %d, want %d", cfg.API.Port, 7633)
	}
	if cfg.Containers.NamePrefix != "osworld-" {
		t.Errorf("Containers.NamePrefix = %q, want %q", cfg.Containers.NamePrefix, "osworld-")
	}
}

func TestEndpointURLs(t *testing.T) {
	e := EndpointsConfig{Host: "127.0.0.1", BasePort: 8080, PortStride: 10, InspectOffset: 42}

	tests := []struct {
		slot           int
		wantAutomation string
		wantInspection string
	}{
		{0, "http://127.0.0.1:8080", "http://127.0.0.1:8122"},
		{1, "http://127.0.0.1:8090", "http://127.0.0.1:8132"},
		{4, "http://127.0.0.1:8120", "http://127.0.0.1:8162"},
	}

	for _, tt := range tests {
		if got := e.AutomationURL(tt.slot); got != tt.wantAutomation {
			t.Errorf("AutomationURL(%d) = %q, want %q", tt.slot, got, tt.wantAutomation)
		}
		if got := e.InspectionURL(tt.slot); got != tt.wantInspection {
			t.Errorf("InspectionURL(%d) = %q, want %q", tt.slot, got, tt.wantInspection)
		}
	}
}

func TestDurationFallbacks(t *testing.T) {
	c := CollectConfig{StepTimeout: "bogus", SettleDelay: ""}
	if got := c.StepTimeoutDuration(); got != 30*time.Second {
		t.Errorf("StepTimeoutDuration = %v, want 30s fallback", got)
	}
	if got := c.SettleDelayDuration(); got != 500*time.Millisecond {
		t.Errorf("SettleDelayDuration = %v, want 500ms fallback", got)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	home := t.TempDir()
	t.Setenv("UITRAIL_HOME", home)

	cfg := DefaultConfig()
	cfg.Collect.Workers = 3
	cfg.Endpoints.BasePort = 9000
	if err := SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	if _, err := os.Stat(filepath.Join(home, "config.toml")); err != nil {
		t.Fatalf("config file not written: %v", err)
	}

	loaded, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Collect.Workers != 3 {
		t.Errorf("Collect.Workers = %d, want 3", loaded.Collect.Workers)
	}
	if loaded.Endpoints.BasePort != 9000 {
		t.Errorf("Endpoints.BasePort = %d, want 9000", loaded.Endpoints.BasePort)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("UITRAIL_HOME", t.TempDir())

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Collect.Workers != DefaultConfig().Collect.Workers {
		t.Error("missing config file must fall back to defaults")
	}
}
