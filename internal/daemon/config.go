// Package daemon manages uitrail configuration and the data directory.
package daemon

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config holds all collection configuration.
type Config struct {
	Collect    CollectConfig    `toml:"collect"`
	Endpoints  EndpointsConfig  `toml:"endpoints"`
	Containers ContainersConfig `toml:"containers"`
	API        APIConfig        `toml:"api"`
	Telemetry  TelemetryConfig  `toml:"telemetry"`
	Ledger     LedgerConfig     `toml:"ledger"`
}

// CollectConfig controls the collection run itself.
type CollectConfig struct {
	Workers         int    `toml:"workers"`
	OutputDir       string `toml:"output_dir"`
	SampleTarget    int    `toml:"sample_target"`
	MaxSteps        int    `toml:"max_steps"`
	ActionRetries   int    `toml:"action_retries"`
	MaxTaskAttempts int    `toml:"max_task_attempts"`
	StepTimeout     string `toml:"step_timeout"`
	SettleDelay     string `toml:"settle_delay"`
}

// EndpointsConfig describes how slot indexes map to endpoint ports.
// Slot i talks to the automation service on base_port + i*port_stride and
// to the inspection service on base_port + inspect_offset + i*port_stride.
type EndpointsConfig struct {
	Host               string `toml:"host"`
	BasePort           int    `toml:"base_port"`
	PortStride         int    `toml:"port_stride"`
	InspectOffset      int    `toml:"inspect_offset"`
	HealthCheckTimeout string `toml:"health_check_timeout"`
	HealthProbes       int    `toml:"health_probes"`
}

// ContainersConfig controls the optional container runtime integration.
type ContainersConfig struct {
	Managed    bool   `toml:"managed"`
	Runtime    string `toml:"runtime"` // "", "podman" or "docker" — empty means auto-detect
	NamePrefix string `toml:"name_prefix"`
	Image      string `toml:"image"`
}

// APIConfig controls the live status HTTP server.
type APIConfig struct {
	Enabled bool   `toml:"enabled"`
	Host    string `toml:"host"`
	Port    int    `toml:"port"`
}

// TelemetryConfig controls metrics exposure.
type TelemetryConfig struct {
	Prometheus bool `toml:"prometheus"`
}

// LedgerConfig controls the SQLite run ledger.
type LedgerConfig struct {
	Enabled bool   `toml:"enabled"`
	Dir     string `toml:"dir"`
}

// DefaultConfig returns sensible defaults for a local container fleet.
func DefaultConfig() Config {
	home := uitrailHome()
	return Config{
		Collect: CollectConfig{
			Workers:         5,
			OutputDir:       filepath.Join(home, "dataset"),
			SampleTarget:    100,
			MaxSteps:        20,
			ActionRetries:   3,
			MaxTaskAttempts: 3,
			StepTimeout:     "30s",
			SettleDelay:     "500ms",
		},
		Endpoints: EndpointsConfig{
			Host:               "127.0.0.1",
			BasePort:           8080,
			PortStride:         10,
			InspectOffset:      42,
			HealthCheckTimeout: "60s",
			HealthProbes:       6,
		},
		Containers: ContainersConfig{
			Managed:    false,
			NamePrefix: "osworld-",
			Image:      "localhost/osworld-desktopd:latest",
		},
		API: APIConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    7633,
		},
		Telemetry: TelemetryConfig{
			Prometheus: true,
		},
		Ledger: LedgerConfig{
			Enabled: true,
			Dir:     home,
		},
	}
}

// LoadConfig reads config from $UITRAIL_HOME/config.toml, falling back to defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(uitrailHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to $UITRAIL_HOME/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(uitrailHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return toml.NewEncoder(f).Encode(cfg)
}

// StepTimeoutDuration returns the per-step network timeout.
func (c CollectConfig) StepTimeoutDuration() time.Duration {
	return parseDuration(c.StepTimeout, 30*time.Second)
}

// SettleDelayDuration returns the pause between an action and the next snapshot.
func (c CollectConfig) SettleDelayDuration() time.Duration {
	return parseDuration(c.SettleDelay, 500*time.Millisecond)
}

// HealthCheckTimeoutDuration returns the startup health-check budget per slot.
func (e EndpointsConfig) HealthCheckTimeoutDuration() time.Duration {
	return parseDuration(e.HealthCheckTimeout, 60*time.Second)
}

// AutomationURL returns the automation endpoint URL for a slot index.
func (e EndpointsConfig) AutomationURL(slot int) string {
	return fmt.Sprintf("http://%s:%d", e.Host, e.BasePort+slot*e.PortStride)
}

// InspectionURL returns the inspection endpoint URL for a slot index.
func (e EndpointsConfig) InspectionURL(slot int) string {
	return fmt.Sprintf("http://%s:%d", e.Host, e.BasePort+e.InspectOffset+slot*e.PortStride)
}

// uitrailHome returns the uitrail data directory.
func uitrailHome() string {
	if env := os.Getenv("UITRAIL_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".uitrail")
}

// Home is exported for use by other packages.
func Home() string {
	return uitrailHome()
}

// parseDuration parses a duration string, returning a fallback on error.
func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
