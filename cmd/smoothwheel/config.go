package main

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the daemon's configuration surface. It is resolved once at
// startup (defaults, then YAML file, then flag overrides) and immutable for
// the process lifetime.
type Config struct {
	Device  DeviceConfig  `yaml:"device"`
	Curve   CurveConfig   `yaml:"curve"`
	IPC     IPCConfig     `yaml:"ipc"`
	Monitor MonitorConfig `yaml:"monitor"`
	Logging LoggingConfig `yaml:"logging"`
}

type DeviceConfig struct {
	// Path is the input device node to relay. Empty means auto-discover the
	// first mouse-like device under /dev/input.
	Path string `yaml:"path,omitempty"`
}

type CurveConfig struct {
	BaseSensitivity float64 `yaml:"base_sensitivity"`
	MaxSensitivity  float64 `yaml:"max_sensitivity"`
	RampRate        float64 `yaml:"ramp_rate"`
}

type IPCConfig struct {
	SocketPath string `yaml:"socket_path"`
}

type MonitorConfig struct {
	Enabled    bool   `yaml:"enabled"`
	ListenAddr string `yaml:"listen_addr"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns a fully-populated Config. Keep aligned with
// constants.go so flags and YAML agree on defaults.
func DefaultConfig() Config {
	return Config{
		Curve: CurveConfig{
			BaseSensitivity: defaultBaseSensitivity,
			MaxSensitivity:  defaultMaxSensitivity,
			RampRate:        defaultRampRate,
		},
		IPC: IPCConfig{
			SocketPath: defaultIPCSocketPath,
		},
		Monitor: MonitorConfig{
			Enabled:    false,
			ListenAddr: defaultMonitorListenAddr,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadConfig reads a YAML config file over the defaults. An empty path
// returns the defaults untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate rejects invalid numeric bounds outright. Values are never
// silently clamped; a bad config must fail before any device is opened.
func (c Config) Validate() error {
	var errs []error

	if c.Curve.BaseSensitivity <= 0 {
		errs = append(errs, fmt.Errorf("curve.base_sensitivity must be > 0 (got %g)", c.Curve.BaseSensitivity))
	}
	if c.Curve.MaxSensitivity <= c.Curve.BaseSensitivity {
		errs = append(errs, fmt.Errorf("curve.max_sensitivity must be > base_sensitivity (got %g <= %g)", c.Curve.MaxSensitivity, c.Curve.BaseSensitivity))
	}
	if c.Curve.RampRate <= 0 {
		errs = append(errs, fmt.Errorf("curve.ramp_rate must be > 0 (got %g)", c.Curve.RampRate))
	}
	if c.IPC.SocketPath == "" {
		errs = append(errs, errors.New("ipc.socket_path must not be empty"))
	}
	if c.Monitor.Enabled && c.Monitor.ListenAddr == "" {
		errs = append(errs, errors.New("monitor.listen_addr must not be empty when monitor is enabled"))
	}

	return errors.Join(errs...)
}
