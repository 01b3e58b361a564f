package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	Devices  DevicesConfig  `yaml:"devices"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// DevicesConfig controls the device status cache
type DevicesConfig struct {
	Timeout         int `yaml:"timeout"`          // seconds
	CleanupInterval int `yaml:"cleanup_interval"` // seconds
}

// DispatchConfig controls listener delivery
type DispatchConfig struct {
	ListenerBudgetMs int `yaml:"listener_budget_ms"`
}

// MetricsConfig controls Prometheus collectors
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Devices: DevicesConfig{
			Timeout:         10,
			CleanupInterval: 2,
		},
		Dispatch: DispatchConfig{
			ListenerBudgetMs: 5,
		},
		Metrics: MetricsConfig{
			Enabled:   true,
			Namespace: "beatlink",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads and parses the configuration file. Values absent from the file keep their defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Validate checks every section of the configuration
func (c *Config) Validate() error {
	if err := c.Devices.Validate(); err != nil {
		return fmt.Errorf("devices config: %w", err)
	}

	if err := c.Dispatch.Validate(); err != nil {
		return fmt.Errorf("dispatch config: %w", err)
	}

	if err := c.Metrics.Validate(); err != nil {
		return fmt.Errorf("metrics config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates device cache configuration
func (d *DevicesConfig) Validate() error {
	if d.Timeout < 1 {
		return fmt.Errorf("timeout must be at least 1 second, got %d", d.Timeout)
	}

	if d.CleanupInterval < 1 {
		return fmt.Errorf("cleanup_interval must be at least 1 second, got %d", d.CleanupInterval)
	}

	if d.CleanupInterval > d.Timeout {
		return fmt.Errorf("cleanup_interval (%d) must not exceed timeout (%d)", d.CleanupInterval, d.Timeout)
	}

	return nil
}

// Validate validates dispatch configuration
func (d *DispatchConfig) Validate() error {
	if d.ListenerBudgetMs < 1 {
		return fmt.Errorf("listener_budget_ms must be at least 1, got %d", d.ListenerBudgetMs)
	}

	return nil
}

// Validate validates metrics configuration
func (m *MetricsConfig) Validate() error {
	if m.Enabled && m.Namespace == "" {
		return fmt.Errorf("namespace cannot be empty when metrics are enabled")
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	// Anything other than stdout or stderr is a file path.
	if l.Output == "" {
		return fmt.Errorf("output cannot be empty")
	}

	return nil
}

// GetTimeoutDuration returns the device timeout as a time.Duration
func (d *DevicesConfig) GetTimeoutDuration() time.Duration {
	return time.Duration(d.Timeout) * time.Second
}

// GetCleanupIntervalDuration returns the expiry sweep interval as a time.Duration
func (d *DevicesConfig) GetCleanupIntervalDuration() time.Duration {
	return time.Duration(d.CleanupInterval) * time.Second
}

// GetListenerBudget returns the listener budget as a time.Duration
func (d *DispatchConfig) GetListenerBudget() time.Duration {
	return time.Duration(d.ListenerBudgetMs) * time.Millisecond
}
