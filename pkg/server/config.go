package server

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds server-level configuration parameters, loaded from YAML.
type Config struct {
	// --- Identity ---
	Name string `yaml:"name"`
	Port int    `yaml:"port"`

	// --- World ---
	TickMs    int    `yaml:"tick_ms"`
	EntryRoom string `yaml:"entry_room"`

	// --- Storage ---
	BoltPath            string `yaml:"bolt_path"`
	ScrollbackPath      string `yaml:"scrollback_path"`
	ScrollbackRetention int    `yaml:"scrollback_retention"` // seconds, 0 = keep forever

	// --- Sessions ---
	MaxOutputBacklog int `yaml:"max_output_backlog"`

	// --- Metrics ---
	MetricsEnabled bool `yaml:"metrics_enabled"`
	MetricsPort    int  `yaml:"metrics_port"`

	// --- Logging ---
	LogLevel string `yaml:"log_level"` // debug, info, warn, error
}

// DefaultConfig returns a Config with workable defaults for a local server.
func DefaultConfig() *Config {
	return &Config{
		Name:                "BeachMUD",
		Port:                6282,
		TickMs:              100,
		EntryRoom:           "The Foyer",
		BoltPath:            "beachmud.db",
		ScrollbackPath:      "scrollback.db",
		ScrollbackRetention: 86400,
		MaxOutputBacklog:    1024,
		MetricsEnabled:      false,
		MetricsPort:         9282,
		LogLevel:            "info",
	}
}

// LoadConfig reads a YAML config file over the defaults. A missing file is
// not an error; the defaults stand.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing YAML %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// TickInterval converts the configured tick rate to a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickMs) * time.Millisecond
}

// ScrollbackRetentionDuration converts the configured retention to a
// duration; zero disables cleanup.
func (c *Config) ScrollbackRetentionDuration() time.Duration {
	return time.Duration(c.ScrollbackRetention) * time.Second
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d out of range", c.Port)
	}
	if c.TickMs <= 0 {
		return fmt.Errorf("tick_ms must be positive, got %d", c.TickMs)
	}
	if c.MaxOutputBacklog <= 0 {
		return fmt.Errorf("max_output_backlog must be positive, got %d", c.MaxOutputBacklog)
	}
	return nil
}
