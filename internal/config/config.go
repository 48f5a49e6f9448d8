package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"doccalc/internal/expr"
)

// DefaultPath is the configuration file read when none is given.
const DefaultPath = "doccalc.yaml"

// Config holds all doccalc configuration.
type Config struct {
	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// calc_exp engine
	Expression ExpressionConfig `yaml:"expression"`

	// Ambient document attributes
	Document DocumentConfig `yaml:"document"`

	// calc_date defaults
	Date DateConfig `yaml:"date"`

	// Batch runner, watch mode and metrics endpoint
	Batch   BatchConfig   `yaml:"batch"`
	Watch   WatchConfig   `yaml:"watch"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// DateConfig configures the calc_date directive.
type DateConfig struct {
	// DefaultZone replaces the process-local zone for "today" and for
	// unrecognized zone ids. Empty means time.Local.
	DefaultZone string `yaml:"default_zone"`
}

// BatchConfig configures batch runs.
type BatchConfig struct {
	Workers int `yaml:"workers"` // concurrent evaluations
}

// WatchConfig configures watch mode.
type WatchConfig struct {
	Debounce string `yaml:"debounce"`
}

// MetricsConfig configures the Prometheus endpoint served in watch mode.
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},

		Expression: ExpressionConfig{
			Timeout:  "2s",
			PoolSize: 4,
		},

		Document: DocumentConfig{
			Attributes: map[string]any{},
		},

		Batch: BatchConfig{
			Workers: 4,
		},

		Watch: WatchConfig{
			Debounce: "300ms",
		},

		Metrics: MetricsConfig{
			Enabled: false,
			Addr:    ":9464",
		},
	}
}

// Load loads configuration from a YAML file. A missing file yields the
// defaults. Environment overrides are applied in both cases.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()

	return cfg, nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if author := os.Getenv("DOCCALC_AUTHOR"); author != "" {
		c.Document.Author = author
	}
	if license := os.Getenv("DOCCALC_LICENSE_TYPE"); license != "" {
		c.Document.LicenseType = license
	}
	if level := os.Getenv("DOCCALC_LOG_LEVEL"); level != "" {
		c.Logging.Level = level
	}
	if zone := os.Getenv("DOCCALC_DEFAULT_ZONE"); zone != "" {
		c.Date.DefaultZone = zone
	}
	if addr := os.Getenv("DOCCALC_METRICS_ADDR"); addr != "" {
		c.Metrics.Addr = addr
	}
}

// GetWatchDebounce returns the watch debounce as a duration.
func (c *Config) GetWatchDebounce() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d < 0 {
		return 300 * time.Millisecond
	}
	return d
}

// GetDefaultZone returns the configured fallback zone, or time.Local.
func (c *Config) GetDefaultZone() (*time.Location, error) {
	if c.Date.DefaultZone == "" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Date.DefaultZone)
	if err != nil {
		return nil, fmt.Errorf("invalid default_zone %q: %w", c.Date.DefaultZone, err)
	}
	return loc, nil
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Expression.PoolSize < 1 {
		return fmt.Errorf("expression.pool_size must be >= 1")
	}
	if c.Expression.Timeout != "" {
		if _, err := time.ParseDuration(c.Expression.Timeout); err != nil {
			return fmt.Errorf("invalid expression.timeout %q: %w", c.Expression.Timeout, err)
		}
	}
	if c.Batch.Workers < 1 {
		return fmt.Errorf("batch.workers must be >= 1")
	}
	if c.Document.LicenseType != "" {
		if _, err := expr.ParseLicenseType(c.Document.LicenseType); err != nil {
			return fmt.Errorf("invalid document.calc_exp_license_type: %w", err)
		}
	}
	if _, err := c.GetDefaultZone(); err != nil {
		return err
	}
	return nil
}
