package config

import (
	"fmt"

	"doccalc/internal/logging"
)

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`                // debug, info, warn, error
	Format     string          `yaml:"format"`               // json, text
	File       string          `yaml:"file"`                 // empty = stderr
	Categories map[string]bool `yaml:"categories,omitempty"` // per-category toggles
}

// Validate checks the level and format.
func (c *LoggingConfig) Validate() error {
	if _, err := logging.ParseLevel(c.Level); err != nil {
		return fmt.Errorf("invalid logging.level: %w", err)
	}
	switch c.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("invalid logging.format %q (valid: text, json)", c.Format)
	}
	return nil
}

// Options converts the section into logging.Config.
func (c *LoggingConfig) Options() logging.Config {
	return logging.Config{
		Level:      c.Level,
		Format:     c.Format,
		File:       c.File,
		Categories: c.Categories,
	}
}
