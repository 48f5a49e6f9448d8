package config

import (
	"time"

	"doccalc/internal/expr"
)

// ExpressionConfig configures the calc_exp evaluation engine.
type ExpressionConfig struct {
	Timeout  string `yaml:"timeout"`   // per-expression bound, e.g. "2s"; "0s" disables it
	PoolSize int    `yaml:"pool_size"` // idle interpreters kept warm
}

// GetExpressionTimeout returns the expression timeout as a duration.
func (c *Config) GetExpressionTimeout() time.Duration {
	d, err := time.ParseDuration(c.Expression.Timeout)
	if err != nil || d < 0 {
		return 2 * time.Second
	}
	return d
}

// EngineOptions converts the section into expr.Options.
func (c *Config) EngineOptions() expr.Options {
	return expr.Options{
		Timeout:  c.GetExpressionTimeout(),
		PoolSize: c.Expression.PoolSize,
	}
}
