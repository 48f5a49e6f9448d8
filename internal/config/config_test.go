package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doccalc/internal/params"
)

// clearEnv keeps the caller's environment from leaking into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"DOCCALC_AUTHOR", "DOCCALC_LICENSE_TYPE", "DOCCALC_LOG_LEVEL", "DOCCALC_DEFAULT_ZONE", "DOCCALC_METRICS_ADDR"} {
		t.Setenv(k, "")
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Logging.Level != "info" {
		t.Errorf("expected Level=info, got %s", cfg.Logging.Level)
	}
	if cfg.Batch.Workers != 4 {
		t.Errorf("expected Workers=4, got %d", cfg.Batch.Workers)
	}
	if got := cfg.GetExpressionTimeout(); got != 2*time.Second {
		t.Errorf("expected expression timeout 2s, got %v", got)
	}
	if got := cfg.GetWatchDebounce(); got != 300*time.Millisecond {
		t.Errorf("expected debounce 300ms, got %v", got)
	}
	require.NoError(t, cfg.Validate())
}

func TestLoad_MissingFileReturnsDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestConfig_SaveLoad(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "nested", "doccalc.yaml")

	cfg := DefaultConfig()
	cfg.Document.Author = "Jane Doe"
	cfg.Document.LicenseType = "non_commercial"
	cfg.Document.Attributes = map[string]any{"format": "d MMM yy"}
	cfg.Date.DefaultZone = "Europe/Madrid"
	cfg.Batch.Workers = 8

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if diff := cmp.Diff(cfg, loaded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "doccalc.yaml")
	content := `
expression:
  timeout: 500ms
logging:
  level: debug
  categories:
    coerce: false
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.GetExpressionTimeout())
	assert.Equal(t, 4, cfg.Expression.PoolSize)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, map[string]bool{"coerce": false}, cfg.Logging.Options().Categories)
	assert.Equal(t, ":9464", cfg.Metrics.Addr)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doccalc.yaml")
	require.NoError(t, os.WriteFile(path, []byte("batch: [unclosed"), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"log level", func(c *Config) { c.Logging.Level = "verbose" }},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }},
		{"pool size", func(c *Config) { c.Expression.PoolSize = 0 }},
		{"expression timeout", func(c *Config) { c.Expression.Timeout = "soon" }},
		{"workers", func(c *Config) { c.Batch.Workers = 0 }},
		{"license type", func(c *Config) { c.Document.LicenseType = "free" }},
		{"default zone", func(c *Config) { c.Date.DefaultZone = "Mars/Olympus" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestGetters_Fallbacks(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Expression.Timeout = "not a duration"
	cfg.Watch.Debounce = "-1s"
	assert.Equal(t, 2*time.Second, cfg.GetExpressionTimeout())
	assert.Equal(t, 300*time.Millisecond, cfg.GetWatchDebounce())

	cfg.Expression.Timeout = "0s"
	assert.Equal(t, time.Duration(0), cfg.EngineOptions().Timeout)

	loc, err := cfg.GetDefaultZone()
	require.NoError(t, err)
	assert.Equal(t, time.Local, loc)

	cfg.Date.DefaultZone = "Asia/Tokyo"
	loc, err = cfg.GetDefaultZone()
	require.NoError(t, err)
	assert.Equal(t, "Asia/Tokyo", loc.String())
}

func TestDocumentParams(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Document.Attributes = map[string]any{"author": "Overridden", "format": "yyyy"}
	cfg.Document.Author = "Jane Doe"
	cfg.Document.LicenseType = "commercial"

	want := params.Set{
		"author":                params.Text("Jane Doe"),
		"calc_exp_license_type": params.Text("commercial"),
		"format":                params.Text("yyyy"),
	}
	if diff := cmp.Diff(want, cfg.DocumentParams()); diff != "" {
		t.Errorf("DocumentParams mismatch (-want +got):\n%s", diff)
	}
}

func TestLoggingOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.File = "doccalc.log"
	opts := cfg.Logging.Options()
	assert.Equal(t, "info", opts.Level)
	assert.Equal(t, "text", opts.Format)
	assert.Equal(t, "doccalc.log", opts.File)
}

func TestDocumentParams_ScalarAttributes(t *testing.T) {
	clearEnv(t)

	path := filepath.Join(t.TempDir(), "doccalc.yaml")
	content := `
document:
  attributes:
    rate: 0.25
    count: 3
    draft: false
    value: ~
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)

	want := params.Set{
		"rate":  params.Text("0.25"),
		"count": params.Text("3"),
		"draft": params.Text("false"),
		"value": params.Null(),
	}
	if diff := cmp.Diff(want, cfg.DocumentParams()); diff != "" {
		t.Errorf("DocumentParams mismatch (-want +got):\n%s", diff)
	}
}
