// Package logging provides config-driven categorized logging for doccalc.
// Every category is a named child of one zap logger. Until Initialize is
// called all loggers are no-ops, so library callers stay silent.
package logging

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot       Category = "boot"       // Startup, config loading
	CategoryParams     Category = "params"     // Parameter resolution
	CategoryCoerce     Category = "coerce"     // Raw value coercion
	CategoryCalc       Category = "calc"       // Arithmetic directive
	CategoryDate       Category = "date"       // Date directive
	CategoryExpression Category = "expression" // Expression directive and engine
	CategoryBatch      Category = "batch"      // Batch runs
	CategoryWatch      Category = "watch"      // Batch file watcher
	CategoryMetrics    Category = "metrics"    // Metrics endpoint
)

// Config mirrors the relevant parts of config.LoggingConfig
// to avoid circular imports
type Config struct {
	Level      string
	Format     string // json, text
	File       string // empty = stderr
	Categories map[string]bool
}

// Logger is a category-scoped printf-style logger.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers   = make(map[Category]*Logger)
	loggersMu sync.RWMutex

	base       *zap.Logger
	config     Config
	configMu   sync.RWMutex
	closeFile  func()
	noopLogger = zap.NewNop()
)

// Initialize builds the zap backend from cfg. It may be called again to
// reconfigure; previously handed out loggers are replaced.
func Initialize(cfg Config) error {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return err
	}

	var encoder zapcore.Encoder
	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	switch strings.ToLower(cfg.Format) {
	case "json":
		encoder = zapcore.NewJSONEncoder(encCfg)
	case "", "text", "console":
		encCfg.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encCfg)
	default:
		return fmt.Errorf("unknown log format %q", cfg.Format)
	}

	sink := zapcore.Lock(os.Stderr)
	var closer func()
	if cfg.File != "" {
		ws, c, err := zap.Open(cfg.File)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		sink = ws
		closer = c
	}

	install(zap.New(zapcore.NewCore(encoder, sink, level)), cfg, closer)

	Boot("logging initialized (level=%s format=%s)", level, cfg.Format)
	return nil
}

// InitializeWithCore installs an already built zap core. Tests use it with
// zaptest/observer.
func InitializeWithCore(core zapcore.Core, categories map[string]bool) {
	install(zap.New(core), Config{Categories: categories}, nil)
}

func install(l *zap.Logger, cfg Config, closer func()) {
	configMu.Lock()
	if closeFile != nil {
		_ = base.Sync()
		closeFile()
	}
	base = l
	config = cfg
	closeFile = closer
	configMu.Unlock()

	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
}

// ParseLevel maps a config level name to a zap level. Empty means info.
func ParseLevel(s string) (zapcore.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return zapcore.DebugLevel, nil
	case "", "info":
		return zapcore.InfoLevel, nil
	case "warn", "warning":
		return zapcore.WarnLevel, nil
	case "error":
		return zapcore.ErrorLevel, nil
	default:
		return zapcore.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if base == nil {
		return false
	}
	if config.Categories == nil {
		return true
	}
	enabled, exists := config.Categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if logging is not initialized or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category, sugar: noopLogger.Sugar()}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	configMu.RLock()
	named := base.Named(string(category))
	configMu.RUnlock()

	l := &Logger{category: category, sugar: named.Sugar()}
	loggers[category] = l
	return l
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.sugar.Errorf(format, args...)
}

// With returns a child logger carrying structured key/value pairs.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes the backend and closes the log file, if any. Call at shutdown.
func Sync() {
	configMu.Lock()
	defer configMu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
	if closeFile != nil {
		closeFile()
		closeFile = nil
	}
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// =============================================================================

func Boot(format string, args ...interface{})      { Get(CategoryBoot).Info(format, args...) }
func BootDebug(format string, args ...interface{}) { Get(CategoryBoot).Debug(format, args...) }
func BootWarn(format string, args ...interface{})  { Get(CategoryBoot).Warn(format, args...) }

func ParamsDebug(format string, args ...interface{}) { Get(CategoryParams).Debug(format, args...) }

func CoerceDebug(format string, args ...interface{}) { Get(CategoryCoerce).Debug(format, args...) }

func CalcDebug(format string, args ...interface{}) { Get(CategoryCalc).Debug(format, args...) }

func DateDebug(format string, args ...interface{}) { Get(CategoryDate).Debug(format, args...) }

func Expression(format string, args ...interface{})      { Get(CategoryExpression).Info(format, args...) }
func ExpressionDebug(format string, args ...interface{}) { Get(CategoryExpression).Debug(format, args...) }
func ExpressionWarn(format string, args ...interface{})  { Get(CategoryExpression).Warn(format, args...) }

func BatchDebug(format string, args ...interface{}) { Get(CategoryBatch).Debug(format, args...) }
func BatchError(format string, args ...interface{}) { Get(CategoryBatch).Error(format, args...) }

func Watch(format string, args ...interface{})      { Get(CategoryWatch).Info(format, args...) }
func WatchDebug(format string, args ...interface{}) { Get(CategoryWatch).Debug(format, args...) }
func WatchError(format string, args ...interface{}) { Get(CategoryWatch).Error(format, args...) }

func Metrics(format string, args ...interface{})      { Get(CategoryMetrics).Info(format, args...) }
func MetricsError(format string, args ...interface{}) { Get(CategoryMetrics).Error(format, args...) }

// =============================================================================
// REQUEST ID TRACING
// =============================================================================

// RequestLogger provides request-scoped logging with a correlation ID
type RequestLogger struct {
	*Logger
	requestID string
}

// WithRequestID creates a request-scoped logger
func WithRequestID(category Category, requestID string) *RequestLogger {
	return &RequestLogger{
		Logger:    Get(category).With("req", requestID),
		requestID: requestID,
	}
}

// RequestID returns the correlation ID.
func (r *RequestLogger) RequestID() string {
	return r.requestID
}

// WithField adds a field to the request logger
func (r *RequestLogger) WithField(key string, value interface{}) *RequestLogger {
	return &RequestLogger{Logger: r.Logger.With(key, value), requestID: r.requestID}
}

// =============================================================================
// TIMING HELPERS
// =============================================================================

// Timer helps measure operation duration
type Timer struct {
	category Category
	op       string
	start    time.Time
}

// StartTimer begins timing an operation
func StartTimer(category Category, operation string) *Timer {
	return &Timer{
		category: category,
		op:       operation,
		start:    time.Now(),
	}
}

// Stop ends the timer and logs the duration
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	return elapsed
}

// StopWithThreshold logs warning if duration exceeds threshold
func (t *Timer) StopWithThreshold(threshold time.Duration) time.Duration {
	elapsed := time.Since(t.start)
	if elapsed > threshold {
		Get(t.category).Warn("%s took %v (threshold: %v)", t.op, elapsed, threshold)
	} else {
		Get(t.category).Debug("%s completed in %v", t.op, elapsed)
	}
	return elapsed
}
