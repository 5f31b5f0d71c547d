// Package logging provides categorized logging for importguard.
// Each pipeline stage logs under its own category so a noisy stage can be
// silenced from the config file without touching the others.
// Loggers are no-ops until Initialize is called.
package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/system
type Category string

const (
	CategoryBoot   Category = "boot"   // CLI startup, config loading
	CategorySource Category = "source" // Module resolution and file reads
	CategorySyntax Category = "syntax" // Tree-sitter parsing
	CategoryRule   Category = "rule"   // Conformance decisions
	CategoryReport Category = "report" // Rendering results
	CategoryGuard  Category = "guard"  // Engine runs and file watching
)

// Logger wraps a zap sugared logger bound to one category.
type Logger struct {
	category Category
	sugar    *zap.SugaredLogger
}

var (
	loggers    = make(map[Category]*Logger)
	loggersMu  sync.RWMutex
	base       *zap.Logger
	categories map[string]bool
	configMu   sync.RWMutex
)

// Build constructs the base zap logger from a level and an output format
// ("json" or "text").
func Build(level, format string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if strings.EqualFold(format, "text") || format == "" {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
	}

	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(normalizeLevel(level))); err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.DisableStacktrace = true

	return cfg.Build()
}

func normalizeLevel(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "", "info":
		return "info"
	case "warning":
		return "warn"
	default:
		return strings.ToLower(strings.TrimSpace(level))
	}
}

// Initialize installs the base logger. A nil categories map enables every
// category; otherwise a category missing from the map is enabled.
func Initialize(logger *zap.Logger, cats map[string]bool) {
	configMu.Lock()
	base = logger
	categories = cats
	configMu.Unlock()

	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()

	Get(CategoryBoot).Debug("logging initialized (%d category overrides)", len(cats))
}

// IsCategoryEnabled returns whether a specific category is enabled
func IsCategoryEnabled(category Category) bool {
	configMu.RLock()
	defer configMu.RUnlock()

	if base == nil {
		return false
	}
	if categories == nil {
		return true
	}
	enabled, exists := categories[string(category)]
	if !exists {
		return true
	}
	return enabled
}

// Get returns (or creates) a logger for the given category.
// Returns a no-op logger if logging is not initialized or the category is disabled.
func Get(category Category) *Logger {
	if !IsCategoryEnabled(category) {
		return &Logger{category: category}
	}

	loggersMu.RLock()
	if l, ok := loggers[category]; ok {
		loggersMu.RUnlock()
		return l
	}
	loggersMu.RUnlock()

	loggersMu.Lock()
	defer loggersMu.Unlock()

	// Double-check after acquiring write lock
	if l, ok := loggers[category]; ok {
		return l
	}

	configMu.RLock()
	current := base
	configMu.RUnlock()
	if current == nil {
		return &Logger{category: category}
	}

	l := &Logger{category: category, sugar: current.Named(string(category)).Sugar()}
	loggers[category] = l
	return l
}

// Category returns the category this logger writes under.
func (l *Logger) Category() Category {
	return l.category
}

func (l *Logger) Debug(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Debugf(format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Infof(format, args...)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Warnf(format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	if l.sugar == nil {
		return
	}
	l.sugar.Errorf(format, args...)
}

// With returns a logger carrying the given key-value pairs on every entry.
func (l *Logger) With(keysAndValues ...interface{}) *Logger {
	if l.sugar == nil {
		return l
	}
	return &Logger{category: l.category, sugar: l.sugar.With(keysAndValues...)}
}

// Sync flushes the base logger. Call at shutdown.
func Sync() {
	configMu.RLock()
	defer configMu.RUnlock()
	if base != nil {
		_ = base.Sync()
	}
}

// Reset drops the base logger and every cached category logger.
func Reset() {
	configMu.Lock()
	base = nil
	categories = nil
	configMu.Unlock()

	loggersMu.Lock()
	loggers = make(map[Category]*Logger)
	loggersMu.Unlock()
}

// =============================================================================
// CONVENIENCE FUNCTIONS - Quick logging without getting a logger first
// These are no-ops if the category is disabled
// =============================================================================

// Boot logs to the boot category
func Boot(format string, args ...interface{}) {
	Get(CategoryBoot).Info(format, args...)
}

// BootDebug logs debug to the boot category
func BootDebug(format string, args ...interface{}) {
	Get(CategoryBoot).Debug(format, args...)
}

// SourceDebug logs debug to the source category
func SourceDebug(format string, args ...interface{}) {
	Get(CategorySource).Debug(format, args...)
}

// SyntaxDebug logs debug to the syntax category
func SyntaxDebug(format string, args ...interface{}) {
	Get(CategorySyntax).Debug(format, args...)
}

// Rule logs to the rule category
func Rule(format string, args ...interface{}) {
	Get(CategoryRule).Info(format, args...)
}

// RuleDebug logs debug to the rule category
func RuleDebug(format string, args ...interface{}) {
	Get(CategoryRule).Debug(format, args...)
}

// ReportDebug logs debug to the report category
func ReportDebug(format string, args ...interface{}) {
	Get(CategoryReport).Debug(format, args...)
}

// Guard logs to the guard category
func Guard(format string, args ...interface{}) {
	Get(CategoryGuard).Info(format, args...)
}

// GuardDebug logs debug to the guard category
func GuardDebug(format string, args ...interface{}) {
	Get(CategoryGuard).Debug(format, args...)
}
