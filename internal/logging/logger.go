// Package logging provides categorized file-based logging for cry2care.
// The dashboard owns the terminal, so logs go to <dir>/<date>_<category>.log
// and only when debug mode is on; otherwise every logger is a no-op.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Category represents a log category/subsystem.
type Category string

const (
	CategoryBoot     Category = "boot"     // startup, config
	CategoryAPI      Category = "api"      // backend HTTP calls
	CategoryCapture  Category = "capture"  // microphone recorder
	CategoryPipeline Category = "pipeline" // capture-and-classify workflow
	CategoryUI       Category = "ui"       // dashboard events
	CategoryWatch    Category = "watch"    // drop-folder watcher
	CategoryDemo     Category = "demo"     // stand-in backend
)

var (
	mu       sync.RWMutex
	logsDir  string
	enabled  bool
	level    zapcore.Level = zapcore.InfoLevel
	loggers  = make(map[Category]*zap.Logger)
	files    []*os.File
	override *zap.Logger
)

// Initialize sets up file logging under dir. When debug is false nothing is
// created and all loggers stay no-ops.
func Initialize(dir string, debug bool, lvl string) error {
	mu.Lock()
	defer mu.Unlock()

	closeLocked()
	enabled = debug
	level = ParseLevel(lvl)
	logsDir = dir

	if !debug {
		return nil
	}
	if dir == "" {
		return fmt.Errorf("logs directory required")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create logs directory: %w", err)
	}
	return nil
}

// SetLogger routes every category to l (as a named child). Command-line
// subcommands use this to log to the console instead of files. Passing nil
// restores file logging.
func SetLogger(l *zap.Logger) {
	mu.Lock()
	defer mu.Unlock()
	override = l
	loggers = make(map[Category]*zap.Logger)
}

// Get returns (or creates) the logger for a category.
func Get(category Category) *zap.Logger {
	mu.RLock()
	if l, ok := loggers[category]; ok {
		mu.RUnlock()
		return l
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()

	if l, ok := loggers[category]; ok {
		return l
	}

	var l *zap.Logger
	switch {
	case override != nil:
		l = override.Named(string(category))
	case !enabled || logsDir == "":
		return zap.NewNop()
	default:
		date := time.Now().Format("2006-01-02")
		path := filepath.Join(logsDir, fmt.Sprintf("%s_%s.log", date, category))
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[logging] Warning: could not open log file %s: %v\n", path, err)
			return zap.NewNop()
		}
		files = append(files, f)

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(f), level)
		l = zap.New(core).Named(string(category))
	}
	loggers[category] = l
	return l
}

// Close flushes and closes all category files.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	closeLocked()
}

func closeLocked() {
	for _, l := range loggers {
		_ = l.Sync()
	}
	for _, f := range files {
		_ = f.Close()
	}
	files = nil
	loggers = make(map[Category]*zap.Logger)
}

// IsDebugMode reports whether file logging is active.
func IsDebugMode() bool {
	mu.RLock()
	defer mu.RUnlock()
	return enabled
}

// ParseLevel converts "debug", "info", "warn", "error" to a zap level.
// Unknown strings default to info.
func ParseLevel(s string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// NewConsole builds the console logger used by one-shot subcommands.
func NewConsole(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}
