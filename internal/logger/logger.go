// Package logger holds the process-wide structured logger configuration.
package logger

import (
	"fmt"

	"go.uber.org/zap"
)

// Logger wraps a zap logger whose level is set once at startup.
type Logger struct {
	// Log is the configured logger. It is a no-op logger until Init is called.
	Log *zap.Logger
}

// New returns a Logger holding a no-op zap logger.
func New() *Logger {
	return &Logger{Log: zap.NewNop()}
}

// Init rebuilds the logger as a production JSON logger at the given level
// ("debug", "info", "warn", "error").
func (l *Logger) Init(level string) error {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return fmt.Errorf("parse log level %q: %w", level, err)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = lvl
	zl, err := cfg.Build()
	if err != nil {
		return fmt.Errorf("build logger: %w", err)
	}
	l.Log = zl
	return nil
}
