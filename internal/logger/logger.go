// Package logger provides structured logging functionality
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Logger wraps slog.Logger for application-wide logging
type Logger struct {
	*slog.Logger
}

// Config holds logger configuration
type Config struct {
	Level  string    // debug, info, warn, error
	Format string    // text, json
	Output io.Writer // defaults to stdout
}

var levels = map[string]slog.Level{
	"debug": slog.LevelDebug,
	"info":  slog.LevelInfo,
	"warn":  slog.LevelWarn,
	"error": slog.LevelError,
}

// ParseLevel maps a configured level name to a slog level. Unknown names
// report false and map to info.
func ParseLevel(name string) (slog.Level, bool) {
	level, ok := levels[name]
	if !ok {
		return slog.LevelInfo, false
	}
	return level, true
}

// New creates a new structured logger
func New(cfg Config) *Logger {
	level, _ := ParseLevel(cfg.Level)
	opts := &slog.HandlerOptions{Level: level}

	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return &Logger{Logger: slog.New(handler)}
}

func (l *Logger) with(args ...any) *Logger {
	return &Logger{Logger: l.With(args...)}
}

// WithComponent tags records with the subsystem that emitted them.
func (l *Logger) WithComponent(component string) *Logger {
	return l.with("component", component)
}

// WithImport tags records with the import run they belong to.
func (l *Logger) WithImport(runID string) *Logger {
	return l.with("import_id", runID)
}

// WithCategory tags records with the composite category id and its name.
func (l *Logger) WithCategory(categoryID, categoryName string) *Logger {
	return l.with("category_id", categoryID, "category_name", categoryName)
}

// Discard returns a logger that drops every record
func Discard() *Logger {
	return New(Config{Output: io.Discard})
}

// Default returns a default logger for quick usage
func Default() *Logger {
	return New(Config{Level: "info", Format: "text"})
}
