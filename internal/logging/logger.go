// Package logging wraps slog with lazyroster's field names.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Logger wraps slog.Logger with a level that can be changed at runtime.
type Logger struct {
	*slog.Logger
	level *slog.LevelVar
}

// Options configures New
type Options struct {
	Level  slog.Level
	Format string    // "text" (default) or "json"
	Output io.Writer // defaults to stderr
}

// New creates a Logger writing to opts.Output.
func New(opts Options) *Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	level := new(slog.LevelVar)
	level.Set(opts.Level)

	handlerOpts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(opts.Format, "json") {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return &Logger{Logger: slog.New(handler), level: level}
}

// Noop creates a Logger that discards all output.
func Noop() *Logger {
	return New(Options{Level: slog.Level(1000), Output: io.Discard})
}

// ParseLevel accepts debug, info, warn and error
func ParseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return l, nil
}

// SetLevel changes the minimum level of this logger and every logger
// derived from it with With.
func (l *Logger) SetLevel(level slog.Level) {
	l.level.Set(level)
}

// Level returns the current minimum level
func (l *Logger) Level() slog.Level {
	return l.level.Level()
}

// With returns a Logger carrying extra attributes and sharing the level.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{Logger: l.Logger.With(args...), level: l.level}
}

// LogLoad logs a dataset load.
func (l *Logger) LogLoad(ctx context.Context, name string, rows, columns int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "dataset load failed",
			"source", name,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "dataset loaded",
		"source", name,
		"rows", rows,
		"columns", columns,
	)
}

// LogView logs a view recomputation.
func (l *Logger) LogView(ctx context.Context, rules int, mode string, matched, total int, elapsed time.Duration) {
	l.DebugContext(ctx, "view computed",
		"rules", rules,
		"mode", mode,
		"matched", matched,
		"total", total,
		"elapsed", elapsed,
	)
}

// LogStale logs a rule dropped because its column no longer exists.
func (l *Logger) LogStale(ctx context.Context, column, rule string) {
	l.WarnContext(ctx, "rule dropped, column no longer exists",
		"column", column,
		"rule", rule,
	)
}

// LogExport logs a view export.
func (l *Logger) LogExport(ctx context.Context, path, format string, rows int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "export failed",
			"path", path,
			"format", format,
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "view exported",
		"path", path,
		"format", format,
		"rows", rows,
	)
}

// LogSnapshot logs a history snapshot.
func (l *Logger) LogSnapshot(ctx context.Context, id int64, err error) {
	if err != nil {
		l.ErrorContext(ctx, "snapshot failed",
			"error", err,
		)
		return
	}
	l.InfoContext(ctx, "snapshot saved",
		"id", id,
	)
}
