// Package dbpslog wraps log/slog with the module-scoped, child-logger
// pattern used throughout this codebase: a Logger tags its output with a
// module name and can be narrowed further with request-scoped fields.
package dbpslog

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger is a thin wrapper over *slog.Logger.
type Logger struct {
	inner *slog.Logger
}

// New builds a root Logger writing JSON lines to w at the given level.
func New(w io.Writer, level slog.Level) Logger {
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level})
	return Logger{inner: slog.New(handler)}
}

// NewRotating builds a root Logger writing to a rotating file, for
// long-running cmd/dbps-server deployments.
func NewRotating(path string, maxSizeMB, maxBackups, maxAgeDays int, level slog.Level) Logger {
	return New(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    maxSizeMB,
		MaxBackups: maxBackups,
		MaxAge:     maxAgeDays,
	}, level)
}

// Default returns a Logger writing to stderr at Info level, used where a
// caller has not wired one in explicitly.
func Default() Logger {
	return New(os.Stderr, slog.LevelInfo)
}

// Module returns a child Logger tagging every record with module=name.
func (l Logger) Module(name string) Logger {
	return Logger{inner: l.inner.With("module", name)}
}

// With returns a child Logger with the given structured fields attached.
func (l Logger) With(args ...any) Logger {
	return Logger{inner: l.inner.With(args...)}
}

func (l Logger) Debug(msg string, args ...any) { l.inner.Debug(msg, args...) }
func (l Logger) Info(msg string, args ...any)  { l.inner.Info(msg, args...) }
func (l Logger) Warn(msg string, args ...any)  { l.inner.Warn(msg, args...) }
func (l Logger) Error(msg string, args ...any) { l.inner.Error(msg, args...) }
