// Package logger holds the structured logger shared by every engine package.
//
// By default nothing is logged. Call Set to enable output:
//
//	logger.Set(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
//
// Levels used by the engine:
//   - slog.LevelDebug: per-frame diagnostics (skipped passes, empty queues)
//   - slog.LevelInfo: lifecycle events (adapter selected, config reloaded, profiler stats)
//   - slog.LevelWarn: recoverable anomalies (light limits exceeded, duplicate volumes)
//   - slog.LevelError: configuration errors that degrade a frame
package logger

import (
	"context"
	"log/slog"
	"sync/atomic"
)

type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

var loggerPtr atomic.Pointer[slog.Logger]

func init() {
	loggerPtr.Store(slog.New(nopHandler{}))
}

// Set replaces the engine logger. Passing nil restores the silent default.
// Safe for concurrent use.
func Set(l *slog.Logger) {
	if l == nil {
		l = slog.New(nopHandler{})
	}
	loggerPtr.Store(l)
}

// L returns the current engine logger.
func L() *slog.Logger {
	return loggerPtr.Load()
}
