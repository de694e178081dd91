// Package logger wraps slog with the contextual-fields helpers the engine
// uses to tag log lines by execution/node id (common/logger/logger.go).
package logger

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
)

// Logger wraps slog.Logger with contextual-field helpers.
type Logger struct {
	*slog.Logger
}

// New creates a logger writing to stdout in "text" (tinted) or "json" format.
func New(level, format string) *Logger {
	var handler slog.Handler
	logLevel := parseLevel(level)

	switch format {
	case "json":
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})
	default:
		handler = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      logLevel,
			TimeFormat: time.TimeOnly,
			AddSource:  false,
		})
	}

	return &Logger{Logger: slog.New(handler)}
}

// WithExecutionID adds execution_id to the logger context.
func (l *Logger) WithExecutionID(executionID string) *Logger {
	return &Logger{Logger: l.With("execution_id", executionID)}
}

// WithNodeID adds node_id to the logger context.
func (l *Logger) WithNodeID(nodeID string) *Logger {
	return &Logger{Logger: l.With("node_id", nodeID)}
}

// WithFields returns a logger with additional key/value fields attached.
func (l *Logger) WithFields(fields map[string]any) *Logger {
	args := make([]any, 0, len(fields)*2)
	for k, v := range fields {
		args = append(args, k, v)
	}
	return &Logger{Logger: l.With(args...)}
}

// WithContext attaches a trace_id pulled from ctx, if present.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if traceID := ctx.Value(traceIDKey{}); traceID != nil {
		return &Logger{Logger: l.With("trace_id", traceID)}
	}
	return l
}

type traceIDKey struct{}

// WithTraceID returns a context carrying traceID for WithContext to pick up.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, traceID)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
