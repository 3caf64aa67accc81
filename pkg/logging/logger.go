// Package logging provides the bridge's structured JSON logger.
package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	apperrors "github.com/odvcencio/termmarkup/pkg/errors"
)

// Logger is a structured logger for bridge components
type Logger struct {
	*slog.Logger
}

// NewLogger creates a logger that writes JSON to stderr.
func NewLogger(component string, level slog.Level) *Logger {
	return New(os.Stderr, component, level)
}

// New creates a logger that writes JSON to w.
func New(w io.Writer, component string, level slog.Level) *Logger {
	opts := &slog.HandlerOptions{
		Level: level,
	}

	handler := slog.NewJSONHandler(w, opts)

	logger := slog.New(handler).With(
		slog.String("component", component),
		slog.String("system", "termmarkup"),
	)

	return &Logger{Logger: logger}
}

// Discard returns a logger that drops everything. Useful in tests.
func Discard() *Logger {
	return New(io.Discard, "discard", slog.LevelError+1)
}

// ParseLevel maps debug, info, warn and error to slog levels. Anything else
// is info.
func ParseLevel(level string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// OpenOutput returns the destination for log output: stderr when path is
// empty, otherwise the file at path opened for appending.
func OpenOutput(path string) (io.WriteCloser, error) {
	if path == "" {
		return nopCloser{os.Stderr}, nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

type nopCloser struct{ io.Writer }

func (nopCloser) Close() error { return nil }

// WithContext returns a logger carrying the trace and span IDs of the span
// in ctx, if any.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	spanCtx := trace.SpanContextFromContext(ctx)
	if !spanCtx.IsValid() {
		return l
	}
	return &Logger{
		Logger: l.Logger.With(
			slog.String("trace_id", spanCtx.TraceID().String()),
			slog.String("span_id", spanCtx.SpanID().String()),
		),
	}
}

// WithSession returns a logger with session-specific fields
func (l *Logger) WithSession(sessionID string) *Logger {
	return &Logger{
		Logger: l.Logger.With(
			slog.String("session_id", sessionID),
		),
	}
}

// WithComponent returns a logger for a sub-component.
func (l *Logger) WithComponent(component string) *Logger {
	return &Logger{
		Logger: l.Logger.With(
			slog.String("subcomponent", component),
		),
	}
}

// ServerStarted logs the listening address
func (l *Logger) ServerStarted(addr, path string) {
	l.Info("bridge listening",
		slog.String("addr", addr),
		slog.String("path", path),
	)
}

// SessionStarted logs a session start event
func (l *Logger) SessionStarted(remoteAddr, command string, pid int) {
	l.Info("session started",
		slog.String("remote_addr", remoteAddr),
		slog.String("command", command),
		slog.Int("pid", pid),
	)
}

// SessionEnded logs a session end event
func (l *Logger) SessionEnded(reason string, frames int64, duration time.Duration) {
	l.Info("session ended",
		slog.String("reason", reason),
		slog.Int64("frames", frames),
		slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
	)
}

// SessionFailed logs a session that ended on an error. The stack of a
// structured error is attached when debug logging is on.
func (l *Logger) SessionFailed(reason string, err error) {
	attrs := []any{
		slog.String("reason", reason),
		slog.String("code", string(apperrors.GetCode(err))),
	}
	if err != nil {
		attrs = append(attrs, slog.String("error", err.Error()))
	}
	var coded *apperrors.Error
	if errors.As(err, &coded) && l.Enabled(context.Background(), slog.LevelDebug) {
		attrs = append(attrs, slog.String("stack", coded.StackTrace()))
	}
	l.Error("session failed", attrs...)
}

// ConnectionRejected logs a refused websocket upgrade
func (l *Logger) ConnectionRejected(remoteAddr, reason string) {
	l.Warn("connection rejected",
		slog.String("remote_addr", remoteAddr),
		slog.String("reason", reason),
	)
}

// FrameEncoded logs one encoded frame
func (l *Logger) FrameEncoded(rows, cols, backgroundBytes, foregroundBytes int, duration time.Duration) {
	l.Debug("frame encoded",
		slog.Int("rows", rows),
		slog.Int("cols", cols),
		slog.Int("background_bytes", backgroundBytes),
		slog.Int("foreground_bytes", foregroundBytes),
		slog.Float64("duration_ms", float64(duration.Microseconds())/1000),
	)
}

// InputForwarded logs bytes sent to the program
func (l *Logger) InputForwarded(size int) {
	l.Debug("input forwarded",
		slog.Int("bytes", size),
	)
}
