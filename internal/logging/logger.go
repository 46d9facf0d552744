// internal/logging/logger.go
package logging

import (
	"context"
	"io"
	"log/slog"
	"os"

	"github.com/colebrumley/cnrewrite/internal/config"
	"github.com/colebrumley/cnrewrite/internal/rewrite"
	"github.com/colebrumley/cnrewrite/internal/security"
)

// Component is attached to every diagnostic emitted by the rewriter.
const Component = "client_name_rewrite"

// NewLogger creates a new structured logger
func NewLogger(format string, level string, w io.Writer) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: ParseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}

	return slog.New(handler)
}

// ParseLevel maps a config level name to a slog level, defaulting to info.
func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Open builds the logger described by cfg. When cfg.File is set, output goes
// to a RotatingWriter which the caller must close.
func Open(cfg config.LoggingConfig) (*slog.Logger, io.Closer, error) {
	if cfg.File == "" {
		return NewLogger(cfg.Format, cfg.Level, os.Stdout), nopCloser{}, nil
	}
	w, err := NewRotatingWriter(cfg.File, int64(cfg.MaxSizeMB)*1024*1024)
	if err != nil {
		return nil, nil, err
	}
	return NewLogger(cfg.Format, cfg.Level, w), w, nil
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// WithRequest returns a logger with the request id attached
func WithRequest(logger *slog.Logger, requestID string) *slog.Logger {
	return logger.With("request_id", requestID)
}

// Sink forwards rewrite diagnostics to a slog logger.
type Sink struct {
	logger *slog.Logger
}

// NewSink returns a rewrite.Sink writing to logger.
func NewSink(logger *slog.Logger) *Sink {
	return &Sink{logger: logger.With("component", Component)}
}

func (s *Sink) Emit(d rewrite.Diagnostic) {
	s.logger.Log(context.Background(), levelFor(d.Level), security.SanitizeValue(d.Message))
}

func levelFor(l rewrite.Level) slog.Level {
	switch l {
	case rewrite.LevelWarning:
		return slog.LevelWarn
	case rewrite.LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
