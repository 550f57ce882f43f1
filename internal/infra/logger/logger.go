// Package logger builds the engine's slog handle from config.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"maestro/internal/infra/config"
)

// New creates a configured *slog.Logger plus a closer that flushes any
// file-backed sink. Defer the closer.
func New(cfg config.LoggerConfig) (*slog.Logger, func() error, error) {
	sink, closer, err := openSink(cfg.Output)
	if err != nil {
		return nil, nil, fmt.Errorf("open log output: %w", err)
	}
	return slog.New(handlerFor(cfg.Format, sink, parseLevel(cfg.Level))), closer, nil
}

func handlerFor(format string, w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
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

// openSink resolves the output target. "discard" silences logging without
// the level machinery, useful when the daemon's plan diff stream is the
// only wanted output.
func openSink(output string) (io.Writer, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(output) {
	case "stdout":
		return os.Stdout, noop, nil
	case "stderr", "":
		return os.Stderr, noop, nil
	case "discard":
		return io.Discard, noop, nil
	default:
		f, err := os.OpenFile(output, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0600)
		if err != nil {
			return nil, nil, err
		}
		return f, f.Close, nil
	}
}
