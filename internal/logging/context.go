package logging

import (
	"context"
	"io"
	"log/slog"
)

type loggerKey struct{}

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

// WithLogger stores logger in ctx. A nil logger stores a no-op logger.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = discard
	}
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the request logger, then fallback, then a no-op logger.
func FromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	if fallback != nil {
		return fallback
	}
	return discard
}

// With adds attributes to the context logger and returns both.
func With(ctx context.Context, fallback *slog.Logger, args ...any) (context.Context, *slog.Logger) {
	logger := FromContext(ctx, fallback).With(args...)
	return WithLogger(ctx, logger), logger
}
