package logging

import (
	"context"
	"errors"
	"io"
	"log/slog"
)

// MultiHandler fans out slog records to every handler that accepts the level.
// Nil handlers are skipped.
func MultiHandler(handlers ...slog.Handler) slog.Handler {
	filtered := make(fanout, 0, len(handlers))
	for _, handler := range handlers {
		if handler != nil {
			filtered = append(filtered, handler)
		}
	}
	switch len(filtered) {
	case 0:
		return slog.NewTextHandler(io.Discard, nil)
	case 1:
		return filtered[0]
	}
	return filtered
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, handler := range f {
		if handler.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs error
	for _, handler := range f {
		if handler.Enabled(ctx, record.Level) {
			errs = errors.Join(errs, handler.Handle(ctx, record.Clone()))
		}
	}
	return errs
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithAttrs(attrs) })
}

func (f fanout) WithGroup(name string) slog.Handler {
	return f.each(func(h slog.Handler) slog.Handler { return h.WithGroup(name) })
}

func (f fanout) each(apply func(slog.Handler) slog.Handler) fanout {
	next := make(fanout, len(f))
	for i, handler := range f {
		next[i] = apply(handler)
	}
	return next
}
