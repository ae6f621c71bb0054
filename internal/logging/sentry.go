package logging

import (
	"context"
	"log/slog"

	sentryslog "github.com/getsentry/sentry-go/slog"
)

// NewSentryHandler reports error records to Sentry as events. Lower levels
// stay on the console handler only.
func NewSentryHandler(ctx context.Context) slog.Handler {
	return sentryslog.Option{
		EventLevel: []slog.Level{slog.LevelError},
		LogLevel:   []slog.Level{},
		AddSource:  true,
	}.NewSentryHandler(ctx)
}
