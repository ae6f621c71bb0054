package db

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5"

	"github.com/printstore/printstore/internal/logging"
)

type queryTraceContextKey struct{}

type queryTrace struct {
	span    *sentry.Span
	query   string
	started time.Time
}

// queryTracer opens a Sentry span per query when the request is traced and
// logs queries slower than the threshold.
type queryTracer struct {
	logger    *slog.Logger
	threshold time.Duration
}

func newQueryTracer(logger *slog.Logger, threshold time.Duration) *queryTracer {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &queryTracer{logger: logger.With("component", "db"), threshold: threshold}
}

func (t *queryTracer) TraceQueryStart(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryStartData) context.Context {
	trace := &queryTrace{
		query:   normalizeQuery(data.SQL),
		started: time.Now(),
	}

	if sentry.SpanFromContext(ctx) != nil {
		span := sentry.StartSpan(
			ctx,
			"db.query",
			sentry.WithDescription(trace.query),
			sentry.WithSpanOrigin(sentry.SpanOriginManual),
		)
		span.SetData("db.system", "postgresql")
		if operation := queryOperation(trace.query); operation != "" {
			span.SetData("db.operation", operation)
		}
		trace.span = span
		ctx = span.Context()
	}

	return context.WithValue(ctx, queryTraceContextKey{}, trace)
}

func (t *queryTracer) TraceQueryEnd(ctx context.Context, _ *pgx.Conn, data pgx.TraceQueryEndData) {
	trace, _ := ctx.Value(queryTraceContextKey{}).(*queryTrace)
	if trace == nil {
		return
	}

	elapsed := time.Since(trace.started)
	if t.threshold > 0 && elapsed >= t.threshold {
		logging.FromContext(ctx, t.logger).Warn("slow query",
			"operation", queryOperation(trace.query),
			"duration_ms", elapsed.Milliseconds(),
			"rows_affected", data.CommandTag.RowsAffected(),
		)
	}

	span := trace.span
	if span == nil {
		return
	}

	if data.Err != nil {
		span.Status = sentry.SpanStatusInternalError
		span.SetData("db.error", data.Err.Error())
	} else {
		span.Status = sentry.SpanStatusOK
	}

	rowsAffected := data.CommandTag.RowsAffected()
	if rowsAffected >= 0 {
		span.SetData("db.rows_affected", rowsAffected)
	}

	span.Finish()
}

func normalizeQuery(query string) string {
	normalized := strings.TrimSpace(query)
	if normalized == "" {
		return "sql.query"
	}

	normalized = strings.Join(strings.Fields(normalized), " ")
	const maxLen = 512
	if len(normalized) > maxLen {
		return normalized[:maxLen]
	}
	return normalized
}

func queryOperation(query string) string {
	parts := strings.Fields(query)
	if len(parts) == 0 {
		return ""
	}
	return strings.ToUpper(parts[0])
}
