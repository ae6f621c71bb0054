package observability

import (
	"context"

	"github.com/getsentry/sentry-go"
)

type meterContextKey struct{}

// WithMeter returns a context carrying the provided meter.
func WithMeter(ctx context.Context, meter sentry.Meter) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter == nil {
		meter = sentry.NewMeter(ctx)
	}
	return context.WithValue(ctx, meterContextKey{}, meter.WithCtx(ctx))
}

// MeterFromContext returns the request-scoped meter from context or a new one.
func MeterFromContext(ctx context.Context) sentry.Meter {
	if ctx == nil {
		ctx = context.Background()
	}
	if meter, ok := ctx.Value(meterContextKey{}).(sentry.Meter); ok && meter != nil {
		return meter.WithCtx(ctx)
	}
	return sentry.NewMeter(ctx).WithCtx(ctx)
}

// StartServiceSpan opens a manual span named "service.<area>.<operation>".
func StartServiceSpan(ctx context.Context, area, operation, description string) *sentry.Span {
	return sentry.StartSpan(
		ctx,
		"service."+area+"."+operation,
		sentry.WithOpName("service."+area),
		sentry.WithDescription(description),
		sentry.WithSpanOrigin(sentry.SpanOriginManual),
	)
}

// FinishSpan sets the span status from err and finishes it.
func FinishSpan(span *sentry.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
	} else {
		span.Status = sentry.SpanStatusOK
	}
	span.Finish()
}
