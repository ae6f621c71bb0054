package handlers

import (
	"net/http"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/printstore/printstore/internal/observability"
)

// MetricsContext adds a request-scoped, pre-attributed meter to the context.
// Services read it back through observability.MeterFromContext.
func (h *Handlers) MetricsContext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		attrs := []attribute.Builder{
			attribute.String("http.request_id", requestIDFromRequest(r)),
			attribute.String("http.method", r.Method),
		}
		if route := routeLabel(r); route != "" {
			attrs = append(attrs, attribute.String("http.route", route))
		}
		if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" {
			attrs = append(attrs, attribute.String("http.origin", origin))
		}
		if h.config != nil && h.config.Currency != "" {
			attrs = append(attrs, attribute.String("store.currency", h.config.Currency))
		}

		meter := sentry.NewMeter(ctx).WithCtx(ctx)
		meter.SetAttributes(attrs...)

		ctx = observability.WithMeter(ctx, meter)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
