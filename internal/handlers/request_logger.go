package handlers

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/getsentry/sentry-go/attribute"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/printstore/printstore/internal/logging"
)

const (
	requestIDHeader    = "X-Request-ID"
	maxRequestIDLength = 128
)

// statusRecorder remembers the status code and body size written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
	bytes  int
}

func (w *statusRecorder) WriteHeader(status int) {
	if w.status == 0 {
		w.status = status
	}
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusRecorder) Write(b []byte) (int, error) {
	if w.status == 0 {
		w.status = http.StatusOK
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

func (w *statusRecorder) statusCode() int {
	if w.status == 0 {
		return http.StatusOK
	}
	return w.status
}

// RequestLogger assigns a request id, stores a request-scoped logger in the
// context and logs plus meters every completed request.
func (h *Handlers) RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := requestIDFromRequest(r)
		r.Header.Set(requestIDHeader, requestID)
		w.Header().Set(requestIDHeader, requestID)

		route := routeLabel(r)
		logger := h.logger.With(requestAttrs(r, requestID, route)...)
		ctx := logging.WithLogger(r.Context(), logger)
		r = r.WithContext(ctx)

		rec := &statusRecorder{ResponseWriter: w}
		next.ServeHTTP(rec, r)

		status := rec.statusCode()
		elapsed := time.Since(start)
		recordRequestMetrics(r, route, status, elapsed)

		level, msg := slog.LevelInfo, "request completed"
		if route == "health" {
			level, msg = slog.LevelDebug, "health check completed"
		}
		logger.Log(ctx, level, msg,
			"status", status,
			"duration_ms", elapsed.Milliseconds(),
			"bytes", rec.bytes,
		)
	})
}

func requestAttrs(r *http.Request, requestID, route string) []any {
	attrs := []any{
		"request_id", requestID,
		"method", r.Method,
		"path", r.URL.Path,
		"remote_ip", clientIP(r),
	}
	if route != "" {
		attrs = append(attrs, "route", route)
	}
	if ua := strings.TrimSpace(r.UserAgent()); ua != "" {
		attrs = append(attrs, "user_agent", ua)
	}
	if origin := strings.TrimSpace(r.Header.Get("Origin")); origin != "" {
		attrs = append(attrs, "origin", origin)
	}
	if r.ContentLength > 0 {
		attrs = append(attrs, "content_length", r.ContentLength)
	}
	return attrs
}

func recordRequestMetrics(r *http.Request, route string, status int, elapsed time.Duration) {
	if route == "" {
		route = "unknown"
	}
	ctx := r.Context()
	meter := sentry.NewMeter(ctx).WithCtx(ctx)

	attrs := []attribute.Builder{
		attribute.String("http.method", r.Method),
		attribute.String("http.route", route),
		attribute.Int("http.status_code", status),
	}
	meter.Count("http.server.requests", 1, sentry.WithAttributes(attrs...))
	if status >= http.StatusInternalServerError {
		meter.Count("http.server.errors", 1, sentry.WithAttributes(attrs...))
	}
	meter.Distribution("http.server.duration", float64(elapsed.Milliseconds()),
		sentry.WithUnit(sentry.UnitMillisecond),
		sentry.WithAttributes(
			attribute.String("http.method", r.Method),
			attribute.String("http.route", route),
			attribute.String("http.status_class", fmt.Sprintf("%dxx", status/100)),
		),
	)
}

// requestIDFromRequest reuses the caller's request id when it is short enough
// to log.
func requestIDFromRequest(r *http.Request) string {
	if r != nil {
		id := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if id != "" && len(id) <= maxRequestIDLength {
			return id
		}
	}
	return uuid.NewString()
}

// clientIP prefers the first X-Forwarded-For hop, then X-Real-Ip.
func clientIP(r *http.Request) string {
	if r == nil {
		return ""
	}
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if realIP := strings.TrimSpace(r.Header.Get("X-Real-Ip")); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// routeLabel names the matched mux route, falling back to its path template.
func routeLabel(r *http.Request) string {
	if r == nil {
		return ""
	}
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	if name := route.GetName(); name != "" {
		return name
	}
	tmpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tmpl
}
