package handlers

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/getsentry/sentry-go"
	"github.com/go-chi/cors"
	"github.com/getsentry/sentry-go/attribute"

	"github.com/printstore/printstore/internal/config"
	"github.com/printstore/printstore/internal/observability"
)

// SecurityHeaders sets baseline security headers for all responses. The API
// only serves JSON, so nothing may be framed or executed from it.
func (h *Handlers) SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers := w.Header()
		headers.Set("X-Content-Type-Options", "nosniff")
		headers.Set("X-Frame-Options", "DENY")
		headers.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		headers.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
		headers.Set("Cross-Origin-Resource-Policy", "same-site")

		next.ServeHTTP(w, r)
	})
}

// CORS lets BASE_URL and ALLOWED_ORIGINS call the API from the browser and
// answers their preflight requests. Origins match on scheme, host and port.
func (h *Handlers) CORS(next http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins: corsOrigins(h.config),
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", requestIDHeader},
		ExposedHeaders: []string{requestIDHeader},
		MaxAge:         600,
	}).Handler(next)
}

func corsOrigins(cfg *config.Config) []string {
	if cfg == nil {
		return nil
	}
	origins := make([]string, 0, len(cfg.AllowedOrigins)+1)
	for _, raw := range append([]string{cfg.BaseURL}, cfg.AllowedOrigins...) {
		if origin := originOf(raw); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// originOf reduces a URL to its scheme://host[:port] origin.
func originOf(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return strings.ToLower(parsed.Scheme + "://" + parsed.Host)
}

// RequireSameOrigin blocks state-changing requests from origins other than
// the API host, BASE_URL and ALLOWED_ORIGINS.
func (h *Handlers) RequireSameOrigin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		meter := observability.MeterFromContext(r.Context())
		meter.SetAttributes(attribute.String("component", "security.same_origin"))
		if !requestMutatesState(r.Method) {
			next.ServeHTTP(w, r)
			return
		}
		meter.Count("security.same_origin.checked", 1)

		originHeader := strings.TrimSpace(r.Header.Get("Origin"))
		refererHeader := strings.TrimSpace(r.Header.Get("Referer"))

		if originHeader == "" && refererHeader == "" {
			meter.Count("security.same_origin.blocked", 1, sentry.WithAttributes(attribute.String("reason", "missing_origin_and_referer")))
			h.loggerFromContext(r.Context()).Warn("blocked state-changing request without origin/referrer", "method", r.Method, "path", r.URL.Path)
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		for _, check := range []struct {
			value  string
			reason string
		}{
			{originHeader, "invalid_origin"},
			{refererHeader, "invalid_referer"},
		} {
			if check.value == "" {
				continue
			}
			if ok, err := h.headerMatchesAllowedHost(check.value, r); err != nil || !ok {
				meter.Count("security.same_origin.blocked", 1, sentry.WithAttributes(attribute.String("reason", check.reason)))
				h.loggerFromContext(r.Context()).Warn("blocked state-changing request", "reason", check.reason, "value", check.value, "error", err)
				writeError(w, http.StatusForbidden, "forbidden")
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func requestMutatesState(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func (h *Handlers) headerMatchesAllowedHost(value string, r *http.Request) (bool, error) {
	parsed, err := url.Parse(value)
	if err != nil {
		return false, fmt.Errorf("failed to parse URL: %w", err)
	}
	if parsed.Host == "" {
		return false, fmt.Errorf("missing host")
	}

	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return false, fmt.Errorf("missing hostname")
	}

	_, ok := allowedRequestHosts(h.config, r)[host]
	return ok, nil
}

func allowedRequestHosts(cfg *config.Config, r *http.Request) map[string]struct{} {
	hosts := map[string]struct{}{}

	if r != nil {
		if host := normalizeHost(r.Host); host != "" {
			hosts[host] = struct{}{}
		}
	}

	if cfg != nil {
		if host := hostFromBaseURL(cfg.BaseURL); host != "" {
			hosts[host] = struct{}{}
		}
		for _, origin := range cfg.AllowedOrigins {
			if host := hostFromBaseURL(origin); host != "" {
				hosts[host] = struct{}{}
			}
		}
	}

	return hosts
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}

	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(strings.TrimSpace(host))
	}
	return strings.ToLower(hostport)
}

func hostFromBaseURL(rawURL string) string {
	rawURL = strings.TrimSpace(rawURL)
	if rawURL == "" {
		return ""
	}

	parsed, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(parsed.Hostname())
}
