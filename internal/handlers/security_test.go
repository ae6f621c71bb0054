package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/printstore/printstore/internal/config"
)

func TestRequireSameOrigin(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		method  string
		origin  string
		referer string
		want    int
	}{
		{name: "matching origin", method: http.MethodPost, origin: "https://api.example.com", want: http.StatusNoContent},
		{name: "allowed storefront origin", method: http.MethodPost, origin: "https://shop.example.com", want: http.StatusNoContent},
		{name: "matching referer only", method: http.MethodPost, referer: "https://shop.example.com/checkout", want: http.StatusNoContent},
		{name: "missing origin and referer", method: http.MethodPost, want: http.StatusForbidden},
		{name: "cross origin", method: http.MethodPost, origin: "https://attacker.example", want: http.StatusForbidden},
		{name: "bad referer with good origin", method: http.MethodPost, origin: "https://shop.example.com", referer: "https://attacker.example/", want: http.StatusForbidden},
		{name: "read only method skipped", method: http.MethodGet, want: http.StatusNoContent},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := &Handlers{config: &config.Config{
				BaseURL:        "https://api.example.com",
				AllowedOrigins: []string{"https://shop.example.com"},
			}}
			next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(tt.method, "https://api.example.com/api/checkout", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.referer != "" {
				req.Header.Set("Referer", tt.referer)
			}
			rec := httptest.NewRecorder()

			h.RequireSameOrigin(next).ServeHTTP(rec, req)

			if rec.Code != tt.want {
				t.Fatalf("expected status %d, got %d", tt.want, rec.Code)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	h := &Handlers{config: &config.Config{AllowedOrigins: []string{"https://shop.example.com/"}}}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/checkout", nil)
	req.Header.Set("Origin", "https://shop.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.CORS(next).ServeHTTP(rec, req)

	if rec.Code == http.StatusTeapot || rec.Code >= 300 {
		t.Fatalf("preflight must be answered by the CORS layer, got %d", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "https://shop.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
}

func TestCORSRejectsOtherOrigins(t *testing.T) {
	t.Parallel()

	h := &Handlers{config: &config.Config{
		BaseURL:        "https://api.example.com",
		AllowedOrigins: []string{"https://shop.example.com"},
	}}
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})

	tests := []struct {
		name   string
		origin string
		allow  bool
	}{
		{name: "allowed origin", origin: "https://shop.example.com", allow: true},
		{name: "base url origin", origin: "https://api.example.com", allow: true},
		{name: "plain http on allowed host", origin: "http://shop.example.com"},
		{name: "other port on allowed host", origin: "https://shop.example.com:9443"},
		{name: "unknown host", origin: "https://attacker.example"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/products", nil)
			req.Header.Set("Origin", tt.origin)
			rec := httptest.NewRecorder()
			h.CORS(next).ServeHTTP(rec, req)

			if rec.Code != http.StatusTeapot {
				t.Fatalf("simple request must reach the handler, got %d", rec.Code)
			}
			got := rec.Header().Get("Access-Control-Allow-Origin")
			if tt.allow && got != tt.origin {
				t.Fatalf("expected allow origin %q, got %q", tt.origin, got)
			}
			if !tt.allow && got != "" {
				t.Fatalf("origin %q must not be allowed, got %q", tt.origin, got)
			}
		})
	}
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	h := &Handlers{}
	rec := httptest.NewRecorder()
	h.SecurityHeaders(http.NotFoundHandler()).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	for _, header := range []string{"X-Content-Type-Options", "X-Frame-Options", "Content-Security-Policy"} {
		if rec.Header().Get(header) == "" {
			t.Fatalf("missing %s", header)
		}
	}
}
