package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/printstore/printstore/internal/config"
	"github.com/printstore/printstore/internal/handlers"
)

type Server struct {
	cfg        *config.Config
	logger     *slog.Logger
	handlers   *handlers.Handlers
	httpServer *http.Server
}

func New(cfg *config.Config, logger *slog.Logger, h *handlers.Handlers) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if h == nil {
		return nil, fmt.Errorf("handlers are required")
	}

	s := &Server{
		cfg:      cfg,
		logger:   logger,
		handlers: h,
	}

	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           s.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}

	return s, nil
}

// Handler returns the full HTTP stack. CORS wraps the router so preflight
// requests are answered before route method matching.
func (s *Server) Handler() http.Handler {
	return s.handlers.CORS(s.buildRouter())
}

func (s *Server) Run() error {
	s.logger.Info("server starting", "port", s.cfg.Port)

	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Server) Close(ctx context.Context) error {
	if s == nil || s.httpServer == nil {
		return nil
	}

	s.logger.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return err
	}
	s.logger.Info("server stopped")
	return nil
}

func (s *Server) buildRouter() *mux.Router {
	h := s.handlers

	r := mux.NewRouter()
	r.Use(h.RequestLogger)
	r.Use(h.MetricsContext)
	r.Use(h.SecurityHeaders)
	r.HandleFunc("/health", h.Health).Methods("GET").Name("health")
	r.HandleFunc("/webhooks/razorpay", h.RazorpayWebhook).Methods("POST").Name("webhooks.razorpay")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(h.RequireSameOrigin)
	api.HandleFunc("/categories", h.ListCategories).Methods("GET").Name("api.categories")
	api.HandleFunc("/products", h.ListProducts).Methods("GET").Name("api.products")
	api.HandleFunc("/products/{slug}", h.GetProduct).Methods("GET").Name("api.products.get")
	api.HandleFunc("/checkout", h.Checkout).Methods("POST").Name("api.checkout")
	api.HandleFunc("/payments/verify", h.VerifyPayment).Methods("POST").Name("api.payments.verify")
	api.HandleFunc("/orders/{id}", h.GetOrder).Methods("GET").Name("api.orders.get")

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}` + "\n"))
	})

	return r
}
