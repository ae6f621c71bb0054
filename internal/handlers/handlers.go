package handlers

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/printstore/printstore/internal/cache"
	"github.com/printstore/printstore/internal/config"
	"github.com/printstore/printstore/internal/db"
	"github.com/printstore/printstore/internal/logging"
	"github.com/printstore/printstore/internal/models"
	"github.com/printstore/printstore/internal/payment"
	"github.com/printstore/printstore/internal/services"
)

const (
	maxWebhookBodyBytes = 1 << 20 // 1 MB
	maxJSONBodyBytes    = 256 << 10
)

type healthChecker interface {
	Ping(ctx context.Context) error
}

type catalogService interface {
	ListProducts(ctx context.Context, filter db.ProductFilter) ([]services.ProductView, error)
	GetProduct(ctx context.Context, slug string) (*services.ProductView, error)
	ListCategories(ctx context.Context) ([]*models.Category, error)
}

type orderService interface {
	Checkout(ctx context.Context, input services.CheckoutInput) (*services.CheckoutResult, error)
	VerifyPayment(ctx context.Context, input services.VerifyPaymentInput) (*models.Order, error)
	HandlePaymentEvent(ctx context.Context, event *payment.Event) error
	GetOrder(ctx context.Context, orderID uuid.UUID) (*services.OrderView, error)
}

// Handlers provides the storefront JSON API and the Razorpay webhook.
type Handlers struct {
	config        *config.Config
	db            healthChecker
	cacheProvider cache.Provider
	catalog       catalogService
	orders        orderService
	logger        *slog.Logger
}

type Dependencies struct {
	Config         *config.Config
	DB             healthChecker
	CacheProvider  cache.Provider
	CatalogService catalogService
	OrderService   orderService
	Logger         *slog.Logger
}

func New(deps Dependencies) (*Handlers, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	if deps.Config == nil {
		return nil, fmt.Errorf("handlers dependencies: config is required")
	}
	if deps.DB == nil {
		return nil, fmt.Errorf("handlers dependencies: db is required")
	}
	if deps.CacheProvider == nil {
		return nil, fmt.Errorf("handlers dependencies: cacheProvider is required")
	}
	if deps.CatalogService == nil {
		return nil, fmt.Errorf("handlers dependencies: catalogService is required")
	}
	if deps.OrderService == nil {
		return nil, fmt.Errorf("handlers dependencies: orderService is required")
	}

	return &Handlers{
		config:        deps.Config,
		db:            deps.DB,
		cacheProvider: deps.CacheProvider,
		catalog:       deps.CatalogService,
		orders:        deps.OrderService,
		logger:        logger.With("component", "handlers"),
	}, nil
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.loggerFromContext(ctx)

	if err := h.db.Ping(ctx); err != nil {
		logger.Error("database health check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "database unhealthy")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handlers) loggerFromContext(ctx context.Context) *slog.Logger {
	return logging.FromContext(ctx, h.logger)
}
