package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lmittmann/tint"

	"github.com/printstore/printstore/internal/cache"
	"github.com/printstore/printstore/internal/catalog"
	"github.com/printstore/printstore/internal/config"
	"github.com/printstore/printstore/internal/db"
	"github.com/printstore/printstore/internal/handlers"
	"github.com/printstore/printstore/internal/logging"
	"github.com/printstore/printstore/internal/payment"
	"github.com/printstore/printstore/internal/services"
)

const sentryFlushTimeout = 2 * time.Second

type App struct {
	Config        *config.Config
	Logger        *slog.Logger
	DB            *pgxpool.Pool
	CacheProvider cache.Provider
	Handlers      *handlers.Handlers
	sentryEnabled bool
}

func New() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	sentryEnabled, err := initSentry(cfg)
	if err != nil {
		return nil, err
	}
	logger := NewLogger(cfg.LogLevel, cfg.LogFormat, sentryEnabled)

	startupCtx, startupCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer startupCancel()

	database, err := db.Connect(startupCtx, cfg.DatabaseURL, logger.With("component", "db"))
	if err != nil {
		return nil, err
	}

	cacheProvider, err := cache.NewProvider(cache.Config{
		Provider:              cfg.CacheProvider,
		RedisConnectionString: cfg.RedisConnectionString,
	})
	if err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to initialize cache provider: %w", err)
	}

	categoryStore := db.NewCategoryStore(database)
	productStore := db.NewProductStore(database)
	orderStore := db.NewOrderStore(database)

	discountLookup := services.NewCachedDiscountLookup(categoryStore, cacheProvider, 0, logger.With("component", "discount_cache"))
	catalogService := services.NewCatalogService(
		productStore,
		categoryStore,
		catalog.NewDiscountAttacher(discountLookup),
		cfg.Currency,
		logger.With("component", "catalog_service"),
	)

	gateway := payment.NewClient(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayAPIURL)
	orderService := services.NewOrderService(
		productStore,
		orderStore,
		gateway,
		catalog.NewPricer(),
		services.OrderSettings{
			Currency:                   cfg.Currency,
			ShippingFlatRatePaise:      cfg.ShippingFlatRatePaise,
			FreeShippingThresholdPaise: cfg.FreeShippingThresholdPaise,
			KeySecret:                  cfg.RazorpayKeySecret,
		},
		logger.With("component", "order_service"),
	)

	h, err := handlers.New(handlers.Dependencies{
		Config:         cfg,
		DB:             database,
		CacheProvider:  cacheProvider,
		CatalogService: catalogService,
		OrderService:   orderService,
		Logger:         logger,
	})
	if err != nil {
		closeCacheProvider(logger, cacheProvider)
		database.Close()
		return nil, fmt.Errorf("failed to initialize handlers: %w", err)
	}

	return &App{
		Config:        cfg,
		Logger:        logger,
		DB:            database,
		CacheProvider: cacheProvider,
		Handlers:      h,
		sentryEnabled: sentryEnabled,
	}, nil
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.CacheProvider != nil {
		closeCacheProvider(a.Logger, a.CacheProvider)
	}
	if a.DB != nil {
		a.DB.Close()
	}
	if a.sentryEnabled {
		sentry.Flush(sentryFlushTimeout)
	}
}

func initSentry(cfg *config.Config) (bool, error) {
	if strings.TrimSpace(cfg.SentryDSN) == "" {
		return false, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		EnableTracing:    cfg.SentryTracesSampleRate > 0,
		TracesSampleRate: cfg.SentryTracesSampleRate,
		AttachStacktrace: true,
	})
	if err != nil {
		return false, fmt.Errorf("failed to initialize sentry: %w", err)
	}
	return true, nil
}

// NewLogger builds the process logger. Errors are also reported to Sentry
// when it is enabled.
func NewLogger(level slog.Level, format string, reportToSentry bool) *slog.Logger {
	var console slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "json":
		console = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	default:
		console = tint.NewHandler(os.Stdout, &tint.Options{Level: level})
	}

	if !reportToSentry {
		return slog.New(console)
	}
	return slog.New(logging.MultiHandler(console, logging.NewSentryHandler(context.Background())))
}

func closeCacheProvider(logger *slog.Logger, provider cache.Provider) {
	if provider == nil {
		return
	}
	if err := provider.Close(); err != nil && logger != nil {
		logger.Warn("failed to close cache provider", "error", err)
	}
}
