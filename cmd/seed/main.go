package main

// Loads a catalog YAML file into the database.

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/printstore/printstore/app"
	"github.com/printstore/printstore/internal/catalog"
	"github.com/printstore/printstore/internal/config"
	"github.com/printstore/printstore/internal/db"
	"github.com/printstore/printstore/internal/services"
)

func main() {
	path := flag.String("file", "catalog.yaml", "catalog file to load")
	flag.Parse()

	fallbackLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := config.LoadDotEnv(); err != nil {
		fallbackLogger.Error("failed to load environment", "error", err)
		os.Exit(1)
	}
	cfg, err := config.LoadSeed()
	if err != nil {
		fallbackLogger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := app.NewLogger(cfg.LogLevel, cfg.LogFormat, false)

	if err := run(logger, cfg, *path); err != nil {
		logger.Error("seed failed", "file", *path, "error", err)
		os.Exit(1)
	}
}

func run(logger *slog.Logger, cfg *config.SeedConfig, path string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	content, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	file, err := catalog.NewParser().Parse(content)
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer pool.Close()

	seeder := services.NewCatalogSeeder(
		db.NewCategoryStore(pool),
		db.NewProductStore(pool),
		catalog.NewValidator(),
		logger,
	)
	result, err := seeder.Seed(ctx, file)
	if err != nil {
		return err
	}

	logger.Info("catalog seeded",
		"categories", result.Categories,
		"products", result.Products,
		"variants", result.Variants,
	)
	return nil
}
