package main

// Printstore API server entry point.

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/printstore/printstore/app"
	"github.com/printstore/printstore/internal/config"
	"github.com/printstore/printstore/server"
)

const shutdownTimeout = 30 * time.Second

func main() {
	fallbackLogger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := config.LoadDotEnv(); err != nil {
		fallbackLogger.Error("failed to load environment", "error", err)
		os.Exit(1)
	}

	application, err := app.New()
	if err != nil {
		fallbackLogger.Error("failed to initialize app", "error", err)
		os.Exit(1)
	}

	err = run(application)
	application.Close()
	if err != nil {
		application.Logger.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run(application *app.App) error {
	srv, err := server.New(application.Config, application.Logger, application.Handlers)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Run()
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Close(shutdownCtx)
}
