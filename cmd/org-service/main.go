package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/tendant/simple-org-slim/internal/config"
	"github.com/tendant/simple-org-slim/internal/storage"
	"github.com/tendant/simple-org-slim/internal/telemetry"
	"github.com/tendant/simple-org-slim/orgsvc"
)

func main() {
	// Load .env file if present (ignore error if not found)
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		telemetry.SetupLogger("json", "info").Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := telemetry.SetupLogger(cfg.LogFormat, cfg.LogLevel)

	// Connect to the document store
	connectCtx, cancelConnect := context.WithTimeout(context.Background(), 15*time.Second)
	store, err := storage.Open(connectCtx, cfg.Store, logger)
	cancelConnect()
	if err != nil {
		logger.Error("failed to open document store", "driver", cfg.Store.Driver, "error", err)
		os.Exit(1)
	}
	defer store.Close(context.Background())

	svc, err := orgsvc.New(orgsvc.FromConfig(store, cfg, logger))
	if err != nil {
		logger.Error("failed to initialize service", "error", err)
		os.Exit(1)
	}

	// Create HTTP server
	addr := cfg.Addr()
	server := &http.Server{
		Addr:         addr,
		Handler:      svc.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("starting server", "addr", addr, "store", cfg.Store.Driver, "compensate", cfg.Lifecycle.Compensate)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	logger.Info("server stopped")
}
