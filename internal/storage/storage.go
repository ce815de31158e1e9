// Package storage opens the configured document store.
package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tendant/simple-org-slim/internal/config"
	"github.com/tendant/simple-org-slim/pkg/docstore"
	"github.com/tendant/simple-org-slim/pkg/docstore/boltstore"
	"github.com/tendant/simple-org-slim/pkg/docstore/mongostore"
	"github.com/tendant/simple-org-slim/pkg/docstore/pgstore"
	"github.com/tendant/simple-org-slim/pkg/repository"
)

// Open connects to the store selected by cfg.Driver and ensures the unique
// indexes the repositories depend on.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (docstore.Store, error) {
	if logger == nil {
		logger = slog.Default()
	}

	store, err := connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if err := repository.EnsureIndexes(ctx, store); err != nil {
		_ = store.Close(ctx)
		return nil, err
	}

	logger.Info("connected to document store", "driver", cfg.Driver, "database", store.Name())
	return store, nil
}

func connect(ctx context.Context, cfg config.StoreConfig) (docstore.Store, error) {
	switch cfg.Driver {
	case config.DriverBolt:
		return boltstore.Open(cfg.BoltPath)
	case config.DriverMongo:
		return mongostore.Connect(ctx, mongostore.Config{
			URI:      cfg.MongoURI,
			Database: cfg.MongoDatabase,
		})
	case config.DriverPostgres:
		return pgstore.Open(ctx, pgstore.Config{
			Host:     cfg.DBHost,
			Port:     cfg.DBPort,
			User:     cfg.DBUser,
			Password: cfg.DBPassword,
			DBName:   cfg.DBName,
			SSLMode:  cfg.DBSSLMode,
		})
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
