// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 StaffAuth Contributors

package main

import (
	"context"
	"log/slog"

	"github.com/samber/oops"

	"github.com/staffauth/staffauth/internal/auth"
	"github.com/staffauth/staffauth/internal/auth/memory"
	"github.com/staffauth/staffauth/internal/auth/postgres"
	"github.com/staffauth/staffauth/internal/config"
	"github.com/staffauth/staffauth/internal/store"
)

// RepositoryFactory opens the configured user store. The returned func
// releases it.
type RepositoryFactory func(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.UserRepository, func(), error)

// openRepository is the default RepositoryFactory.
func openRepository(ctx context.Context, cfg *config.Config, logger *slog.Logger) (auth.UserRepository, func(), error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory user store, records are lost on exit")
		return memory.NewUserRepository(), func() {}, nil
	}

	pool, err := store.Connect(ctx, cfg.DatabaseURL, store.ConnectOptions{Logger: logger})
	if err != nil {
		return nil, nil, err
	}

	if cfg.AutoMigrate {
		if err := autoMigrate(cfg.DatabaseURL, logger); err != nil {
			pool.Close()
			return nil, nil, err
		}
	}

	return postgres.NewUserRepository(pool), pool.Close, nil
}

func autoMigrate(databaseURL string, logger *slog.Logger) error {
	m, err := newMigrator(databaseURL)
	if err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	defer func() {
		if closeErr := m.Close(); closeErr != nil {
			logger.Warn("failed to close migrator", "error", closeErr)
		}
	}()

	pending, err := m.PendingMigrations()
	if err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	if len(pending) == 0 {
		logger.Info("database schema up to date")
		return nil
	}
	if err := m.Up(); err != nil {
		return oops.With("operation", "auto-migrate").Wrap(err)
	}
	logger.Info("applied migrations", "count", len(pending))
	return nil
}
