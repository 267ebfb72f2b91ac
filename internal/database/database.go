package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"promptvault/internal/config"
)

// Connect opens the database, retrying with exponential backoff until
// cfg.ConnectTimeout elapses, then applies migrations when AutoMigrate is set.
func Connect(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*Manager, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = 500 * time.Millisecond
	policy.MaxInterval = 10 * time.Second
	policy.MaxElapsedTime = cfg.ConnectTimeout

	var manager *Manager
	connect := func() error {
		m, err := NewManager(cfg, logger)
		if err != nil {
			return err
		}
		manager = m
		return nil
	}
	notify := func(err error, wait time.Duration) {
		logger.Warn("Database not reachable yet, retrying",
			zap.Error(err),
			zap.Duration("retry_in", wait))
	}

	if err := backoff.RetryNotify(connect, backoff.WithContext(policy, ctx), notify); err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if cfg.AutoMigrate {
		path := determineMigrationsPath(cfg.MigrationsPath)
		logger.Info("Running database migrations", zap.String("path", path))
		if err := manager.Migrate(path); err != nil {
			manager.Close()
			return nil, fmt.Errorf("failed to run database migrations: %w", err)
		}
	}

	health := manager.Health(ctx)
	logger.Info("Database initialized successfully",
		zap.String("status", health.Status),
		zap.Duration("response_time", health.ResponseTime),
		zap.Int("open_connections", health.OpenConnections),
	)

	return manager, nil
}

// determineMigrationsPath falls back through the usual locations when the
// configured path does not exist.
func determineMigrationsPath(configPath string) string {
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
	}

	paths := []string{
		"./migrations",
		"../migrations",
		"../../migrations",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return "./migrations"
}
