// Package app assembles the engine from configuration. Both the HTTP server and
// badgectl build their dependencies through it.
package app

import (
	"context"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"promptvault/internal/badges"
	"promptvault/internal/cache"
	"promptvault/internal/config"
	"promptvault/internal/database"
	"promptvault/internal/events"
	"promptvault/internal/middleware"
	"promptvault/internal/monitoring"
	"promptvault/internal/notifications"
	"promptvault/internal/repositories"
	"promptvault/internal/repositories/memstore"
	"promptvault/internal/response"
	"promptvault/internal/router"
	"promptvault/internal/services"
)

// App holds the wired engine and its HTTP surface.
type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	Services      *services.ServiceCollection
	Builder       *response.Builder
	Authenticator *middleware.Authenticator
	Hub           *notifications.Hub
	Handler       http.Handler
}

// OpenStorage returns the repositories for the configured driver. The manager is
// nil for the memory driver.
func OpenStorage(ctx context.Context, cfg *config.DatabaseConfig, logger *zap.Logger) (*repositories.Collection, *database.Manager, error) {
	switch cfg.Driver {
	case "memory":
		logger.Warn("Using in-memory activity store, data is lost on exit")
		return memstore.NewCollection(), nil, nil
	case "postgres", "":
		manager, err := database.Connect(ctx, cfg, logger.Named("database"))
		if err != nil {
			return nil, nil, err
		}
		repos, err := repositories.NewCollection(manager, logger.Named("repositories"))
		if err != nil {
			_ = manager.Close()
			return nil, nil, err
		}
		return repos, manager, nil
	default:
		return nil, nil, fmt.Errorf("unsupported DATABASE_DRIVER %q", cfg.Driver)
	}
}

// NewServices builds the service collection without the HTTP layer.
func NewServices(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*services.ServiceCollection, error) {
	catalog, err := badges.LoadCatalog(cfg.Badges.CatalogPath)
	if err != nil {
		return nil, err
	}
	logger.Info("Badge catalog loaded",
		zap.Int("badges", catalog.Len()),
		zap.String("path", cfg.Badges.CatalogPath))

	repos, manager, err := OpenStorage(ctx, &cfg.Database, logger)
	if err != nil {
		return nil, err
	}

	var rateCache cache.Cache
	if cfg.RateLimit.Enabled {
		rateCache, err = cache.NewCache(cfg.Cache, logger.Named("cache"))
		if err != nil {
			_ = repos.Close()
			return nil, fmt.Errorf("failed to create cache: %w", err)
		}
	}

	bus := events.NewEventBus(&events.EventBusConfig{
		BufferSize:     cfg.Events.BufferSize,
		WorkerCount:    cfg.Events.WorkerCount,
		HandlerTimeout: cfg.Events.HandlerTimeout,
	}, logger.Named("events"))

	sc, err := services.NewServiceCollection(services.Dependencies{
		Repositories: repos,
		Catalog:      catalog,
		EventBus:     bus,
		Cache:        rateCache,
		DBManager:    manager,
	}, cfg, logger)
	if err != nil {
		if rateCache != nil {
			_ = rateCache.Close()
		}
		_ = repos.Close()
		return nil, err
	}
	return sc, nil
}

// New builds the full application including the router and notification hub.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	sc, err := NewServices(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	respCfg := response.DefaultConfig()
	respCfg.PrettyJSON = cfg.IsDevelopment()
	builder := response.NewBuilder(respCfg, logger.Named("response"))

	auth := middleware.NewAuthenticator(cfg.Auth, builder, logger.Named("auth"))

	var limiter *middleware.RateLimiter
	if sc.Cache != nil {
		limiter = middleware.NewRateLimiter(sc.Cache, cfg.RateLimit, builder, logger.Named("ratelimit"))
	}

	hub := notifications.NewHub(cfg.Server.CORSOrigins, logger.Named("notifications"))
	if err := hub.Register(sc.EventBus); err != nil {
		_ = sc.Shutdown(ctx)
		return nil, err
	}

	handler := router.SetupRouter(router.Options{
		Services:      sc,
		Builder:       builder,
		Authenticator: auth,
		RateLimiter:   limiter,
		Hub:           hub,
		Dashboard:     monitoring.NewDashboard(sc, hub, logger.Named("monitoring"), cfg.Server.Environment),
		CORSOrigins:   cfg.Server.CORSOrigins,
		Logger:        logger,
	})

	return &App{
		Config:        cfg,
		Logger:        logger,
		Services:      sc,
		Builder:       builder,
		Authenticator: auth,
		Hub:           hub,
		Handler:       handler,
	}, nil
}

// Start runs the event bus workers.
func (a *App) Start(ctx context.Context) error {
	return a.Services.Start(ctx)
}

// Shutdown closes websocket clients, then drains events and releases storage.
func (a *App) Shutdown(ctx context.Context) error {
	a.Hub.Close()
	return a.Services.Shutdown(ctx)
}
