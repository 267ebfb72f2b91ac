// file: internal/services/service_collection.go
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"promptvault/internal/badges"
	"promptvault/internal/cache"
	"promptvault/internal/config"
	"promptvault/internal/database"
	"promptvault/internal/events"
	"promptvault/internal/repositories"
)

// ServiceCollection holds every service and the infrastructure they share.
type ServiceCollection struct {
	Aggregator  *StatAggregator
	Badges      *BadgeService
	Leaderboard *LeaderboardService
	Activity    *ActivityService
	Subscriber  *BadgeSubscriber

	Repositories *repositories.Collection
	Catalog      *badges.Catalog
	EventBus     events.EventBus
	Cache        cache.Cache
	DBManager    *database.Manager
	Config       *config.Config
	Logger       *zap.Logger

	startTime time.Time
}

// ServiceHealth represents the health status of the service collection
type ServiceHealth struct {
	Status       string                   `json:"status"`
	Timestamp    time.Time                `json:"timestamp"`
	Dependencies map[string]ServiceStatus `json:"dependencies"`
	Uptime       time.Duration            `json:"uptime"`
	Badges       int                      `json:"badges"`
	Issues       []string                 `json:"issues,omitempty"`
}

// ServiceStatus represents the status of an individual dependency
type ServiceStatus struct {
	Name         string        `json:"name"`
	Status       string        `json:"status"` // healthy, degraded, unhealthy
	ResponseTime time.Duration `json:"response_time"`
	Error        string        `json:"error,omitempty"`
}

// Dependencies are the pieces a ServiceCollection is built from. DBManager and Cache
// may be nil (memory driver, no rate limiting).
type Dependencies struct {
	Repositories *repositories.Collection
	Catalog      *badges.Catalog
	EventBus     events.EventBus
	Cache        cache.Cache
	DBManager    *database.Manager
}

// NewServiceCollection wires the services and registers the badge subscriber on the bus.
func NewServiceCollection(deps Dependencies, cfg *config.Config, logger *zap.Logger) (*ServiceCollection, error) {
	if deps.Repositories == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("badge catalog is required")
	}
	if deps.EventBus == nil {
		return nil, fmt.Errorf("event bus is required")
	}
	if cfg == nil {
		return nil, fmt.Errorf("configuration is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	repos := deps.Repositories
	aggregator := NewStatAggregator(repos.Activity, repos.Stats, cfg.Badges, logger.Named("stats"))
	badgeService := NewBadgeService(deps.Catalog, aggregator, repos.Badge, cfg.Badges.EvaluationTimeout, logger.Named("badges"))

	sc := &ServiceCollection{
		Aggregator:   aggregator,
		Badges:       badgeService,
		Leaderboard:  NewLeaderboardService(deps.Catalog, repos.Badge, cfg.Badges, logger.Named("leaderboard")),
		Activity:     NewActivityService(repos, deps.EventBus, logger.Named("activity")),
		Subscriber:   NewBadgeSubscriber(badgeService, deps.EventBus, logger.Named("subscriber")),
		Repositories: repos,
		Catalog:      deps.Catalog,
		EventBus:     deps.EventBus,
		Cache:        deps.Cache,
		DBManager:    deps.DBManager,
		Config:       cfg,
		Logger:       logger,
		startTime:    time.Now(),
	}

	if err := sc.Subscriber.Register(); err != nil {
		return nil, err
	}

	logger.Info("Service collection initialized",
		zap.Int("badges", deps.Catalog.Len()),
		zap.String("tier_weights", cfg.Badges.TierWeights.String()))

	return sc, nil
}

// Start runs the event bus workers.
func (sc *ServiceCollection) Start(ctx context.Context) error {
	return sc.EventBus.Start(ctx)
}

// HealthCheck probes the database, cache and event bus.
func (sc *ServiceCollection) HealthCheck(ctx context.Context) *ServiceHealth {
	health := &ServiceHealth{
		Status:       "healthy",
		Timestamp:    time.Now(),
		Dependencies: make(map[string]ServiceStatus),
		Uptime:       time.Since(sc.startTime),
		Badges:       sc.Catalog.Len(),
	}

	record := func(status ServiceStatus) {
		health.Dependencies[status.Name] = status
		if status.Status == "healthy" {
			return
		}
		health.Issues = append(health.Issues, fmt.Sprintf("%s: %s", status.Name, status.Error))
		if status.Status == "unhealthy" {
			health.Status = "unhealthy"
		} else if health.Status == "healthy" {
			health.Status = "degraded"
		}
	}

	if sc.DBManager != nil {
		db := sc.DBManager.Health(ctx)
		record(ServiceStatus{
			Name:         "database",
			Status:       db.Status,
			ResponseTime: db.ResponseTime,
			Error:        strings.Join(db.Errors, "; "),
		})
	}

	if sc.Cache != nil {
		start := time.Now()
		status := ServiceStatus{Name: "cache", Status: "healthy"}
		if err := sc.Cache.Health(ctx); err != nil {
			// The cache only backs rate limiting, so losing it degrades rather than fails.
			status.Status = "degraded"
			status.Error = err.Error()
		}
		status.ResponseTime = time.Since(start)
		record(status)
	}

	busStatus := ServiceStatus{Name: "event_bus", Status: "healthy"}
	if err := sc.EventBus.Health(); err != nil {
		busStatus.Status = "degraded"
		busStatus.Error = err.Error()
	}
	record(busStatus)

	sc.Logger.Debug("Health check completed",
		zap.String("status", health.Status),
		zap.Int("issues", len(health.Issues)))

	return health
}

// Shutdown drains the event bus, then closes the cache and the database.
func (sc *ServiceCollection) Shutdown(ctx context.Context) error {
	sc.Logger.Info("Shutting down service collection")

	var shutdownErrors []error

	if err := sc.EventBus.Stop(ctx); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("event bus stop: %w", err))
	}

	if sc.Cache != nil {
		if err := sc.Cache.Close(); err != nil {
			shutdownErrors = append(shutdownErrors, fmt.Errorf("cache close: %w", err))
		}
	}

	if err := sc.Repositories.Close(); err != nil {
		shutdownErrors = append(shutdownErrors, fmt.Errorf("database close: %w", err))
	}

	if len(shutdownErrors) > 0 {
		sc.Logger.Error("Errors occurred during shutdown", zap.Int("error_count", len(shutdownErrors)))
		return errors.Join(shutdownErrors...)
	}

	sc.Logger.Info("Service collection shutdown completed successfully")
	return nil
}
