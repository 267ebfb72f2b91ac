// File: internal/monitoring/dashboard.go
package monitoring

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"promptvault/internal/cache"
	"promptvault/internal/database"
	"promptvault/internal/events"
	"promptvault/internal/response"
	"promptvault/internal/services"
)

// ===============================
// DASHBOARD CORE
// ===============================

// ConnectionStats is implemented by the websocket hub.
type ConnectionStats interface {
	Stats() (users, connections int)
}

// Dashboard gathers runtime and engine metrics into one snapshot.
type Dashboard struct {
	services    *services.ServiceCollection
	connections ConnectionStats
	logger      *zap.Logger
	startTime   time.Time
	version     string
	environment string
}

// NewDashboard creates a dashboard. connections may be nil.
func NewDashboard(sc *services.ServiceCollection, connections ConnectionStats, logger *zap.Logger, environment string) *Dashboard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dashboard{
		services:    sc,
		connections: connections,
		logger:      logger,
		startTime:   time.Now(),
		version:     Version(),
		environment: environment,
	}
}

// ===============================
// DATA STRUCTURES
// ===============================

// Snapshot is the metrics view served by the dashboard.
type Snapshot struct {
	Status        string                    `json:"status"`
	Timestamp     time.Time                 `json:"timestamp"`
	Uptime        string                    `json:"uptime"`
	Version       string                    `json:"version"`
	Environment   string                    `json:"environment"`
	Resources     ResourceHealth            `json:"resources"`
	Events        *events.EventBusStats     `json:"events"`
	Database      *database.MetricsSnapshot `json:"database,omitempty"`
	Cache         *cache.Stats              `json:"cache,omitempty"`
	Notifications NotificationStats         `json:"notifications"`
	Badges        int                       `json:"badges"`
}

// ResourceHealth represents process resource usage
type ResourceHealth struct {
	Memory     ResourceMetric `json:"memory"`
	Goroutines ResourceMetric `json:"goroutines"`
	Database   ResourceMetric `json:"database,omitempty"`
}

// ResourceMetric represents a resource metric with thresholds
type ResourceMetric struct {
	Value     interface{} `json:"value"`
	Unit      string      `json:"unit"`
	Status    string      `json:"status"`
	Threshold interface{} `json:"threshold,omitempty"`
	Usage     float64     `json:"usage_percent,omitempty"`
}

// NotificationStats counts websocket subscribers.
type NotificationStats struct {
	Users       int `json:"users"`
	Connections int `json:"connections"`
}

// ===============================
// COLLECTION
// ===============================

// Collect builds a snapshot. The overall status comes from the service health check
// and is downgraded to "degraded" when a resource crosses its critical threshold.
func (d *Dashboard) Collect(ctx context.Context) *Snapshot {
	health := d.services.HealthCheck(ctx)

	snap := &Snapshot{
		Status:      health.Status,
		Timestamp:   time.Now(),
		Uptime:      time.Since(d.startTime).Round(time.Second).String(),
		Version:     d.version,
		Environment: d.environment,
		Events:      d.services.EventBus.Stats(),
		Badges:      d.services.Catalog.Len(),
	}

	d.collectResources(snap)

	if d.services.Cache != nil {
		if stats, err := d.services.Cache.Stats(ctx); err == nil {
			snap.Cache = stats
		} else {
			d.logger.Warn("Failed to read cache stats", zap.Error(err))
		}
	}

	if d.connections != nil {
		snap.Notifications.Users, snap.Notifications.Connections = d.connections.Stats()
	}

	if snap.Status == "healthy" &&
		(snap.Resources.Memory.Status == "critical" || snap.Resources.Goroutines.Status == "critical") {
		snap.Status = "degraded"
	}
	return snap
}

func (d *Dashboard) collectResources(snap *Snapshot) {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	heapUsage := 0.0
	if mem.HeapSys > 0 {
		heapUsage = float64(mem.HeapInuse) / float64(mem.HeapSys) * 100
	}
	goroutines := runtime.NumGoroutine()

	snap.Resources = ResourceHealth{
		Memory: ResourceMetric{
			Value:  formatBytes(mem.HeapAlloc),
			Unit:   "bytes",
			Status: getResourceStatus(heapUsage, 80, 90),
			Usage:  heapUsage,
		},
		Goroutines: ResourceMetric{
			Value:  goroutines,
			Unit:   "count",
			Status: getResourceStatus(float64(goroutines), 1000, 2000),
		},
	}

	if d.services.DBManager == nil {
		return
	}
	metrics := d.services.DBManager.Metrics()
	snap.Database = metrics

	maxOpen := metrics.DBStats.MaxOpenConnections
	usage := 0.0
	if maxOpen > 0 {
		usage = float64(metrics.DBStats.OpenConnections) / float64(maxOpen) * 100
	}
	snap.Resources.Database = ResourceMetric{
		Value:     metrics.DBStats.OpenConnections,
		Unit:      "connections",
		Status:    getResourceStatus(usage, 70, 85),
		Usage:     usage,
		Threshold: maxOpen,
	}
}

// Handler serves the snapshot as a JSON envelope.
func (d *Dashboard) Handler(builder *response.Builder) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		builder.WriteSuccess(w, r, d.Collect(r.Context()))
	}
}

// ===============================
// UTILITY FUNCTIONS
// ===============================

// Version returns the build version: VERSION from the environment, then the
// module version or VCS revision recorded at build time.
func Version() string {
	if version := os.Getenv("VERSION"); version != "" {
		return version
	}

	if info, ok := debug.ReadBuildInfo(); ok {
		if info.Main.Version != "" && info.Main.Version != "(devel)" {
			return info.Main.Version
		}
		for _, setting := range info.Settings {
			if setting.Key == "vcs.revision" && setting.Value != "" {
				return setting.Value
			}
		}
	}

	return "0.0.0-unknown"
}

// getResourceStatus determines resource status based on usage and thresholds
func getResourceStatus(value, warningThreshold, criticalThreshold float64) string {
	if value >= criticalThreshold {
		return "critical"
	}
	if value >= warningThreshold {
		return "warning"
	}
	return "healthy"
}

// formatBytes formats bytes in human-readable format
func formatBytes(bytes uint64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
