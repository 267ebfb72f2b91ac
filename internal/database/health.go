package database

import (
	"context"
	"fmt"
	"time"
)

// Health status values
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthStatus is the result of a database health probe.
type HealthStatus struct {
	Status          string        `json:"status"`
	ResponseTime    time.Duration `json:"response_time"`
	OpenConnections int           `json:"open_connections"`
	InUse           int           `json:"in_use"`
	Errors          []string      `json:"errors,omitempty"`
	Timestamp       time.Time     `json:"timestamp"`
}

// Health pings the database and inspects pool pressure.
func (m *Manager) Health(ctx context.Context) *HealthStatus {
	status := &HealthStatus{Status: StatusHealthy, Timestamp: time.Now()}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	start := time.Now()
	var one int
	err := m.db.QueryRowContext(ctx, "SELECT 1").Scan(&one)
	status.ResponseTime = time.Since(start)
	if err != nil {
		status.Status = StatusUnhealthy
		status.Errors = append(status.Errors, fmt.Sprintf("connectivity: %v", err))
		return status
	}

	stats := m.Stats()
	status.OpenConnections = stats.OpenConnections
	status.InUse = stats.InUse

	if stats.MaxOpenConnections > 0 && stats.InUse >= int(float64(stats.MaxOpenConnections)*0.9) {
		status.Status = StatusDegraded
		status.Errors = append(status.Errors, "connection pool near capacity")
	}
	if status.ResponseTime > time.Second {
		status.Status = StatusDegraded
		status.Errors = append(status.Errors, "slow health probe")
	}

	return status
}
