package monitoring

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptvault/internal/badges"
	"promptvault/internal/config"
	"promptvault/internal/events"
	"promptvault/internal/repositories/memstore"
	"promptvault/internal/services"
)

type fixedConnections struct{ users, conns int }

func (f fixedConnections) Stats() (int, int) { return f.users, f.conns }

func TestDashboardCollect(t *testing.T) {
	catalog, err := badges.DefaultCatalog()
	require.NoError(t, err)

	bus := events.NewEventBus(nil, zap.NewNop())
	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	sc, err := services.NewServiceCollection(services.Dependencies{
		Repositories: memstore.NewCollection(),
		Catalog:      catalog,
		EventBus:     bus,
	}, &config.Config{Badges: config.BadgeConfig{
		QualityRating: 4.5,
		ViralLikes:    100,
		TierWeights:   badges.DefaultTierWeights(),
		DefaultLimit:  10,
		MaxLimit:      100,
	}}, zap.NewNop())
	require.NoError(t, err)

	d := NewDashboard(sc, fixedConnections{users: 2, conns: 3}, zap.NewNop(), "test")
	snap := d.Collect(context.Background())

	assert.Equal(t, "healthy", snap.Status)
	assert.Equal(t, "test", snap.Environment)
	assert.Equal(t, catalog.Len(), snap.Badges)
	assert.Equal(t, NotificationStats{Users: 2, Connections: 3}, snap.Notifications)
	assert.Nil(t, snap.Database, "memory driver has no pool metrics")
	assert.Nil(t, snap.Cache)
	require.NotNil(t, snap.Events)
	assert.Positive(t, snap.Resources.Goroutines.Value)
}

func TestGetResourceStatus(t *testing.T) {
	assert.Equal(t, "healthy", getResourceStatus(10, 80, 90))
	assert.Equal(t, "warning", getResourceStatus(85, 80, 90))
	assert.Equal(t, "critical", getResourceStatus(90, 80, 90))
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2<<20))
}

func TestVersionFromEnvironment(t *testing.T) {
	t.Setenv("VERSION", "1.4.2")
	assert.Equal(t, "1.4.2", Version())
}
