package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/badges"
)

func TestLoadDefaultsWithMemoryStore(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_DRIVER", "memory")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Database.Driver)
	assert.Equal(t, "memory", cfg.Cache.Provider)
	assert.Equal(t, badges.DefaultTierWeights(), cfg.Badges.TierWeights)
	assert.Equal(t, 4.5, cfg.Badges.QualityRating)
	assert.Equal(t, 100, cfg.Badges.ViralLikes)
	assert.Equal(t, 10, cfg.Badges.DefaultLimit)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("GO_ENV", "test")
	t.Setenv("DATABASE_DRIVER", "memory")
	t.Setenv("BADGE_TIER_WEIGHTS", "1,3,5,10,20")
	t.Setenv("BADGE_VIRAL_LIKES", "250")
	t.Setenv("EVENT_WORKERS", "2")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, badges.TierWeights{1, 3, 5, 10, 20}, cfg.Badges.TierWeights)
	assert.Equal(t, 250, cfg.Badges.ViralLikes)
	assert.Equal(t, 2, cfg.Events.WorkerCount)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)
}

func TestLoadRejectsInvalidConfiguration(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"tier weights not dominant", map[string]string{"BADGE_TIER_WEIGHTS": "1,1,1,1,1"}},
		{"postgres without url", map[string]string{"DATABASE_DRIVER": "postgres", "DATABASE_URL": ""}},
		{"unknown driver", map[string]string{"DATABASE_DRIVER": "mongo"}},
		{"redis without url", map[string]string{"CACHE_PROVIDER": "redis", "REDIS_URL": ""}},
		{"bad quality rating", map[string]string{"BADGE_QUALITY_RATING": "9"}},
		{"limits inverted", map[string]string{"LEADERBOARD_DEFAULT_LIMIT": "50", "LEADERBOARD_MAX_LIMIT": "10"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("GO_ENV", "test")
			t.Setenv("DATABASE_DRIVER", "memory")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestProductionRequiresJWTSecret(t *testing.T) {
	a := AuthConfig{TokenTTL: time.Hour}
	assert.Error(t, a.Validate("production"))
	assert.NoError(t, a.Validate("development"))

	a.JWTSecret = "s3cret"
	assert.NoError(t, a.Validate("production"))
}
