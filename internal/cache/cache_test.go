package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"promptvault/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestMemoryCache(t *testing.T, maxKeys int) *memoryCache {
	t.Helper()
	c := NewMemoryCache(config.CacheConfig{MaxKeys: maxKeys, DefaultTTL: time.Minute}, zap.NewNop()).(*memoryCache)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestMemoryCacheSetGetDelete(t *testing.T) {
	c := newTestMemoryCache(t, 10)
	ctx := context.Background()

	_, ok := c.Get(ctx, "missing")
	assert.False(t, ok)

	require.NoError(t, c.Set(ctx, "k", []byte("v"), 0))
	got, ok := c.Get(ctx, "k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), got)

	require.NoError(t, c.Delete(ctx, "k", "unknown"))
	_, ok = c.Get(ctx, "k")
	assert.False(t, ok)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(2), stats.Misses)
	assert.Equal(t, int64(1), stats.Deletes)
	assert.InDelta(t, 1.0/3.0, stats.HitRatio, 0.0001)
}

func TestMemoryCacheExpiry(t *testing.T) {
	c := newTestMemoryCache(t, 10)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", []byte("v"), time.Second))
	now = now.Add(time.Second)

	_, ok := c.Get(ctx, "k")
	assert.False(t, ok)
}

func TestMemoryCacheIncrementWindow(t *testing.T) {
	c := newTestMemoryCache(t, 10)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	for want := int64(1); want <= 3; want++ {
		n, err := c.Increment(ctx, "hits", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, want, n)
	}

	// later increments must not extend the window
	now = now.Add(time.Minute)
	n, err := c.Increment(ctx, "hits", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	require.NoError(t, c.Set(ctx, "blob", []byte("x"), 0))
	_, err = c.Increment(ctx, "blob", time.Minute)
	assert.ErrorIs(t, err, ErrNotCounter)
}

func TestMemoryCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := newTestMemoryCache(t, 2)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "a", []byte("1"), 0))
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "b", []byte("2"), 0))
	now = now.Add(time.Second)
	_, _ = c.Get(ctx, "a")
	now = now.Add(time.Second)
	require.NoError(t, c.Set(ctx, "c", []byte("3"), 0))

	_, ok := c.Get(ctx, "b")
	assert.False(t, ok, "b was least recently used")
	_, ok = c.Get(ctx, "a")
	assert.True(t, ok)

	stats, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Evicted)
	assert.Equal(t, int64(2), stats.Keys)
}

func TestMemoryCacheCloseIsIdempotent(t *testing.T) {
	c := NewMemoryCache(config.CacheConfig{}, nil)
	require.NoError(t, c.Health(context.Background()))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())
	assert.Error(t, c.Health(context.Background()))
}

func TestNewCacheRejectsUnknownProvider(t *testing.T) {
	_, err := NewCache(config.CacheConfig{Provider: "memcached"}, zap.NewNop())
	assert.Error(t, err)
}
