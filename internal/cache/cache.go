// internal/cache/cache.go
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"promptvault/internal/config"
)

// ===============================
// CACHE INTERFACE
// ===============================

// Cache is a small key/value store with expiry. Values are opaque bytes.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// Increment adds one to the counter at key. A counter created by the call
	// expires after ttl; later increments leave the expiry alone.
	Increment(ctx context.Context, key string, ttl time.Duration) (int64, error)

	Stats(ctx context.Context) (*Stats, error)
	Health(ctx context.Context) error
	Close() error
}

// Stats represents cache statistics
type Stats struct {
	Provider string  `json:"provider"`
	Hits     int64   `json:"hits"`
	Misses   int64   `json:"misses"`
	Sets     int64   `json:"sets"`
	Deletes  int64   `json:"deletes"`
	Evicted  int64   `json:"evicted"`
	Keys     int64   `json:"keys"`
	HitRatio float64 `json:"hit_ratio"`
}

// ErrNotCounter is returned when Increment targets a non-numeric value.
var ErrNotCounter = errors.New("cache value is not a counter")

// NewCache creates a cache for the configured provider.
func NewCache(cfg config.CacheConfig, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Provider) {
	case "redis":
		return NewRedisCache(cfg, logger)
	case "memory", "":
		logger.Info("Using in-memory cache", zap.Int("max_keys", cfg.MaxKeys))
		return NewMemoryCache(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unsupported cache provider: %s", cfg.Provider)
	}
}

// ===============================
// MEMORY CACHE IMPLEMENTATION
// ===============================

const cleanupInterval = time.Minute

type memoryCache struct {
	mu         sync.Mutex
	items      map[string]*cacheItem
	maxKeys    int
	defaultTTL time.Duration
	logger     *zap.Logger
	stats      Stats
	now        func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
	doneCh   chan struct{}
}

type cacheItem struct {
	value      []byte
	counter    int64
	isCounter  bool
	expiresAt  time.Time
	accessedAt time.Time
}

// NewMemoryCache creates an in-memory cache with LRU eviction once MaxKeys is reached.
// Close stops its cleanup goroutine.
func NewMemoryCache(cfg config.CacheConfig, logger *zap.Logger) Cache {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxKeys := cfg.MaxKeys
	if maxKeys <= 0 {
		maxKeys = 10000
	}
	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	c := &memoryCache{
		items:      make(map[string]*cacheItem),
		maxKeys:    maxKeys,
		defaultTTL: ttl,
		logger:     logger,
		stats:      Stats{Provider: "memory"},
		now:        time.Now,
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
	}

	go c.cleanup()

	return c
}

func (c *memoryCache) Get(_ context.Context, key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.live(key)
	if !ok || item.isCounter {
		c.stats.Misses++
		return nil, false
	}

	item.accessedAt = c.now()
	c.stats.Hits++
	out := make([]byte, len(item.value))
	copy(out, item.value)
	return out, true
}

func (c *memoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.put(key, &cacheItem{value: append([]byte(nil), value...)}, ttl)
	c.stats.Sets++
	return nil
}

func (c *memoryCache) Delete(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, key := range keys {
		if _, ok := c.items[key]; ok {
			delete(c.items, key)
			c.stats.Deletes++
		}
	}
	return nil
}

func (c *memoryCache) Increment(_ context.Context, key string, ttl time.Duration) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	item, ok := c.live(key)
	if !ok {
		c.put(key, &cacheItem{counter: 1, isCounter: true}, ttl)
		return 1, nil
	}
	if !item.isCounter {
		return 0, ErrNotCounter
	}

	item.counter++
	item.accessedAt = c.now()
	return item.counter, nil
}

func (c *memoryCache) Stats(_ context.Context) (*Stats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	stats := c.stats
	stats.Keys = int64(len(c.items))
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return &stats, nil
}

func (c *memoryCache) Health(_ context.Context) error {
	select {
	case <-c.stopCh:
		return errors.New("memory cache is closed")
	default:
		return nil
	}
}

func (c *memoryCache) Close() error {
	c.stopOnce.Do(func() {
		close(c.stopCh)
		<-c.doneCh
	})
	return nil
}

// live returns the item under key, dropping it if it has expired. Caller holds mu.
func (c *memoryCache) live(key string) (*cacheItem, bool) {
	item, ok := c.items[key]
	if !ok {
		return nil, false
	}
	if !c.now().Before(item.expiresAt) {
		delete(c.items, key)
		return nil, false
	}
	return item, true
}

// put stores item, evicting the least recently used key when full. Caller holds mu.
func (c *memoryCache) put(key string, item *cacheItem, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}
	if _, exists := c.items[key]; !exists && len(c.items) >= c.maxKeys {
		c.evictLRU()
	}
	now := c.now()
	item.expiresAt = now.Add(ttl)
	item.accessedAt = now
	c.items[key] = item
}

func (c *memoryCache) evictLRU() {
	var (
		oldestKey  string
		oldestTime time.Time
	)
	for key, item := range c.items {
		if oldestKey == "" || item.accessedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = item.accessedAt
		}
	}
	if oldestKey != "" {
		delete(c.items, oldestKey)
		c.stats.Evicted++
	}
}

func (c *memoryCache) cleanup() {
	defer close(c.doneCh)

	ticker := time.NewTicker(cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.cleanupExpired()
		case <-c.stopCh:
			return
		}
	}
}

func (c *memoryCache) cleanupExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	expired := 0
	for key, item := range c.items {
		if !now.Before(item.expiresAt) {
			delete(c.items, key)
			expired++
		}
	}

	if expired > 0 {
		c.logger.Debug("Cleaned up expired cache items",
			zap.Int("expired_count", expired),
			zap.Int("remaining_count", len(c.items)),
		)
	}
}

// ===============================
// REDIS CACHE IMPLEMENTATION
// ===============================

type redisCache struct {
	client     *redis.Client
	logger     *zap.Logger
	defaultTTL time.Duration
}

// incrementScript sets the expiry only when INCR created the key.
var incrementScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if n == 1 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n`)

// NewRedisCache connects to redis and verifies the connection with PING.
func NewRedisCache(cfg config.CacheConfig, logger *zap.Logger) (Cache, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var options *redis.Options
	if cfg.RedisURL != "" {
		var err error
		options, err = redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
	} else {
		options = &redis.Options{Addr: "localhost:6379"}
	}
	if cfg.RedisPassword != "" {
		options.Password = cfg.RedisPassword
	}
	if cfg.RedisDB != 0 {
		options.DB = cfg.RedisDB
	}

	client := redis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	ttl := cfg.DefaultTTL
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}

	logger.Info("Redis cache initialized",
		zap.String("addr", options.Addr),
		zap.Int("db", options.DB),
	)

	return &redisCache{client: client, logger: logger, defaultTTL: ttl}, nil
}

func (r *redisCache) Get(ctx context.Context, key string) ([]byte, bool) {
	val, err := r.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		r.logger.Error("Failed to get from Redis",
			zap.String("key", key),
			zap.Error(err))
		return nil, false
	}
	return val, true
}

func (r *redisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	return r.client.Set(ctx, key, value, ttl).Err()
}

func (r *redisCache) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return r.client.Del(ctx, keys...).Err()
}

func (r *redisCache) Increment(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	if ttl <= 0 {
		ttl = r.defaultTTL
	}
	n, err := incrementScript.Run(ctx, r.client, []string{key}, ttl.Milliseconds()).Int64()
	if err != nil {
		if strings.Contains(err.Error(), "not an integer") {
			return 0, ErrNotCounter
		}
		return 0, fmt.Errorf("failed to increment %s: %w", key, err)
	}
	return n, nil
}

func (r *redisCache) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{Provider: "redis"}

	info, err := r.client.Info(ctx, "stats").Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read Redis info: %w", err)
	}

	for _, line := range strings.Split(info, "\r\n") {
		key, value, ok := strings.Cut(line, ":")
		if !ok || strings.HasPrefix(line, "#") {
			continue
		}
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			continue
		}
		switch key {
		case "keyspace_hits":
			stats.Hits = n
		case "keyspace_misses":
			stats.Misses = n
		case "evicted_keys":
			stats.Evicted = n
		}
	}

	if keys, err := r.client.DBSize(ctx).Result(); err == nil {
		stats.Keys = keys
	}
	if total := stats.Hits + stats.Misses; total > 0 {
		stats.HitRatio = float64(stats.Hits) / float64(total)
	}
	return stats, nil
}

func (r *redisCache) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *redisCache) Close() error {
	return r.client.Close()
}
