package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"promptvault/internal/badges"
)

// Config holds all configuration for the application
type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Auth      AuthConfig
	Badges    BadgeConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
	Logging   LoggingConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Port            string
	Environment     string
	Host            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	GracefulTimeout time.Duration
	MaxHeaderBytes  int
	ServerName      string
	CORSOrigins     []string
}

// DatabaseConfig selects and tunes the activity store.
type DatabaseConfig struct {
	// Driver is "postgres" or "memory".
	Driver             string
	URL                string
	MaxOpenConns       int
	MaxIdleConns       int
	ConnMaxLifetime    time.Duration
	ConnMaxIdleTime    time.Duration
	SlowQueryThreshold time.Duration
	ConnectTimeout     time.Duration
	MigrationsPath     string
	AutoMigrate        bool
}

// CacheConfig backs the rate limiter.
type CacheConfig struct {
	Provider      string
	RedisURL      string
	RedisDB       int
	RedisPassword string
	DefaultTTL    time.Duration
	MaxKeys       int
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
	TokenTTL  time.Duration
}

// BadgeConfig holds the badge engine tunables.
type BadgeConfig struct {
	CatalogPath       string
	QualityRating     float64
	ViralLikes        int
	TierWeights       badges.TierWeights
	DefaultLimit      int
	MaxLimit          int
	NearbyWindow      int
	EvaluationTimeout time.Duration
}

// EventsConfig sizes the in-process event bus.
type EventsConfig struct {
	BufferSize     int
	WorkerCount    int
	HandlerTimeout time.Duration
}

// RateLimitConfig is a fixed-window limit per client.
type RateLimitConfig struct {
	Enabled  bool
	Requests int
	Window   time.Duration
}

// LoggingConfig holds logger settings
type LoggingConfig struct {
	Level  string
	Format string
}

// Load reads .env.<GO_ENV> (falling back to .env) and the process environment.
func Load() (*Config, error) {
	env := getEnv("GO_ENV", "development")
	if env != "production" {
		envFile := fmt.Sprintf(".env.%s", env)
		if _, err := os.Stat(envFile); err == nil {
			_ = godotenv.Load(envFile)
		} else {
			_ = godotenv.Load()
		}
	}

	badgeCfg, err := loadBadgeConfig()
	if err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	config := &Config{
		Server:    loadServerConfig(env),
		Database:  loadDatabaseConfig(env),
		Cache:     loadCacheConfig(),
		Auth:      loadAuthConfig(),
		Badges:    badgeCfg,
		Events:    loadEventsConfig(),
		RateLimit: loadRateLimitConfig(env),
		Logging:   loadLoggingConfig(env),
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

func loadServerConfig(env string) ServerConfig {
	config := ServerConfig{
		Port:            getEnv("PORT", "9000"),
		Environment:     env,
		Host:            getEnv("SERVER_HOST", "0.0.0.0"),
		ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 10*time.Second),
		WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
		GracefulTimeout: getDurationEnv("GRACEFUL_TIMEOUT", 30*time.Second),
		MaxHeaderBytes:  getIntEnv("MAX_HEADER_BYTES", 1<<20),
		ServerName:      getEnv("SERVER_NAME", "PromptVault"),
		CORSOrigins:     getListEnv("CORS_ALLOWED_ORIGINS", "*"),
	}

	if env == "development" {
		config.GracefulTimeout = getDurationEnv("GRACEFUL_TIMEOUT", 10*time.Second)
	}

	return config
}

func loadDatabaseConfig(env string) DatabaseConfig {
	config := DatabaseConfig{
		Driver:             getEnv("DATABASE_DRIVER", "postgres"),
		URL:                getEnv("DATABASE_URL", ""),
		MaxOpenConns:       getIntEnv("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:       getIntEnv("DB_MAX_IDLE_CONNS", 10),
		ConnMaxLifetime:    getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		ConnMaxIdleTime:    getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		SlowQueryThreshold: getDurationEnv("DB_SLOW_QUERY_THRESHOLD", 100*time.Millisecond),
		ConnectTimeout:     getDurationEnv("DB_CONNECT_TIMEOUT", 30*time.Second),
		MigrationsPath:     getEnv("MIGRATIONS_PATH", "migrations"),
		AutoMigrate:        getBoolEnv("DB_AUTO_MIGRATE", env != "production"),
	}

	if env == "production" {
		config.MaxOpenConns = getIntEnv("DB_MAX_OPEN_CONNS", 50)
		config.MaxIdleConns = getIntEnv("DB_MAX_IDLE_CONNS", 25)
	}

	return config
}

func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Provider:      getEnv("CACHE_PROVIDER", "memory"),
		RedisURL:      getEnv("REDIS_URL", ""),
		RedisDB:       getIntEnv("REDIS_DB", 0),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		DefaultTTL:    getDurationEnv("CACHE_DEFAULT_TTL", 15*time.Minute),
		MaxKeys:       getIntEnv("CACHE_MAX_KEYS", 10000),
	}
}

func loadAuthConfig() AuthConfig {
	return AuthConfig{
		JWTSecret: getEnv("JWT_SECRET", ""),
		JWTIssuer: getEnv("JWT_ISSUER", "promptvault"),
		TokenTTL:  getDurationEnv("JWT_TOKEN_TTL", 24*time.Hour),
	}
}

func loadBadgeConfig() (BadgeConfig, error) {
	weights, err := badges.ParseTierWeights(getEnv("BADGE_TIER_WEIGHTS", badges.DefaultTierWeights().String()))
	if err != nil {
		return BadgeConfig{}, fmt.Errorf("BADGE_TIER_WEIGHTS: %w", err)
	}

	return BadgeConfig{
		CatalogPath:       getEnv("BADGE_CATALOG_PATH", ""),
		QualityRating:     getFloat64Env("BADGE_QUALITY_RATING", 4.5),
		ViralLikes:        getIntEnv("BADGE_VIRAL_LIKES", 100),
		TierWeights:       weights,
		DefaultLimit:      getIntEnv("LEADERBOARD_DEFAULT_LIMIT", 10),
		MaxLimit:          getIntEnv("LEADERBOARD_MAX_LIMIT", 100),
		NearbyWindow:      getIntEnv("LEADERBOARD_NEARBY", 2),
		EvaluationTimeout: getDurationEnv("BADGE_EVALUATION_TIMEOUT", 10*time.Second),
	}, nil
}

func loadEventsConfig() EventsConfig {
	return EventsConfig{
		BufferSize:     getIntEnv("EVENT_BUFFER_SIZE", 1000),
		WorkerCount:    getIntEnv("EVENT_WORKERS", 5),
		HandlerTimeout: getDurationEnv("EVENT_HANDLER_TIMEOUT", 30*time.Second),
	}
}

func loadRateLimitConfig(env string) RateLimitConfig {
	requests := 100
	if env == "production" {
		requests = 60
	}
	return RateLimitConfig{
		Enabled:  getBoolEnv("RATE_LIMIT_ENABLED", true),
		Requests: getIntEnv("RATE_LIMIT_REQUESTS", requests),
		Window:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
	}
}

func loadLoggingConfig(env string) LoggingConfig {
	return LoggingConfig{
		Level:  getEnv("LOG_LEVEL", getDefaultLogLevel(env)),
		Format: getEnv("LOG_FORMAT", getDefaultLogFormat(env)),
	}
}

// ===============================
// VALIDATION
// ===============================

func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database config: %w", err)
	}

	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache config: %w", err)
	}

	if err := c.Auth.Validate(c.Server.Environment); err != nil {
		return fmt.Errorf("auth config: %w", err)
	}

	if err := c.Badges.Validate(); err != nil {
		return fmt.Errorf("badge config: %w", err)
	}

	if c.Events.WorkerCount <= 0 || c.Events.BufferSize <= 0 {
		return fmt.Errorf("events config: EVENT_WORKERS and EVENT_BUFFER_SIZE must be positive")
	}

	if c.RateLimit.Enabled && (c.RateLimit.Requests <= 0 || c.RateLimit.Window <= 0) {
		return fmt.Errorf("rate limit config: requests and window must be positive")
	}

	return nil
}

func (s *ServerConfig) Validate() error {
	if s.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if s.ReadTimeout <= 0 {
		return fmt.Errorf("ReadTimeout must be positive")
	}

	if s.WriteTimeout <= 0 {
		return fmt.Errorf("WriteTimeout must be positive")
	}

	return nil
}

func (d *DatabaseConfig) Validate() error {
	switch d.Driver {
	case "memory":
		return nil
	case "postgres":
	default:
		return fmt.Errorf("unsupported DATABASE_DRIVER %q", d.Driver)
	}

	if d.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if d.MaxOpenConns <= 0 {
		return fmt.Errorf("MaxOpenConns must be positive")
	}

	if d.MaxIdleConns < 0 {
		return fmt.Errorf("MaxIdleConns cannot be negative")
	}

	if d.MaxIdleConns > d.MaxOpenConns {
		return fmt.Errorf("MaxIdleConns cannot be greater than MaxOpenConns")
	}

	if d.ConnMaxLifetime <= 0 {
		return fmt.Errorf("ConnMaxLifetime must be positive")
	}

	if d.SlowQueryThreshold <= 0 {
		return fmt.Errorf("SlowQueryThreshold must be positive")
	}

	return nil
}

func (c *CacheConfig) Validate() error {
	switch c.Provider {
	case "memory":
		return nil
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for the redis provider")
		}
		return nil
	default:
		return fmt.Errorf("unsupported CACHE_PROVIDER %q", c.Provider)
	}
}

func (a *AuthConfig) Validate(env string) error {
	if a.JWTSecret == "" && env == "production" {
		return fmt.Errorf("JWT_SECRET must be set for production")
	}

	if a.TokenTTL <= 0 {
		return fmt.Errorf("JWT_TOKEN_TTL must be positive")
	}

	return nil
}

func (b *BadgeConfig) Validate() error {
	if err := b.TierWeights.Validate(); err != nil {
		return err
	}

	if b.QualityRating < 1 || b.QualityRating > 5 {
		return fmt.Errorf("BADGE_QUALITY_RATING must be between 1 and 5")
	}

	if b.ViralLikes <= 0 {
		return fmt.Errorf("BADGE_VIRAL_LIKES must be positive")
	}

	if b.DefaultLimit <= 0 || b.MaxLimit < b.DefaultLimit {
		return fmt.Errorf("leaderboard limits must satisfy 0 < default <= max")
	}

	if b.NearbyWindow < 0 {
		return fmt.Errorf("LEADERBOARD_NEARBY cannot be negative")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == "development"
}

// ===============================
// ENV HELPERS
// ===============================

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getFloat64Env(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getListEnv(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getDefaultLogLevel(env string) string {
	switch env {
	case "production":
		return "info"
	default:
		return "debug"
	}
}

func getDefaultLogFormat(env string) string {
	switch env {
	case "production":
		return "json"
	default:
		return "console"
	}
}
