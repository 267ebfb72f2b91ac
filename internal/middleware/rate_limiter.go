// file: internal/middleware/rate_limiter.go
package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"promptvault/internal/cache"
	"promptvault/internal/config"
	"promptvault/internal/contextutils"
	"promptvault/internal/response"
	"promptvault/internal/services"
)

// RateLimiter applies a fixed-window request limit per client, keyed by the
// authenticated user when known and by client IP otherwise.
type RateLimiter struct {
	cache   cache.Cache
	config  config.RateLimitConfig
	builder *response.Builder
	logger  *zap.Logger
	now     func() time.Time
}

// NewRateLimiter creates a rate limiter backed by c.
func NewRateLimiter(c cache.Cache, cfg config.RateLimitConfig, builder *response.Builder, logger *zap.Logger) *RateLimiter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RateLimiter{
		cache:   c,
		config:  cfg,
		builder: builder,
		logger:  logger,
		now:     time.Now,
	}
}

// Middleware returns the limiting handler. Cache failures let the request through.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	if !rl.config.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := rl.now()
		windowStart := now.Truncate(rl.config.Window)
		resetAt := windowStart.Add(rl.config.Window)
		key := fmt.Sprintf("ratelimit:%s:%d", rl.clientKey(r), windowStart.Unix())

		count, err := rl.cache.Increment(r.Context(), key, rl.config.Window)
		if err != nil {
			contextutils.Logger(r.Context(), rl.logger).Warn("Rate limit check failed, allowing request",
				zap.String("key", key),
				zap.Error(err),
			)
			next.ServeHTTP(w, r)
			return
		}

		remaining := int64(rl.config.Requests) - count
		if remaining < 0 {
			remaining = 0
		}
		w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.config.Requests))
		w.Header().Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

		if count > int64(rl.config.Requests) {
			retryAfter := int(resetAt.Sub(now).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			rl.builder.WriteError(w, r, services.NewRateLimitError("rate limit exceeded", map[string]interface{}{
				"limit":       rl.config.Requests,
				"window":      rl.config.Window.String(),
				"retry_after": retryAfter,
			}))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimiter) clientKey(r *http.Request) string {
	if userID, ok := contextutils.GetUserID(r.Context()); ok {
		return "user:" + strconv.FormatInt(userID, 10)
	}
	return "ip:" + getClientIP(r)
}
