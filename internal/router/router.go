package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"promptvault/internal/handlers"
	"promptvault/internal/handlers/api/v1/activity"
	"promptvault/internal/handlers/api/v1/badges"
	"promptvault/internal/middleware"
	"promptvault/internal/monitoring"
	"promptvault/internal/notifications"
	"promptvault/internal/response"
	"promptvault/internal/services"
)

// Options carries everything the HTTP surface is assembled from.
// RateLimiter, Hub and Dashboard may be nil.
type Options struct {
	Services      *services.ServiceCollection
	Builder       *response.Builder
	Authenticator *middleware.Authenticator
	RateLimiter   *middleware.RateLimiter
	Hub           *notifications.Hub
	Dashboard     *monitoring.Dashboard
	CORSOrigins   []string
	Logger        *zap.Logger
}

// SetupRouter configures all HTTP routes and returns the main handler
func SetupRouter(opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Order matters: request id and logger first so recovery and logging see them.
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.StructuredLogging(middleware.DefaultLoggingConfig()))
	r.Use(middleware.Recovery(opts.Builder, logger))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(opts.CORSOrigins))

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		opts.Builder.WriteError(w, req, services.NewNotFoundError("route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		opts.Builder.WriteJSON(w, req, opts.Builder.Error(req.Context(),
			services.NewValidationError("method not allowed", nil)), http.StatusMethodNotAllowed)
	})

	r.Get("/health", healthHandler(opts))

	requireAuth := opts.Authenticator.RequireAuth

	r.Route("/api/v1", func(r chi.Router) {
		if opts.RateLimiter != nil {
			r.Use(opts.RateLimiter.Middleware)
		}
		badges.NewBadgeController(opts.Services, opts.Builder, logger.Named("badges_api")).Routes(r, requireAuth)
		activity.NewActivityController(opts.Services, opts.Builder, logger.Named("activity_api")).Routes(r, requireAuth)
	})

	if opts.Dashboard != nil {
		r.With(requireAuth).Get("/internal/metrics", opts.Dashboard.Handler(opts.Builder))
	}

	if opts.Hub != nil {
		r.With(requireAuth).Get("/ws/notifications", func(w http.ResponseWriter, req *http.Request) {
			userID, err := handlers.CurrentUser(req)
			if err != nil {
				opts.Builder.WriteError(w, req, err)
				return
			}
			opts.Hub.ServeUser(w, req, userID)
		})
	}

	return r
}

// healthHandler reports 200 while healthy or degraded and 503 once unhealthy.
func healthHandler(opts Options) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		health := opts.Services.HealthCheck(r.Context())

		status := http.StatusOK
		if health.Status == "unhealthy" {
			status = http.StatusServiceUnavailable
		}
		resp := opts.Builder.Success(r.Context(), map[string]interface{}{
			"status":       health.Status,
			"timestamp":    health.Timestamp.Format(time.RFC3339),
			"uptime":       health.Uptime.String(),
			"badges":       health.Badges,
			"dependencies": health.Dependencies,
			"issues":       health.Issues,
		})
		resp.Success = status == http.StatusOK
		opts.Builder.WriteJSON(w, r, resp, status)
	}
}
