// ===============================
// FILE: internal/handlers/api/v1/badges/badges_controller.go
// ===============================

package badges

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"promptvault/internal/handlers"
	"promptvault/internal/models"
	"promptvault/internal/response"
	"promptvault/internal/services"
)

// BadgeController serves the catalog, per-user badge views and the leaderboard.
type BadgeController struct {
	serviceCollection *services.ServiceCollection
	responseBuilder   *response.Builder
	logger            *zap.Logger
}

// NewBadgeController creates a new badge controller
func NewBadgeController(
	serviceCollection *services.ServiceCollection,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) *BadgeController {
	return &BadgeController{
		serviceCollection: serviceCollection,
		responseBuilder:   responseBuilder,
		logger:            logger,
	}
}

// Routes mounts the public read endpoints. requireAuth guards the badge check.
func (c *BadgeController) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Get("/badges", c.ListBadges)
	r.Get("/leaderboard", c.GetLeaderboard)
	r.Get("/users/{id}/badges", c.GetUserBadges)
	r.Get("/users/{id}/stats", c.GetUserStats)
	r.Get("/users/{id}/rank", c.GetUserRank)
	r.With(requireAuth).Post("/users/{id}/badges/check", c.CheckUserBadges)
}

// ===============================
// CATALOG & LEADERBOARD
// ===============================

// ListBadges handles GET /api/v1/badges
func (c *BadgeController) ListBadges(w http.ResponseWriter, r *http.Request) {
	defs := c.serviceCollection.Badges.Catalog().All()
	c.responseBuilder.WriteSuccessWithMeta(w, r, defs, &response.ResponseMeta{Count: len(defs)})
}

// GetLeaderboard handles GET /api/v1/leaderboard?limit=&type=&period=
func (c *BadgeController) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := handlers.QueryInt(r, "limit")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	query := services.LeaderboardQuery{
		Limit:  limit,
		Type:   models.LeaderboardType(strings.ToLower(r.URL.Query().Get("type"))),
		Period: models.LeaderboardPeriod(strings.ToLower(r.URL.Query().Get("period"))),
	}
	entries, err := c.serviceCollection.Leaderboard.GetBadgeLeaderboard(r.Context(), query)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.responseBuilder.WriteSuccessWithMeta(w, r, entries, &response.ResponseMeta{
		Count: len(entries),
		Extra: map[string]interface{}{
			"type":   defaultString(string(query.Type), string(models.LeaderboardScore)),
			"period": defaultString(string(query.Period), string(models.PeriodAll)),
		},
	})
}

// ===============================
// PER-USER VIEWS
// ===============================

// GetUserBadges handles GET /api/v1/users/{id}/badges
func (c *BadgeController) GetUserBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := handlers.PathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	held, err := c.serviceCollection.Badges.GetUserBadges(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccessWithMeta(w, r, held, &response.ResponseMeta{Count: len(held)})
}

// GetUserStats handles GET /api/v1/users/{id}/stats
func (c *BadgeController) GetUserStats(w http.ResponseWriter, r *http.Request) {
	userID, err := handlers.PathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	stats, err := c.serviceCollection.Badges.GetUserStats(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, stats)
}

// GetUserRank handles GET /api/v1/users/{id}/rank?type=&period=
// A user without badges is reported as unranked rather than not found.
func (c *BadgeController) GetUserRank(w http.ResponseWriter, r *http.Request) {
	userID, err := handlers.PathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	typ := models.LeaderboardType(strings.ToLower(r.URL.Query().Get("type")))
	period := models.LeaderboardPeriod(strings.ToLower(r.URL.Query().Get("period")))

	rank, found, err := c.serviceCollection.Leaderboard.GetUserRank(r.Context(), userID, typ, period)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	if !found {
		c.responseBuilder.WriteSuccess(w, r, map[string]interface{}{
			"user_id": userID,
			"ranked":  false,
		})
		return
	}
	c.responseBuilder.WriteSuccess(w, r, rank)
}

// CheckUserBadges handles POST /api/v1/users/{id}/badges/check. Callers may
// only trigger evaluation of their own badges.
func (c *BadgeController) CheckUserBadges(w http.ResponseWriter, r *http.Request) {
	userID, err := handlers.PathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	callerID, err := handlers.CurrentUser(r)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	if callerID != userID {
		c.responseBuilder.WriteError(w, r, services.NewForbiddenError("badges can only be checked for yourself"))
		return
	}

	earned, err := c.serviceCollection.Badges.CheckUserBadges(r.Context(), userID)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if len(earned) == 0 {
		earned = []models.NewBadge{}
	} else {
		c.logger.Info("Badges awarded via API",
			zap.Int64("user_id", userID),
			zap.Int("count", len(earned)))
	}
	c.responseBuilder.WriteSuccessWithMeta(w, r, earned, &response.ResponseMeta{Count: len(earned)})
}

func defaultString(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
