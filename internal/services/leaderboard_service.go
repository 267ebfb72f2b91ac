// file: internal/services/leaderboard_service.go
package services

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
	"golang.org/x/exp/slices"

	"promptvault/internal/badges"
	"promptvault/internal/config"
	"promptvault/internal/models"
	"promptvault/internal/repositories"
)

// LeaderboardQuery selects a leaderboard view. Zero values mean the defaults.
type LeaderboardQuery struct {
	Limit  int                      `json:"limit" validate:"omitempty,min=1"`
	Type   models.LeaderboardType   `json:"type" validate:"omitempty,oneof=score count"`
	Period models.LeaderboardPeriod `json:"period" validate:"omitempty,oneof=all month week"`
}

// LeaderboardService ranks users by their awarded badges. Rankings are computed
// per request from the award rows.
type LeaderboardService struct {
	catalog      *badges.Catalog
	awards       repositories.BadgeRepository
	weights      badges.TierWeights
	defaultLimit int
	maxLimit     int
	nearby       int
	validate     *validator.Validate
	now          func() time.Time
	logger       *zap.Logger
}

// NewLeaderboardService creates the ranking service.
func NewLeaderboardService(
	catalog *badges.Catalog,
	awards repositories.BadgeRepository,
	cfg config.BadgeConfig,
	logger *zap.Logger,
) *LeaderboardService {
	if logger == nil {
		logger = zap.NewNop()
	}
	weights := cfg.TierWeights
	if weights.Validate() != nil {
		weights = badges.DefaultTierWeights()
	}
	return &LeaderboardService{
		catalog:      catalog,
		awards:       awards,
		weights:      weights,
		defaultLimit: cfg.DefaultLimit,
		maxLimit:     cfg.MaxLimit,
		nearby:       cfg.NearbyWindow,
		validate:     newValidator(),
		now:          func() time.Time { return time.Now().UTC() },
		logger:       logger,
	}
}

// GetBadgeLeaderboard returns the top entries for the query, best first.
func (s *LeaderboardService) GetBadgeLeaderboard(ctx context.Context, q LeaderboardQuery) ([]models.LeaderboardEntry, error) {
	if err := validateStruct(s.validate, &q); err != nil {
		return nil, err
	}
	q = s.normalize(q)

	ranked, err := s.rank(ctx, q.Type, q.Period)
	if err != nil {
		return nil, err
	}
	if len(ranked) > q.Limit {
		ranked = ranked[:q.Limit]
	}
	return ranked, nil
}

// GetUserRank locates the user within the full ranking. found is false when the
// user holds no counted badges.
func (s *LeaderboardService) GetUserRank(ctx context.Context, userID int64, typ models.LeaderboardType, period models.LeaderboardPeriod) (*models.UserRank, bool, error) {
	q := LeaderboardQuery{Type: typ, Period: period}
	if err := validateStruct(s.validate, &q); err != nil {
		return nil, false, err
	}
	q = s.normalize(q)

	ranked, err := s.rank(ctx, q.Type, q.Period)
	if err != nil {
		return nil, false, err
	}

	idx := slices.IndexFunc(ranked, func(e models.LeaderboardEntry) bool { return e.UserID == userID })
	if idx < 0 {
		return nil, false, nil
	}

	lo := max(0, idx-s.nearby)
	hi := min(len(ranked), idx+s.nearby+1)
	nearby := make([]models.LeaderboardEntry, 0, hi-lo-1)
	for i := lo; i < hi; i++ {
		if i != idx {
			nearby = append(nearby, ranked[i])
		}
	}

	return &models.UserRank{
		Entry:  ranked[idx],
		Rank:   ranked[idx].Rank,
		Total:  len(ranked),
		Nearby: nearby,
	}, true, nil
}

func (s *LeaderboardService) normalize(q LeaderboardQuery) LeaderboardQuery {
	if q.Limit <= 0 {
		q.Limit = s.defaultLimit
	}
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if s.maxLimit > 0 && q.Limit > s.maxLimit {
		q.Limit = s.maxLimit
	}
	if q.Type == "" {
		q.Type = models.LeaderboardScore
	}
	if q.Period == "" {
		q.Period = models.PeriodAll
	}
	return q
}

// rank aggregates every counted award into ordered entries with 1-based ranks.
func (s *LeaderboardService) rank(ctx context.Context, typ models.LeaderboardType, period models.LeaderboardPeriod) ([]models.LeaderboardEntry, error) {
	records, err := s.awards.ListAwards(ctx, period.Since(s.now()))
	if err != nil {
		return nil, NewServiceUnavailableError("failed to load awards", err)
	}

	byUser := make(map[int64]*models.LeaderboardEntry)
	for _, rec := range records {
		def, ok := s.catalog.Get(rec.BadgeID)
		if !ok {
			continue
		}

		e, ok := byUser[rec.UserID]
		if !ok {
			e = &models.LeaderboardEntry{
				UserID:      rec.UserID,
				DisplayName: rec.DisplayName,
				TierCounts:  make(map[models.Tier]int),
			}
			byUser[rec.UserID] = e
		}
		e.BadgeCount++
		e.TierCounts[def.Tier]++
		if typ == models.LeaderboardCount {
			e.Score++
		} else {
			e.Score += s.weights.Weight(def.Tier)
		}
		if rec.EarnedAt.After(e.ReachedAt) {
			e.ReachedAt = rec.EarnedAt
		}
	}

	entries := make([]models.LeaderboardEntry, 0, len(byUser))
	for _, e := range byUser {
		entries = append(entries, *e)
	}

	// Higher score first; on a tie whoever reached it earlier, then lower user id.
	slices.SortFunc(entries, func(a, b models.LeaderboardEntry) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		if c := a.ReachedAt.Compare(b.ReachedAt); c != 0 {
			return c
		}
		switch {
		case a.UserID < b.UserID:
			return -1
		case a.UserID > b.UserID:
			return 1
		}
		return 0
	})

	for i := range entries {
		entries[i].Rank = i + 1
	}

	s.logger.Debug("Leaderboard computed",
		zap.String("type", string(typ)),
		zap.String("period", string(period)),
		zap.Int("ranked_users", len(entries)))

	return entries, nil
}
