// file: internal/services/badge_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"promptvault/internal/badges"
	"promptvault/internal/models"
	"promptvault/internal/repositories"
)

// UserBadge is an award joined with its catalog definition.
type UserBadge struct {
	*models.AwardedBadge
	Badge badges.Definition `json:"badge"`
}

// BadgeService evaluates the catalog against a user's stats and records awards.
type BadgeService struct {
	catalog    *badges.Catalog
	aggregator *StatAggregator
	awards     repositories.BadgeRepository
	timeout    time.Duration
	now        func() time.Time
	logger     *zap.Logger
}

// NewBadgeService creates the evaluation service. A zero timeout means no deadline
// beyond the caller's context.
func NewBadgeService(
	catalog *badges.Catalog,
	aggregator *StatAggregator,
	awards repositories.BadgeRepository,
	timeout time.Duration,
	logger *zap.Logger,
) *BadgeService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BadgeService{
		catalog:    catalog,
		aggregator: aggregator,
		awards:     awards,
		timeout:    timeout,
		now:        func() time.Time { return time.Now().UTC() },
		logger:     logger,
	}
}

// Catalog returns the immutable badge catalog.
func (s *BadgeService) Catalog() *badges.Catalog {
	return s.catalog
}

// CheckUserBadges recomputes the user's stats and awards every badge they now
// qualify for. It returns only badges earned or upgraded by this call, so a second
// call with no new activity returns nothing.
//
// A definition that fails to evaluate is logged and treated as unsatisfied. Storage
// failures for individual awards are collected and returned alongside the badges
// that did persist.
func (s *BadgeService) CheckUserBadges(ctx context.Context, userID int64) ([]models.NewBadge, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	stats, err := s.aggregator.Compute(ctx, userID)
	if err != nil {
		return nil, err
	}

	errCtx := &ErrorContext{UserID: &userID, Operation: "check_user_badges"}

	held, err := s.awards.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewServiceUnavailableError("failed to load user badges", err).WithContext(errCtx)
	}
	levels := make(map[string]int, len(held))
	for _, b := range held {
		levels[b.BadgeID] = b.Level
	}

	var (
		earned  []models.NewBadge
		persist []error
	)
	for _, def := range s.catalog.All() {
		level, err := s.satisfiedLevel(def, stats)
		if err != nil {
			s.logger.Warn("Badge evaluation failed, treating as not satisfied",
				zap.Int64("user_id", userID),
				zap.String("badge_id", def.ID),
				zap.Error(err))
			continue
		}
		if level == 0 {
			continue
		}

		current, has := levels[def.ID]
		if has && level <= current {
			continue
		}

		award := &models.AwardedBadge{
			UserID:   userID,
			BadgeID:  def.ID,
			Level:    level,
			EarnedAt: s.now(),
			Progress: progressFor(def, level, stats),
		}

		nb, ok, err := s.record(ctx, def, award, has)
		if err != nil {
			persist = append(persist, err)
			s.logger.Warn("Failed to record badge",
				zap.Int64("user_id", userID),
				zap.String("badge_id", def.ID),
				zap.Error(err))
			continue
		}
		if ok {
			earned = append(earned, nb)
			s.logger.Info("Badge awarded",
				zap.Int64("user_id", userID),
				zap.String("badge_id", def.ID),
				zap.Int("level", nb.Level),
				zap.Bool("upgraded", nb.Upgraded))
		}
	}

	if len(persist) > 0 {
		errCtx.Metadata = map[string]interface{}{"failed_awards": len(persist)}
		return earned, NewServiceUnavailableError("failed to record some badges", errors.Join(persist...)).WithContext(errCtx)
	}
	return earned, nil
}

// record inserts or raises the award. A concurrent evaluation may have inserted the
// row first; the insert then reports false and the upgrade path decides.
func (s *BadgeService) record(ctx context.Context, def badges.Definition, award *models.AwardedBadge, held bool) (models.NewBadge, bool, error) {
	nb := models.NewBadge{
		BadgeID:  def.ID,
		Name:     def.Name,
		Icon:     def.Icon,
		Tier:     def.Tier,
		Level:    award.Level,
		EarnedAt: award.EarnedAt,
	}

	if !held {
		created, err := s.awards.Award(ctx, award)
		if err != nil {
			return nb, false, err
		}
		if created {
			return nb, true, nil
		}
		if !def.Leveled() {
			return nb, false, nil
		}
	}

	upgradedAt := award.EarnedAt
	award.UpgradedAt = &upgradedAt
	upgraded, err := s.awards.Upgrade(ctx, award)
	if err != nil {
		return nb, false, err
	}
	nb.Upgraded = true
	return nb, upgraded, nil
}

// satisfiedLevel isolates each definition so a panicking validator cannot abort the run.
func (s *BadgeService) satisfiedLevel(def badges.Definition, stats *models.UserStats) (level int, err error) {
	defer func() {
		if r := recover(); r != nil {
			level, err = 0, fmt.Errorf("badge %s: validator panicked: %v", def.ID, r)
		}
	}()
	return def.SatisfiedLevel(stats)
}

// progressFor snapshots the metrics for the next level, or the reached one at the top.
func progressFor(def badges.Definition, level int, stats *models.UserStats) map[string]float64 {
	target := level + 1
	if target > def.MaxLevel() {
		target = level
	}
	c, ok := def.LevelCriteria(target)
	if !ok {
		return nil
	}
	return badges.Progress(c, stats)
}

// GetUserBadges lists the user's awards with their definitions, oldest first.
// Awards whose badge has left the catalog are skipped.
func (s *BadgeService) GetUserBadges(ctx context.Context, userID int64) ([]UserBadge, error) {
	held, err := s.awards.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewServiceUnavailableError("failed to load user badges", err)
	}

	out := make([]UserBadge, 0, len(held))
	for _, b := range held {
		def, ok := s.catalog.Get(b.BadgeID)
		if !ok {
			s.logger.Debug("Skipping award for retired badge",
				zap.Int64("user_id", userID),
				zap.String("badge_id", b.BadgeID))
			continue
		}
		out = append(out, UserBadge{AwardedBadge: b, Badge: def})
	}
	return out, nil
}

// GetUserStats returns the stored stats snapshot, computing it if none exists yet.
func (s *BadgeService) GetUserStats(ctx context.Context, userID int64) (*models.UserStats, error) {
	return s.aggregator.Snapshot(ctx, userID)
}
