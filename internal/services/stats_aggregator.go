// file: internal/services/stats_aggregator.go
package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"golang.org/x/sync/errgroup"

	"promptvault/internal/config"
	"promptvault/internal/models"
	"promptvault/internal/repositories"
)

// StatAggregator recomputes a user's stats snapshot from the activity store.
type StatAggregator struct {
	activity      repositories.ActivityReader
	stats         repositories.StatsRepository
	qualityRating float64
	viralLikes    int
	logger        *zap.Logger
}

// NewStatAggregator creates an aggregator using the quality and viral thresholds from cfg.
func NewStatAggregator(
	activity repositories.ActivityReader,
	stats repositories.StatsRepository,
	cfg config.BadgeConfig,
	logger *zap.Logger,
) *StatAggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatAggregator{
		activity:      activity,
		stats:         stats,
		qualityRating: cfg.QualityRating,
		viralLikes:    cfg.ViralLikes,
		logger:        logger,
	}
}

// Compute queries the activity store and replaces the stored snapshot.
// If any query fails nothing is written and the previous snapshot stays in place.
func (a *StatAggregator) Compute(ctx context.Context, userID int64) (*models.UserStats, error) {
	var (
		profile  *models.User
		prompts  *repositories.PromptActivity
		social   *repositories.SocialActivity
		comments *repositories.CommentActivity
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		profile, err = a.activity.UserProfile(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		prompts, err = a.activity.PromptActivity(gctx, userID, a.qualityRating, a.viralLikes)
		return err
	})
	g.Go(func() (err error) {
		social, err = a.activity.SocialActivity(gctx, userID)
		return err
	})
	g.Go(func() (err error) {
		comments, err = a.activity.CommentActivity(gctx, userID)
		return err
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, EntityNotFoundError("user", userID)
		}
		a.logger.Warn("Stat aggregation failed, keeping previous snapshot",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, NewServiceUnavailableError("activity store unavailable", err)
	}

	stats := &models.UserStats{
		UserID:               userID,
		TotalPrompts:         prompts.TotalPrompts,
		AgentsUsed:           normalizeSet(prompts.Agents),
		CategoriesUsed:       normalizeSet(prompts.Categories),
		QualityPrompts:       prompts.QualityPrompts,
		AverageRating:        prompts.AverageRating,
		ViralPrompts:         prompts.ViralPrompts,
		Followers:            social.Followers,
		Following:            social.Following,
		AccountCreatedAt:     profile.CreatedAt.UTC(),
		TotalComments:        comments.TotalComments,
		CommentLikesReceived: comments.CommentLikesReceived,
		RepliesMade:          comments.RepliesMade,
		CommentsWithReplies:  comments.CommentsWithReplies,
		UsersHelped:          comments.UsersHelped,
	}

	if err := a.stats.Save(ctx, stats); err != nil {
		a.logger.Warn("Failed to persist user stats",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, NewServiceUnavailableError("failed to persist user stats", err)
	}

	a.logger.Debug("User stats recomputed",
		zap.Int64("user_id", userID),
		zap.Int("total_prompts", stats.TotalPrompts),
		zap.Int("followers", stats.Followers))

	return stats, nil
}

// Snapshot returns the stored stats, computing them on first access.
func (a *StatAggregator) Snapshot(ctx context.Context, userID int64) (*models.UserStats, error) {
	stats, err := a.stats.Get(ctx, userID)
	if err == nil {
		return stats, nil
	}
	if !errors.Is(err, repositories.ErrNotFound) {
		return nil, NewServiceUnavailableError("failed to load user stats", err)
	}
	return a.Compute(ctx, userID)
}

// normalizeSet trims, deduplicates and sorts so recomputation is byte-identical.
func normalizeSet(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}
