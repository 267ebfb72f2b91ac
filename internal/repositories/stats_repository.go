package repositories

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"promptvault/internal/database"
	"promptvault/internal/models"
)

type statsRepository struct {
	*BaseRepository
}

// NewStatsRepository creates the postgres UserStats snapshot store.
func NewStatsRepository(db *database.Manager, logger *zap.Logger) StatsRepository {
	return &statsRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Save overwrites the snapshot for stats.UserID.
func (r *statsRepository) Save(ctx context.Context, s *models.UserStats) error {
	query := `
		INSERT INTO user_stats (
			user_id, total_prompts, agents_used, categories_used, quality_prompts,
			average_rating, viral_prompts, followers, following, account_created_at,
			total_comments, comment_likes_received, replies_made, comments_with_replies,
			users_helped, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			total_prompts          = EXCLUDED.total_prompts,
			agents_used            = EXCLUDED.agents_used,
			categories_used        = EXCLUDED.categories_used,
			quality_prompts        = EXCLUDED.quality_prompts,
			average_rating         = EXCLUDED.average_rating,
			viral_prompts          = EXCLUDED.viral_prompts,
			followers              = EXCLUDED.followers,
			following              = EXCLUDED.following,
			account_created_at     = EXCLUDED.account_created_at,
			total_comments         = EXCLUDED.total_comments,
			comment_likes_received = EXCLUDED.comment_likes_received,
			replies_made           = EXCLUDED.replies_made,
			comments_with_replies  = EXCLUDED.comments_with_replies,
			users_helped           = EXCLUDED.users_helped,
			updated_at             = NOW()`

	_, err := r.ExecContext(ctx, query,
		s.UserID, s.TotalPrompts, pq.Array(s.AgentsUsed), pq.Array(s.CategoriesUsed), s.QualityPrompts,
		s.AverageRating, s.ViralPrompts, s.Followers, s.Following, s.AccountCreatedAt,
		s.TotalComments, s.CommentLikesReceived, s.RepliesMade, s.CommentsWithReplies,
		s.UsersHelped,
	)
	if err != nil {
		return fmt.Errorf("failed to save user stats: %w", err)
	}
	return nil
}

func (r *statsRepository) Get(ctx context.Context, userID int64) (*models.UserStats, error) {
	query := `
		SELECT
			user_id, total_prompts, agents_used, categories_used, quality_prompts,
			average_rating, viral_prompts, followers, following, account_created_at,
			total_comments, comment_likes_received, replies_made, comments_with_replies,
			users_helped
		FROM user_stats WHERE user_id = $1`

	var s models.UserStats
	err := r.QueryRowContext(ctx, query, userID).Scan(
		&s.UserID, &s.TotalPrompts, pq.Array(&s.AgentsUsed), pq.Array(&s.CategoriesUsed), &s.QualityPrompts,
		&s.AverageRating, &s.ViralPrompts, &s.Followers, &s.Following, &s.AccountCreatedAt,
		&s.TotalComments, &s.CommentLikesReceived, &s.RepliesMade, &s.CommentsWithReplies,
		&s.UsersHelped,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user stats: %w", err)
	}
	return &s, nil
}
