package repositories

import (
	"context"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"promptvault/internal/database"
	"promptvault/internal/models"
)

type activityRepository struct {
	*BaseRepository
}

// NewActivityRepository creates the postgres read side used by the stat aggregator.
func NewActivityRepository(db *database.Manager, logger *zap.Logger) ActivityReader {
	return &activityRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *activityRepository) UserProfile(ctx context.Context, userID int64) (*models.User, error) {
	query := `SELECT id, username, display_name, created_at FROM users WHERE id = $1`

	var u models.User
	if err := r.QueryRowContext(ctx, query, userID).Scan(&u.ID, &u.Username, &u.DisplayName, &u.CreatedAt); err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to load user profile: %w", err)
	}
	return &u, nil
}

func (r *activityRepository) PromptActivity(ctx context.Context, userID int64, qualityRating float64, viralLikes int) (*PromptActivity, error) {
	query := `
		WITH user_prompts AS (
			SELECT id, ai_agent, category FROM prompts WHERE user_id = $1
		),
		prompt_ratings_avg AS (
			SELECT r.prompt_id, AVG(r.rating)::float8 AS avg_rating
			FROM prompt_ratings r
			JOIN user_prompts p ON p.id = r.prompt_id
			GROUP BY r.prompt_id
		),
		prompt_like_counts AS (
			SELECT l.prompt_id, COUNT(*) AS like_count
			FROM prompt_likes l
			JOIN user_prompts p ON p.id = l.prompt_id
			GROUP BY l.prompt_id
		)
		SELECT
			(SELECT COUNT(*) FROM user_prompts),
			COALESCE((SELECT array_agg(DISTINCT ai_agent ORDER BY ai_agent) FROM user_prompts), '{}'),
			COALESCE((SELECT array_agg(DISTINCT category ORDER BY category) FROM user_prompts), '{}'),
			(SELECT COUNT(*) FROM prompt_ratings_avg WHERE avg_rating >= $2),
			COALESCE((
				SELECT AVG(r.rating)::float8
				FROM prompt_ratings r
				JOIN user_prompts p ON p.id = r.prompt_id
			), 0),
			(SELECT COUNT(*) FROM prompt_like_counts WHERE like_count >= $3)`

	var a PromptActivity
	err := r.QueryRowContext(ctx, query, userID, qualityRating, viralLikes).Scan(
		&a.TotalPrompts,
		pq.Array(&a.Agents),
		pq.Array(&a.Categories),
		&a.QualityPrompts,
		&a.AverageRating,
		&a.ViralPrompts,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate prompt activity: %w", err)
	}
	return &a, nil
}

func (r *activityRepository) SocialActivity(ctx context.Context, userID int64) (*SocialActivity, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM follows WHERE following_id = $1),
			(SELECT COUNT(*) FROM follows WHERE follower_id = $1)`

	var a SocialActivity
	if err := r.QueryRowContext(ctx, query, userID).Scan(&a.Followers, &a.Following); err != nil {
		return nil, fmt.Errorf("failed to aggregate social activity: %w", err)
	}
	return &a, nil
}

func (r *activityRepository) CommentActivity(ctx context.Context, userID int64) (*CommentActivity, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM comments WHERE user_id = $1),
			(SELECT COUNT(*)
				FROM comment_likes cl
				JOIN comments c ON c.id = cl.comment_id
				WHERE c.user_id = $1),
			(SELECT COUNT(*) FROM comments WHERE user_id = $1 AND parent_id IS NOT NULL),
			(SELECT COUNT(*)
				FROM comments c
				WHERE c.user_id = $1
				  AND EXISTS (SELECT 1 FROM comments r WHERE r.parent_id = c.id AND r.user_id <> $1)),
			(SELECT COUNT(DISTINCT p.user_id)
				FROM comments r
				JOIN comments p ON p.id = r.parent_id
				WHERE r.user_id = $1 AND p.user_id <> $1)`

	var a CommentActivity
	err := r.QueryRowContext(ctx, query, userID).Scan(
		&a.TotalComments,
		&a.CommentLikesReceived,
		&a.RepliesMade,
		&a.CommentsWithReplies,
		&a.UsersHelped,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate comment activity: %w", err)
	}
	return &a, nil
}
