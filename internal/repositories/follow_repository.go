package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"promptvault/internal/database"
)

type followRepository struct {
	*BaseRepository
}

// NewFollowRepository creates a postgres follow repository
func NewFollowRepository(db *database.Manager, logger *zap.Logger) FollowRepository {
	return &followRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *followRepository) Follow(ctx context.Context, followerID, followingID int64) (bool, error) {
	query := `
		INSERT INTO follows (follower_id, following_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, following_id) DO NOTHING`

	res, err := r.ExecContext(ctx, query, followerID, followingID)
	if err != nil {
		if r.IsForeignKeyViolation(err) {
			return false, fmt.Errorf("follow target: %w", ErrNotFound)
		}
		return false, fmt.Errorf("failed to follow user: %w", err)
	}
	return affected(res)
}
