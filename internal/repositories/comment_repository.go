package repositories

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"promptvault/internal/database"
	"promptvault/internal/models"
)

type commentRepository struct {
	*BaseRepository
}

// NewCommentRepository creates a postgres comment repository
func NewCommentRepository(db *database.Manager, logger *zap.Logger) CommentRepository {
	return &commentRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *commentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (prompt_id, user_id, parent_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	var parent sql.NullInt64
	if comment.ParentID != nil {
		parent = sql.NullInt64{Int64: *comment.ParentID, Valid: true}
	}

	err := r.QueryRowContext(ctx, query,
		comment.PromptID, comment.UserID, parent, comment.Content,
	).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		if r.IsForeignKeyViolation(err) {
			return fmt.Errorf("comment target: %w", ErrNotFound)
		}
		return fmt.Errorf("failed to create comment: %w", err)
	}

	r.GetLogger().Debug("Comment created",
		zap.Int64("comment_id", comment.ID),
		zap.Int64("prompt_id", comment.PromptID),
		zap.Bool("reply", comment.IsReply()),
	)
	return nil
}

func (r *commentRepository) GetByID(ctx context.Context, id int64) (*models.Comment, error) {
	query := `
		SELECT id, prompt_id, user_id, parent_id, content, created_at
		FROM comments WHERE id = $1`

	var (
		c      models.Comment
		parent sql.NullInt64
	)
	err := r.QueryRowContext(ctx, query, id).Scan(
		&c.ID, &c.PromptID, &c.UserID, &parent, &c.Content, &c.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get comment: %w", err)
	}
	if parent.Valid {
		c.ParentID = &parent.Int64
	}
	return &c, nil
}

func (r *commentRepository) Like(ctx context.Context, commentID, userID int64) (bool, error) {
	query := `
		INSERT INTO comment_likes (comment_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (comment_id, user_id) DO NOTHING`

	res, err := r.ExecContext(ctx, query, commentID, userID)
	if err != nil {
		if r.IsForeignKeyViolation(err) {
			return false, fmt.Errorf("comment %d: %w", commentID, ErrNotFound)
		}
		return false, fmt.Errorf("failed to like comment: %w", err)
	}
	return affected(res)
}
