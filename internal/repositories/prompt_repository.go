package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"promptvault/internal/database"
	"promptvault/internal/models"
)

type promptRepository struct {
	*BaseRepository
}

// NewPromptRepository creates a postgres prompt repository
func NewPromptRepository(db *database.Manager, logger *zap.Logger) PromptRepository {
	return &promptRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *promptRepository) Create(ctx context.Context, prompt *models.Prompt) error {
	query := `
		INSERT INTO prompts (user_id, title, content, ai_agent, category)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query,
		prompt.UserID, prompt.Title, prompt.Content, prompt.AIAgent, prompt.Category,
	).Scan(&prompt.ID, &prompt.CreatedAt)
	if err != nil {
		if r.IsForeignKeyViolation(err) {
			return fmt.Errorf("user %d: %w", prompt.UserID, ErrNotFound)
		}
		return fmt.Errorf("failed to create prompt: %w", err)
	}

	r.GetLogger().Debug("Prompt created",
		zap.Int64("prompt_id", prompt.ID),
		zap.Int64("user_id", prompt.UserID),
		zap.String("ai_agent", prompt.AIAgent),
	)
	return nil
}

func (r *promptRepository) GetByID(ctx context.Context, id int64) (*models.Prompt, error) {
	query := `
		SELECT id, user_id, title, content, ai_agent, category, created_at
		FROM prompts WHERE id = $1`

	var p models.Prompt
	err := r.QueryRowContext(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Title, &p.Content, &p.AIAgent, &p.Category, &p.CreatedAt,
	)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get prompt: %w", err)
	}
	return &p, nil
}

func (r *promptRepository) Rate(ctx context.Context, rating *models.PromptRating) error {
	query := `
		INSERT INTO prompt_ratings (prompt_id, user_id, rating)
		VALUES ($1, $2, $3)
		ON CONFLICT (prompt_id, user_id)
		DO UPDATE SET rating = EXCLUDED.rating, created_at = NOW()
		RETURNING created_at`

	err := r.QueryRowContext(ctx, query, rating.PromptID, rating.UserID, rating.Rating).Scan(&rating.CreatedAt)
	if err != nil {
		if r.IsForeignKeyViolation(err) {
			return fmt.Errorf("prompt %d: %w", rating.PromptID, ErrNotFound)
		}
		return fmt.Errorf("failed to rate prompt: %w", err)
	}
	return nil
}

func (r *promptRepository) Like(ctx context.Context, promptID, userID int64) (bool, error) {
	query := `
		INSERT INTO prompt_likes (prompt_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (prompt_id, user_id) DO NOTHING`

	res, err := r.ExecContext(ctx, query, promptID, userID)
	if err != nil {
		if r.IsForeignKeyViolation(err) {
			return false, fmt.Errorf("prompt %d: %w", promptID, ErrNotFound)
		}
		return false, fmt.Errorf("failed to like prompt: %w", err)
	}
	return affected(res)
}
