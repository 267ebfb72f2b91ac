package repositories

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"promptvault/internal/database"
	"promptvault/internal/models"
)

type userRepository struct {
	*BaseRepository
}

// NewUserRepository creates a postgres user repository
func NewUserRepository(db *database.Manager, logger *zap.Logger) UserRepository {
	return &userRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (username, display_name)
		VALUES ($1, $2)
		RETURNING id, created_at`

	err := r.QueryRowContext(ctx, query, user.Username, user.DisplayName).Scan(&user.ID, &user.CreatedAt)
	if err != nil {
		if r.IsUniqueViolation(err) {
			return fmt.Errorf("username %q: %w", user.Username, ErrDuplicate)
		}
		r.GetLogger().Error("Failed to create user",
			zap.Error(err),
			zap.String("username", user.Username),
		)
		return fmt.Errorf("failed to create user: %w", err)
	}

	r.GetLogger().Info("User created successfully",
		zap.Int64("user_id", user.ID),
		zap.String("username", user.Username),
	)
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*models.User, error) {
	query := `SELECT id, username, display_name, created_at FROM users WHERE id = $1`

	var user models.User
	err := r.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &user.DisplayName, &user.CreatedAt)
	if err != nil {
		if r.IsNotFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}

	return &user, nil
}
