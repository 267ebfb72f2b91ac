package repositories

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"promptvault/internal/database"
	"promptvault/internal/models"
)

type badgeRepository struct {
	*BaseRepository
}

// NewBadgeRepository creates the postgres award store.
func NewBadgeRepository(db *database.Manager, logger *zap.Logger) BadgeRepository {
	return &badgeRepository{
		BaseRepository: NewBaseRepository(db, logger),
	}
}

// Award relies on the (user_id, badge_id) primary key: a concurrent second writer
// hits the conflict and gets false instead of an error.
func (r *badgeRepository) Award(ctx context.Context, b *models.AwardedBadge) (bool, error) {
	progress, err := encodeProgress(b.Progress)
	if err != nil {
		return false, err
	}

	query := `
		INSERT INTO user_badges (user_id, badge_id, level, earned_at, progress)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, badge_id) DO NOTHING`

	res, err := r.ExecContext(ctx, query, b.UserID, b.BadgeID, b.Level, b.EarnedAt, progress)
	if err != nil {
		return false, fmt.Errorf("failed to award badge %s: %w", b.BadgeID, err)
	}
	return affected(res)
}

// Upgrade only ever raises the level. earned_at keeps the first-award time.
func (r *badgeRepository) Upgrade(ctx context.Context, b *models.AwardedBadge) (bool, error) {
	progress, err := encodeProgress(b.Progress)
	if err != nil {
		return false, err
	}

	query := `
		UPDATE user_badges
		SET level = $3, upgraded_at = $4, progress = $5
		WHERE user_id = $1 AND badge_id = $2 AND level < $3`

	res, err := r.ExecContext(ctx, query, b.UserID, b.BadgeID, b.Level, upgradeTime(b), progress)
	if err != nil {
		return false, fmt.Errorf("failed to upgrade badge %s: %w", b.BadgeID, err)
	}
	return affected(res)
}

func (r *badgeRepository) ListByUser(ctx context.Context, userID int64) ([]*models.AwardedBadge, error) {
	query := `
		SELECT user_id, badge_id, level, earned_at, upgraded_at, progress
		FROM user_badges
		WHERE user_id = $1
		ORDER BY earned_at, badge_id`

	rows, err := r.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list user badges: %w", err)
	}
	defer rows.Close()

	var out []*models.AwardedBadge
	for rows.Next() {
		var (
			b   models.AwardedBadge
			raw []byte
		)
		if err := rows.Scan(&b.UserID, &b.BadgeID, &b.Level, &b.EarnedAt, &b.UpgradedAt, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan user badge: %w", err)
		}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &b.Progress); err != nil {
				r.GetLogger().Warn("Discarding unreadable badge progress",
					zap.Int64("user_id", b.UserID),
					zap.String("badge_id", b.BadgeID),
					zap.Error(err))
			}
		}
		out = append(out, &b)
	}
	return out, rows.Err()
}

func (r *badgeRepository) ListAwards(ctx context.Context, since *time.Time) ([]*models.AwardRecord, error) {
	query := `
		SELECT ub.user_id, COALESCE(NULLIF(u.display_name, ''), u.username), ub.badge_id, ub.earned_at
		FROM user_badges ub
		JOIN users u ON u.id = ub.user_id
		WHERE $1::timestamptz IS NULL OR ub.earned_at >= $1::timestamptz
		ORDER BY ub.user_id, ub.badge_id`

	var sinceArg interface{}
	if since != nil {
		sinceArg = *since
	}

	rows, err := r.QueryContext(ctx, query, sinceArg)
	if err != nil {
		return nil, fmt.Errorf("failed to list awards: %w", err)
	}
	defer rows.Close()

	var out []*models.AwardRecord
	for rows.Next() {
		var a models.AwardRecord
		if err := rows.Scan(&a.UserID, &a.DisplayName, &a.BadgeID, &a.EarnedAt); err != nil {
			return nil, fmt.Errorf("failed to scan award: %w", err)
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// upgradeTime is the caller's UpgradedAt, or now when unset.
func upgradeTime(b *models.AwardedBadge) time.Time {
	if b.UpgradedAt != nil {
		return *b.UpgradedAt
	}
	return time.Now().UTC()
}

func encodeProgress(p map[string]float64) ([]byte, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("failed to encode badge progress: %w", err)
	}
	return raw, nil
}
