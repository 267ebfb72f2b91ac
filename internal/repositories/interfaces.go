package repositories

import (
	"context"
	"errors"
	"time"

	"promptvault/internal/models"
)

var (
	// ErrNotFound is returned when a looked-up record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique key (other than an idempotent edge) is taken.
	ErrDuplicate = errors.New("duplicate record")
)

// ===============================
// ACTIVITY STORE (write side)
// ===============================

// UserRepository stores community members.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

// PromptRepository stores prompts and their ratings and likes.
type PromptRepository interface {
	Create(ctx context.Context, prompt *models.Prompt) error
	GetByID(ctx context.Context, id int64) (*models.Prompt, error)
	// Rate inserts or replaces the rater's rating.
	Rate(ctx context.Context, rating *models.PromptRating) error
	// Like reports false when the user already liked the prompt.
	Like(ctx context.Context, promptID, userID int64) (bool, error)
}

// CommentRepository stores comments, replies and comment likes.
type CommentRepository interface {
	Create(ctx context.Context, comment *models.Comment) error
	GetByID(ctx context.Context, id int64) (*models.Comment, error)
	Like(ctx context.Context, commentID, userID int64) (bool, error)
}

// FollowRepository stores follow edges.
type FollowRepository interface {
	// Follow reports false when the edge already exists.
	Follow(ctx context.Context, followerID, followingID int64) (bool, error)
}

// ===============================
// ACTIVITY STORE (read side)
// ===============================

// ActivityReader answers the aggregate queries the stat aggregator needs.
type ActivityReader interface {
	UserProfile(ctx context.Context, userID int64) (*models.User, error)
	PromptActivity(ctx context.Context, userID int64, qualityRating float64, viralLikes int) (*PromptActivity, error)
	SocialActivity(ctx context.Context, userID int64) (*SocialActivity, error)
	CommentActivity(ctx context.Context, userID int64) (*CommentActivity, error)
}

// PromptActivity aggregates a user's prompts.
type PromptActivity struct {
	TotalPrompts   int
	Agents         []string
	Categories     []string
	QualityPrompts int
	AverageRating  float64
	ViralPrompts   int
}

// SocialActivity aggregates a user's follow edges.
type SocialActivity struct {
	Followers int
	Following int
}

// CommentActivity aggregates a user's comments and replies. Self-replies are ignored
// for CommentsWithReplies and UsersHelped.
type CommentActivity struct {
	TotalComments        int
	CommentLikesReceived int
	RepliesMade          int
	CommentsWithReplies  int
	UsersHelped          int
}

// ===============================
// BADGE ENGINE
// ===============================

// StatsRepository persists UserStats snapshots, last write wins.
type StatsRepository interface {
	Save(ctx context.Context, stats *models.UserStats) error
	Get(ctx context.Context, userID int64) (*models.UserStats, error)
}

// BadgeRepository persists awards. Uniqueness on (user, badge) is enforced here.
type BadgeRepository interface {
	// Award inserts the badge and reports false if the user already holds it.
	Award(ctx context.Context, badge *models.AwardedBadge) (bool, error)
	// Upgrade raises the stored level to badge.Level and stamps UpgradedAt. It
	// reports false when the stored level is already at or above it. The stored
	// EarnedAt is left alone.
	Upgrade(ctx context.Context, badge *models.AwardedBadge) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*models.AwardedBadge, error)
	// ListAwards returns every award first earned at or after since (all when nil).
	ListAwards(ctx context.Context, since *time.Time) ([]*models.AwardRecord, error)
}
