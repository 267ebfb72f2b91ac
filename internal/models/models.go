// file: internal/models/models.go
package models

import (
	"strings"
	"time"
)

// ===============================
// CORE ENTITIES
// ===============================

// User is a registered member of the prompt community.
type User struct {
	ID          int64     `json:"id" db:"id"`
	Username    string    `json:"username" db:"username" validate:"required,min=3,max=50,alphanum"`
	DisplayName string    `json:"display_name" db:"display_name" validate:"omitempty,max=100"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Name returns the display name, falling back to the username.
func (u *User) Name() string {
	if strings.TrimSpace(u.DisplayName) != "" {
		return u.DisplayName
	}
	return u.Username
}

// Prompt is a shared AI prompt.
type Prompt struct {
	ID        int64     `json:"id" db:"id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title" validate:"required,min=3,max=200"`
	Content   string    `json:"content" db:"content" validate:"required,min=10,max=20000"`
	AIAgent   string    `json:"ai_agent" db:"ai_agent" validate:"required,max=50"`
	Category  string    `json:"category" db:"category" validate:"required,max=50"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// PromptRating is one user's 1..5 rating of a prompt. A user rates a prompt at most once.
type PromptRating struct {
	PromptID  int64     `json:"prompt_id" db:"prompt_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	Rating    int       `json:"rating" db:"rating" validate:"required,min=1,max=5"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// Comment is a comment on a prompt. ParentID is set for replies.
type Comment struct {
	ID        int64     `json:"id" db:"id"`
	PromptID  int64     `json:"prompt_id" db:"prompt_id"`
	UserID    int64     `json:"user_id" db:"user_id"`
	ParentID  *int64    `json:"parent_id,omitempty" db:"parent_id"`
	Content   string    `json:"content" db:"content" validate:"required,min=1,max=5000"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// IsReply reports whether the comment answers another comment.
func (c *Comment) IsReply() bool {
	return c.ParentID != nil
}

// Follow is a directed follower -> following edge.
type Follow struct {
	FollowerID  int64     `json:"follower_id" db:"follower_id"`
	FollowingID int64     `json:"following_id" db:"following_id"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}
