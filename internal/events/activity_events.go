package events

import (
	"promptvault/internal/models"
)

// Event types emitted by the activity service.
const (
	TypeUserRegistered = "user.registered"
	TypeUserFollowed   = "user.followed"
	TypePromptCreated  = "prompt.created"
	TypePromptRated    = "prompt.rated"
	TypePromptLiked    = "prompt.liked"
	TypeCommentPosted  = "comment.posted"
	TypeCommentLiked   = "comment.liked"
	TypeBadgeAwarded   = "badge.awarded"
)

// ActivityPatterns are the subscriptions that cover every activity event.
var ActivityPatterns = []string{TypeUserRegistered, TypeUserFollowed, "prompt.*", "comment.*"}

// ActivityEvent is an event that can change some users' stats.
type ActivityEvent interface {
	Event
	// AffectedUsers lists each user whose stats may have changed, without duplicates.
	AffectedUsers() []int64
}

func distinct(ids ...int64) []int64 {
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		dup := false
		for _, seen := range out {
			if seen == id {
				dup = true
				break
			}
		}
		if !dup && id > 0 {
			out = append(out, id)
		}
	}
	return out
}

// UserRegisteredEvent is emitted when an account is created.
type UserRegisteredEvent struct {
	BaseEvent
	Username string `json:"username"`
}

func NewUserRegisteredEvent(userID int64, username string) *UserRegisteredEvent {
	return &UserRegisteredEvent{BaseEvent: newBase(TypeUserRegistered, userID), Username: username}
}

func (e *UserRegisteredEvent) AffectedUsers() []int64 { return distinct(*e.UserID) }

// UserFollowedEvent changes the follower's following count and the target's follower count.
type UserFollowedEvent struct {
	BaseEvent
	FollowingID int64 `json:"following_id"`
}

func NewUserFollowedEvent(followerID, followingID int64) *UserFollowedEvent {
	return &UserFollowedEvent{BaseEvent: newBase(TypeUserFollowed, followerID), FollowingID: followingID}
}

func (e *UserFollowedEvent) AffectedUsers() []int64 { return distinct(*e.UserID, e.FollowingID) }

// PromptCreatedEvent is emitted for a new prompt.
type PromptCreatedEvent struct {
	BaseEvent
	PromptID int64  `json:"prompt_id"`
	AIAgent  string `json:"ai_agent"`
	Category string `json:"category"`
}

func NewPromptCreatedEvent(p *models.Prompt) *PromptCreatedEvent {
	return &PromptCreatedEvent{
		BaseEvent: newBase(TypePromptCreated, p.UserID),
		PromptID:  p.ID,
		AIAgent:   p.AIAgent,
		Category:  p.Category,
	}
}

func (e *PromptCreatedEvent) AffectedUsers() []int64 { return distinct(*e.UserID) }

// PromptRatedEvent affects the prompt's author only.
type PromptRatedEvent struct {
	BaseEvent
	PromptID int64 `json:"prompt_id"`
	AuthorID int64 `json:"author_id"`
	Rating   int   `json:"rating"`
}

func NewPromptRatedEvent(raterID, promptID, authorID int64, rating int) *PromptRatedEvent {
	return &PromptRatedEvent{
		BaseEvent: newBase(TypePromptRated, raterID),
		PromptID:  promptID,
		AuthorID:  authorID,
		Rating:    rating,
	}
}

func (e *PromptRatedEvent) AffectedUsers() []int64 { return distinct(e.AuthorID) }

// PromptLikedEvent affects the prompt's author only.
type PromptLikedEvent struct {
	BaseEvent
	PromptID int64 `json:"prompt_id"`
	AuthorID int64 `json:"author_id"`
}

func NewPromptLikedEvent(likerID, promptID, authorID int64) *PromptLikedEvent {
	return &PromptLikedEvent{BaseEvent: newBase(TypePromptLiked, likerID), PromptID: promptID, AuthorID: authorID}
}

func (e *PromptLikedEvent) AffectedUsers() []int64 { return distinct(e.AuthorID) }

// CommentPostedEvent affects the commenter and, for a reply, the parent comment's author.
type CommentPostedEvent struct {
	BaseEvent
	CommentID      int64  `json:"comment_id"`
	PromptID       int64  `json:"prompt_id"`
	ParentAuthorID *int64 `json:"parent_author_id,omitempty"`
}

func NewCommentPostedEvent(c *models.Comment, parentAuthorID *int64) *CommentPostedEvent {
	return &CommentPostedEvent{
		BaseEvent:      newBase(TypeCommentPosted, c.UserID),
		CommentID:      c.ID,
		PromptID:       c.PromptID,
		ParentAuthorID: parentAuthorID,
	}
}

func (e *CommentPostedEvent) AffectedUsers() []int64 {
	if e.ParentAuthorID != nil {
		return distinct(*e.UserID, *e.ParentAuthorID)
	}
	return distinct(*e.UserID)
}

// CommentLikedEvent affects the comment's author only.
type CommentLikedEvent struct {
	BaseEvent
	CommentID int64 `json:"comment_id"`
	AuthorID  int64 `json:"author_id"`
}

func NewCommentLikedEvent(likerID, commentID, authorID int64) *CommentLikedEvent {
	return &CommentLikedEvent{BaseEvent: newBase(TypeCommentLiked, likerID), CommentID: commentID, AuthorID: authorID}
}

func (e *CommentLikedEvent) AffectedUsers() []int64 { return distinct(e.AuthorID) }

// BadgeAwardedEvent announces a new or upgraded badge for UserID.
type BadgeAwardedEvent struct {
	BaseEvent
	Badge models.NewBadge `json:"badge"`
}

func NewBadgeAwardedEvent(userID int64, badge models.NewBadge) *BadgeAwardedEvent {
	return &BadgeAwardedEvent{BaseEvent: newBase(TypeBadgeAwarded, userID), Badge: badge}
}
