// file: internal/services/activity_service.go
package services

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"promptvault/internal/events"
	"promptvault/internal/models"
	"promptvault/internal/repositories"
)

// ===============================
// REQUESTS
// ===============================

// RegisterUserRequest creates an account.
type RegisterUserRequest struct {
	Username    string `json:"username" validate:"required,min=3,max=50,alphanum"`
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
}

// CreatePromptRequest shares a prompt.
type CreatePromptRequest struct {
	Title    string `json:"title" validate:"required,min=3,max=200"`
	Content  string `json:"content" validate:"required,min=10,max=20000"`
	AIAgent  string `json:"ai_agent" validate:"required,max=50"`
	Category string `json:"category" validate:"required,max=50"`
}

// RatePromptRequest rates a prompt from 1 to 5.
type RatePromptRequest struct {
	Rating int `json:"rating" validate:"required,min=1,max=5"`
}

// PostCommentRequest comments on a prompt, or replies when ParentID is set.
type PostCommentRequest struct {
	Content  string `json:"content" validate:"required,min=1,max=5000"`
	ParentID *int64 `json:"parent_id,omitempty" validate:"omitempty,min=1"`
}

// LikeResult reports whether a like or follow created a new edge.
type LikeResult struct {
	Created bool `json:"created"`
}

// ===============================
// SERVICE
// ===============================

// ActivityService writes community activity and announces it on the event bus.
// Events are best effort: a publish failure is logged and never fails the write.
type ActivityService struct {
	repos    *repositories.Collection
	bus      events.EventBus
	validate *validator.Validate
	logger   *zap.Logger
}

// NewActivityService creates the activity service.
func NewActivityService(repos *repositories.Collection, bus events.EventBus, logger *zap.Logger) *ActivityService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ActivityService{
		repos:    repos,
		bus:      bus,
		validate: newValidator(),
		logger:   logger,
	}
}

// RegisterUser creates a user account.
func (s *ActivityService) RegisterUser(ctx context.Context, req *RegisterUserRequest) (*models.User, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	user := &models.User{
		Username:    strings.TrimSpace(req.Username),
		DisplayName: strings.TrimSpace(req.DisplayName),
	}
	if err := s.repos.User.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, EntityAlreadyExistsError("user", "username", req.Username)
		}
		return nil, s.storeError("failed to create user", err)
	}

	s.publish(ctx, events.NewUserRegisteredEvent(user.ID, user.Username))
	return user, nil
}

// CreatePrompt shares a prompt authored by userID.
func (s *ActivityService) CreatePrompt(ctx context.Context, userID int64, req *CreatePromptRequest) (*models.Prompt, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	prompt := &models.Prompt{
		UserID:   userID,
		Title:    strings.TrimSpace(req.Title),
		Content:  req.Content,
		AIAgent:  strings.TrimSpace(req.AIAgent),
		Category: strings.TrimSpace(req.Category),
	}
	if err := s.repos.Prompt.Create(ctx, prompt); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, EntityNotFoundError("user", userID)
		}
		return nil, s.storeError("failed to create prompt", err)
	}

	s.publish(ctx, events.NewPromptCreatedEvent(prompt))
	return prompt, nil
}

// RatePrompt records or replaces userID's rating of a prompt. Authors cannot rate
// their own prompts.
func (s *ActivityService) RatePrompt(ctx context.Context, userID, promptID int64, req *RatePromptRequest) error {
	if err := s.validateRequest(req); err != nil {
		return err
	}

	prompt, err := s.getPrompt(ctx, promptID)
	if err != nil {
		return err
	}
	if prompt.UserID == userID {
		return InvalidInputError("prompt_id", "cannot rate your own prompt")
	}

	rating := &models.PromptRating{PromptID: promptID, UserID: userID, Rating: req.Rating}
	if err := s.repos.Prompt.Rate(ctx, rating); err != nil {
		return s.storeError("failed to rate prompt", err)
	}

	s.publish(ctx, events.NewPromptRatedEvent(userID, promptID, prompt.UserID, req.Rating))
	return nil
}

// LikePrompt likes a prompt. Repeated likes are no-ops that report Created=false.
func (s *ActivityService) LikePrompt(ctx context.Context, userID, promptID int64) (*LikeResult, error) {
	prompt, err := s.getPrompt(ctx, promptID)
	if err != nil {
		return nil, err
	}
	if prompt.UserID == userID {
		return nil, InvalidInputError("prompt_id", "cannot like your own prompt")
	}

	created, err := s.repos.Prompt.Like(ctx, promptID, userID)
	if err != nil {
		return nil, s.storeError("failed to like prompt", err)
	}
	if created {
		s.publish(ctx, events.NewPromptLikedEvent(userID, promptID, prompt.UserID))
	}
	return &LikeResult{Created: created}, nil
}

// PostComment comments on a prompt. A reply's parent must belong to the same prompt.
func (s *ActivityService) PostComment(ctx context.Context, userID, promptID int64, req *PostCommentRequest) (*models.Comment, error) {
	if err := s.validateRequest(req); err != nil {
		return nil, err
	}

	if _, err := s.getPrompt(ctx, promptID); err != nil {
		return nil, err
	}

	var parentAuthor *int64
	if req.ParentID != nil {
		parent, err := s.repos.Comment.GetByID(ctx, *req.ParentID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return nil, EntityNotFoundError("comment", *req.ParentID)
			}
			return nil, s.storeError("failed to load parent comment", err)
		}
		if parent.PromptID != promptID {
			return nil, InvalidInputError("parent_id", "parent comment belongs to another prompt")
		}
		parentAuthor = &parent.UserID
	}

	comment := &models.Comment{
		PromptID: promptID,
		UserID:   userID,
		ParentID: req.ParentID,
		Content:  strings.TrimSpace(req.Content),
	}
	if err := s.repos.Comment.Create(ctx, comment); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, EntityNotFoundError("user", userID)
		}
		return nil, s.storeError("failed to create comment", err)
	}

	s.publish(ctx, events.NewCommentPostedEvent(comment, parentAuthor))
	return comment, nil
}

// LikeComment likes a comment. Repeated likes are no-ops that report Created=false.
func (s *ActivityService) LikeComment(ctx context.Context, userID, commentID int64) (*LikeResult, error) {
	comment, err := s.repos.Comment.GetByID(ctx, commentID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, EntityNotFoundError("comment", commentID)
		}
		return nil, s.storeError("failed to load comment", err)
	}
	if comment.UserID == userID {
		return nil, InvalidInputError("comment_id", "cannot like your own comment")
	}

	created, err := s.repos.Comment.Like(ctx, commentID, userID)
	if err != nil {
		return nil, s.storeError("failed to like comment", err)
	}
	if created {
		s.publish(ctx, events.NewCommentLikedEvent(userID, commentID, comment.UserID))
	}
	return &LikeResult{Created: created}, nil
}

// FollowUser makes followerID follow followingID. Repeated follows report Created=false.
func (s *ActivityService) FollowUser(ctx context.Context, followerID, followingID int64) (*LikeResult, error) {
	if followerID == followingID {
		return nil, InvalidInputError("user_id", "cannot follow yourself")
	}

	created, err := s.repos.Follow.Follow(ctx, followerID, followingID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, EntityNotFoundError("user", followingID)
		}
		return nil, s.storeError("failed to follow user", err)
	}
	if created {
		s.publish(ctx, events.NewUserFollowedEvent(followerID, followingID))
	}
	return &LikeResult{Created: created}, nil
}

// ===============================
// HELPERS
// ===============================

func (s *ActivityService) getPrompt(ctx context.Context, promptID int64) (*models.Prompt, error) {
	prompt, err := s.repos.Prompt.GetByID(ctx, promptID)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, EntityNotFoundError("prompt", promptID)
		}
		return nil, s.storeError("failed to load prompt", err)
	}
	return prompt, nil
}

func (s *ActivityService) validateRequest(req interface{}) error {
	return validateStruct(s.validate, req)
}

func (s *ActivityService) storeError(message string, err error) error {
	s.logger.Error(message, zap.Error(err))
	return NewServiceUnavailableError(message, err)
}

func (s *ActivityService) publish(ctx context.Context, event events.Event) {
	if s.bus == nil {
		return
	}
	if err := s.bus.PublishAsync(ctx, event); err != nil {
		s.logger.Warn("Failed to publish activity event",
			zap.String("event_type", event.GetEventType()),
			zap.String("event_id", event.GetEventID()),
			zap.Error(err))
	}
}
