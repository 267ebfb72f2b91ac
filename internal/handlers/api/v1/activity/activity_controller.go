// ===============================
// FILE: internal/handlers/api/v1/activity/activity_controller.go
// ===============================

package activity

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"promptvault/internal/handlers"
	"promptvault/internal/response"
	"promptvault/internal/services"
)

// ActivityController accepts community activity: accounts, prompts, ratings,
// comments, likes and follows.
type ActivityController struct {
	serviceCollection *services.ServiceCollection
	responseBuilder   *response.Builder
	logger            *zap.Logger
}

// NewActivityController creates a new activity controller
func NewActivityController(
	serviceCollection *services.ServiceCollection,
	responseBuilder *response.Builder,
	logger *zap.Logger,
) *ActivityController {
	return &ActivityController{
		serviceCollection: serviceCollection,
		responseBuilder:   responseBuilder,
		logger:            logger,
	}
}

// Routes mounts registration publicly and every write behind requireAuth.
func (c *ActivityController) Routes(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Post("/users", c.RegisterUser)

	r.Group(func(r chi.Router) {
		r.Use(requireAuth)
		r.Post("/prompts", c.CreatePrompt)
		r.Post("/prompts/{id}/ratings", c.RatePrompt)
		r.Post("/prompts/{id}/likes", c.LikePrompt)
		r.Post("/prompts/{id}/comments", c.PostComment)
		r.Post("/comments/{id}/likes", c.LikeComment)
		r.Post("/users/{id}/follow", c.FollowUser)
	})
}

// RegisterUser handles POST /api/v1/users
func (c *ActivityController) RegisterUser(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterUserRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	user, err := c.serviceCollection.Activity.RegisterUser(r.Context(), &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	c.logger.Info("User registered via API", zap.Int64("user_id", user.ID))
	c.responseBuilder.WriteCreated(w, r, user)
}

// CreatePrompt handles POST /api/v1/prompts
func (c *ActivityController) CreatePrompt(w http.ResponseWriter, r *http.Request) {
	userID, err := handlers.CurrentUser(r)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	var req services.CreatePromptRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	prompt, err := c.serviceCollection.Activity.CreatePrompt(r.Context(), userID, &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteCreated(w, r, prompt)
}

// RatePrompt handles POST /api/v1/prompts/{id}/ratings. Re-rating overwrites.
func (c *ActivityController) RatePrompt(w http.ResponseWriter, r *http.Request) {
	userID, promptID, ok := c.actorAndTarget(w, r)
	if !ok {
		return
	}

	var req services.RatePromptRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	if err := c.serviceCollection.Activity.RatePrompt(r.Context(), userID, promptID, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, map[string]interface{}{
		"prompt_id": promptID,
		"rating":    req.Rating,
	})
}

// LikePrompt handles POST /api/v1/prompts/{id}/likes
func (c *ActivityController) LikePrompt(w http.ResponseWriter, r *http.Request) {
	userID, promptID, ok := c.actorAndTarget(w, r)
	if !ok {
		return
	}

	result, err := c.serviceCollection.Activity.LikePrompt(r.Context(), userID, promptID)
	c.writeEdge(w, r, result, err)
}

// PostComment handles POST /api/v1/prompts/{id}/comments
func (c *ActivityController) PostComment(w http.ResponseWriter, r *http.Request) {
	userID, promptID, ok := c.actorAndTarget(w, r)
	if !ok {
		return
	}

	var req services.PostCommentRequest
	if err := handlers.DecodeJSON(w, r, &req); err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}

	comment, err := c.serviceCollection.Activity.PostComment(r.Context(), userID, promptID, &req)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	c.responseBuilder.WriteCreated(w, r, comment)
}

// LikeComment handles POST /api/v1/comments/{id}/likes
func (c *ActivityController) LikeComment(w http.ResponseWriter, r *http.Request) {
	userID, commentID, ok := c.actorAndTarget(w, r)
	if !ok {
		return
	}

	result, err := c.serviceCollection.Activity.LikeComment(r.Context(), userID, commentID)
	c.writeEdge(w, r, result, err)
}

// FollowUser handles POST /api/v1/users/{id}/follow
func (c *ActivityController) FollowUser(w http.ResponseWriter, r *http.Request) {
	userID, targetID, ok := c.actorAndTarget(w, r)
	if !ok {
		return
	}

	result, err := c.serviceCollection.Activity.FollowUser(r.Context(), userID, targetID)
	c.writeEdge(w, r, result, err)
}

// ===============================
// HELPERS
// ===============================

func (c *ActivityController) actorAndTarget(w http.ResponseWriter, r *http.Request) (int64, int64, bool) {
	userID, err := handlers.CurrentUser(r)
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return 0, 0, false
	}
	targetID, err := handlers.PathID(r, "id")
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return 0, 0, false
	}
	return userID, targetID, true
}

// writeEdge answers 201 for a new like or follow and 200 for a repeat.
func (c *ActivityController) writeEdge(w http.ResponseWriter, r *http.Request, result *services.LikeResult, err error) {
	if err != nil {
		c.responseBuilder.WriteError(w, r, err)
		return
	}
	if result.Created {
		c.responseBuilder.WriteCreated(w, r, result)
		return
	}
	c.responseBuilder.WriteSuccess(w, r, result)
}
