package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/events"
)

// recorder collects events of the given pattern.
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) handle(_ context.Context, e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.GetEventType())
	}
	return out
}

func (r *recorder) snapshot() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func record(t *testing.T, env *testEnv, pattern string) *recorder {
	t.Helper()
	rec := &recorder{}
	require.NoError(t, env.bus.SubscribePattern(pattern, events.NewEventHandlerFunc("test-recorder", rec.handle)))
	return rec
}

func TestActivityService_RegisterUser(t *testing.T) {
	env := newTestEnv(t, testCatalog)
	ctx := context.Background()

	u, err := env.services.Activity.RegisterUser(ctx, &RegisterUserRequest{Username: "alice", DisplayName: " Alice A. "})
	require.NoError(t, err)
	assert.NotZero(t, u.ID)
	assert.Equal(t, "Alice A.", u.DisplayName)

	_, err = env.services.Activity.RegisterUser(ctx, &RegisterUserRequest{Username: "ALICE"})
	require.Error(t, err)
	assert.True(t, IsErrorType(err, "CONFLICT"))

	_, err = env.services.Activity.RegisterUser(ctx, &RegisterUserRequest{Username: "a!"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Contains(t, fields, "username")
}

func TestActivityService_RejectsSelfActions(t *testing.T) {
	env := newTestEnv(t, testCatalog)
	ctx := context.Background()

	alice := env.user(t, "alice")
	p := env.prompt(t, alice.ID, "Claude", "coding")
	c, err := env.services.Activity.PostComment(ctx, alice.ID, p.ID, &PostCommentRequest{Content: "notes"})
	require.NoError(t, err)

	err = env.services.Activity.RatePrompt(ctx, alice.ID, p.ID, &RatePromptRequest{Rating: 5})
	assert.True(t, IsValidationError(err), "self rating")

	_, err = env.services.Activity.LikePrompt(ctx, alice.ID, p.ID)
	assert.True(t, IsValidationError(err), "self prompt like")

	_, err = env.services.Activity.LikeComment(ctx, alice.ID, c.ID)
	assert.True(t, IsValidationError(err), "self comment like")

	_, err = env.services.Activity.FollowUser(ctx, alice.ID, alice.ID)
	assert.True(t, IsValidationError(err), "self follow")
}

func TestActivityService_NotFound(t *testing.T) {
	env := newTestEnv(t, testCatalog)
	ctx := context.Background()

	alice := env.user(t, "alice")

	err := env.services.Activity.RatePrompt(ctx, alice.ID, 404, &RatePromptRequest{Rating: 3})
	assert.True(t, IsNotFoundError(err))

	_, err = env.services.Activity.LikeComment(ctx, alice.ID, 404)
	assert.True(t, IsNotFoundError(err))

	_, err = env.services.Activity.FollowUser(ctx, alice.ID, 404)
	assert.True(t, IsNotFoundError(err))

	_, err = env.services.Activity.CreatePrompt(ctx, 404, &CreatePromptRequest{
		Title: "Orphan", Content: "A prompt without an author.", AIAgent: "Claude", Category: "misc",
	})
	assert.True(t, IsNotFoundError(err))
}

func TestActivityService_Replies(t *testing.T) {
	env := newTestEnv(t, testCatalog)
	ctx := context.Background()

	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	p1 := env.prompt(t, alice.ID, "Claude", "coding")
	p2 := env.prompt(t, alice.ID, "Claude", "writing")

	root, err := env.services.Activity.PostComment(ctx, alice.ID, p1.ID, &PostCommentRequest{Content: "Does this work on GPT-4?"})
	require.NoError(t, err)

	reply, err := env.services.Activity.PostComment(ctx, bob.ID, p1.ID, &PostCommentRequest{Content: "Yes, with a shorter system prompt.", ParentID: &root.ID})
	require.NoError(t, err)
	assert.True(t, reply.IsReply())

	_, err = env.services.Activity.PostComment(ctx, bob.ID, p2.ID, &PostCommentRequest{Content: "wrong thread", ParentID: &root.ID})
	assert.True(t, IsValidationError(err))

	missing := int64(404)
	_, err = env.services.Activity.PostComment(ctx, bob.ID, p1.ID, &PostCommentRequest{Content: "lost", ParentID: &missing})
	assert.True(t, IsNotFoundError(err))

	earned, err := env.services.Badges.CheckUserBadges(ctx, bob.ID)
	require.NoError(t, err)
	assert.Contains(t, badgeIDs(earned), "helpful-commenter")
}

func TestActivityService_DuplicateLikesAndFollows(t *testing.T) {
	env := newTestEnv(t, testCatalog)
	ctx := context.Background()

	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	p := env.prompt(t, alice.ID, "Claude", "coding")

	first, err := env.services.Activity.LikePrompt(ctx, bob.ID, p.ID)
	require.NoError(t, err)
	assert.True(t, first.Created)

	second, err := env.services.Activity.LikePrompt(ctx, bob.ID, p.ID)
	require.NoError(t, err)
	assert.False(t, second.Created)

	followed, err := env.services.Activity.FollowUser(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.True(t, followed.Created)

	again, err := env.services.Activity.FollowUser(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	assert.False(t, again.Created)
}

func TestActivityService_PublishesEventsThatAwardBadges(t *testing.T) {
	env := newTestEnv(t, testCatalog)
	ctx := context.Background()

	activity := record(t, env, "user.*")
	awarded := record(t, env, events.TypeBadgeAwarded)
	require.NoError(t, env.services.Start(ctx))

	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	_, err := env.services.Activity.FollowUser(ctx, bob.ID, alice.ID)
	require.NoError(t, err)
	_, err = env.services.Activity.FollowUser(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return len(awarded.snapshot()) == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(activity.types()) == 3
	}, 2*time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{events.TypeUserRegistered, events.TypeUserRegistered, events.TypeUserFollowed}, activity.types())

	badge := awarded.snapshot()[0].(*events.BadgeAwardedEvent)
	assert.Equal(t, "community-builder", badge.Badge.BadgeID)
	assert.Equal(t, bob.ID, *badge.GetUserID())

	held, err := env.services.Badges.GetUserBadges(ctx, bob.ID)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, "community-builder", held[0].BadgeID)
}
