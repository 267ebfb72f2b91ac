package services

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptvault/internal/repositories"
)

// flakyActivity fails the comment query while fail is set.
type flakyActivity struct {
	repositories.ActivityReader
	fail bool
}

func (f *flakyActivity) CommentActivity(ctx context.Context, userID int64) (*repositories.CommentActivity, error) {
	if f.fail {
		return nil, errors.New("connection reset by peer")
	}
	return f.ActivityReader.CommentActivity(ctx, userID)
}

func TestStatAggregator_NormalizesSets(t *testing.T) {
	env := newTestEnv(t, testCatalog)
	ctx := context.Background()

	alice := env.user(t, "alice")
	env.prompt(t, alice.ID, "Claude", "coding")
	env.prompt(t, alice.ID, " claude ", "Coding")
	env.prompt(t, alice.ID, "GPT-4", "coding")
	env.prompt(t, alice.ID, "Claude", "writing")

	stats, err := env.services.Aggregator.Compute(ctx, alice.ID)
	require.NoError(t, err)

	assert.Equal(t, 4, stats.TotalPrompts)
	assert.Equal(t, []string{"Claude", "GPT-4", "claude"}, stats.AgentsUsed)
	assert.Equal(t, []string{"Coding", "coding", "writing"}, stats.CategoriesUsed)
	assert.True(t, stats.UsedAgent("claude"))
	assert.False(t, stats.UsedAgent("CLAUDE"))
	assert.Equal(t, alice.CreatedAt.UTC(), stats.AccountCreatedAt)
}

func TestStatAggregator_ComputeIsIdempotent(t *testing.T) {
	env := newTestEnv(t, testCatalog)
	ctx := context.Background()

	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	p := env.prompt(t, alice.ID, "Claude", "coding")
	require.NoError(t, env.services.Activity.RatePrompt(ctx, bob.ID, p.ID, &RatePromptRequest{Rating: 5}))
	_, err := env.services.Activity.FollowUser(ctx, bob.ID, alice.ID)
	require.NoError(t, err)

	first, err := env.services.Aggregator.Compute(ctx, alice.ID)
	require.NoError(t, err)
	second, err := env.services.Aggregator.Compute(ctx, alice.ID)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("recomputed stats differ (-first +second):\n%s", diff)
	}
	assert.Equal(t, 1, second.Followers)
	assert.Equal(t, 5.0, second.AverageRating)
}

func TestStatAggregator_FailureKeepsPreviousSnapshot(t *testing.T) {
	env := newTestEnv(t, testCatalog)
	ctx := context.Background()

	alice := env.user(t, "alice")
	env.prompt(t, alice.ID, "Claude", "coding")

	activity := &flakyActivity{ActivityReader: env.repos.Activity}
	agg := NewStatAggregator(activity, env.repos.Stats, testBadgeConfig(), zap.NewNop())

	before, err := agg.Compute(ctx, alice.ID)
	require.NoError(t, err)

	env.prompt(t, alice.ID, "GPT-4", "writing")
	activity.fail = true

	_, err = agg.Compute(ctx, alice.ID)
	require.Error(t, err)
	assert.True(t, IsErrorType(err, "SERVICE_UNAVAILABLE"))

	stored, err := agg.Snapshot(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, before, stored)
	assert.Equal(t, 1, stored.TotalPrompts)
}

func TestStatAggregator_UnknownUser(t *testing.T) {
	env := newTestEnv(t, testCatalog)

	_, err := env.services.Aggregator.Compute(context.Background(), 404)
	require.Error(t, err)
	assert.True(t, IsNotFoundError(err))
}

func TestStatAggregator_SnapshotComputesOnFirstAccess(t *testing.T) {
	env := newTestEnv(t, testCatalog)
	ctx := context.Background()

	alice := env.user(t, "alice")
	env.prompt(t, alice.ID, "Claude", "coding")

	_, err := env.repos.Stats.Get(ctx, alice.ID)
	require.ErrorIs(t, err, repositories.ErrNotFound)

	stats, err := env.services.Aggregator.Snapshot(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.TotalPrompts)

	stored, err := env.repos.Stats.Get(ctx, alice.ID)
	require.NoError(t, err)
	assert.Equal(t, stats, stored)
}

func TestNormalizeSet(t *testing.T) {
	tests := []struct {
		name string
		in   []string
		want []string
	}{
		{"nil", nil, []string{}},
		{"blank entries dropped", []string{" ", "", "b"}, []string{"b"}},
		{"trim and dedupe", []string{" a", "a ", "b", "a"}, []string{"a", "b"}},
		{"case preserved", []string{"B", "a", "b"}, []string{"B", "a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeSet(tt.in))
		})
	}
}
