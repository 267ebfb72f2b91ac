package repositories

import (
	"context"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptvault/internal/config"
	"promptvault/internal/database"
	"promptvault/internal/models"
)

func getTestCollection(t *testing.T) *Collection {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping database tests")
	}

	cfg := &config.DatabaseConfig{
		Driver:             "postgres",
		URL:                dsn,
		MaxOpenConns:       5,
		MaxIdleConns:       2,
		ConnMaxLifetime:    time.Minute,
		SlowQueryThreshold: time.Second,
		ConnectTimeout:     10 * time.Second,
		MigrationsPath:     "../../migrations",
		AutoMigrate:        true,
	}

	manager, err := database.Connect(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() {
		for _, table := range []string{"user_badges", "user_stats", "follows", "comment_likes", "comments", "prompt_likes", "prompt_ratings", "prompts", "users"} {
			_, _ = manager.DB().Exec("DELETE FROM " + table)
		}
		manager.Close()
	})

	repos, err := NewCollection(manager, zap.NewNop())
	require.NoError(t, err)
	return repos
}

func createTestUser(t *testing.T, repos *Collection, name string) *models.User {
	t.Helper()
	u := &models.User{Username: fmt.Sprintf("%s%d", name, time.Now().UnixNano()%1_000_000)}
	require.NoError(t, repos.User.Create(context.Background(), u))
	return u
}

func TestPostgresActivityAggregates(t *testing.T) {
	repos := getTestCollection(t)
	ctx := context.Background()

	author := createTestUser(t, repos, "author")
	fan := createTestUser(t, repos, "fan")

	for i, agent := range []string{"Claude", "ChatGPT", "Claude"} {
		p := &models.Prompt{UserID: author.ID, Title: fmt.Sprintf("p%d", i), Content: "a prompt body", AIAgent: agent, Category: "Coding"}
		require.NoError(t, repos.Prompt.Create(ctx, p))
		require.NoError(t, repos.Prompt.Rate(ctx, &models.PromptRating{PromptID: p.ID, UserID: fan.ID, Rating: 5}))
		liked, err := repos.Prompt.Like(ctx, p.ID, fan.ID)
		require.NoError(t, err)
		assert.True(t, liked)
	}

	activity, err := repos.Activity.PromptActivity(ctx, author.ID, 4.5, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, activity.TotalPrompts)
	assert.Equal(t, []string{"ChatGPT", "Claude"}, activity.Agents)
	assert.Equal(t, []string{"Coding"}, activity.Categories)
	assert.Equal(t, 3, activity.QualityPrompts)
	assert.InDelta(t, 5.0, activity.AverageRating, 0.0001)
	assert.Equal(t, 3, activity.ViralPrompts)

	created, err := repos.Follow.Follow(ctx, fan.ID, author.ID)
	require.NoError(t, err)
	assert.True(t, created)
	created, err = repos.Follow.Follow(ctx, fan.ID, author.ID)
	require.NoError(t, err)
	assert.False(t, created, "duplicate follow is a no-op")

	social, err := repos.Activity.SocialActivity(ctx, author.ID)
	require.NoError(t, err)
	assert.Equal(t, SocialActivity{Followers: 1, Following: 0}, *social)
}

func TestPostgresConcurrentAwardIsUnique(t *testing.T) {
	repos := getTestCollection(t)
	ctx := context.Background()
	user := createTestUser(t, repos, "racer")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		created int
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repos.Badge.Award(ctx, &models.AwardedBadge{UserID: user.ID, BadgeID: "first-connection", Level: 1, EarnedAt: time.Now()})
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, created)
	held, err := repos.Badge.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Len(t, held, 1)
}

func TestPostgresUpgradeNeverLowersLevel(t *testing.T) {
	repos := getTestCollection(t)
	ctx := context.Background()
	user := createTestUser(t, repos, "climber")

	earned := time.Now().UTC().Add(-48 * time.Hour).Truncate(time.Second)
	_, err := repos.Badge.Award(ctx, &models.AwardedBadge{UserID: user.ID, BadgeID: "first-prompt", Level: 2, EarnedAt: earned})
	require.NoError(t, err)

	ok, err := repos.Badge.Upgrade(ctx, &models.AwardedBadge{UserID: user.ID, BadgeID: "first-prompt", Level: 1, EarnedAt: time.Now()})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = repos.Badge.Upgrade(ctx, &models.AwardedBadge{UserID: user.ID, BadgeID: "first-prompt", Level: 3, EarnedAt: time.Now(), Progress: map[string]float64{"prompts": 50}})
	require.NoError(t, err)
	assert.True(t, ok)

	held, err := repos.Badge.ListByUser(ctx, user.ID)
	require.NoError(t, err)
	require.Len(t, held, 1)
	assert.Equal(t, 3, held[0].Level)
	assert.Equal(t, map[string]float64{"prompts": 50}, held[0].Progress)
	assert.True(t, earned.Equal(held[0].EarnedAt), "upgrades keep the first-award time")
	assert.NotNil(t, held[0].UpgradedAt)
}

func TestPostgresStatsRoundTrip(t *testing.T) {
	repos := getTestCollection(t)
	ctx := context.Background()
	user := createTestUser(t, repos, "stats")

	_, err := repos.Stats.Get(ctx, user.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	in := &models.UserStats{
		UserID:           user.ID,
		TotalPrompts:     4,
		AgentsUsed:       []string{"Claude", "Gemini"},
		CategoriesUsed:   []string{},
		AccountCreatedAt: user.CreatedAt.UTC(),
		Followers:        2,
	}
	require.NoError(t, repos.Stats.Save(ctx, in))

	out, err := repos.Stats.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, in.AgentsUsed, out.AgentsUsed)
	assert.Equal(t, 4, out.TotalPrompts)
	assert.Equal(t, 2, out.Followers)
}
