package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"promptvault/internal/badges"
	"promptvault/internal/config"
	"promptvault/internal/events"
	"promptvault/internal/models"
	"promptvault/internal/repositories"
	"promptvault/internal/repositories/memstore"
)

const testCatalog = `
badges:
  - id: first-prompt
    name: Prompt Author
    tier: common
    criteria:
      type: milestone
      params: { metric: prompts, min: 1 }
    levels:
      - { metric: prompts, min: 3 }
      - { metric: prompts, min: 5 }
  - id: agent-explorer
    name: Agent Explorer
    tier: uncommon
    criteria:
      type: diversity
      params: { attribute: agents, min: 3 }
  - id: quality-creator
    name: Quality Creator
    tier: rare
    criteria:
      type: quality
      params: { min_prompts: 5, min_rating: 4.5 }
  - id: community-builder
    name: Community Builder
    tier: uncommon
    criteria:
      type: social
      params: { min_followers: 0, min_following: 1 }
  - id: helpful-commenter
    name: Helpful Commenter
    tier: uncommon
    criteria:
      type: comment_social
      params: { variant: community_helper, min_replies: 1, min_users_helped: 1 }
`

func testBadgeConfig() config.BadgeConfig {
	return config.BadgeConfig{
		QualityRating: 4.5,
		ViralLikes:    100,
		TierWeights:   badges.DefaultTierWeights(),
		DefaultLimit:  10,
		MaxLimit:      100,
		NearbyWindow:  1,
	}
}

type testEnv struct {
	store    *memstore.Store
	repos    *repositories.Collection
	catalog  *badges.Catalog
	bus      events.EventBus
	services *ServiceCollection
}

func newTestEnv(t *testing.T, catalogYAML string) *testEnv {
	t.Helper()

	catalog, err := badges.ParseCatalog([]byte(catalogYAML))
	require.NoError(t, err)

	store := memstore.New()
	repos := store.Collection()
	bus := events.NewEventBus(nil, zap.NewNop())

	cfg := &config.Config{Badges: testBadgeConfig()}
	sc, err := NewServiceCollection(Dependencies{
		Repositories: repos,
		Catalog:      catalog,
		EventBus:     bus,
	}, cfg, zap.NewNop())
	require.NoError(t, err)

	t.Cleanup(func() { _ = bus.Stop(context.Background()) })

	return &testEnv{store: store, repos: repos, catalog: catalog, bus: bus, services: sc}
}

func (e *testEnv) user(t *testing.T, name string) *models.User {
	t.Helper()
	u, err := e.services.Activity.RegisterUser(context.Background(), &RegisterUserRequest{Username: name})
	require.NoError(t, err)
	return u
}

func (e *testEnv) prompt(t *testing.T, author int64, agent, category string) *models.Prompt {
	t.Helper()
	p, err := e.services.Activity.CreatePrompt(context.Background(), author, &CreatePromptRequest{
		Title:    fmt.Sprintf("%s prompt", agent),
		Content:  "Explain the difference between goroutines and threads.",
		AIAgent:  agent,
		Category: category,
	})
	require.NoError(t, err)
	return p
}

// award stores an award directly, bypassing evaluation.
func (e *testEnv) award(t *testing.T, userID int64, badgeID string, at time.Time) {
	t.Helper()
	created, err := e.repos.Badge.Award(context.Background(), &models.AwardedBadge{
		UserID: userID, BadgeID: badgeID, Level: 1, EarnedAt: at,
	})
	require.NoError(t, err)
	require.True(t, created)
}

func badgeIDs(nb []models.NewBadge) []string {
	out := make([]string, 0, len(nb))
	for _, b := range nb {
		out = append(out, b.BadgeID)
	}
	return out
}
