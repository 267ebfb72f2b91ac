package services

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/models"
)

// tieredCatalog has one trivially satisfiable badge per slot so awards can be
// stored directly without evaluation.
func tieredCatalog() string {
	var b strings.Builder
	b.WriteString("badges:\n")
	for _, slot := range []struct{ id, tier string }{
		{"common-1", "common"}, {"common-2", "common"}, {"common-3", "common"}, {"common-4", "common"},
		{"uncommon-1", "uncommon"}, {"rare-1", "rare"}, {"epic-1", "epic"}, {"legendary-1", "legendary"},
	} {
		fmt.Fprintf(&b, "  - id: %s\n    name: %s\n    tier: %s\n    criteria:\n      type: milestone\n      params: { metric: prompts, min: 1 }\n",
			slot.id, slot.id, slot.tier)
	}
	return b.String()
}

func newLeaderboardEnv(t *testing.T, now time.Time) *testEnv {
	t.Helper()
	env := newTestEnv(t, tieredCatalog())
	env.services.Leaderboard.now = func() time.Time { return now }
	return env
}

func TestLeaderboard_TierWeightsBeatBadgeCount(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := newLeaderboardEnv(t, now)
	ctx := context.Background()

	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	earned := now.Add(-time.Hour)
	for _, id := range []string{"rare-1", "uncommon-1", "common-1", "common-2", "common-3", "common-4"} {
		env.award(t, alice.ID, id, earned)
	}
	env.award(t, bob.ID, "legendary-1", earned)

	board, err := env.services.Leaderboard.GetBadgeLeaderboard(ctx, LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, board, 2)

	assert.Equal(t, bob.ID, board[0].UserID)
	assert.Equal(t, 16, board[0].Score)
	assert.Equal(t, 1, board[0].Rank)
	assert.Equal(t, "bob", board[0].DisplayName)

	assert.Equal(t, alice.ID, board[1].UserID)
	assert.Equal(t, 10, board[1].Score)
	assert.Equal(t, 6, board[1].BadgeCount)
	assert.Equal(t, 2, board[1].Rank)
	assert.Equal(t, map[models.Tier]int{
		models.TierCommon:   4,
		models.TierUncommon: 1,
		models.TierRare:     1,
	}, board[1].TierCounts)

	byCount, err := env.services.Leaderboard.GetBadgeLeaderboard(ctx, LeaderboardQuery{Type: models.LeaderboardCount})
	require.NoError(t, err)
	require.Len(t, byCount, 2)
	assert.Equal(t, alice.ID, byCount[0].UserID)
	assert.Equal(t, 6, byCount[0].Score)
}

func TestLeaderboard_TieBreak(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := newLeaderboardEnv(t, now)
	ctx := context.Background()

	alice := env.user(t, "alice")
	bob := env.user(t, "bob")
	carol := env.user(t, "carol")

	env.award(t, alice.ID, "epic-1", now.Add(-time.Hour))
	env.award(t, bob.ID, "epic-1", now.Add(-2*time.Hour))
	env.award(t, carol.ID, "epic-1", now.Add(-time.Hour))

	board, err := env.services.Leaderboard.GetBadgeLeaderboard(ctx, LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, board, 3)

	// Bob reached the score first; alice and carol tie on time and fall back to id.
	assert.Equal(t, []int64{bob.ID, alice.ID, carol.ID}, []int64{board[0].UserID, board[1].UserID, board[2].UserID})
	assert.Equal(t, []int{1, 2, 3}, []int{board[0].Rank, board[1].Rank, board[2].Rank})
}

func TestLeaderboard_PeriodFilter(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := newLeaderboardEnv(t, now)
	ctx := context.Background()

	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	env.award(t, alice.ID, "legendary-1", now.AddDate(0, 0, -45))
	env.award(t, alice.ID, "common-1", now.AddDate(0, 0, -10))
	env.award(t, bob.ID, "rare-1", now.AddDate(0, 0, -2))

	tests := []struct {
		period models.LeaderboardPeriod
		want   []int64
		scores []int
	}{
		{models.PeriodAll, []int64{alice.ID, bob.ID}, []int{17, 4}},
		{models.PeriodMonth, []int64{bob.ID, alice.ID}, []int{4, 1}},
		{models.PeriodWeek, []int64{bob.ID}, []int{4}},
	}

	for _, tt := range tests {
		t.Run(string(tt.period), func(t *testing.T) {
			board, err := env.services.Leaderboard.GetBadgeLeaderboard(ctx, LeaderboardQuery{Period: tt.period})
			require.NoError(t, err)

			var ids []int64
			var scores []int
			for _, e := range board {
				ids = append(ids, e.UserID)
				scores = append(scores, e.Score)
			}
			assert.Equal(t, tt.want, ids)
			assert.Equal(t, tt.scores, scores)
		})
	}
}

func TestLeaderboard_UpgradeKeepsFirstAwardTime(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := newTestEnv(t, testCatalog)
	env.services.Leaderboard.now = func() time.Time { return now }
	ctx := context.Background()

	clock := now.AddDate(0, 0, -45)
	env.services.Badges.now = func() time.Time { return clock }

	alice := env.user(t, "alice")
	bob := env.user(t, "bob")

	env.prompt(t, alice.ID, "Claude", "coding")
	earned, err := env.services.Badges.CheckUserBadges(ctx, alice.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"first-prompt"}, badgeIDs(earned))

	clock = now.AddDate(0, 0, -44)
	env.prompt(t, bob.ID, "Claude", "coding")
	earned, err = env.services.Badges.CheckUserBadges(ctx, bob.ID)
	require.NoError(t, err)
	require.Equal(t, []string{"first-prompt"}, badgeIDs(earned))

	// Alice reaches level 2 yesterday; her tier-weighted score does not change.
	clock = now.AddDate(0, 0, -1)
	env.prompt(t, alice.ID, "Claude", "coding")
	env.prompt(t, alice.ID, "Claude", "coding")
	earned, err = env.services.Badges.CheckUserBadges(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, earned, 1)
	assert.True(t, earned[0].Upgraded)
	assert.Equal(t, 2, earned[0].Level)

	board, err := env.services.Leaderboard.GetBadgeLeaderboard(ctx, LeaderboardQuery{})
	require.NoError(t, err)
	require.Len(t, board, 2)
	assert.Equal(t, board[0].Score, board[1].Score)
	assert.Equal(t, alice.ID, board[0].UserID, "alice reached the tying score first")
	assert.Equal(t, now.AddDate(0, 0, -45), board[0].ReachedAt)
	assert.Equal(t, bob.ID, board[1].UserID)

	week, err := env.services.Leaderboard.GetBadgeLeaderboard(ctx, LeaderboardQuery{Period: models.PeriodWeek})
	require.NoError(t, err)
	assert.Empty(t, week, "an upgrade does not pull an old award into the window")

	month, err := env.services.Leaderboard.GetBadgeLeaderboard(ctx, LeaderboardQuery{Period: models.PeriodMonth})
	require.NoError(t, err)
	assert.Empty(t, month)
}

func TestLeaderboard_Limit(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := newLeaderboardEnv(t, now)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		u := env.user(t, fmt.Sprintf("user%d", i))
		env.award(t, u.ID, "common-1", now.Add(-time.Duration(i)*time.Minute))
	}

	board, err := env.services.Leaderboard.GetBadgeLeaderboard(ctx, LeaderboardQuery{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, board, 3)

	board, err = env.services.Leaderboard.GetBadgeLeaderboard(ctx, LeaderboardQuery{Limit: 5000})
	require.NoError(t, err)
	assert.Len(t, board, 5)
}

func TestLeaderboard_InvalidQuery(t *testing.T) {
	env := newLeaderboardEnv(t, time.Now().UTC())
	ctx := context.Background()

	tests := []struct {
		name  string
		query LeaderboardQuery
	}{
		{"unknown type", LeaderboardQuery{Type: "karma"}},
		{"unknown period", LeaderboardQuery{Period: "decade"}},
		{"negative limit", LeaderboardQuery{Limit: -1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.services.Leaderboard.GetBadgeLeaderboard(ctx, tt.query)
			require.Error(t, err)
			assert.True(t, IsValidationError(err))
		})
	}
}

func TestLeaderboard_GetUserRank(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	env := newLeaderboardEnv(t, now)
	ctx := context.Background()

	// Scores 16, 8, 4, 2, 1 in rank order.
	var users []*models.User
	for i, badge := range []string{"legendary-1", "epic-1", "rare-1", "uncommon-1", "common-1"} {
		u := env.user(t, fmt.Sprintf("user%d", i))
		env.award(t, u.ID, badge, now.Add(-time.Hour))
		users = append(users, u)
	}
	loner := env.user(t, "loner")

	rank, found, err := env.services.Leaderboard.GetUserRank(ctx, users[2].ID, "", "")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 3, rank.Rank)
	assert.Equal(t, 5, rank.Total)
	assert.Equal(t, 4, rank.Entry.Score)
	require.Len(t, rank.Nearby, 2)
	assert.Equal(t, users[1].ID, rank.Nearby[0].UserID)
	assert.Equal(t, users[3].ID, rank.Nearby[1].UserID)

	top, found, err := env.services.Leaderboard.GetUserRank(ctx, users[0].ID, models.LeaderboardScore, models.PeriodAll)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, 1, top.Rank)
	require.Len(t, top.Nearby, 1)
	assert.Equal(t, users[1].ID, top.Nearby[0].UserID)

	_, found, err = env.services.Leaderboard.GetUserRank(ctx, loner.ID, "", "")
	require.NoError(t, err)
	assert.False(t, found)

	_, _, err = env.services.Leaderboard.GetUserRank(ctx, loner.ID, "karma", "")
	assert.True(t, IsValidationError(err))
}
