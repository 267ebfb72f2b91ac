package models

import (
	"fmt"
	"time"

	"golang.org/x/exp/slices"
)

// Tier is the ordinal rarity of a badge, weakest first.
type Tier string

const (
	TierCommon    Tier = "common"
	TierUncommon  Tier = "uncommon"
	TierRare      Tier = "rare"
	TierEpic      Tier = "epic"
	TierLegendary Tier = "legendary"
)

// Tiers lists every tier from weakest to strongest.
var Tiers = []Tier{TierCommon, TierUncommon, TierRare, TierEpic, TierLegendary}

// Rank returns the 0-based position of t in Tiers, or -1 if t is not a known tier.
func (t Tier) Rank() int {
	for i, known := range Tiers {
		if known == t {
			return i
		}
	}
	return -1
}

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t.Rank() >= 0
}

// UserStats is the derived snapshot of a user's activity counters. It is only ever
// recomputed from activity records and overwritten, never edited in place.
type UserStats struct {
	UserID               int64     `json:"user_id" db:"user_id"`
	TotalPrompts         int       `json:"total_prompts" db:"total_prompts"`
	AgentsUsed           []string  `json:"agents_used" db:"agents_used"`
	CategoriesUsed       []string  `json:"categories_used" db:"categories_used"`
	QualityPrompts       int       `json:"quality_prompts" db:"quality_prompts"`
	AverageRating        float64   `json:"average_rating" db:"average_rating"`
	ViralPrompts         int       `json:"viral_prompts" db:"viral_prompts"`
	Followers            int       `json:"followers" db:"followers"`
	Following            int       `json:"following" db:"following"`
	AccountCreatedAt     time.Time `json:"account_created_at" db:"account_created_at"`
	TotalComments        int       `json:"total_comments" db:"total_comments"`
	CommentLikesReceived int       `json:"comment_likes_received" db:"comment_likes_received"`
	RepliesMade          int       `json:"replies_made" db:"replies_made"`
	CommentsWithReplies  int       `json:"comments_with_replies" db:"comments_with_replies"`
	UsersHelped          int       `json:"users_helped" db:"users_helped"`
}

// UsedAgent reports whether the user has posted a prompt for the named agent.
// Names compare exactly, the same way the sets are deduplicated.
func (s *UserStats) UsedAgent(name string) bool {
	return slices.Contains(s.AgentsUsed, name)
}

// UsedCategory reports whether the user has posted a prompt in the named category.
func (s *UserStats) UsedCategory(name string) bool {
	return slices.Contains(s.CategoriesUsed, name)
}

// AwardedBadge is a badge held by a user. There is at most one per (UserID, BadgeID).
// EarnedAt is when the badge was first awarded and never moves; level upgrades
// only stamp UpgradedAt.
type AwardedBadge struct {
	UserID     int64              `json:"user_id" db:"user_id"`
	BadgeID    string             `json:"badge_id" db:"badge_id"`
	Level      int                `json:"level" db:"level"`
	EarnedAt   time.Time          `json:"earned_at" db:"earned_at"`
	UpgradedAt *time.Time         `json:"upgraded_at,omitempty" db:"upgraded_at"`
	Progress   map[string]float64 `json:"progress,omitempty" db:"progress"`
}

// Key identifies the award row.
func (a *AwardedBadge) Key() string {
	return fmt.Sprintf("%d:%s", a.UserID, a.BadgeID)
}

// NewBadge reports a badge earned or upgraded by a single evaluation. EarnedAt is
// the time of that evaluation.
type NewBadge struct {
	BadgeID  string    `json:"badge_id"`
	Name     string    `json:"name"`
	Icon     string    `json:"icon"`
	Tier     Tier      `json:"tier"`
	Level    int       `json:"level"`
	Upgraded bool      `json:"upgraded"`
	EarnedAt time.Time `json:"earned_at"`
}

// AwardRecord is the flattened award row the leaderboard aggregates over.
// EarnedAt is the first-award time.
type AwardRecord struct {
	UserID      int64     `db:"user_id"`
	DisplayName string    `db:"display_name"`
	BadgeID     string    `db:"badge_id"`
	EarnedAt    time.Time `db:"earned_at"`
}

// ===============================
// LEADERBOARD
// ===============================

// LeaderboardType selects how entries are scored.
type LeaderboardType string

const (
	LeaderboardScore LeaderboardType = "score"
	LeaderboardCount LeaderboardType = "count"
)

// LeaderboardPeriod restricts which awards count by their earned time.
type LeaderboardPeriod string

const (
	PeriodAll   LeaderboardPeriod = "all"
	PeriodMonth LeaderboardPeriod = "month"
	PeriodWeek  LeaderboardPeriod = "week"
)

// Since returns the start of the period relative to now, or nil for all time.
func (p LeaderboardPeriod) Since(now time.Time) *time.Time {
	var since time.Time
	switch p {
	case PeriodWeek:
		since = now.AddDate(0, 0, -7)
	case PeriodMonth:
		since = now.AddDate(0, 0, -30)
	default:
		return nil
	}
	return &since
}

// LeaderboardEntry is one computed leaderboard row.
type LeaderboardEntry struct {
	UserID      int64        `json:"user_id"`
	DisplayName string       `json:"display_name"`
	Score       int          `json:"score"`
	BadgeCount  int          `json:"badge_count"`
	Rank        int          `json:"rank"`
	TierCounts  map[Tier]int `json:"tier_counts"`
	ReachedAt   time.Time    `json:"reached_at"`
}

// UserRank is a user's position within the full ranking.
type UserRank struct {
	Entry  LeaderboardEntry   `json:"entry"`
	Rank   int                `json:"rank"`
	Total  int                `json:"total"`
	Nearby []LeaderboardEntry `json:"nearby"`
}
