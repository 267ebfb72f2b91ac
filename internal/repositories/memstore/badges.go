package memstore

import (
	"context"
	"time"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"promptvault/internal/models"
	"promptvault/internal/repositories"
)

type statsRepo struct{ s *Store }

func (r statsRepo) Save(_ context.Context, stats *models.UserStats) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.stats[stats.UserID] = cloneStats(stats)
	return nil
}

func (r statsRepo) Get(_ context.Context, userID int64) (*models.UserStats, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	stats, ok := r.s.stats[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return cloneStats(stats), nil
}

type badgeRepo struct{ s *Store }

// Award inserts only when the (user, badge) pair is absent, like the
// ON CONFLICT DO NOTHING insert in postgres.
func (r badgeRepo) Award(_ context.Context, b *models.AwardedBadge) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	key := b.Key()
	if _, held := r.s.awards[key]; held {
		return false, nil
	}
	r.s.awards[key] = cloneAward(b)
	return true, nil
}

func (r badgeRepo) Upgrade(_ context.Context, b *models.AwardedBadge) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, held := r.s.awards[b.Key()]
	if !held || current.Level >= b.Level {
		return false, nil
	}
	upgradedAt := time.Now().UTC()
	if b.UpgradedAt != nil {
		upgradedAt = *b.UpgradedAt
	}
	current.Level = b.Level
	current.UpgradedAt = &upgradedAt
	current.Progress = maps.Clone(b.Progress)
	return true, nil
}

func (r badgeRepo) ListByUser(_ context.Context, userID int64) ([]*models.AwardedBadge, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.AwardedBadge
	for _, b := range r.s.awards {
		if b.UserID == userID {
			out = append(out, cloneAward(b))
		}
	}
	slices.SortFunc(out, func(a, b *models.AwardedBadge) int {
		if c := a.EarnedAt.Compare(b.EarnedAt); c != 0 {
			return c
		}
		return compareStrings(a.BadgeID, b.BadgeID)
	})
	return out, nil
}

func (r badgeRepo) ListAwards(_ context.Context, since *time.Time) ([]*models.AwardRecord, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*models.AwardRecord
	for _, b := range r.s.awards {
		if since != nil && b.EarnedAt.Before(*since) {
			continue
		}
		u, ok := r.s.users[b.UserID]
		if !ok {
			continue
		}
		out = append(out, &models.AwardRecord{
			UserID:      b.UserID,
			DisplayName: u.Name(),
			BadgeID:     b.BadgeID,
			EarnedAt:    b.EarnedAt,
		})
	}
	slices.SortFunc(out, func(a, b *models.AwardRecord) int {
		if a.UserID != b.UserID {
			if a.UserID < b.UserID {
				return -1
			}
			return 1
		}
		return compareStrings(a.BadgeID, b.BadgeID)
	})
	return out, nil
}

func compareStrings(a, b string) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cloneStats(in *models.UserStats) *models.UserStats {
	out := *in
	out.AgentsUsed = slices.Clone(in.AgentsUsed)
	out.CategoriesUsed = slices.Clone(in.CategoriesUsed)
	return &out
}

func cloneAward(in *models.AwardedBadge) *models.AwardedBadge {
	out := *in
	out.Progress = maps.Clone(in.Progress)
	if in.UpgradedAt != nil {
		at := *in.UpgradedAt
		out.UpgradedAt = &at
	}
	return &out
}
