// Package memstore is an in-process implementation of every repository interface.
// It backs DATABASE_DRIVER=memory and the service tests.
package memstore

import (
	"strings"
	"sync"
	"time"

	"promptvault/internal/models"
	"promptvault/internal/repositories"
)

type edge struct {
	from, to int64
}

// Store holds all records behind a single lock.
type Store struct {
	mu sync.RWMutex

	nextUserID    int64
	nextPromptID  int64
	nextCommentID int64

	users        map[int64]*models.User
	usernames    map[string]int64
	prompts      map[int64]*models.Prompt
	ratings      map[int64]map[int64]int
	promptLikes  map[int64]map[int64]struct{}
	comments     map[int64]*models.Comment
	commentLikes map[int64]map[int64]struct{}
	follows      map[edge]time.Time
	stats        map[int64]*models.UserStats
	awards       map[string]*models.AwardedBadge

	now func() time.Time
}

// New returns an empty store.
func New() *Store {
	return &Store{
		users:        make(map[int64]*models.User),
		usernames:    make(map[string]int64),
		prompts:      make(map[int64]*models.Prompt),
		ratings:      make(map[int64]map[int64]int),
		promptLikes:  make(map[int64]map[int64]struct{}),
		comments:     make(map[int64]*models.Comment),
		commentLikes: make(map[int64]map[int64]struct{}),
		follows:      make(map[edge]time.Time),
		stats:        make(map[int64]*models.UserStats),
		awards:       make(map[string]*models.AwardedBadge),
		now:          func() time.Time { return time.Now().UTC() },
	}
}

// SetClock overrides the store's notion of now. Intended for tests.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// Collection exposes the store through the repository interfaces.
func (s *Store) Collection() *repositories.Collection {
	return &repositories.Collection{
		User:     userRepo{s},
		Prompt:   promptRepo{s},
		Comment:  commentRepo{s},
		Follow:   followRepo{s},
		Activity: activityReader{s},
		Stats:    statsRepo{s},
		Badge:    badgeRepo{s},
	}
}

// NewCollection is shorthand for New().Collection().
func NewCollection() *repositories.Collection {
	return New().Collection()
}

func usernameKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

func addToSet(m map[int64]map[int64]struct{}, key, member int64) bool {
	set, ok := m[key]
	if !ok {
		set = make(map[int64]struct{})
		m[key] = set
	}
	if _, dup := set[member]; dup {
		return false
	}
	set[member] = struct{}{}
	return true
}
