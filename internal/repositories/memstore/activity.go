package memstore

import (
	"context"
	"fmt"

	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"promptvault/internal/models"
	"promptvault/internal/repositories"
)

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, u *models.User) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	key := usernameKey(u.Username)
	if _, taken := s.usernames[key]; taken {
		return fmt.Errorf("username %q: %w", u.Username, repositories.ErrDuplicate)
	}

	s.nextUserID++
	u.ID = s.nextUserID
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now()
	}
	stored := *u
	s.users[u.ID] = &stored
	s.usernames[key] = u.ID
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *u
	return &out, nil
}

type promptRepo struct{ s *Store }

func (r promptRepo) Create(_ context.Context, p *models.Prompt) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[p.UserID]; !ok {
		return fmt.Errorf("user %d: %w", p.UserID, repositories.ErrNotFound)
	}

	s.nextPromptID++
	p.ID = s.nextPromptID
	if p.CreatedAt.IsZero() {
		p.CreatedAt = s.now()
	}
	stored := *p
	s.prompts[p.ID] = &stored
	return nil
}

func (r promptRepo) GetByID(_ context.Context, id int64) (*models.Prompt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.prompts[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r promptRepo) Rate(_ context.Context, rating *models.PromptRating) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prompts[rating.PromptID]; !ok {
		return fmt.Errorf("prompt %d: %w", rating.PromptID, repositories.ErrNotFound)
	}
	byUser, ok := s.ratings[rating.PromptID]
	if !ok {
		byUser = make(map[int64]int)
		s.ratings[rating.PromptID] = byUser
	}
	byUser[rating.UserID] = rating.Rating
	rating.CreatedAt = s.now()
	return nil
}

func (r promptRepo) Like(_ context.Context, promptID, userID int64) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prompts[promptID]; !ok {
		return false, fmt.Errorf("prompt %d: %w", promptID, repositories.ErrNotFound)
	}
	return addToSet(s.promptLikes, promptID, userID), nil
}

type commentRepo struct{ s *Store }

func (r commentRepo) Create(_ context.Context, c *models.Comment) error {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.prompts[c.PromptID]; !ok {
		return fmt.Errorf("prompt %d: %w", c.PromptID, repositories.ErrNotFound)
	}
	if c.ParentID != nil {
		if _, ok := s.comments[*c.ParentID]; !ok {
			return fmt.Errorf("comment %d: %w", *c.ParentID, repositories.ErrNotFound)
		}
	}

	s.nextCommentID++
	c.ID = s.nextCommentID
	if c.CreatedAt.IsZero() {
		c.CreatedAt = s.now()
	}
	stored := *c
	if c.ParentID != nil {
		parent := *c.ParentID
		stored.ParentID = &parent
	}
	s.comments[c.ID] = &stored
	return nil
}

func (r commentRepo) GetByID(_ context.Context, id int64) (*models.Comment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.comments[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (r commentRepo) Like(_ context.Context, commentID, userID int64) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[commentID]; !ok {
		return false, fmt.Errorf("comment %d: %w", commentID, repositories.ErrNotFound)
	}
	return addToSet(s.commentLikes, commentID, userID), nil
}

type followRepo struct{ s *Store }

func (r followRepo) Follow(_ context.Context, followerID, followingID int64) (bool, error) {
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[followerID]; !ok {
		return false, fmt.Errorf("user %d: %w", followerID, repositories.ErrNotFound)
	}
	if _, ok := s.users[followingID]; !ok {
		return false, fmt.Errorf("user %d: %w", followingID, repositories.ErrNotFound)
	}

	e := edge{followerID, followingID}
	if _, exists := s.follows[e]; exists {
		return false, nil
	}
	s.follows[e] = s.now()
	return true, nil
}

// activityReader mirrors the postgres aggregate queries.
type activityReader struct{ s *Store }

func (r activityReader) UserProfile(ctx context.Context, userID int64) (*models.User, error) {
	return userRepo(r).GetByID(ctx, userID)
}

func (r activityReader) PromptActivity(_ context.Context, userID int64, qualityRating float64, viralLikes int) (*PromptActivity, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	agents := make(map[string]struct{})
	categories := make(map[string]struct{})
	var (
		out         PromptActivity
		ratingSum   int
		ratingCount int
	)

	for _, p := range s.prompts {
		if p.UserID != userID {
			continue
		}
		out.TotalPrompts++
		agents[p.AIAgent] = struct{}{}
		categories[p.Category] = struct{}{}

		if byUser := s.ratings[p.ID]; len(byUser) > 0 {
			sum := 0
			for _, v := range byUser {
				sum += v
			}
			if float64(sum)/float64(len(byUser)) >= qualityRating {
				out.QualityPrompts++
			}
			ratingSum += sum
			ratingCount += len(byUser)
		}

		if len(s.promptLikes[p.ID]) >= viralLikes {
			out.ViralPrompts++
		}
	}

	if ratingCount > 0 {
		out.AverageRating = float64(ratingSum) / float64(ratingCount)
	}
	out.Agents = sortedKeys(agents)
	out.Categories = sortedKeys(categories)
	return &out, nil
}

func (r activityReader) SocialActivity(_ context.Context, userID int64) (*SocialActivity, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out SocialActivity
	for e := range s.follows {
		if e.to == userID {
			out.Followers++
		}
		if e.from == userID {
			out.Following++
		}
	}
	return &out, nil
}

func (r activityReader) CommentActivity(_ context.Context, userID int64) (*CommentActivity, error) {
	s := r.s
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out CommentActivity
	repliedTo := make(map[int64]struct{})
	helped := make(map[int64]struct{})

	for _, c := range s.comments {
		if c.UserID == userID {
			out.TotalComments++
			out.CommentLikesReceived += len(s.commentLikes[c.ID])
		}
		if c.ParentID == nil {
			continue
		}
		parent, ok := s.comments[*c.ParentID]
		if !ok {
			continue
		}
		if c.UserID == userID {
			out.RepliesMade++
			if parent.UserID != userID {
				helped[parent.UserID] = struct{}{}
			}
		}
		if parent.UserID == userID && c.UserID != userID {
			repliedTo[parent.ID] = struct{}{}
		}
	}

	out.CommentsWithReplies = len(repliedTo)
	out.UsersHelped = len(helped)
	return &out, nil
}

// Local aliases keep the method signatures readable.
type (
	PromptActivity  = repositories.PromptActivity
	SocialActivity  = repositories.SocialActivity
	CommentActivity = repositories.CommentActivity
)

func sortedKeys(m map[string]struct{}) []string {
	keys := maps.Keys(m)
	slices.Sort(keys)
	return keys
}
