package badges

import (
	"errors"
	"fmt"

	"promptvault/internal/models"
)

// ErrUnknownCriteria is returned for criteria values outside the closed set, which
// in practice means a nil Criteria.
var ErrUnknownCriteria = errors.New("unknown criteria")

// Evaluate reports whether stats satisfy c. Malformed parameters produce an error
// and a false result.
func Evaluate(c Criteria, s *models.UserStats) (bool, error) {
	if s == nil {
		return false, errors.New("nil stats")
	}
	if c == nil {
		return false, ErrUnknownCriteria
	}
	if err := c.Validate(); err != nil {
		return false, err
	}

	switch c := c.(type) {
	case DiversityCriteria:
		return setSize(c.Attribute, s) >= c.Min, nil

	case QualityCriteria:
		return s.QualityPrompts >= c.MinPrompts && s.AverageRating >= c.MinRating, nil

	case ViralCriteria:
		need := c.MinViral
		if need == 0 {
			need = 1
		}
		return s.ViralPrompts >= need, nil

	case SocialCriteria:
		return s.Followers >= c.MinFollowers && s.Following >= c.MinFollowing, nil

	case PioneerCriteria:
		if s.AccountCreatedAt.IsZero() {
			return false, nil
		}
		return !s.AccountCreatedAt.After(c.Cutoff), nil

	case SpecialtyCriteria:
		used := s.UsedAgent(c.Name)
		if c.Attribute == AttributeCategories {
			used = s.UsedCategory(c.Name)
		}
		return used && s.TotalPrompts >= c.MinPrompts, nil

	case CommentSocialCriteria:
		switch c.Variant {
		case HelpfulCommenter:
			return s.TotalComments >= c.MinComments && s.CommentLikesReceived >= c.MinLikes, nil
		case DiscussionStarter:
			return s.TotalComments >= c.MinComments && s.CommentsWithReplies >= c.MinReplies, nil
		default:
			return s.RepliesMade >= c.MinReplies && s.UsersHelped >= c.MinUsersHelped, nil
		}

	case MilestoneCriteria:
		return milestoneValue(c.Metric, s) >= c.Min, nil

	default:
		return false, fmt.Errorf("%w: %T", ErrUnknownCriteria, c)
	}
}

// Progress returns the current values of the counters c looks at.
func Progress(c Criteria, s *models.UserStats) map[string]float64 {
	if c == nil || s == nil {
		return nil
	}

	switch c := c.(type) {
	case DiversityCriteria:
		return map[string]float64{string(c.Attribute) + "_used": float64(setSize(c.Attribute, s))}
	case QualityCriteria:
		return map[string]float64{"quality_prompts": float64(s.QualityPrompts), "average_rating": s.AverageRating}
	case ViralCriteria:
		return map[string]float64{"viral_prompts": float64(s.ViralPrompts)}
	case SocialCriteria:
		return map[string]float64{"followers": float64(s.Followers), "following": float64(s.Following)}
	case PioneerCriteria:
		if s.AccountCreatedAt.IsZero() {
			return map[string]float64{}
		}
		return map[string]float64{"account_created_at": float64(s.AccountCreatedAt.Unix())}
	case SpecialtyCriteria:
		return map[string]float64{"total_prompts": float64(s.TotalPrompts)}
	case CommentSocialCriteria:
		switch c.Variant {
		case HelpfulCommenter:
			return map[string]float64{"comments": float64(s.TotalComments), "comment_likes": float64(s.CommentLikesReceived)}
		case DiscussionStarter:
			return map[string]float64{"comments": float64(s.TotalComments), "comments_with_replies": float64(s.CommentsWithReplies)}
		default:
			return map[string]float64{"replies_made": float64(s.RepliesMade), "users_helped": float64(s.UsersHelped)}
		}
	case MilestoneCriteria:
		return map[string]float64{string(c.Metric): float64(milestoneValue(c.Metric, s))}
	}
	return nil
}

func setSize(a SetAttribute, s *models.UserStats) int {
	if a == AttributeCategories {
		return len(s.CategoriesUsed)
	}
	return len(s.AgentsUsed)
}

func milestoneValue(m Metric, s *models.UserStats) int {
	switch m {
	case MetricComments:
		return s.TotalComments
	case MetricFollowers:
		return s.Followers
	default:
		return s.TotalPrompts
	}
}
