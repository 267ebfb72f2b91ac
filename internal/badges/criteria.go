package badges

import (
	"errors"
	"fmt"
	"time"
)

// Kind names a criteria family.
type Kind string

const (
	KindDiversity     Kind = "diversity"
	KindQuality       Kind = "quality"
	KindViral         Kind = "viral"
	KindSocial        Kind = "social"
	KindPioneer       Kind = "pioneer"
	KindSpecialty     Kind = "specialty"
	KindCommentSocial Kind = "comment_social"
	KindMilestone     Kind = "milestone"
)

// ErrInvalidCriteria marks criteria whose parameters cannot be evaluated.
var ErrInvalidCriteria = errors.New("invalid criteria")

// Criteria is the closed set of unlock conditions. Only the types in this
// package implement it.
type Criteria interface {
	Kind() Kind
	// Validate checks the parameters without looking at any stats.
	Validate() error
	sealed()
}

// SetAttribute names one of the set-valued stats.
type SetAttribute string

const (
	AttributeAgents     SetAttribute = "agents"
	AttributeCategories SetAttribute = "categories"
)

func (a SetAttribute) valid() bool {
	return a == AttributeAgents || a == AttributeCategories
}

// DiversityCriteria requires the named set to hold at least Min entries.
type DiversityCriteria struct {
	Attribute SetAttribute `yaml:"attribute" json:"attribute"`
	Min       int          `yaml:"min" json:"min"`
}

// QualityCriteria requires MinPrompts quality prompts and an average rating of at least MinRating.
type QualityCriteria struct {
	MinPrompts int     `yaml:"min_prompts" json:"min_prompts"`
	MinRating  float64 `yaml:"min_rating" json:"min_rating"`
}

// ViralCriteria requires MinViral viral prompts; zero means one. The likes a prompt
// needs to count as viral is a stats setting, not a criteria parameter.
type ViralCriteria struct {
	MinViral int `yaml:"min_viral" json:"min_viral"`
}

// SocialCriteria requires both follower and following counts.
type SocialCriteria struct {
	MinFollowers int `yaml:"min_followers" json:"min_followers"`
	MinFollowing int `yaml:"min_following" json:"min_following"`
}

// PioneerCriteria holds for accounts created at or before Cutoff. This stands in for
// "among the first N users"; it is a timestamp comparison, not a signup rank.
type PioneerCriteria struct {
	Cutoff time.Time `yaml:"cutoff" json:"cutoff"`
}

// SpecialtyCriteria requires Name in the agent or category set and MinPrompts total prompts.
type SpecialtyCriteria struct {
	Attribute  SetAttribute `yaml:"attribute" json:"attribute"`
	Name       string       `yaml:"name" json:"name"`
	MinPrompts int          `yaml:"min_prompts" json:"min_prompts"`
}

// CommentVariant selects which pair of comment counters a CommentSocialCriteria checks.
type CommentVariant string

const (
	// comments written x likes received on them
	HelpfulCommenter CommentVariant = "helpful_commenter"
	// comments written x own comments that drew a reply
	DiscussionStarter CommentVariant = "discussion_starter"
	// replies made x distinct users replied to
	CommunityHelper CommentVariant = "community_helper"
)

// CommentSocialCriteria checks a pair of comment counters chosen by Variant.
// MinReplies means replies received for DiscussionStarter and replies made for
// CommunityHelper.
type CommentSocialCriteria struct {
	Variant        CommentVariant `yaml:"variant" json:"variant"`
	MinComments    int            `yaml:"min_comments" json:"min_comments"`
	MinLikes       int            `yaml:"min_likes" json:"min_likes"`
	MinReplies     int            `yaml:"min_replies" json:"min_replies"`
	MinUsersHelped int            `yaml:"min_users_helped" json:"min_users_helped"`
}

// Metric names a plain counter for MilestoneCriteria.
type Metric string

const (
	MetricPrompts   Metric = "prompts"
	MetricComments  Metric = "comments"
	MetricFollowers Metric = "followers"
)

// MilestoneCriteria requires a single counter to reach Min.
type MilestoneCriteria struct {
	Metric Metric `yaml:"metric" json:"metric"`
	Min    int    `yaml:"min" json:"min"`
}

func (DiversityCriteria) Kind() Kind     { return KindDiversity }
func (QualityCriteria) Kind() Kind       { return KindQuality }
func (ViralCriteria) Kind() Kind         { return KindViral }
func (SocialCriteria) Kind() Kind        { return KindSocial }
func (PioneerCriteria) Kind() Kind       { return KindPioneer }
func (SpecialtyCriteria) Kind() Kind     { return KindSpecialty }
func (CommentSocialCriteria) Kind() Kind { return KindCommentSocial }
func (MilestoneCriteria) Kind() Kind     { return KindMilestone }

func (DiversityCriteria) sealed()     {}
func (QualityCriteria) sealed()       {}
func (ViralCriteria) sealed()         {}
func (SocialCriteria) sealed()        {}
func (PioneerCriteria) sealed()       {}
func (SpecialtyCriteria) sealed()     {}
func (CommentSocialCriteria) sealed() {}
func (MilestoneCriteria) sealed()     {}

func (c DiversityCriteria) Validate() error {
	if !c.Attribute.valid() {
		return invalid(c, "unknown attribute %q", c.Attribute)
	}
	if c.Min < 1 {
		return invalid(c, "min must be at least 1")
	}
	return nil
}

func (c QualityCriteria) Validate() error {
	if c.MinPrompts < 1 {
		return invalid(c, "min_prompts must be at least 1")
	}
	if c.MinRating < 0 || c.MinRating > 5 {
		return invalid(c, "min_rating %.2f outside 0..5", c.MinRating)
	}
	return nil
}

func (c ViralCriteria) Validate() error {
	if c.MinViral < 0 {
		return invalid(c, "min_viral must not be negative")
	}
	return nil
}

func (c SocialCriteria) Validate() error {
	if c.MinFollowers < 0 || c.MinFollowing < 0 {
		return invalid(c, "thresholds must not be negative")
	}
	if c.MinFollowers == 0 && c.MinFollowing == 0 {
		return invalid(c, "at least one threshold must be set")
	}
	return nil
}

func (c PioneerCriteria) Validate() error {
	if c.Cutoff.IsZero() {
		return invalid(c, "cutoff is required")
	}
	return nil
}

func (c SpecialtyCriteria) Validate() error {
	if !c.Attribute.valid() {
		return invalid(c, "unknown attribute %q", c.Attribute)
	}
	if c.Name == "" {
		return invalid(c, "name is required")
	}
	if c.MinPrompts < 0 {
		return invalid(c, "min_prompts must not be negative")
	}
	return nil
}

func (c CommentSocialCriteria) Validate() error {
	if c.MinComments < 0 || c.MinLikes < 0 || c.MinReplies < 0 || c.MinUsersHelped < 0 {
		return invalid(c, "thresholds must not be negative")
	}
	switch c.Variant {
	case HelpfulCommenter, DiscussionStarter, CommunityHelper:
		return nil
	default:
		return invalid(c, "unknown variant %q", c.Variant)
	}
}

func (c MilestoneCriteria) Validate() error {
	switch c.Metric {
	case MetricPrompts, MetricComments, MetricFollowers:
	default:
		return invalid(c, "unknown metric %q", c.Metric)
	}
	if c.Min < 1 {
		return invalid(c, "min must be at least 1")
	}
	return nil
}

func invalid(c Criteria, format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidCriteria, c.Kind(), fmt.Sprintf(format, args...))
}
