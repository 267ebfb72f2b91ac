package badges

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"promptvault/internal/models"
)

func TestEvaluateDiversity(t *testing.T) {
	stats := &models.UserStats{AgentsUsed: []string{"ChatGPT", "Claude", "Gemini"}}

	ok, err := Evaluate(DiversityCriteria{Attribute: AttributeAgents, Min: 3}, stats)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(DiversityCriteria{Attribute: AttributeAgents, Min: 4}, stats)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Evaluate(DiversityCriteria{Attribute: AttributeCategories, Min: 1}, stats)
	require.NoError(t, err)
	assert.False(t, ok, "categories set is empty")
}

func TestEvaluateQualityNeedsBothThresholds(t *testing.T) {
	stats := &models.UserStats{QualityPrompts: 5, AverageRating: 4.6}

	tests := []struct {
		name     string
		criteria QualityCriteria
		want     bool
	}{
		{"both met", QualityCriteria{MinPrompts: 5, MinRating: 4.5}, true},
		{"too few prompts", QualityCriteria{MinPrompts: 6, MinRating: 4.5}, false},
		{"rating too low", QualityCriteria{MinPrompts: 5, MinRating: 4.8}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ok, err := Evaluate(tt.criteria, stats)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestEvaluateViralDefaultsToOne(t *testing.T) {
	ok, err := Evaluate(ViralCriteria{}, &models.UserStats{ViralPrompts: 1})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Evaluate(ViralCriteria{}, &models.UserStats{})
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = Evaluate(ViralCriteria{MinViral: 5}, &models.UserStats{ViralPrompts: 4})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestEvaluateSocial(t *testing.T) {
	c := SocialCriteria{MinFollowers: 10, MinFollowing: 5}

	ok, _ := Evaluate(c, &models.UserStats{Followers: 10, Following: 5})
	assert.True(t, ok)

	ok, _ = Evaluate(c, &models.UserStats{Followers: 100, Following: 4})
	assert.False(t, ok)
}

func TestEvaluatePioneerCutoffIsInclusive(t *testing.T) {
	cutoff := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	c := PioneerCriteria{Cutoff: cutoff}

	ok, _ := Evaluate(c, &models.UserStats{AccountCreatedAt: cutoff})
	assert.True(t, ok)

	ok, _ = Evaluate(c, &models.UserStats{AccountCreatedAt: cutoff.Add(time.Second)})
	assert.False(t, ok)

	ok, _ = Evaluate(c, &models.UserStats{})
	assert.False(t, ok, "unknown creation time never qualifies")
}

func TestEvaluateSpecialty(t *testing.T) {
	stats := &models.UserStats{
		TotalPrompts:   12,
		AgentsUsed:     []string{"Claude"},
		CategoriesUsed: []string{"Coding"},
	}

	ok, _ := Evaluate(SpecialtyCriteria{Attribute: AttributeAgents, Name: "Claude", MinPrompts: 10}, stats)
	assert.True(t, ok)

	ok, _ = Evaluate(SpecialtyCriteria{Attribute: AttributeAgents, Name: "claude", MinPrompts: 10}, stats)
	assert.False(t, ok, "names match exactly, like the diversity sets")

	ok, _ = Evaluate(SpecialtyCriteria{Attribute: AttributeAgents, Name: "Gemini", MinPrompts: 1}, stats)
	assert.False(t, ok)

	ok, _ = Evaluate(SpecialtyCriteria{Attribute: AttributeCategories, Name: "Coding", MinPrompts: 20}, stats)
	assert.False(t, ok)
}

func TestEvaluateCommentSocial(t *testing.T) {
	stats := &models.UserStats{
		TotalComments:        10,
		CommentLikesReceived: 30,
		CommentsWithReplies:  2,
		RepliesMade:          12,
		UsersHelped:          5,
	}

	ok, _ := Evaluate(CommentSocialCriteria{Variant: HelpfulCommenter, MinComments: 10, MinLikes: 25}, stats)
	assert.True(t, ok)

	ok, _ = Evaluate(CommentSocialCriteria{Variant: DiscussionStarter, MinComments: 5, MinReplies: 5}, stats)
	assert.False(t, ok)

	ok, _ = Evaluate(CommentSocialCriteria{Variant: CommunityHelper, MinReplies: 10, MinUsersHelped: 5}, stats)
	assert.True(t, ok)
}

func TestEvaluateRejectsMalformedParams(t *testing.T) {
	stats := &models.UserStats{}

	cases := []Criteria{
		DiversityCriteria{Attribute: "moods", Min: 1},
		QualityCriteria{MinPrompts: 1, MinRating: 7},
		SpecialtyCriteria{Attribute: AttributeAgents},
		CommentSocialCriteria{Variant: "lurker"},
		MilestoneCriteria{Metric: "stars", Min: 1},
		PioneerCriteria{},
	}

	for _, c := range cases {
		ok, err := Evaluate(c, stats)
		assert.False(t, ok)
		assert.ErrorIs(t, err, ErrInvalidCriteria, "%s", c.Kind())
	}

	ok, err := Evaluate(nil, stats)
	assert.False(t, ok)
	assert.ErrorIs(t, err, ErrUnknownCriteria)
}

func TestProgress(t *testing.T) {
	stats := &models.UserStats{AgentsUsed: []string{"a", "b"}, Followers: 3, Following: 1}

	assert.Equal(t, map[string]float64{"agents_used": 2}, Progress(DiversityCriteria{Attribute: AttributeAgents, Min: 3}, stats))
	assert.Equal(t, map[string]float64{"followers": 3, "following": 1}, Progress(SocialCriteria{MinFollowers: 1}, stats))
	assert.Nil(t, Progress(nil, stats))

	created := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, map[string]float64{"account_created_at": float64(created.Unix())},
		Progress(PioneerCriteria{Cutoff: created}, &models.UserStats{AccountCreatedAt: created}))
	assert.Empty(t, Progress(PioneerCriteria{Cutoff: created}, &models.UserStats{}),
		"unknown creation time is left out")
}
