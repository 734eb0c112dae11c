package matching

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

func mentorWith(id string, industry string, rating float64) *profile.MentorProfile {
	return &profile.MentorProfile{
		UserID:   shared.UserID(id),
		IsActive: true,
		Industry: industry,
		Rating:   profile.RatingSummary{Average: rating, Count: 1},
	}
}

func TestRank_OrdersByScoreThenRatingThenID(t *testing.T) {
	mentee := &profile.MenteeProfile{UserID: "mentee", Industry: "Tech"}

	mentors := []*profile.MentorProfile{
		mentorWith("m-e", "Finance", 3.0), // 0
		mentorWith("m-a", "Tech", 4.0),    // 100
		mentorWith("m-d", "Finance", 3.0), // 0
		mentorWith("m-c", "Tech", 4.8),    // 100
		mentorWith("m-b", "", 5.0),        // 50
	}

	ranked := Rank(mentee, mentors)
	require.Len(t, ranked, 5)

	var ids []shared.UserID
	for _, c := range ranked {
		ids = append(ids, c.Mentor.UserID)
	}
	assert.Equal(t, []shared.UserID{"m-c", "m-a", "m-b", "m-d", "m-e"}, ids)

	assert.Equal(t, 100, ranked[0].Score)
	assert.Equal(t, 50, ranked[2].Score)
	assert.Equal(t, 0, ranked[4].Score)
	assert.Equal(t, 1, ranked[0].Position)
	assert.Equal(t, 5, ranked[4].Position)
}

func TestRank_IsIndependentOfInputOrder(t *testing.T) {
	mentee := &profile.MenteeProfile{UserID: "mentee", Industry: "Tech"}
	a := mentorWith("m-1", "Tech", 4.5)
	b := mentorWith("m-2", "Tech", 4.5)
	c := mentorWith("m-3", "Tech", 4.5)

	first := Rank(mentee, []*profile.MentorProfile{c, a, b})
	second := Rank(mentee, []*profile.MentorProfile{b, c, a})

	require.Len(t, first, 3)
	for i := range first {
		assert.Equal(t, first[i].Mentor.UserID, second[i].Mentor.UserID)
	}
	assert.Equal(t, shared.UserID("m-1"), first[0].Mentor.UserID)
}

func TestRank_SkipsMenteeOwnProfileAndNil(t *testing.T) {
	mentee := &profile.MenteeProfile{UserID: "self"}
	ranked := Rank(mentee, []*profile.MentorProfile{
		mentorWith("self", "Tech", 5),
		nil,
		mentorWith("other", "Tech", 1),
	})

	require.Len(t, ranked, 1)
	assert.Equal(t, shared.UserID("other"), ranked[0].Mentor.UserID)
}

func TestRank_EmptyInput(t *testing.T) {
	ranked := Rank(&profile.MenteeProfile{UserID: "x"}, nil)
	assert.Empty(t, ranked)
}
