package matching

import (
	"testing"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlink/mentorship-core/internal/domain/profile"
)

func TestScore_FullMatchWithoutPersonalityOrGoals(t *testing.T) {
	mentor := &profile.MentorProfile{
		UserID:          "mentor",
		Industry:        "Tech",
		Skills:          []string{"Python", "SQL"},
		ExperienceYears: profile.Years(10),
	}
	mentee := &profile.MenteeProfile{
		UserID:          "mentee",
		Industry:        "Tech",
		SkillsToImprove: []string{"python"},
		ExperienceYears: profile.Years(2),
	}

	b := Explain(mentor, mentee)

	assert.Equal(t, 100, b.Score)
	assert.InDelta(t, 55.0, b.ApplicableWeight, 0.0001)
	assert.InDelta(t, 55.0, b.Earned, 0.0001)

	exp, ok := b.Factor(FactorExperience)
	require.True(t, ok)
	assert.InDelta(t, 15.0, exp.Earned, 0.0001)

	ind, ok := b.Factor(FactorIndustry)
	require.True(t, ok)
	assert.InDelta(t, 20.0, ind.Earned, 0.0001)

	skills, ok := b.Factor(FactorSkills)
	require.True(t, ok)
	assert.InDelta(t, 20.0, skills.Earned, 0.0001)

	_, ok = b.Factor(FactorPersonality)
	assert.False(t, ok)
	_, ok = b.Factor(FactorGoals)
	assert.False(t, ok)
}

func TestScore_NeutralWhenNothingComparable(t *testing.T) {
	tests := []struct {
		name   string
		mentor *profile.MentorProfile
		mentee *profile.MenteeProfile
	}{
		{
			name:   "empty profiles",
			mentor: &profile.MentorProfile{UserID: "a"},
			mentee: &profile.MenteeProfile{UserID: "b"},
		},
		{
			name: "data only on one side",
			mentor: &profile.MentorProfile{
				UserID:             "a",
				Industry:           "Tech",
				Skills:             []string{"Go"},
				ExperienceYears:    profile.Years(8),
				CareerAchievements: []string{"Shipped a compiler"},
				PersonalityTraits:  profile.PersonalityTraits{profile.TraitWorkStyle: 4},
			},
			mentee: &profile.MenteeProfile{
				UserID:          "b",
				SkillsToImprove: []string{"go"},
			},
		},
		{
			name: "traits without overlap",
			mentor: &profile.MentorProfile{
				UserID:            "a",
				PersonalityTraits: profile.PersonalityTraits{profile.TraitWorkStyle: 5},
			},
			mentee: &profile.MenteeProfile{
				UserID:            "b",
				PersonalityTraits: profile.PersonalityTraits{profile.TraitGoalOrientation: 5},
			},
		},
		{
			name: "blank goals are ignored",
			mentor: &profile.MentorProfile{
				UserID:             "a",
				CareerAchievements: []string{"anything"},
			},
			mentee: &profile.MenteeProfile{
				UserID:      "b",
				CareerGoals: []string{"  ", ""},
			},
		},
		{
			name:   "nil mentee",
			mentor: &profile.MentorProfile{UserID: "a"},
			mentee: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, NeutralScore, Score(tt.mentor, tt.mentee))
		})
	}
}

func TestScore_Industry(t *testing.T) {
	t.Run("different industry scores zero", func(t *testing.T) {
		mentor := &profile.MentorProfile{UserID: "a", Industry: "Finance"}
		mentee := &profile.MenteeProfile{UserID: "b", Industry: "Tech"}
		assert.Equal(t, 0, Score(mentor, mentee))
	})

	t.Run("related industry earns half", func(t *testing.T) {
		mentor := &profile.MentorProfile{
			UserID:            "a",
			Industry:          "Finance",
			RelatedIndustries: []string{"Tech"},
			ExperienceYears:   profile.Years(5),
		}
		mentee := &profile.MenteeProfile{
			UserID:          "b",
			Industry:        "tech",
			ExperienceYears: profile.Years(5),
		}

		b := Explain(mentor, mentee)
		ind, ok := b.Factor(FactorIndustry)
		require.True(t, ok)
		assert.InDelta(t, 10.0, ind.Earned, 0.0001)
		// (10 + 0) / (20 + 15) = 28.57
		assert.Equal(t, 29, b.Score)
	})

	t.Run("skills are only compared when both industries are set", func(t *testing.T) {
		mentor := &profile.MentorProfile{UserID: "a", Skills: []string{"Go"}}
		mentee := &profile.MenteeProfile{UserID: "b", SkillsToImprove: []string{"go"}}
		b := Explain(mentor, mentee)
		_, ok := b.Factor(FactorSkills)
		assert.False(t, ok)
		assert.Equal(t, NeutralScore, b.Score)
	})

	t.Run("partial skills match", func(t *testing.T) {
		mentor := &profile.MentorProfile{UserID: "a", Industry: "Tech", Skills: []string{"Go", "Kubernetes"}}
		mentee := &profile.MenteeProfile{UserID: "b", Industry: "Tech", SkillsToImprove: []string{"GO ", "rust"}}
		// (20 + 10) / 40
		assert.Equal(t, 75, Score(mentor, mentee))
	})
}

func TestScore_Experience(t *testing.T) {
	tests := []struct {
		name       string
		mentor     int
		mentee     int
		wantEarned float64
		wantScore  int
	}{
		{"ideal gap lower bound", 5, 2, 15, 100},
		{"ideal gap upper bound", 17, 2, 15, 100},
		{"gap above ideal", 20, 2, 10, 67},
		{"small positive gap", 3, 2, 10, 67},
		{"equal experience", 4, 4, 0, 0},
		{"both zero counts as data", 0, 0, 0, 0},
		{"mentee more senior", 2, 9, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mentor := &profile.MentorProfile{UserID: "a", ExperienceYears: profile.Years(tt.mentor)}
			mentee := &profile.MenteeProfile{UserID: "b", ExperienceYears: profile.Years(tt.mentee)}

			b := Explain(mentor, mentee)
			exp, ok := b.Factor(FactorExperience)
			require.True(t, ok)
			assert.InDelta(t, tt.wantEarned, exp.Earned, 0.0001)
			assert.Equal(t, tt.wantScore, b.Score)
		})
	}

	t.Run("missing experience is not applicable", func(t *testing.T) {
		mentor := &profile.MentorProfile{UserID: "a", ExperienceYears: profile.Years(10)}
		mentee := &profile.MenteeProfile{UserID: "b"}
		_, ok := Explain(mentor, mentee).Factor(FactorExperience)
		assert.False(t, ok)
	})
}

func TestScore_Personality(t *testing.T) {
	tests := []struct {
		name   string
		mentor profile.PersonalityTraits
		mentee profile.PersonalityTraits
		want   int
	}{
		{
			name:   "identical similarity trait",
			mentor: profile.PersonalityTraits{profile.TraitWorkStyle: 6},
			mentee: profile.PersonalityTraits{profile.TraitWorkStyle: 6},
			want:   100,
		},
		{
			name:   "similarity penalty is clamped at zero",
			mentor: profile.PersonalityTraits{profile.TraitLearningPreference: 1},
			mentee: profile.PersonalityTraits{profile.TraitLearningPreference: 9},
			want:   0,
		},
		{
			name:   "complementary trait close values",
			mentor: profile.PersonalityTraits{profile.TraitCommunicationStyle: 5},
			mentee: profile.PersonalityTraits{profile.TraitCommunicationStyle: 6},
			want:   50,
		},
		{
			name:   "complementary trait moderate difference",
			mentor: profile.PersonalityTraits{profile.TraitFeedbackApproach: 2},
			mentee: profile.PersonalityTraits{profile.TraitFeedbackApproach: 6},
			want:   100,
		},
		{
			name:   "complementary trait difference between bands",
			mentor: profile.PersonalityTraits{profile.TraitCommunicationStyle: 2},
			mentee: profile.PersonalityTraits{profile.TraitCommunicationStyle: 4.5},
			want:   70,
		},
		{
			name:   "complementary trait difference of exactly four",
			mentor: profile.PersonalityTraits{profile.TraitFeedbackApproach: 1},
			mentee: profile.PersonalityTraits{profile.TraitFeedbackApproach: 5},
			want:   100,
		},
		{
			name:   "complementary trait large difference",
			mentor: profile.PersonalityTraits{profile.TraitGoalOrientation: 0},
			mentee: profile.PersonalityTraits{profile.TraitGoalOrientation: 9},
			want:   70,
		},
		{
			name: "mixed traits",
			mentor: profile.PersonalityTraits{
				profile.TraitLearningPreference: 5,
				profile.TraitCommunicationStyle: 2,
				profile.TraitWorkStyle:          3,
			},
			mentee: profile.PersonalityTraits{
				profile.TraitLearningPreference: 8, // 10 - 3*2 = 4
				profile.TraitCommunicationStyle: 5, // diff 3 -> 10
			},
			want: 70,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mentor := &profile.MentorProfile{UserID: "a", PersonalityTraits: tt.mentor}
			mentee := &profile.MenteeProfile{UserID: "b", PersonalityTraits: tt.mentee}
			assert.Equal(t, tt.want, Score(mentor, mentee))
		})
	}
}

func TestScore_Goals(t *testing.T) {
	mentor := &profile.MentorProfile{
		UserID:             "a",
		CareerAchievements: []string{"Promoted to lead a team of 12 engineers", "Spoke at GopherCon"},
		ExperienceYears:    profile.Years(22),
	}
	mentee := &profile.MenteeProfile{
		UserID:          "b",
		CareerGoals:     []string{"Lead a Team", "switch to design"},
		ExperienceYears: profile.Years(2),
	}

	b := Explain(mentor, mentee)
	goals, ok := b.Factor(FactorGoals)
	require.True(t, ok)
	assert.InDelta(t, 7.5, goals.Earned, 0.0001)
	// (7.5 + 10) / (15 + 15) = 58.33
	assert.Equal(t, 58, b.Score)
}

func TestScore_IsNotSymmetric(t *testing.T) {
	senior := profile.Years(10)
	junior := profile.Years(2)

	aAsMentor := &profile.MentorProfile{UserID: "a", ExperienceYears: senior}
	bAsMentee := &profile.MenteeProfile{UserID: "b", ExperienceYears: junior}
	bAsMentor := &profile.MentorProfile{UserID: "b", ExperienceYears: junior}
	aAsMentee := &profile.MenteeProfile{UserID: "a", ExperienceYears: senior}

	assert.Equal(t, 100, Score(aAsMentor, bAsMentee))
	assert.Equal(t, 0, Score(bAsMentor, aAsMentee))
}

func TestScore_StaysWithinBounds(t *testing.T) {
	faker := gofakeit.New(42)
	industries := []string{"Tech", "Finance", "Health", "Education", "Retail"}
	skills := []string{"Go", "SQL", "Python", "Leadership", "Design", "Rust"}

	randomTraits := func() profile.PersonalityTraits {
		traits := profile.PersonalityTraits{}
		for _, trait := range profile.CanonicalTraits() {
			if faker.Bool() {
				traits[trait] = faker.Float64Range(0, 10)
			}
		}
		return traits
	}
	randomList := func(pool []string) []string {
		n := faker.IntRange(0, len(pool))
		out := make([]string, 0, n)
		for i := 0; i < n; i++ {
			out = append(out, faker.RandomString(pool))
		}
		return out
	}
	maybeYears := func() *int {
		if faker.Bool() {
			return nil
		}
		return profile.Years(faker.IntRange(0, 40))
	}

	for i := 0; i < 500; i++ {
		mentor := &profile.MentorProfile{
			UserID:             "mentor",
			Industry:           faker.RandomString(append(industries, "")),
			RelatedIndustries:  randomList(industries),
			Skills:             randomList(skills),
			ExperienceYears:    maybeYears(),
			PersonalityTraits:  randomTraits(),
			CareerAchievements: []string{faker.Sentence(8), faker.JobTitle()},
		}
		mentee := &profile.MenteeProfile{
			UserID:            "mentee",
			Industry:          faker.RandomString(append(industries, "")),
			SkillsToImprove:   randomList(skills),
			CareerGoals:       []string{faker.JobTitle()},
			PersonalityTraits: randomTraits(),
			ExperienceYears:   maybeYears(),
		}

		b := Explain(mentor, mentee)
		assert.GreaterOrEqual(t, b.Score, 0)
		assert.LessOrEqual(t, b.Score, 100)
		assert.LessOrEqual(t, b.Earned, b.ApplicableWeight+1e-9)
		assert.LessOrEqual(t, b.ApplicableWeight, 100.0)
	}
}
