package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

func TestMentorProfileUpdate_Apply(t *testing.T) {
	p := newMentor(t)
	p.Availability.CurrentMentees = 1
	p.Rating = RatingSummary{Average: 4.5, Count: 2}
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	inactive := false
	industry := "  Finance "
	maxMentees := 4
	skills := []string{"Go"}
	traits := PersonalityTraits{TraitWorkStyle: 7}

	update := MentorProfileUpdate{
		IsActive:          &inactive,
		Industry:          &industry,
		MaxMentees:        &maxMentees,
		Skills:            &skills,
		PersonalityTraits: &traits,
	}
	assert.Equal(t, []string{"isActive", "industry", "skills", "personalityTraits", "maxMentees"}, update.Fields())

	require.NoError(t, update.Apply(p, now))

	assert.False(t, p.IsActive)
	assert.Equal(t, "Finance", p.Industry)
	assert.Equal(t, 4, p.Availability.MaxMentees)
	assert.Equal(t, []string{"Go"}, p.Skills)
	assert.Equal(t, now, p.UpdatedAt)

	// protected fields are untouched
	assert.Equal(t, 1, p.Availability.CurrentMentees)
	assert.Equal(t, RatingSummary{Average: 4.5, Count: 2}, p.Rating)

	// the applied traits are a copy
	traits[TraitWorkStyle] = 1
	assert.Equal(t, 7.0, p.PersonalityTraits[TraitWorkStyle])
}

func TestMentorProfileUpdate_RejectsAndLeavesProfileIntact(t *testing.T) {
	p := newMentor(t)
	p.Availability.CurrentMentees = 2
	before := *p

	lower := 1
	err := MentorProfileUpdate{MaxMentees: &lower}.Apply(p, time.Now())
	assert.ErrorIs(t, err, shared.ErrCapacityExceeded)
	assert.Equal(t, before, *p)

	bad := PersonalityTraits{TraitGoalOrientation: -3}
	err = MentorProfileUpdate{PersonalityTraits: &bad}.Apply(p, time.Now())
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)
	assert.Equal(t, before, *p)
}

func TestMentorProfileUpdate_IsEmpty(t *testing.T) {
	assert.True(t, MentorProfileUpdate{}.IsEmpty())
	tz := "Europe/Berlin"
	assert.False(t, MentorProfileUpdate{TimeZone: &tz}.IsEmpty())
}
