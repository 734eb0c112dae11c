package query

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlink/mentorship-core/internal/domain/matching"
	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/persistence/memory"
)

var t0 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

// mapCache is an in-process RankingCache and ProfileCache.
type mapCache struct {
	mu       sync.Mutex
	rankings map[shared.UserID][]RankedMentorDTO
	profiles map[shared.UserID]MentorProfileDTO
	failGets bool
	sets     int
}

func newMapCache() *mapCache {
	return &mapCache{
		rankings: map[shared.UserID][]RankedMentorDTO{},
		profiles: map[shared.UserID]MentorProfileDTO{},
	}
}

func (c *mapCache) GetRanking(_ context.Context, id shared.UserID) ([]RankedMentorDTO, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failGets {
		return nil, false, errors.New("cache down")
	}
	r, ok := c.rankings[id]
	return r, ok, nil
}

func (c *mapCache) SetRanking(_ context.Context, id shared.UserID, r []RankedMentorDTO, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sets++
	c.rankings[id] = r
	return nil
}

func (c *mapCache) InvalidateRanking(_ context.Context, id shared.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.rankings, id)
	return nil
}

func (c *mapCache) InvalidateAllRankings(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.rankings)
	return nil
}

func (c *mapCache) GetMentorProfile(_ context.Context, id shared.UserID) (*MentorProfileDTO, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	p, ok := c.profiles[id]
	if !ok {
		return nil, false, nil
	}
	return &p, true, nil
}

func (c *mapCache) SetMentorProfile(_ context.Context, dto MentorProfileDTO, _ time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profiles[shared.UserID(dto.UserID)] = dto
	return nil
}

func (c *mapCache) InvalidateMentorProfile(_ context.Context, id shared.UserID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.profiles, id)
	return nil
}

func seedMentor(t *testing.T, repo *memory.ProfileRepository, id shared.UserID, industry string, testimonials ...int) *profile.MentorProfile {
	t.Helper()
	p, err := profile.NewMentorProfile(profile.NewMentorProfileParams{
		UserID:   id,
		Industry: industry,
		Skills:   []string{"Go"},
		Now:      t0,
	})
	require.NoError(t, err)
	for i, r := range testimonials {
		require.NoError(t, p.AddTestimonial(profile.Testimonial{
			MenteeID: shared.UserID("someone"),
			Content:  "thanks",
			Rating:   shared.Rating(r),
			Date:     t0.Add(time.Duration(i) * time.Hour),
		}))
	}
	require.NoError(t, repo.CreateMentor(context.Background(), p))
	return p
}

func seedMentee(t *testing.T, repo *memory.ProfileRepository, id shared.UserID) *profile.MenteeProfile {
	t.Helper()
	p := &profile.MenteeProfile{UserID: id, Industry: "tech", SkillsToImprove: []string{"go"}}
	require.NoError(t, repo.SaveMentee(context.Background(), p))
	return p
}

func TestFindPotentialMentors_Ranking(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProfileRepository()
	mentee := seedMentee(t, repo, "mentee-1")

	// same score, ordered by rating then id
	seedMentor(t, repo, "b-mentor", "Tech", 4)
	seedMentor(t, repo, "a-mentor", "Tech", 4)
	seedMentor(t, repo, "c-mentor", "Tech", 5)
	weak := seedMentor(t, repo, "d-mentor", "Farming", 5)
	off := seedMentor(t, repo, "e-mentor", "Tech")
	off.IsActive = false
	require.NoError(t, repo.SaveMentor(ctx, off))
	// the caller's own mentor profile is excluded
	seedMentor(t, repo, "mentee-1", "Tech")

	h := NewFindPotentialMentorsHandler(repo, nil, 0)
	res, err := h.Handle(ctx, FindPotentialMentorsQuery{MenteeID: "mentee-1"})
	require.NoError(t, err)

	require.Equal(t, 4, res.Total)
	var ids []string
	for _, r := range res.Mentors {
		ids = append(ids, r.Mentor.UserID)
	}
	assert.Equal(t, []string{"c-mentor", "a-mentor", "b-mentor", "d-mentor"}, ids)
	assert.Equal(t, 1, res.Mentors[0].Position)
	assert.Equal(t, 4, res.Mentors[3].Position)
	assert.Equal(t, matching.Score(weak, mentee), res.Mentors[3].CompatibilityScore)
	assert.Greater(t, res.Mentors[0].CompatibilityScore, res.Mentors[3].CompatibilityScore)
	assert.Equal(t, res.Mentors[0].CompatibilityScore, res.Mentors[0].Breakdown.Score)
	assert.False(t, res.Cached)

	paged, err := h.Handle(ctx, FindPotentialMentorsQuery{MenteeID: "mentee-1", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, paged.Total)
	require.Len(t, paged.Mentors, 2)
	assert.Equal(t, "a-mentor", paged.Mentors[0].Mentor.UserID)

	beyond, err := h.Handle(ctx, FindPotentialMentorsQuery{MenteeID: "mentee-1", Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond.Mentors)
}

func TestFindPotentialMentors_RequiresMenteeProfile(t *testing.T) {
	repo := memory.NewProfileRepository()
	seedMentor(t, repo, "mentor-1", "Tech")

	_, err := NewFindPotentialMentorsHandler(repo, nil, 0).Handle(context.Background(), FindPotentialMentorsQuery{MenteeID: "mentor-1"})
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = NewFindPotentialMentorsHandler(repo, nil, 0).Handle(context.Background(), FindPotentialMentorsQuery{})
	assert.ErrorIs(t, err, shared.ErrInvalidID)
}

func TestFindPotentialMentors_Cache(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProfileRepository()
	seedMentee(t, repo, "mentee-1")
	seedMentor(t, repo, "mentor-1", "Tech")
	cache := newMapCache()

	h := NewFindPotentialMentorsHandler(repo, cache, time.Minute)
	first, err := h.Handle(ctx, FindPotentialMentorsQuery{MenteeID: "mentee-1"})
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.sets)

	seedMentor(t, repo, "mentor-2", "Tech")
	second, err := h.Handle(ctx, FindPotentialMentorsQuery{MenteeID: "mentee-1"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, second.Total)

	require.NoError(t, cache.InvalidateAllRankings(ctx))
	third, err := h.Handle(ctx, FindPotentialMentorsQuery{MenteeID: "mentee-1"})
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, third.Total)

	cache.failGets = true
	fourth, err := h.Handle(ctx, FindPotentialMentorsQuery{MenteeID: "mentee-1"})
	require.NoError(t, err, "a failing cache falls back to the store")
	assert.Equal(t, 2, fourth.Total)
}

func seedMentorship(t *testing.T, repo *memory.MentorshipRepository, id string, mentor, mentee shared.UserID, at time.Time, accept bool) *mentorship.Mentorship {
	t.Helper()
	m, err := mentorship.NewMentorship(mentorship.NewMentorshipParams{
		ID: mentorship.ID(id), MentorID: mentor, MenteeID: mentee, CompatibilityScore: 70, Now: at,
	})
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), m))
	if accept {
		require.NoError(t, m.Accept(mentor, at, 0))
		require.NoError(t, repo.Save(context.Background(), m))
	}
	return m
}

func TestGetMentorship(t *testing.T) {
	repo := memory.NewMentorshipRepository()
	m := seedMentorship(t, repo, "ms-1", "mentor-1", "mentee-1", t0, true)
	h := NewGetMentorshipHandler(repo)

	for _, caller := range []string{"mentor-1", "mentee-1"} {
		dto, err := h.Handle(context.Background(), GetMentorshipQuery{MentorshipID: "ms-1", CallerID: caller})
		require.NoError(t, err)
		assert.Equal(t, "active", dto.Status)
		assert.Equal(t, 70, dto.CompatibilityScore)
		assert.Equal(t, m.Version, dto.Version)
	}

	_, err := h.Handle(context.Background(), GetMentorshipQuery{MentorshipID: "ms-1", CallerID: "stranger"})
	assert.ErrorIs(t, err, shared.ErrForbidden)

	_, err = h.Handle(context.Background(), GetMentorshipQuery{MentorshipID: "nope", CallerID: "mentor-1"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestListMentorships(t *testing.T) {
	repo := memory.NewMentorshipRepository()
	seedMentorship(t, repo, "ms-1", "user-1", "user-2", t0, true)
	seedMentorship(t, repo, "ms-2", "user-3", "user-1", t0.Add(time.Hour), false)
	seedMentorship(t, repo, "ms-3", "user-1", "user-4", t0.Add(2*time.Hour), false)
	seedMentorship(t, repo, "ms-4", "user-5", "user-6", t0, false)
	h := NewListMentorshipsHandler(repo)
	ctx := context.Background()

	ids := func(res *ListMentorshipsResult) []string {
		var out []string
		for _, m := range res.Mentorships {
			out = append(out, m.ID)
		}
		return out
	}

	all, err := h.Handle(ctx, ListMentorshipsQuery{CallerID: "user-1", Role: "any"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ms-3", "ms-2", "ms-1"}, ids(all))
	assert.Equal(t, defaultListLimit, all.Limit)

	asMentor, err := h.Handle(ctx, ListMentorshipsQuery{CallerID: "user-1", Role: "mentor"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ms-3", "ms-1"}, ids(asMentor))

	pending, err := h.Handle(ctx, ListMentorshipsQuery{CallerID: "user-1", Statuses: []string{"PENDING"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ms-3", "ms-2"}, ids(pending))

	capped, err := h.Handle(ctx, ListMentorshipsQuery{CallerID: "user-1", Limit: 500, Offset: 2})
	require.NoError(t, err)
	assert.Equal(t, maxListLimit, capped.Limit)
	assert.Equal(t, []string{"ms-1"}, ids(capped))

	_, err = h.Handle(ctx, ListMentorshipsQuery{CallerID: "user-1", Role: "boss"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
	_, err = h.Handle(ctx, ListMentorshipsQuery{CallerID: "user-1", Statuses: []string{"paused"}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestGetMentorProfile(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewProfileRepository()
	seedMentor(t, repo, "mentor-1", "Tech", 3, 5, 4, 4)
	cache := newMapCache()
	h := NewGetMentorProfileHandler(repo, cache, time.Minute)

	dto, err := h.Handle(ctx, GetMentorProfileQuery{UserID: "mentor-1"})
	require.NoError(t, err)
	assert.Equal(t, 4.0, dto.Rating.Average)
	assert.Equal(t, 4, dto.Rating.Count)
	require.Len(t, dto.Testimonials, 4)
	assert.Equal(t, 4, dto.Testimonials[0].Rating, "newest first")
	assert.Equal(t, 3, dto.Availability.RemainingSlots)

	_, cached := cache.profiles["mentor-1"]
	assert.True(t, cached)

	_, err = h.Handle(ctx, GetMentorProfileQuery{UserID: "ghost"})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestNewMentorshipDTO_Feedback(t *testing.T) {
	m, err := mentorship.NewMentorship(mentorship.NewMentorshipParams{
		ID: "ms-1", MentorID: "a", MenteeID: "b", CompatibilityScore: 10, Now: t0,
		FocusAreas: []shared.FocusArea{shared.FocusNetworking},
	})
	require.NoError(t, err)
	require.NoError(t, m.Accept("a", t0, 0))
	require.NoError(t, m.ScheduleMeeting("a", mentorship.Meeting{ScheduledFor: t0, Duration: 90 * time.Minute}, t0))
	rating := 4
	require.NoError(t, m.Complete("b", mentorship.FinalFeedback{Rating: &rating, Comment: "good"}, t0))

	dto := NewMentorshipDTO(m)
	assert.Equal(t, []string{"networking"}, dto.FocusAreas)
	assert.Equal(t, 90, dto.Meetings[0].DurationMinutes)
	require.NotNil(t, dto.Feedback)
	require.NotNil(t, dto.Feedback.MenteeRating)
	assert.Equal(t, 4, *dto.Feedback.MenteeRating)
	assert.Nil(t, dto.Feedback.MentorRating)
}
