package command

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/internal/infrastructure/persistence/memory"
)

// lockstepReads holds the first two FindMentor calls until both have read,
// so two writers start from the same profile version.
type lockstepReads struct {
	*memory.ProfileRepository
	reads   atomic.Int32
	barrier sync.WaitGroup
}

func newLockstepReads(repo *memory.ProfileRepository) *lockstepReads {
	r := &lockstepReads{ProfileRepository: repo}
	r.barrier.Add(2)
	return r
}

func (r *lockstepReads) FindMentor(ctx context.Context, id shared.UserID) (*profile.MentorProfile, error) {
	p, err := r.ProfileRepository.FindMentor(ctx, id)
	if r.reads.Add(1) <= 2 {
		r.barrier.Done()
		r.barrier.Wait()
	}
	return p, err
}

// concurrently runs both functions and waits for them.
func concurrently(a, b func() error) (errA, errB error) {
	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); errA = a() }()
	go func() { defer wg.Done(); errB = b() }()
	wg.Wait()
	return errA, errB
}

func TestProfileHandler_CreateMentor(t *testing.T) {
	f := newFixture()
	h := NewProfileHandler(f.profiles, f.events, f.clock)

	p, err := h.CreateMentor(context.Background(), CreateMentorProfileCommand{
		UserID:            "mentor-1",
		Specializations:   []string{"Leadership"},
		Industry:          " Fintech ",
		Skills:            []string{" Go ", "", "SQL"},
		PersonalityTraits: map[string]float64{"Work_Style": 6},
	})
	require.NoError(t, err)
	assert.True(t, p.IsActive)
	assert.Equal(t, "Fintech", p.Industry)
	assert.Equal(t, []string{"Go", "SQL"}, p.Skills)
	assert.Equal(t, profile.DefaultMaxMentees, p.Availability.MaxMentees)
	assert.Equal(t, 6.0, p.PersonalityTraits[profile.TraitWorkStyle])
	assert.Equal(t, []shared.EventType{shared.EventMentorProfileUpdated}, f.events.types())

	_, err = h.CreateMentor(context.Background(), CreateMentorProfileCommand{UserID: "mentor-1"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	_, err = h.CreateMentor(context.Background(), CreateMentorProfileCommand{UserID: "mentor-2", Specializations: []string{"cooking"}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	_, err = h.CreateMentor(context.Background(), CreateMentorProfileCommand{UserID: "mentor-2", PersonalityTraits: map[string]float64{"humor": 3}})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)
}

func TestProfileHandler_UpdateMentor(t *testing.T) {
	f := newFixture()
	f.mentor(t, "mentor-1", 2)
	f.mentee(t, "mentee-1")
	f.mentee(t, "mentee-2")
	f.active(t, "mentor-1", "mentee-1")
	f.active(t, "mentor-1", "mentee-2")

	h := NewProfileHandler(f.profiles, f.events, f.clock)

	one := 1
	_, err := h.UpdateMentor(context.Background(), UpdateMentorProfileCommand{
		UserID: "mentor-1",
		Update: profile.MentorProfileUpdate{MaxMentees: &one},
	})
	assert.ErrorIs(t, err, shared.ErrCapacityExceeded)

	four := 4
	industry := "Healthcare"
	off := false
	got, err := h.UpdateMentor(context.Background(), UpdateMentorProfileCommand{
		UserID: "mentor-1",
		Update: profile.MentorProfileUpdate{MaxMentees: &four, Industry: &industry, IsActive: &off},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, got.Availability.MaxMentees)
	assert.Equal(t, 2, got.Availability.CurrentMentees)
	assert.Equal(t, "Healthcare", got.Industry)
	assert.False(t, got.IsActive)

	ev := f.events.last().(shared.ProfileUpdatedEvent)
	assert.ElementsMatch(t, []string{"maxMentees", "industry", "isActive"}, ev.Fields)

	before := len(f.events.types())
	same, err := h.UpdateMentor(context.Background(), UpdateMentorProfileCommand{UserID: "mentor-1"})
	require.NoError(t, err)
	assert.Equal(t, "Healthcare", same.Industry)
	assert.Len(t, f.events.types(), before, "empty update publishes nothing")

	_, err = h.UpdateMentor(context.Background(), UpdateMentorProfileCommand{UserID: "ghost", Update: profile.MentorProfileUpdate{Industry: &industry}})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestProfileHandler_UpsertMentee(t *testing.T) {
	f := newFixture()
	h := NewProfileHandler(f.profiles, f.events, f.clock)

	p, err := h.UpsertMentee(context.Background(), UpsertMenteeProfileCommand{
		UserID:          "mentee-1",
		Industry:        " Tech ",
		SkillsToImprove: []string{"negotiation", " "},
		CareerGoals:     []string{"Become a staff engineer"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Tech", p.Industry)
	assert.Equal(t, []string{"negotiation"}, p.SkillsToImprove)
	assert.Equal(t, t0, p.UpdatedAt)

	_, err = h.UpsertMentee(context.Background(), UpsertMenteeProfileCommand{
		UserID:            "mentee-1",
		PersonalityTraits: map[string]float64{"goal_orientation": 12},
	})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	stored, err := f.profiles.FindMentee(context.Background(), "mentee-1")
	require.NoError(t, err)
	assert.Equal(t, "Tech", stored.Industry)
}

func TestAddTestimonial(t *testing.T) {
	f := newFixture()
	f.mentor(t, "mentor-1", 2)
	f.mentee(t, "mentee-1")
	f.mentee(t, "mentee-2")

	h := NewAddTestimonialHandler(f.profiles, f.mentorships, f.events, f.clock)
	cmd := AddTestimonialCommand{MentorID: "mentor-1", CallerID: "mentee-1", Content: "Very helpful", Rating: 4}

	_, err := h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrForbidden, "no mentorship yet")

	f.request(t, "mentor-1", "mentee-1")
	_, err = h.Handle(context.Background(), cmd)
	assert.ErrorIs(t, err, shared.ErrForbidden, "pending does not count")

	f.active(t, "mentor-1", "mentee-2")
	got, err := h.Handle(context.Background(), AddTestimonialCommand{
		MentorID: "mentor-1", CallerID: "mentee-2", Content: "Great mentor", Rating: 5,
	})
	require.NoError(t, err)
	assert.Equal(t, 1, got.Rating.Count)
	assert.Equal(t, 5.0, got.Rating.Average)

	stored, err := f.profiles.FindMentor(context.Background(), "mentor-1")
	require.NoError(t, err)
	require.Len(t, stored.Testimonials, 1)
	assert.Equal(t, shared.UserID("mentee-2"), stored.Testimonials[0].MenteeID)
	assert.Equal(t, 1, stored.Availability.CurrentMentees)

	ev := f.events.last().(shared.TestimonialAddedEvent)
	assert.Equal(t, 5, ev.Rating)
	assert.Equal(t, 1, ev.RatingCount)

	_, err = h.Handle(context.Background(), AddTestimonialCommand{MentorID: "mentor-1", CallerID: "mentor-1", Content: "me", Rating: 5})
	assert.ErrorIs(t, err, shared.ErrInvalidOperation)

	_, err = h.Handle(context.Background(), AddTestimonialCommand{MentorID: "mentor-1", CallerID: "mentee-2", Content: "x", Rating: 0})
	assert.ErrorIs(t, err, shared.ErrValueOutOfRange)

	_, err = h.Handle(context.Background(), AddTestimonialCommand{MentorID: "mentor-1", CallerID: "mentee-2", Content: " ", Rating: 3})
	assert.ErrorIs(t, err, shared.ErrEmptyValue)
}

func TestReconcileMentorLoad(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.mentor(t, "mentor-drift", 3)
	f.mentor(t, "mentor-ok", 3)
	f.mentee(t, "mentee-1")
	f.active(t, "mentor-ok", "mentee-1")
	f.active(t, "mentor-drift", "mentee-1")

	// two lost decrements
	_, err := f.profiles.AdjustMentorLoad(ctx, "mentor-drift", 2)
	require.NoError(t, err)

	h := NewReconcileMentorLoadHandler(f.profiles, f.mentorships, f.events, 4)
	res, err := h.Handle(ctx, ReconcileMentorLoadCommand{})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Checked)
	assert.Equal(t, 1, res.Drifted)
	require.Len(t, res.Repaired, 1)
	assert.Equal(t, LoadRepair{MentorID: "mentor-drift", Previous: 3, Current: 1}, res.Repaired[0])
	assert.Equal(t, 1, f.load(t, "mentor-drift"))
	assert.Equal(t, 1, f.load(t, "mentor-ok"))

	ev := f.events.last().(shared.MentorLoadReconciledEvent)
	assert.Equal(t, "mentor-drift", ev.MentorID)
	assert.Equal(t, 3, ev.Previous)

	res, err = h.Handle(ctx, ReconcileMentorLoadCommand{})
	require.NoError(t, err)
	assert.Zero(t, res.Drifted)
	assert.Empty(t, res.Repaired)
}

// movingProfiles bumps the load between the two reconciliation observations.
type movingProfiles struct {
	profile.Repository
	reads map[shared.UserID]int
}

func (r *movingProfiles) FindMentor(ctx context.Context, id shared.UserID) (*profile.MentorProfile, error) {
	r.reads[id]++
	if r.reads[id] == 2 {
		if _, err := r.Repository.AdjustMentorLoad(ctx, id, +1); err != nil {
			return nil, err
		}
	}
	return r.Repository.FindMentor(ctx, id)
}

func TestReconcileMentorLoad_SkipsMovingCounters(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.mentor(t, "mentor-1", 3)
	_, err := f.profiles.AdjustMentorLoad(ctx, "mentor-1", 1)
	require.NoError(t, err)

	repo := &movingProfiles{Repository: f.profiles, reads: map[shared.UserID]int{}}
	res, err := NewReconcileMentorLoadHandler(repo, f.mentorships, f.events, 1).Handle(ctx, ReconcileMentorLoadCommand{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Drifted)
	assert.Equal(t, 1, res.Skipped)
	assert.Empty(t, res.Repaired)
	assert.Equal(t, 2, f.load(t, "mentor-1"))
}

func TestReconcileMentorLoad_HonoursCancellation(t *testing.T) {
	f := newFixture()
	f.mentor(t, "mentor-1", 3)
	_, err := f.profiles.AdjustMentorLoad(context.Background(), "mentor-1", 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewReconcileMentorLoadHandler(f.profiles, f.mentorships, f.events, 1).Handle(ctx, ReconcileMentorLoadCommand{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAddTestimonial_ConcurrentWritesKeepBoth(t *testing.T) {
	f := newFixture()
	f.mentor(t, "mentor-1", 2)
	f.mentee(t, "mentee-1")
	f.mentee(t, "mentee-2")
	f.active(t, "mentor-1", "mentee-1")
	f.active(t, "mentor-1", "mentee-2")

	h := NewAddTestimonialHandler(newLockstepReads(f.profiles), f.mentorships, f.events, f.clock)
	ctx := context.Background()

	errA, errB := concurrently(
		func() error {
			_, err := h.Handle(ctx, AddTestimonialCommand{MentorID: "mentor-1", CallerID: "mentee-1", Content: "Patient", Rating: 4})
			return err
		},
		func() error {
			_, err := h.Handle(ctx, AddTestimonialCommand{MentorID: "mentor-1", CallerID: "mentee-2", Content: "Sharp", Rating: 5})
			return err
		},
	)
	require.NoError(t, errA)
	require.NoError(t, errB)

	stored, err := f.profiles.FindMentor(ctx, "mentor-1")
	require.NoError(t, err)
	require.Len(t, stored.Testimonials, 2)
	assert.Equal(t, profile.RatingSummary{Average: 4.5, Count: 2}, stored.Rating)
	assert.Equal(t, 3, stored.Version)
	assert.Equal(t, 2, stored.Availability.CurrentMentees)
}

func TestUpdateMentor_KeepsConcurrentTestimonial(t *testing.T) {
	f := newFixture()
	f.mentor(t, "mentor-1", 2)
	f.mentee(t, "mentee-1")
	f.active(t, "mentor-1", "mentee-1")

	repo := newLockstepReads(f.profiles)
	profiles := NewProfileHandler(repo, f.events, f.clock)
	testimonials := NewAddTestimonialHandler(repo, f.mentorships, f.events, f.clock)
	ctx := context.Background()
	industry := "Fintech"

	errA, errB := concurrently(
		func() error {
			_, err := profiles.UpdateMentor(ctx, UpdateMentorProfileCommand{
				UserID: "mentor-1",
				Update: profile.MentorProfileUpdate{Industry: &industry},
			})
			return err
		},
		func() error {
			_, err := testimonials.Handle(ctx, AddTestimonialCommand{MentorID: "mentor-1", CallerID: "mentee-1", Content: "Helpful", Rating: 3})
			return err
		},
	)
	require.NoError(t, errA)
	require.NoError(t, errB)

	stored, err := f.profiles.FindMentor(ctx, "mentor-1")
	require.NoError(t, err)
	assert.Equal(t, "Fintech", stored.Industry)
	require.Len(t, stored.Testimonials, 1)
	assert.Equal(t, 1, stored.Rating.Count)
}
