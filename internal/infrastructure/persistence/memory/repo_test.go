package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

func seedMentor(t *testing.T, repo *ProfileRepository, id shared.UserID, maxMentees int) {
	t.Helper()
	p, err := profile.NewMentorProfile(profile.NewMentorProfileParams{UserID: id, MaxMentees: maxMentees})
	require.NoError(t, err)
	require.NoError(t, repo.CreateMentor(context.Background(), p))
}

func TestProfileRepository_CreateAndFind(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository()
	seedMentor(t, repo, "m1", 2)

	err := repo.CreateMentor(ctx, &profile.MentorProfile{UserID: "m1"})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	got, err := repo.FindMentor(ctx, "m1")
	require.NoError(t, err)
	got.Skills = append(got.Skills, "mutated")

	again, err := repo.FindMentor(ctx, "m1")
	require.NoError(t, err)
	assert.Empty(t, again.Skills)

	_, err = repo.FindMentor(ctx, "nobody")
	assert.ErrorIs(t, err, shared.ErrNotFound)
	_, err = repo.FindMentee(ctx, "nobody")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestProfileRepository_ListActiveMentors(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository()
	for _, id := range []shared.UserID{"c", "a", "b", "self"} {
		seedMentor(t, repo, id, 1)
	}
	off, _ := repo.FindMentor(ctx, "b")
	off.IsActive = false
	require.NoError(t, repo.SaveMentor(ctx, off))

	list, err := repo.ListActiveMentors(ctx, "self")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, shared.UserID("a"), list[0].UserID)
	assert.Equal(t, shared.UserID("c"), list[1].UserID)

	ids, err := repo.ListMentorIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []shared.UserID{"a", "b", "c", "self"}, ids)
}

func TestProfileRepository_SaveMentorKeepsLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository()
	seedMentor(t, repo, "m1", 3)

	_, err := repo.AdjustMentorLoad(ctx, "m1", 2)
	require.NoError(t, err)

	stale, _ := repo.FindMentor(ctx, "m1")
	stale.Availability.CurrentMentees = 0
	stale.Industry = "Tech"
	require.NoError(t, repo.SaveMentor(ctx, stale))

	got, _ := repo.FindMentor(ctx, "m1")
	assert.Equal(t, 2, got.Availability.CurrentMentees)
	assert.Equal(t, "Tech", got.Industry)

	got.Availability.MaxMentees = 1
	assert.ErrorIs(t, repo.SaveMentor(ctx, got), shared.ErrCapacityExceeded)
}

func TestProfileRepository_SaveMentorRejectsStaleVersion(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository()
	seedMentor(t, repo, "m1", 3)

	first, _ := repo.FindMentor(ctx, "m1")
	second, _ := repo.FindMentor(ctx, "m1")

	first.Industry = "Tech"
	require.NoError(t, repo.SaveMentor(ctx, first))
	assert.Equal(t, 2, first.Version)

	second.Industry = "Retail"
	err := repo.SaveMentor(ctx, second)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)

	// the load moves without touching the version
	_, err = repo.AdjustMentorLoad(ctx, "m1", 1)
	require.NoError(t, err)

	got, _ := repo.FindMentor(ctx, "m1")
	assert.Equal(t, "Tech", got.Industry)
	assert.Equal(t, 2, got.Version)
	assert.Equal(t, 1, got.Availability.CurrentMentees)
}

func TestProfileRepository_AdjustAndSetLoad(t *testing.T) {
	ctx := context.Background()
	repo := NewProfileRepository()
	seedMentor(t, repo, "m1", 1)

	a, err := repo.AdjustMentorLoad(ctx, "m1", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, a.CurrentMentees)

	_, err = repo.AdjustMentorLoad(ctx, "m1", 1)
	assert.ErrorIs(t, err, shared.ErrMentorAtCapacity)

	_, err = repo.AdjustMentorLoad(ctx, "m1", -1)
	require.NoError(t, err)
	_, err = repo.AdjustMentorLoad(ctx, "m1", -1)
	assert.ErrorIs(t, err, shared.ErrMentorLoadUnderflow)

	_, err = repo.AdjustMentorLoad(ctx, "ghost", 1)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	cur, err := repo.SetMentorLoad(ctx, "m1", 0, 7)
	require.NoError(t, err)
	assert.Equal(t, 1, cur)

	cur, err = repo.SetMentorLoad(ctx, "m1", 0, 0)
	assert.ErrorIs(t, err, shared.ErrConcurrentModification)
	assert.Equal(t, 1, cur)

	cur, err = repo.SetMentorLoad(ctx, "m1", 1, -4)
	require.NoError(t, err)
	assert.Equal(t, 0, cur)
}

// Concurrent accepts never push the load above capacity.
func TestProfileRepository_ConcurrentAdjustRespectsCapacity(t *testing.T) {
	faker := gofakeit.New(7)
	ctx := context.Background()

	for round := 0; round < 20; round++ {
		repo := NewProfileRepository()
		capacity := faker.Number(1, 5)
		workers := faker.Number(capacity, capacity*4)
		seedMentor(t, repo, "m", capacity)

		var (
			wg        sync.WaitGroup
			mu        sync.Mutex
			succeeded int
			rejected  int
		)
		for i := 0; i < workers; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := repo.AdjustMentorLoad(ctx, "m", 1)
				mu.Lock()
				defer mu.Unlock()
				switch {
				case err == nil:
					succeeded++
				case errors.Is(err, shared.ErrCapacityExceeded):
					rejected++
				default:
					t.Errorf("unexpected error: %v", err)
				}
			}()
		}
		wg.Wait()

		got, err := repo.FindMentor(ctx, "m")
		require.NoError(t, err)
		assert.Equal(t, capacity, succeeded, "round %d", round)
		assert.Equal(t, workers-capacity, rejected, "round %d", round)
		assert.Equal(t, capacity, got.Availability.CurrentMentees, "round %d", round)
	}
}

func newRequest(t *testing.T, id string, mentor, mentee shared.UserID, at time.Time) *mentorship.Mentorship {
	t.Helper()
	m, err := mentorship.NewMentorship(mentorship.NewMentorshipParams{
		ID:                 mentorship.ID(id),
		MentorID:           mentor,
		MenteeID:           mentee,
		CompatibilityScore: 60,
		Now:                at,
	})
	require.NoError(t, err)
	return m
}

func TestMentorshipRepository_OpenPairUniqueness(t *testing.T) {
	ctx := context.Background()
	repo := NewMentorshipRepository()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	first := newRequest(t, "ms-1", "mentor", "mentee", t0)
	require.NoError(t, repo.Create(ctx, first))

	err := repo.Create(ctx, newRequest(t, "ms-2", "mentor", "mentee", t0))
	assert.ErrorIs(t, err, shared.ErrConflict)

	open, err := repo.FindOpenByPair(ctx, "mentor", "mentee")
	require.NoError(t, err)
	assert.Equal(t, mentorship.ID("ms-1"), open.ID)

	require.NoError(t, open.Decline("mentor", t0))
	require.NoError(t, repo.Save(ctx, open))

	_, err = repo.FindOpenByPair(ctx, "mentor", "mentee")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	require.NoError(t, repo.Create(ctx, newRequest(t, "ms-3", "mentor", "mentee", t0)))

	declined, err := repo.ExistsBetween(ctx, "mentor", "mentee", mentorship.StatusDeclined)
	require.NoError(t, err)
	assert.True(t, declined)
	completed, err := repo.ExistsBetween(ctx, "mentor", "mentee", mentorship.StatusCompleted)
	require.NoError(t, err)
	assert.False(t, completed)
}

func TestMentorshipRepository_SaveVersioning(t *testing.T) {
	ctx := context.Background()
	repo := NewMentorshipRepository()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, newRequest(t, "ms-1", "mentor", "mentee", t0)))

	a, _ := repo.FindByID(ctx, "ms-1")
	b, _ := repo.FindByID(ctx, "ms-1")

	require.NoError(t, a.Accept("mentor", t0, 3))
	a.CompatibilityScore = 1
	require.NoError(t, repo.Save(ctx, a))
	assert.Equal(t, 2, a.Version)

	require.NoError(t, b.Decline("mentor", t0))
	assert.ErrorIs(t, repo.Save(ctx, b), shared.ErrConcurrentModification)

	got, _ := repo.FindByID(ctx, "ms-1")
	assert.Equal(t, mentorship.StatusActive, got.Status)
	assert.Equal(t, 60, got.CompatibilityScore)
}

func TestMentorshipRepository_ListAndCount(t *testing.T) {
	ctx := context.Background()
	repo := NewMentorshipRepository()
	t0 := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < 4; i++ {
		m := newRequest(t, fmt.Sprintf("ms-%d", i), "mentor", shared.UserID(fmt.Sprintf("mentee-%d", i)), t0.Add(time.Duration(i)*time.Hour))
		require.NoError(t, repo.Create(ctx, m))
		if i%2 == 0 {
			require.NoError(t, m.Accept("mentor", t0, 3))
			require.NoError(t, repo.Save(ctx, m))
		}
	}

	all, err := repo.ListByParticipant(ctx, "mentor", mentorship.ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	assert.Equal(t, mentorship.ID("ms-3"), all[0].ID)
	assert.Equal(t, mentorship.ID("ms-0"), all[3].ID)

	active, err := repo.ListByParticipant(ctx, "mentor", mentorship.ListFilter{
		Role:     mentorship.RoleMentor,
		Statuses: []mentorship.Status{mentorship.StatusActive},
	})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	asMentee, err := repo.ListByParticipant(ctx, "mentor", mentorship.ListFilter{Role: mentorship.RoleMentee})
	require.NoError(t, err)
	assert.Empty(t, asMentee)

	page, err := repo.ListByParticipant(ctx, "mentor", mentorship.ListFilter{Limit: 2, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 2)
	assert.Equal(t, mentorship.ID("ms-2"), page[0].ID)

	n, err := repo.CountActiveByMentor(ctx, "mentor")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}
