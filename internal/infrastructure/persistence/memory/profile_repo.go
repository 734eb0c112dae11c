// Package memory provides in-process implementations of the domain
// repositories. They keep the same atomicity guarantees as the Postgres and
// MongoDB adapters and back STORE_DRIVER=memory and the test suites.
package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// ProfileRepository implements profile.Repository.
type ProfileRepository struct {
	mu      sync.RWMutex
	mentors map[shared.UserID]*profile.MentorProfile
	mentees map[shared.UserID]*profile.MenteeProfile
}

// NewProfileRepository creates an empty ProfileRepository.
func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{
		mentors: make(map[shared.UserID]*profile.MentorProfile),
		mentees: make(map[shared.UserID]*profile.MenteeProfile),
	}
}

var _ profile.Repository = (*ProfileRepository)(nil)

// FindMentor returns a copy of the mentor profile.
func (r *ProfileRepository) FindMentor(ctx context.Context, userID shared.UserID) (*profile.MentorProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.mentors[userID]
	if !ok {
		return nil, shared.ErrMentorProfileNotFound
	}
	return cloneMentor(p), nil
}

// FindMentee returns a copy of the mentee profile.
func (r *ProfileRepository) FindMentee(ctx context.Context, userID shared.UserID) (*profile.MenteeProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.mentees[userID]
	if !ok {
		return nil, shared.ErrMenteeProfileNotFound
	}
	return cloneMentee(p), nil
}

// ListActiveMentors returns active mentors except excluding, ordered by UserID.
func (r *ProfileRepository) ListActiveMentors(ctx context.Context, excluding shared.UserID) ([]*profile.MentorProfile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*profile.MentorProfile, 0, len(r.mentors))
	for id, p := range r.mentors {
		if !p.IsActive || id == excluding {
			continue
		}
		out = append(out, cloneMentor(p))
	}
	slices.SortFunc(out, func(a, b *profile.MentorProfile) int {
		return cmp.Compare(a.UserID, b.UserID)
	})
	return out, nil
}

// ListMentorIDs returns every mentor id, ordered.
func (r *ProfileRepository) ListMentorIDs(ctx context.Context) ([]shared.UserID, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]shared.UserID, 0, len(r.mentors))
	for id := range r.mentors {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

// CreateMentor stores a new mentor profile.
func (r *ProfileRepository) CreateMentor(ctx context.Context, p *profile.MentorProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.mentors[p.UserID]; exists {
		return shared.ErrMentorProfileExists
	}
	r.mentors[p.UserID] = cloneMentor(p)
	return nil
}

// SaveMentor applies the version check and writes everything except the
// current load, storing the profile with Version+1.
func (r *ProfileRepository) SaveMentor(ctx context.Context, p *profile.MentorProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.mentors[p.UserID]
	if !ok {
		return shared.ErrMentorProfileNotFound
	}
	if stored.Version != p.Version {
		return shared.ErrStaleMentorProfile
	}
	if p.Availability.MaxMentees < stored.Availability.CurrentMentees {
		return shared.ErrMaxBelowCurrentLoad
	}

	next := cloneMentor(p)
	next.Availability.CurrentMentees = stored.Availability.CurrentMentees
	next.CreatedAt = stored.CreatedAt
	next.Version = stored.Version + 1
	r.mentors[p.UserID] = next

	p.Version = next.Version
	return nil
}

// SaveMentee creates or replaces the mentee profile.
func (r *ProfileRepository) SaveMentee(ctx context.Context, p *profile.MenteeProfile) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.mentees[p.UserID] = cloneMentee(p)
	return nil
}

// AdjustMentorLoad changes the load atomically under the write lock.
func (r *ProfileRepository) AdjustMentorLoad(ctx context.Context, userID shared.UserID, delta int) (profile.Availability, error) {
	if err := ctx.Err(); err != nil {
		return profile.Availability{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.mentors[userID]
	if !ok {
		return profile.Availability{}, shared.ErrMentorProfileNotFound
	}
	if !p.Availability.CanAdjust(delta) {
		if delta > 0 {
			return profile.Availability{}, shared.ErrMentorAtCapacity
		}
		return profile.Availability{}, shared.ErrMentorLoadUnderflow
	}

	p.Availability.CurrentMentees += delta
	return cloneAvailability(p.Availability), nil
}

// SetMentorLoad overwrites the load, clamped to [0, MaxMentees], if it still equals expected.
func (r *ProfileRepository) SetMentorLoad(ctx context.Context, userID shared.UserID, expected, load int) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.mentors[userID]
	if !ok {
		return 0, shared.ErrMentorProfileNotFound
	}
	if p.Availability.CurrentMentees != expected {
		return p.Availability.CurrentMentees, shared.ErrMentorLoadChanged
	}

	p.Availability.CurrentMentees = min(max(load, 0), p.Availability.MaxMentees)
	return p.Availability.CurrentMentees, nil
}

func cloneMentor(p *profile.MentorProfile) *profile.MentorProfile {
	c := *p
	c.Specializations = slices.Clone(p.Specializations)
	c.RelatedIndustries = slices.Clone(p.RelatedIndustries)
	c.Skills = slices.Clone(p.Skills)
	c.CareerAchievements = slices.Clone(p.CareerAchievements)
	c.PersonalityTraits = p.PersonalityTraits.Clone()
	c.Testimonials = slices.Clone(p.Testimonials)
	c.Availability = cloneAvailability(p.Availability)
	if p.ExperienceYears != nil {
		c.ExperienceYears = profile.Years(*p.ExperienceYears)
	}
	return &c
}

func cloneAvailability(a profile.Availability) profile.Availability {
	a.Schedule = slices.Clone(a.Schedule)
	return a
}

func cloneMentee(p *profile.MenteeProfile) *profile.MenteeProfile {
	c := *p
	c.SkillsToImprove = slices.Clone(p.SkillsToImprove)
	c.CareerGoals = slices.Clone(p.CareerGoals)
	c.PersonalityTraits = p.PersonalityTraits.Clone()
	if p.ExperienceYears != nil {
		c.ExperienceYears = profile.Years(*p.ExperienceYears)
	}
	return &c
}
