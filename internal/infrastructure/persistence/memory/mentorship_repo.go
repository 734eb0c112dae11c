package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

type pairKey struct {
	mentor shared.UserID
	mentee shared.UserID
}

// MentorshipRepository implements mentorship.Repository.
//
// openByPair mirrors the partial unique index of the database adapters:
// at most one pending or active record per (mentor, mentee).
type MentorshipRepository struct {
	mu         sync.RWMutex
	byID       map[mentorship.ID]*mentorship.Mentorship
	openByPair map[pairKey]mentorship.ID
}

// NewMentorshipRepository creates an empty MentorshipRepository.
func NewMentorshipRepository() *MentorshipRepository {
	return &MentorshipRepository{
		byID:       make(map[mentorship.ID]*mentorship.Mentorship),
		openByPair: make(map[pairKey]mentorship.ID),
	}
}

var _ mentorship.Repository = (*MentorshipRepository)(nil)

func (r *MentorshipRepository) FindByID(ctx context.Context, id mentorship.ID) (*mentorship.Mentorship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return nil, shared.ErrMentorshipNotFound
	}
	return cloneMentorship(m), nil
}

func (r *MentorshipRepository) FindOpenByPair(ctx context.Context, mentorID, menteeID shared.UserID) (*mentorship.Mentorship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.openByPair[pairKey{mentorID, menteeID}]
	if !ok {
		return nil, shared.ErrMentorshipNotFound
	}
	return cloneMentorship(r.byID[id]), nil
}

func (r *MentorshipRepository) Create(ctx context.Context, m *mentorship.Mentorship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID]; exists {
		return shared.NewDomainError("mentorship", "Create", shared.ErrAlreadyExists, "mentorship id already exists")
	}
	key := pairKey{m.MentorID, m.MenteeID}
	if m.Status.IsOpen() {
		if _, open := r.openByPair[key]; open {
			return shared.ErrOpenMentorship
		}
		r.openByPair[key] = m.ID
	}
	r.byID[m.ID] = cloneMentorship(m)
	return nil
}

// Save applies the version check, then stores the record with Version+1.
func (r *MentorshipRepository) Save(ctx context.Context, m *mentorship.Mentorship) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.byID[m.ID]
	if !ok {
		return shared.ErrMentorshipNotFound
	}
	if stored.Version != m.Version {
		return shared.ErrStaleMentorship
	}

	next := cloneMentorship(m)
	next.MentorID = stored.MentorID
	next.MenteeID = stored.MenteeID
	next.CompatibilityScore = stored.CompatibilityScore
	next.CreatedAt = stored.CreatedAt
	next.Version = stored.Version + 1

	key := pairKey{next.MentorID, next.MenteeID}
	if !next.Status.IsOpen() && r.openByPair[key] == next.ID {
		delete(r.openByPair, key)
	}

	r.byID[m.ID] = next
	m.Version = next.Version
	return nil
}

func (r *MentorshipRepository) ListByParticipant(ctx context.Context, userID shared.UserID, filter mentorship.ListFilter) ([]*mentorship.Mentorship, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*mentorship.Mentorship
	for _, m := range r.byID {
		if filter.Matches(m, userID) {
			out = append(out, cloneMentorship(m))
		}
	}
	slices.SortFunc(out, func(a, b *mentorship.Mentorship) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*mentorship.Mentorship{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *MentorshipRepository) CountActiveByMentor(ctx context.Context, mentorID shared.UserID) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	n := 0
	for _, m := range r.byID {
		if m.MentorID == mentorID && m.Status == mentorship.StatusActive {
			n++
		}
	}
	return n, nil
}

func (r *MentorshipRepository) ExistsBetween(ctx context.Context, mentorID, menteeID shared.UserID, statuses ...mentorship.Status) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, m := range r.byID {
		if m.MentorID != mentorID || m.MenteeID != menteeID {
			continue
		}
		if len(statuses) == 0 || slices.Contains(statuses, m.Status) {
			return true, nil
		}
	}
	return false, nil
}

func cloneMentorship(m *mentorship.Mentorship) *mentorship.Mentorship {
	c := *m
	c.FocusAreas = slices.Clone(m.FocusAreas)
	c.Goals = make([]mentorship.Goal, len(m.Goals))
	for i, g := range m.Goals {
		c.Goals[i] = g
		if g.CompletedAt != nil {
			at := *g.CompletedAt
			c.Goals[i].CompletedAt = &at
		}
	}
	c.Meetings = slices.Clone(m.Meetings)
	if m.Feedback != nil {
		fb := *m.Feedback
		c.Feedback = &fb
	}
	if m.StartDate != nil {
		at := *m.StartDate
		c.StartDate = &at
	}
	if m.EndDate != nil {
		at := *m.EndDate
		c.EndDate = &at
	}
	return &c
}
