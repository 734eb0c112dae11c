package query

import (
	"context"
	"fmt"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// GetMentorshipQuery запрашивает одно менторство от имени участника.
type GetMentorshipQuery struct {
	MentorshipID string
	CallerID     string
}

// GetMentorshipHandler обрабатывает GetMentorshipQuery.
type GetMentorshipHandler struct {
	mentorships mentorship.Repository
}

// NewGetMentorshipHandler создаёт обработчик.
func NewGetMentorshipHandler(mentorships mentorship.Repository) *GetMentorshipHandler {
	return &GetMentorshipHandler{mentorships: mentorships}
}

// Handle возвращает менторство, если вызывающий - его участник.
func (h *GetMentorshipHandler) Handle(ctx context.Context, q GetMentorshipQuery) (*MentorshipDTO, error) {
	m, err := h.mentorships.FindByID(ctx, mentorship.ID(q.MentorshipID))
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get_mentorship: find: %w", err)
	}
	if !m.IsParticipant(shared.UserID(q.CallerID)) {
		return nil, shared.ErrNotParticipant
	}
	dto := NewMentorshipDTO(m)
	return &dto, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// LIST MENTORSHIPS QUERY
// ══════════════════════════════════════════════════════════════════════════════

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// ListMentorshipsQuery содержит фильтры списка.
type ListMentorshipsQuery struct {
	CallerID string

	// Role: "mentor", "mentee" или пусто (любая роль).
	Role string

	// Statuses - необязательный фильтр статусов.
	Statuses []string

	Limit  int
	Offset int
}

// ListMentorshipsResult содержит страницу менторств, новые первыми.
type ListMentorshipsResult struct {
	Mentorships []MentorshipDTO `json:"mentorships"`
	Limit       int             `json:"limit"`
	Offset      int             `json:"offset"`
}

// filter проверяет параметры и строит фильтр хранилища.
func (q ListMentorshipsQuery) filter() (mentorship.ListFilter, error) {
	role := mentorship.Role(q.Role)
	if role == "any" {
		role = mentorship.RoleAny
	}
	if !role.IsValid() {
		return mentorship.ListFilter{}, shared.NewDomainError("mentorship", "List", shared.ErrInvalidInput, "role must be mentor, mentee or any")
	}

	f := mentorship.ListFilter{Role: role, Limit: q.Limit, Offset: q.Offset}
	for _, s := range q.Statuses {
		status, err := mentorship.ParseStatus(s)
		if err != nil {
			return mentorship.ListFilter{}, err
		}
		f.Statuses = append(f.Statuses, status)
	}

	if f.Offset < 0 {
		f.Offset = 0
	}
	switch {
	case f.Limit <= 0:
		f.Limit = defaultListLimit
	case f.Limit > maxListLimit:
		f.Limit = maxListLimit
	}
	return f, nil
}

// ListMentorshipsHandler обрабатывает ListMentorshipsQuery.
type ListMentorshipsHandler struct {
	mentorships mentorship.Repository
}

// NewListMentorshipsHandler создаёт обработчик.
func NewListMentorshipsHandler(mentorships mentorship.Repository) *ListMentorshipsHandler {
	return &ListMentorshipsHandler{mentorships: mentorships}
}

// Handle возвращает менторства вызывающего.
func (h *ListMentorshipsHandler) Handle(ctx context.Context, q ListMentorshipsQuery) (*ListMentorshipsResult, error) {
	f, err := q.filter()
	if err != nil {
		return nil, err
	}

	list, err := h.mentorships.ListByParticipant(ctx, shared.UserID(q.CallerID), f)
	if err != nil {
		return nil, fmt.Errorf("list_mentorships: list: %w", err)
	}

	res := &ListMentorshipsResult{
		Mentorships: make([]MentorshipDTO, len(list)),
		Limit:       f.Limit,
		Offset:      f.Offset,
	}
	for i, m := range list {
		res.Mentorships[i] = NewMentorshipDTO(m)
	}
	return res, nil
}
