package mentorship

import (
	"context"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// Role - роль пользователя при выборке списка менторств.
type Role string

const (
	RoleAny    Role = ""
	RoleMentor Role = "mentor"
	RoleMentee Role = "mentee"
)

// IsValid проверяет корректность роли.
func (r Role) IsValid() bool {
	return r == RoleAny || r == RoleMentor || r == RoleMentee
}

// ListFilter задаёт фильтр для ListByParticipant.
type ListFilter struct {
	Role     Role
	Statuses []Status
	Limit    int
	Offset   int
}

// Matches проверяет, подходит ли менторство под фильтр для пользователя.
func (f ListFilter) Matches(m *Mentorship, userID shared.UserID) bool {
	switch f.Role {
	case RoleMentor:
		if !m.IsMentor(userID) {
			return false
		}
	case RoleMentee:
		if !m.IsMentee(userID) {
			return false
		}
	default:
		if !m.IsParticipant(userID) {
			return false
		}
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if m.Status == s {
			return true
		}
	}
	return false
}

// Repository определяет интерфейс хранилища менторств.
type Repository interface {
	// FindByID возвращает менторство по ID.
	// Возвращает shared.ErrMentorshipNotFound, если записи нет.
	FindByID(ctx context.Context, id ID) (*Mentorship, error)

	// FindOpenByPair возвращает открытое (pending/active) менторство пары.
	// Возвращает shared.ErrMentorshipNotFound, если такого нет.
	FindOpenByPair(ctx context.Context, mentorID, menteeID shared.UserID) (*Mentorship, error)

	// Create сохраняет новое менторство.
	// Возвращает shared.ErrOpenMentorship, если у пары уже есть открытое.
	Create(ctx context.Context, m *Mentorship) error

	// Save сохраняет изменения с проверкой версии и увеличивает m.Version.
	// CompatibilityScore, участники и CreatedAt не перезаписываются.
	// Возвращает shared.ErrStaleMentorship при конфликте версий.
	Save(ctx context.Context, m *Mentorship) error

	// ListByParticipant возвращает менторства пользователя, новые первыми.
	ListByParticipant(ctx context.Context, userID shared.UserID, filter ListFilter) ([]*Mentorship, error)

	// CountActiveByMentor возвращает количество активных менторств ментора.
	CountActiveByMentor(ctx context.Context, mentorID shared.UserID) (int, error)

	// ExistsBetween проверяет наличие менторства пары в одном из статусов.
	ExistsBetween(ctx context.Context, mentorID, menteeID shared.UserID, statuses ...Status) (bool, error)
}
