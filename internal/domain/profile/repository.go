package profile

import (
	"context"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// Repository определяет интерфейс хранилища профилей.
// Реализации: memory, postgres, mongo.
type Repository interface {
	// FindMentor возвращает профиль ментора.
	// Возвращает shared.ErrMentorProfileNotFound, если профиля нет.
	FindMentor(ctx context.Context, userID shared.UserID) (*MentorProfile, error)

	// FindMentee возвращает профиль менти.
	// Возвращает shared.ErrMenteeProfileNotFound, если профиля нет.
	FindMentee(ctx context.Context, userID shared.UserID) (*MenteeProfile, error)

	// ListActiveMentors возвращает все активные профили менторов, кроме excluding,
	// упорядоченные по UserID.
	ListActiveMentors(ctx context.Context, excluding shared.UserID) ([]*MentorProfile, error)

	// ListMentorIDs возвращает идентификаторы всех менторов (включая неактивных).
	ListMentorIDs(ctx context.Context) ([]shared.UserID, error)

	// CreateMentor сохраняет новый профиль ментора.
	// Возвращает shared.ErrMentorProfileExists, если профиль уже есть.
	CreateMentor(ctx context.Context, p *MentorProfile) error

	// SaveMentor записывает все поля профиля, кроме Availability.CurrentMentees,
	// с проверкой версии и увеличивает p.Version.
	// Возвращает shared.ErrStaleMentorProfile, если профиль изменён с момента чтения.
	// MaxMentees записывается только если не меньше текущей нагрузки,
	// иначе shared.ErrMaxBelowCurrentLoad.
	SaveMentor(ctx context.Context, p *MentorProfile) error

	// SaveMentee создаёт или полностью заменяет профиль менти.
	SaveMentee(ctx context.Context, p *MenteeProfile) error

	// AdjustMentorLoad атомарно меняет CurrentMentees на delta при условии
	// 0 <= CurrentMentees+delta <= MaxMentees и возвращает новую ёмкость.
	// Возвращает shared.ErrMentorAtCapacity при переполнении,
	// shared.ErrMentorLoadUnderflow при уходе ниже нуля.
	AdjustMentorLoad(ctx context.Context, userID shared.UserID, delta int) (Availability, error)

	// SetMentorLoad записывает нагрузку, ограниченную диапазоном [0, MaxMentees],
	// только если текущее значение равно expected. Возвращает записанное значение.
	// Возвращает shared.ErrMentorLoadChanged, если нагрузка успела измениться.
	SetMentorLoad(ctx context.Context, userID shared.UserID, expected, load int) (int, error)
}
