package query

import (
	"context"
	"fmt"
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/pkg/logger"
)

// ProfileCache кэширует профили менторов для чтения.
// Реализация: redis.RankingCache. Кэш необязателен.
type ProfileCache interface {
	GetMentorProfile(ctx context.Context, userID shared.UserID) (*MentorProfileDTO, bool, error)
	SetMentorProfile(ctx context.Context, dto MentorProfileDTO, ttl time.Duration) error
	InvalidateMentorProfile(ctx context.Context, userID shared.UserID) error
}

// GetMentorProfileQuery запрашивает профиль ментора.
type GetMentorProfileQuery struct {
	UserID string
}

// GetMentorProfileHandler обрабатывает GetMentorProfileQuery.
type GetMentorProfileHandler struct {
	profiles profile.Repository
	cache    ProfileCache
	ttl      time.Duration
}

// NewGetMentorProfileHandler создаёт обработчик. cache может быть nil.
func NewGetMentorProfileHandler(profiles profile.Repository, cache ProfileCache, ttl time.Duration) *GetMentorProfileHandler {
	return &GetMentorProfileHandler{profiles: profiles, cache: cache, ttl: ttl}
}

// Handle возвращает профиль со всеми отзывами, новые первыми.
func (h *GetMentorProfileHandler) Handle(ctx context.Context, q GetMentorProfileQuery) (*MentorProfileDTO, error) {
	userID := shared.UserID(q.UserID)
	if !userID.IsValid() {
		return nil, shared.NewDomainError("profile", "GetMentor", shared.ErrInvalidID, "user_id is required")
	}
	log := logger.FromContext(ctx)

	if h.cache != nil {
		dto, ok, err := h.cache.GetMentorProfile(ctx, userID)
		if err != nil {
			log.Warn("profile cache read failed", logger.MentorID(q.UserID), logger.Err(err))
		} else if ok {
			return dto, nil
		}
	}

	p, err := h.profiles.FindMentor(ctx, userID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("get_mentor_profile: find: %w", err)
	}

	dto := NewMentorProfileDTO(p, -1)
	if h.cache != nil && h.ttl > 0 {
		if err := h.cache.SetMentorProfile(ctx, dto, h.ttl); err != nil {
			log.Warn("profile cache write failed", logger.MentorID(q.UserID), logger.Err(err))
		}
	}
	return &dto, nil
}
