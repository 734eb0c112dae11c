// Package eventhandler содержит обработчики доменных событий.
// Обработчики - «реактивная» часть системы: они не меняют состояние
// агрегатов, а поддерживают производные данные (кэши) и аудит.
package eventhandler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/mentorlink/mentorship-core/internal/application/query"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// ═══════════════════════════════════════════════════════════════════════════
// CACHE INVALIDATION HANDLER
// Сбрасывает ранжированные списки и профили менторов, когда меняются
// данные, от которых они зависят.
//
// - изменение профиля ментора, отзыв, accept/complete/cancel: все списки
//   (меняется нагрузка или рейтинг ментора) и профиль ментора;
// - изменение профиля менти: только его список.
// ═══════════════════════════════════════════════════════════════════════════

// invalidationTimeout ограничивает один вызов кэша из обработчика.
const invalidationTimeout = 2 * time.Second

// CacheInvalidationHandler реагирует на события, влияющие на кэш чтения.
type CacheInvalidationHandler struct {
	rankings query.RankingCache
	profiles query.ProfileCache
	logger   *slog.Logger
}

// NewCacheInvalidationHandler создаёт обработчик. profiles может быть nil.
func NewCacheInvalidationHandler(rankings query.RankingCache, profiles query.ProfileCache, logger *slog.Logger) *CacheInvalidationHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CacheInvalidationHandler{
		rankings: rankings,
		profiles: profiles,
		logger:   logger.With("handler", "cache_invalidation"),
	}
}

// EventTypes возвращает события, на которые подписывается обработчик.
func (h *CacheInvalidationHandler) EventTypes() []shared.EventType {
	return []shared.EventType{
		shared.EventMentorshipAccepted,
		shared.EventMentorshipCompleted,
		shared.EventMentorshipCancelled,
		shared.EventMentorProfileUpdated,
		shared.EventMenteeProfileUpdated,
		shared.EventTestimonialAdded,
		shared.EventMentorLoadReconciled,
	}
}

// Handle реализует shared.EventHandler.
func (h *CacheInvalidationHandler) Handle(event shared.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), invalidationTimeout)
	defer cancel()

	switch e := event.(type) {
	case shared.ProfileUpdatedEvent:
		if e.EventType() == shared.EventMenteeProfileUpdated {
			return h.invalidateMentee(ctx, e.UserID)
		}
		return h.invalidateMentor(ctx, e.UserID)

	case shared.MentorshipTransitionEvent:
		if e.EventType() == shared.EventMentorshipCancelled && !e.ReleasesMentorSlot() {
			// отозванный запрос не меняет нагрузку
			return nil
		}
		return h.invalidateMentor(ctx, e.MentorID)

	case shared.TestimonialAddedEvent:
		return h.invalidateMentor(ctx, e.MentorID)

	case shared.MentorLoadReconciledEvent:
		return h.invalidateMentor(ctx, e.MentorID)
	}
	return nil
}

func (h *CacheInvalidationHandler) invalidateMentor(ctx context.Context, mentorID string) error {
	if h.profiles != nil {
		if err := h.profiles.InvalidateMentorProfile(ctx, shared.UserID(mentorID)); err != nil {
			h.logger.Warn("failed to invalidate mentor profile", "mentor_id", mentorID, "error", err)
		}
	}
	if h.rankings == nil {
		return nil
	}
	if err := h.rankings.InvalidateAllRankings(ctx); err != nil {
		return fmt.Errorf("invalidate rankings: %w", err)
	}
	h.logger.Debug("rankings invalidated", "mentor_id", mentorID)
	return nil
}

func (h *CacheInvalidationHandler) invalidateMentee(ctx context.Context, menteeID string) error {
	if h.rankings == nil {
		return nil
	}
	if err := h.rankings.InvalidateRanking(ctx, shared.UserID(menteeID)); err != nil {
		return fmt.Errorf("invalidate ranking for %s: %w", menteeID, err)
	}
	return nil
}
