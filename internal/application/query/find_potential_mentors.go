package query

import (
	"context"
	"fmt"
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/matching"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// FIND POTENTIAL MENTORS QUERY
// Ранжирует всех активных менторов относительно профиля менти.
// Порядок: оценка по убыванию, затем рейтинг, затем UserID (см. matching.Rank).
// ══════════════════════════════════════════════════════════════════════════════

// RankingCache хранит ранжированные списки по менти.
// Реализация: redis.RankingCache. Кэш необязателен.
type RankingCache interface {
	// GetRanking возвращает список и признак попадания в кэш.
	GetRanking(ctx context.Context, menteeID shared.UserID) ([]RankedMentorDTO, bool, error)

	// SetRanking сохраняет список на ttl.
	SetRanking(ctx context.Context, menteeID shared.UserID, ranking []RankedMentorDTO, ttl time.Duration) error

	// InvalidateRanking удаляет список одного менти.
	InvalidateRanking(ctx context.Context, menteeID shared.UserID) error

	// InvalidateAllRankings удаляет все списки.
	InvalidateAllRankings(ctx context.Context) error
}

// testimonialsInRanking - сколько последних отзывов показывать в списке.
const testimonialsInRanking = 3

// FindPotentialMentorsQuery содержит параметры запроса.
type FindPotentialMentorsQuery struct {
	// MenteeID - вызывающий пользователь.
	MenteeID string

	// Limit и Offset - необязательная страница; Limit 0 отдаёт весь список.
	Limit  int
	Offset int
}

// Validate проверяет параметры.
func (q FindPotentialMentorsQuery) Validate() error {
	if !shared.UserID(q.MenteeID).IsValid() {
		return shared.NewDomainError("matching", "FindPotentialMentors", shared.ErrInvalidID, "mentee_id is required")
	}
	if q.Limit < 0 || q.Offset < 0 {
		return shared.NewDomainError("matching", "FindPotentialMentors", shared.ErrValueOutOfRange, "limit and offset cannot be negative")
	}
	return nil
}

// FindPotentialMentorsResult содержит ранжированный список.
type FindPotentialMentorsResult struct {
	Mentors []RankedMentorDTO `json:"mentors"`

	// Total - длина полного списка до применения страницы.
	Total int `json:"total"`

	// Cached - ответ взят из кэша.
	Cached bool `json:"cached"`
}

// FindPotentialMentorsHandler обрабатывает FindPotentialMentorsQuery.
type FindPotentialMentorsHandler struct {
	profiles profile.Repository
	cache    RankingCache
	ttl      time.Duration
}

// NewFindPotentialMentorsHandler создаёт обработчик. cache может быть nil;
// ttl <= 0 отключает запись в кэш.
func NewFindPotentialMentorsHandler(profiles profile.Repository, cache RankingCache, ttl time.Duration) *FindPotentialMentorsHandler {
	return &FindPotentialMentorsHandler{profiles: profiles, cache: cache, ttl: ttl}
}

// Handle выполняет запрос.
func (h *FindPotentialMentorsHandler) Handle(ctx context.Context, q FindPotentialMentorsQuery) (*FindPotentialMentorsResult, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}
	menteeID := shared.UserID(q.MenteeID)
	log := logger.FromContext(ctx).With(logger.Component("find_potential_mentors"), logger.MenteeID(q.MenteeID))

	// Профиль менти проверяется даже при попадании в кэш: его удаление
	// должно давать NotFound сразу.
	mentee, err := h.profiles.FindMentee(ctx, menteeID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, err
		}
		return nil, fmt.Errorf("find_potential_mentors: find mentee: %w", err)
	}

	if h.cache != nil {
		ranking, ok, err := h.cache.GetRanking(ctx, menteeID)
		if err != nil {
			log.Warn("ranking cache read failed", logger.Err(err))
		} else if ok {
			return page(ranking, q, true), nil
		}
	}

	mentors, err := h.profiles.ListActiveMentors(ctx, menteeID)
	if err != nil {
		return nil, fmt.Errorf("find_potential_mentors: list mentors: %w", err)
	}

	candidates := matching.Rank(mentee, mentors)
	ranking := make([]RankedMentorDTO, len(candidates))
	for i, c := range candidates {
		ranking[i] = RankedMentorDTO{
			Position:           c.Position,
			CompatibilityScore: c.Score,
			Mentor:             NewMentorProfileDTO(c.Mentor, testimonialsInRanking),
			Breakdown:          NewBreakdownDTO(c.Breakdown),
		}
	}

	if h.cache != nil && h.ttl > 0 {
		if err := h.cache.SetRanking(ctx, menteeID, ranking, h.ttl); err != nil {
			log.Warn("ranking cache write failed", logger.Err(err))
		}
	}

	log.Debug("mentors ranked", logger.Int("candidates", len(ranking)))
	return page(ranking, q, false), nil
}

func page(ranking []RankedMentorDTO, q FindPotentialMentorsQuery, cached bool) *FindPotentialMentorsResult {
	res := &FindPotentialMentorsResult{Total: len(ranking), Cached: cached}

	start := min(q.Offset, len(ranking))
	end := len(ranking)
	if q.Limit > 0 {
		end = min(start+q.Limit, end)
	}
	res.Mentors = ranking[start:end]
	return res
}
