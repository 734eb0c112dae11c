// Package query contains read operations (CQRS - Queries).
package query

import (
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/matching"
	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
)

// ══════════════════════════════════════════════════════════════════════════════
// READ MODELS
// DTO, которые отдают запросы. Они же сериализуются в кэш и в HTTP-ответы.
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleSlotDTO - окно доступности.
type ScheduleSlotDTO struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

// AvailabilityDTO - ёмкость ментора.
type AvailabilityDTO struct {
	MaxMentees     int               `json:"max_mentees"`
	CurrentMentees int               `json:"current_mentees"`
	RemainingSlots int               `json:"remaining_slots"`
	Schedule       []ScheduleSlotDTO `json:"schedule,omitempty"`
	TimeZone       string            `json:"time_zone,omitempty"`
}

// TestimonialDTO - отзыв о менторе.
type TestimonialDTO struct {
	MenteeID string    `json:"mentee_id"`
	Content  string    `json:"content"`
	Rating   int       `json:"rating"`
	Date     time.Time `json:"date"`
}

// RatingDTO - агрегированный рейтинг.
type RatingDTO struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
}

// MentorProfileDTO - профиль ментора для чтения.
type MentorProfileDTO struct {
	UserID             string             `json:"user_id"`
	IsActive           bool               `json:"is_active"`
	Specializations    []string           `json:"specializations"`
	Industry           string             `json:"industry,omitempty"`
	RelatedIndustries  []string           `json:"related_industries,omitempty"`
	Skills             []string           `json:"skills,omitempty"`
	ExperienceYears    *int               `json:"experience_years,omitempty"`
	PersonalityTraits  map[string]float64 `json:"personality_traits,omitempty"`
	CareerAchievements []string           `json:"career_achievements,omitempty"`
	Availability       AvailabilityDTO    `json:"availability"`
	Rating             RatingDTO          `json:"rating"`
	Testimonials       []TestimonialDTO   `json:"testimonials,omitempty"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// MenteeProfileDTO - профиль менти для чтения.
type MenteeProfileDTO struct {
	UserID            string             `json:"user_id"`
	Industry          string             `json:"industry,omitempty"`
	SkillsToImprove   []string           `json:"skills_to_improve,omitempty"`
	CareerGoals       []string           `json:"career_goals,omitempty"`
	PersonalityTraits map[string]float64 `json:"personality_traits,omitempty"`
	ExperienceYears   *int               `json:"experience_years,omitempty"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// FactorDTO - вклад одной группы факторов.
type FactorDTO struct {
	Factor string  `json:"factor"`
	Earned float64 `json:"earned"`
	Weight float64 `json:"weight"`
}

// BreakdownDTO - пояснение оценки совместимости.
type BreakdownDTO struct {
	Score            int         `json:"score"`
	ApplicableWeight float64     `json:"applicable_weight"`
	Factors          []FactorDTO `json:"factors"`
}

// RankedMentorDTO - ментор в ранжированном списке.
type RankedMentorDTO struct {
	Position           int              `json:"position"`
	CompatibilityScore int              `json:"compatibility_score"`
	Mentor             MentorProfileDTO `json:"mentor"`
	Breakdown          BreakdownDTO     `json:"breakdown"`
}

// GoalDTO - цель менторства.
type GoalDTO struct {
	Description string     `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// MeetingDTO - встреча.
type MeetingDTO struct {
	ScheduledFor    time.Time `json:"scheduled_for"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	MeetingLink     string    `json:"meeting_link,omitempty"`
}

// FeedbackDTO - итоговая обратная связь обеих сторон.
type FeedbackDTO struct {
	MentorRating   *int   `json:"mentor_rating,omitempty"`
	MenteeRating   *int   `json:"mentee_rating,omitempty"`
	MentorFeedback string `json:"mentor_feedback,omitempty"`
	MenteeFeedback string `json:"mentee_feedback,omitempty"`
}

// MentorshipDTO - менторство для чтения.
type MentorshipDTO struct {
	ID                 string       `json:"id"`
	MentorID           string       `json:"mentor_id"`
	MenteeID           string       `json:"mentee_id"`
	Status             string       `json:"status"`
	CompatibilityScore int          `json:"compatibility_score"`
	FocusAreas         []string     `json:"focus_areas"`
	Goals              []GoalDTO    `json:"goals"`
	CompletedGoals     int          `json:"completed_goals"`
	Meetings           []MeetingDTO `json:"meetings"`
	Feedback           *FeedbackDTO `json:"feedback,omitempty"`
	Message            string       `json:"message,omitempty"`
	CancelReason       string       `json:"cancel_reason,omitempty"`
	StartDate          *time.Time   `json:"start_date,omitempty"`
	EndDate            *time.Time   `json:"end_date,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
	Version            int          `json:"version"`
}

// ══════════════════════════════════════════════════════════════════════════════
// MAPPERS
// ══════════════════════════════════════════════════════════════════════════════

// NewMentorProfileDTO строит DTO профиля. testimonials ограничивает число
// отзывов (новые первыми); отрицательное значение отдаёт все.
func NewMentorProfileDTO(p *profile.MentorProfile, testimonials int) MentorProfileDTO {
	dto := MentorProfileDTO{
		UserID:             p.UserID.String(),
		IsActive:           p.IsActive,
		Specializations:    make([]string, len(p.Specializations)),
		Industry:           p.Industry,
		RelatedIndustries:  p.RelatedIndustries,
		Skills:             p.Skills,
		ExperienceYears:    p.ExperienceYears,
		PersonalityTraits:  traitsDTO(p.PersonalityTraits),
		CareerAchievements: p.CareerAchievements,
		Availability: AvailabilityDTO{
			MaxMentees:     p.Availability.MaxMentees,
			CurrentMentees: p.Availability.CurrentMentees,
			RemainingSlots: p.Availability.RemainingSlots(),
			TimeZone:       p.Availability.TimeZone,
		},
		Rating:    RatingDTO{Average: p.Rating.Average, Count: p.Rating.Count},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
	for i, s := range p.Specializations {
		dto.Specializations[i] = s.String()
	}
	for _, s := range p.Availability.Schedule {
		dto.Availability.Schedule = append(dto.Availability.Schedule, ScheduleSlotDTO(s))
	}
	if testimonials != 0 {
		for _, t := range p.LatestTestimonials(testimonials) {
			dto.Testimonials = append(dto.Testimonials, TestimonialDTO{
				MenteeID: t.MenteeID.String(),
				Content:  t.Content,
				Rating:   t.Rating.Int(),
				Date:     t.Date,
			})
		}
	}
	return dto
}

// NewMenteeProfileDTO строит DTO профиля менти.
func NewMenteeProfileDTO(p *profile.MenteeProfile) MenteeProfileDTO {
	return MenteeProfileDTO{
		UserID:            p.UserID.String(),
		Industry:          p.Industry,
		SkillsToImprove:   p.SkillsToImprove,
		CareerGoals:       p.CareerGoals,
		PersonalityTraits: traitsDTO(p.PersonalityTraits),
		ExperienceYears:   p.ExperienceYears,
		UpdatedAt:         p.UpdatedAt,
	}
}

// NewBreakdownDTO строит DTO пояснения оценки.
func NewBreakdownDTO(b matching.Breakdown) BreakdownDTO {
	dto := BreakdownDTO{
		Score:            b.Score,
		ApplicableWeight: b.ApplicableWeight,
		Factors:          make([]FactorDTO, len(b.Factors)),
	}
	for i, f := range b.Factors {
		dto.Factors[i] = FactorDTO{Factor: string(f.Factor), Earned: f.Earned, Weight: f.Weight}
	}
	return dto
}

// NewMentorshipDTO строит DTO менторства.
func NewMentorshipDTO(m *mentorship.Mentorship) MentorshipDTO {
	dto := MentorshipDTO{
		ID:                 m.ID.String(),
		MentorID:           m.MentorID.String(),
		MenteeID:           m.MenteeID.String(),
		Status:             string(m.Status),
		CompatibilityScore: m.CompatibilityScore,
		FocusAreas:         make([]string, len(m.FocusAreas)),
		Goals:              make([]GoalDTO, len(m.Goals)),
		CompletedGoals:     m.CompletedGoals(),
		Meetings:           make([]MeetingDTO, len(m.Meetings)),
		Message:            m.Message,
		CancelReason:       m.CancelReason,
		StartDate:          m.StartDate,
		EndDate:            m.EndDate,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		Version:            m.Version,
	}
	for i, f := range m.FocusAreas {
		dto.FocusAreas[i] = f.String()
	}
	for i, g := range m.Goals {
		dto.Goals[i] = GoalDTO(g)
	}
	for i, mt := range m.Meetings {
		dto.Meetings[i] = MeetingDTO{
			ScheduledFor:    mt.ScheduledFor,
			DurationMinutes: int(mt.Duration / time.Minute),
			Status:          string(mt.Status),
			Notes:           mt.Notes,
			MeetingLink:     mt.MeetingLink,
		}
	}
	if fb := m.Feedback; fb != nil {
		dto.Feedback = &FeedbackDTO{
			MentorRating:   ratingPtr(fb.MentorRating),
			MenteeRating:   ratingPtr(fb.MenteeRating),
			MentorFeedback: fb.MentorFeedback,
			MenteeFeedback: fb.MenteeFeedback,
		}
	}
	return dto
}

func traitsDTO(t profile.PersonalityTraits) map[string]float64 {
	if len(t) == 0 {
		return nil
	}
	out := make(map[string]float64, len(t))
	for k, v := range t {
		out[string(k)] = v
	}
	return out
}

func ratingPtr[T ~int](r *T) *int {
	if r == nil {
		return nil
	}
	v := int(*r)
	return &v
}
