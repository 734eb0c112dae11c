// Package profile содержит доменную модель профилей ментора и менти.
// Профиль ментора дополнительно хранит ёмкость (availability),
// отзывы и производный рейтинг.
package profile

import (
	"sort"
	"strings"
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PERSONALITY TRAITS
// ══════════════════════════════════════════════════════════════════════════════

// Trait - имя черты личности из фиксированного словаря.
type Trait string

const (
	TraitCommunicationStyle Trait = "communication_style"
	TraitLearningPreference Trait = "learning_preference"
	TraitFeedbackApproach   Trait = "feedback_approach"
	TraitWorkStyle          Trait = "work_style"
	TraitGoalOrientation    Trait = "goal_orientation"
)

// Границы шкалы черт.
const (
	MinTraitValue float64 = 0
	MaxTraitValue float64 = 10
)

// canonicalTraits задаёт порядок обхода черт при подсчёте совместимости.
var canonicalTraits = []Trait{
	TraitCommunicationStyle,
	TraitLearningPreference,
	TraitFeedbackApproach,
	TraitWorkStyle,
	TraitGoalOrientation,
}

// CanonicalTraits возвращает копию словаря черт.
func CanonicalTraits() []Trait {
	out := make([]Trait, len(canonicalTraits))
	copy(out, canonicalTraits)
	return out
}

// IsValid проверяет, что черта входит в словарь.
func (t Trait) IsValid() bool {
	for _, c := range canonicalTraits {
		if c == t {
			return true
		}
	}
	return false
}

// PrefersSimilarity возвращает true для черт, где близкие значения
// у ментора и менти лучше (learning_preference, work_style).
// Для остальных черт предпочтительна умеренная разница.
func (t Trait) PrefersSimilarity() bool {
	return t == TraitLearningPreference || t == TraitWorkStyle
}

// PersonalityTraits - отображение черты в значение по шкале 0–10.
type PersonalityTraits map[Trait]float64

// Validate проверяет имена черт и диапазон значений.
func (p PersonalityTraits) Validate() error {
	for trait, value := range p {
		if !trait.IsValid() {
			return shared.WrapError("profile", "ValidateTraits", shared.ErrInvalidInput, "unknown trait: "+string(trait), shared.ErrInvalidTrait)
		}
		if value < MinTraitValue || value > MaxTraitValue {
			return shared.WrapError("profile", "ValidateTraits", shared.ErrValueOutOfRange, "trait out of range: "+string(trait), shared.ErrTraitOutOfRange)
		}
	}
	return nil
}

// Clone возвращает независимую копию.
func (p PersonalityTraits) Clone() PersonalityTraits {
	if p == nil {
		return nil
	}
	out := make(PersonalityTraits, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// AVAILABILITY
// ══════════════════════════════════════════════════════════════════════════════

// ScheduleSlot - окно доступности ментора в течение недели.
type ScheduleSlot struct {
	Day       string // "monday" ... "sunday"
	StartTime string // "18:00"
	EndTime   string // "20:00"
}

// Availability описывает ёмкость ментора.
// Инвариант: 0 <= CurrentMentees <= MaxMentees.
type Availability struct {
	MaxMentees     int
	CurrentMentees int
	Schedule       []ScheduleSlot
	TimeZone       string
}

// DefaultMaxMentees - ёмкость ментора, если она не указана.
const DefaultMaxMentees = 3

// HasCapacity проверяет, может ли ментор взять ещё одного менти.
func (a Availability) HasCapacity() bool {
	return a.CurrentMentees < a.MaxMentees
}

// RemainingSlots возвращает количество свободных мест.
func (a Availability) RemainingSlots() int {
	if a.CurrentMentees >= a.MaxMentees {
		return 0
	}
	return a.MaxMentees - a.CurrentMentees
}

// CanAdjust проверяет, сохранится ли инвариант после изменения нагрузки на delta.
func (a Availability) CanAdjust(delta int) bool {
	next := a.CurrentMentees + delta
	return next >= 0 && next <= a.MaxMentees
}

// ══════════════════════════════════════════════════════════════════════════════
// TESTIMONIALS AND RATING
// ══════════════════════════════════════════════════════════════════════════════

// Testimonial - отзыв менти о менторе.
type Testimonial struct {
	MenteeID shared.UserID
	Content  string
	Rating   shared.Rating
	Date     time.Time
}

// RatingSummary - производный рейтинг, всегда вычисляется из отзывов.
type RatingSummary struct {
	Average float64
	Count   int
}

// ══════════════════════════════════════════════════════════════════════════════
// MENTOR PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// MentorProfile - профиль пользователя, предлагающего менторство.
type MentorProfile struct {
	UserID             shared.UserID
	IsActive           bool
	Specializations    []shared.FocusArea
	Industry           string
	RelatedIndustries  []string
	Skills             []string
	ExperienceYears    *int
	PersonalityTraits  PersonalityTraits
	CareerAchievements []string
	Availability       Availability
	Testimonials       []Testimonial
	Rating             RatingSummary
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Version - номер версии для оптимистичной блокировки. Нагрузка
	// (Availability.CurrentMentees) меняется отдельно и версию не двигает.
	Version int
}

// NewMentorProfileParams содержит параметры для создания профиля ментора.
type NewMentorProfileParams struct {
	UserID             shared.UserID
	Specializations    []shared.FocusArea
	Industry           string
	RelatedIndustries  []string
	Skills             []string
	ExperienceYears    *int
	PersonalityTraits  PersonalityTraits
	CareerAchievements []string
	MaxMentees         int
	Schedule           []ScheduleSlot
	TimeZone           string
	Now                time.Time
}

// NewMentorProfile создаёт активный профиль ментора с нулевой нагрузкой.
func NewMentorProfile(params NewMentorProfileParams) (*MentorProfile, error) {
	if !params.UserID.IsValid() {
		return nil, shared.NewDomainError("profile", "NewMentorProfile", shared.ErrInvalidID, "user ID is required")
	}
	if params.MaxMentees == 0 {
		params.MaxMentees = DefaultMaxMentees
	}
	if params.Now.IsZero() {
		params.Now = time.Now().UTC()
	}

	p := &MentorProfile{
		UserID:             params.UserID,
		IsActive:           true,
		Specializations:    params.Specializations,
		Industry:           strings.TrimSpace(params.Industry),
		RelatedIndustries:  params.RelatedIndustries,
		Skills:             params.Skills,
		ExperienceYears:    params.ExperienceYears,
		PersonalityTraits:  params.PersonalityTraits,
		CareerAchievements: params.CareerAchievements,
		Availability: Availability{
			MaxMentees: params.MaxMentees,
			Schedule:   params.Schedule,
			TimeZone:   params.TimeZone,
		},
		CreatedAt: params.Now,
		UpdatedAt: params.Now,
		Version:   1,
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Validate проверяет инварианты профиля ментора.
func (m *MentorProfile) Validate() error {
	if m.Availability.MaxMentees < 1 {
		return shared.NewDomainError("profile", "Validate", shared.ErrValueOutOfRange, "max mentees must be at least 1")
	}
	if m.Availability.CurrentMentees < 0 || m.Availability.CurrentMentees > m.Availability.MaxMentees {
		return shared.ErrMaxBelowCurrentLoad
	}
	if m.ExperienceYears != nil && *m.ExperienceYears < 0 {
		return shared.NewDomainError("profile", "Validate", shared.ErrValueOutOfRange, "experience years cannot be negative")
	}
	for _, f := range m.Specializations {
		if !f.IsValid() {
			return shared.ErrInvalidFocusArea
		}
	}
	return m.PersonalityTraits.Validate()
}

// HasSpecialization проверяет, указана ли область у ментора.
func (m *MentorProfile) HasSpecialization(area shared.FocusArea) bool {
	for _, s := range m.Specializations {
		if s == area {
			return true
		}
	}
	return false
}

// AddTestimonial добавляет отзыв и сразу пересчитывает рейтинг.
func (m *MentorProfile) AddTestimonial(t Testimonial) error {
	if t.MenteeID == m.UserID {
		return shared.ErrSelfTestimonial
	}
	if !t.Rating.IsValid() {
		return shared.ErrInvalidRating
	}
	if strings.TrimSpace(t.Content) == "" {
		return shared.NewDomainError("profile", "AddTestimonial", shared.ErrEmptyValue, "testimonial content is required")
	}
	if t.Date.IsZero() {
		t.Date = time.Now().UTC()
	}

	m.Testimonials = append(m.Testimonials, t)
	m.RecomputeRating()
	m.UpdatedAt = t.Date
	return nil
}

// RecomputeRating вычисляет рейтинг из списка отзывов.
// Должен вызываться после любого изменения Testimonials.
func (m *MentorProfile) RecomputeRating() {
	ratings := make([]shared.Rating, 0, len(m.Testimonials))
	for _, t := range m.Testimonials {
		ratings = append(ratings, t.Rating)
	}
	m.Rating = RatingSummary{
		Average: shared.AverageRating(ratings),
		Count:   len(ratings),
	}
}

// LatestTestimonials возвращает до n последних отзывов, новые первыми.
func (m *MentorProfile) LatestTestimonials(n int) []Testimonial {
	out := make([]Testimonial, len(m.Testimonials))
	copy(out, m.Testimonials)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.After(out[j].Date)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// ══════════════════════════════════════════════════════════════════════════════
// MENTEE PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// MenteeProfile - сторона «менти» при подборе ментора.
type MenteeProfile struct {
	UserID            shared.UserID
	Industry          string
	SkillsToImprove   []string
	CareerGoals       []string
	PersonalityTraits PersonalityTraits
	ExperienceYears   *int
	UpdatedAt         time.Time
}

// Validate проверяет инварианты профиля менти.
func (m *MenteeProfile) Validate() error {
	if !m.UserID.IsValid() {
		return shared.NewDomainError("profile", "ValidateMentee", shared.ErrInvalidID, "user ID is required")
	}
	if m.ExperienceYears != nil && *m.ExperienceYears < 0 {
		return shared.NewDomainError("profile", "ValidateMentee", shared.ErrValueOutOfRange, "experience years cannot be negative")
	}
	return m.PersonalityTraits.Validate()
}

// Years возвращает указатель на количество лет опыта.
// Отсутствие значения (nil) и ноль различаются при подсчёте совместимости.
func Years(n int) *int {
	return &n
}
