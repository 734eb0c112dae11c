package profile

import (
	"strings"
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// MentorProfileUpdate - явный список полей профиля ментора, доступных для
// изменения владельцем. Nil означает «не менять».
//
// Нагрузка (CurrentMentees), рейтинг и отзывы сюда не входят: нагрузка
// меняется только атомарно через Repository.AdjustMentorLoad, рейтинг
// только через AddTestimonial.
type MentorProfileUpdate struct {
	IsActive           *bool
	Specializations    *[]shared.FocusArea
	Industry           *string
	RelatedIndustries  *[]string
	Skills             *[]string
	ExperienceYears    *int
	PersonalityTraits  *PersonalityTraits
	CareerAchievements *[]string
	MaxMentees         *int
	Schedule           *[]ScheduleSlot
	TimeZone           *string
}

// IsEmpty возвращает true, если ни одно поле не задано.
func (u MentorProfileUpdate) IsEmpty() bool {
	return len(u.Fields()) == 0
}

// Fields возвращает имена заданных полей (для событий и логов).
func (u MentorProfileUpdate) Fields() []string {
	var fields []string
	if u.IsActive != nil {
		fields = append(fields, "isActive")
	}
	if u.Specializations != nil {
		fields = append(fields, "specializations")
	}
	if u.Industry != nil {
		fields = append(fields, "industry")
	}
	if u.RelatedIndustries != nil {
		fields = append(fields, "relatedIndustries")
	}
	if u.Skills != nil {
		fields = append(fields, "skills")
	}
	if u.ExperienceYears != nil {
		fields = append(fields, "experienceYears")
	}
	if u.PersonalityTraits != nil {
		fields = append(fields, "personalityTraits")
	}
	if u.CareerAchievements != nil {
		fields = append(fields, "careerAchievements")
	}
	if u.MaxMentees != nil {
		fields = append(fields, "maxMentees")
	}
	if u.Schedule != nil {
		fields = append(fields, "schedule")
	}
	if u.TimeZone != nil {
		fields = append(fields, "timeZone")
	}
	return fields
}

// Apply применяет изменения к профилю и проверяет инварианты.
// При ошибке профиль остаётся без изменений.
func (u MentorProfileUpdate) Apply(p *MentorProfile, now time.Time) error {
	next := *p

	if u.IsActive != nil {
		next.IsActive = *u.IsActive
	}
	if u.Specializations != nil {
		next.Specializations = *u.Specializations
	}
	if u.Industry != nil {
		next.Industry = strings.TrimSpace(*u.Industry)
	}
	if u.RelatedIndustries != nil {
		next.RelatedIndustries = *u.RelatedIndustries
	}
	if u.Skills != nil {
		next.Skills = *u.Skills
	}
	if u.ExperienceYears != nil {
		years := *u.ExperienceYears
		next.ExperienceYears = &years
	}
	if u.PersonalityTraits != nil {
		next.PersonalityTraits = u.PersonalityTraits.Clone()
	}
	if u.CareerAchievements != nil {
		next.CareerAchievements = *u.CareerAchievements
	}
	if u.MaxMentees != nil {
		next.Availability.MaxMentees = *u.MaxMentees
	}
	if u.Schedule != nil {
		next.Availability.Schedule = *u.Schedule
	}
	if u.TimeZone != nil {
		next.Availability.TimeZone = *u.TimeZone
	}

	if err := next.Validate(); err != nil {
		return err
	}

	next.UpdatedAt = now
	*p = next
	return nil
}
