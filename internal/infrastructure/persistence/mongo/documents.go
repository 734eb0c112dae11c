package mongo

import (
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

type scheduleSlotDoc struct {
	Day       string `bson:"day"`
	StartTime string `bson:"startTime"`
	EndTime   string `bson:"endTime"`
}

type availabilityDoc struct {
	MaxMentees     int               `bson:"maxMentees"`
	CurrentMentees int               `bson:"currentMentees"`
	Schedule       []scheduleSlotDoc `bson:"schedule"`
	TimeZone       string            `bson:"timeZone"`
}

type testimonialDoc struct {
	MenteeID string    `bson:"menteeId"`
	Content  string    `bson:"content"`
	Rating   int       `bson:"rating"`
	Date     time.Time `bson:"date"`
}

type ratingDoc struct {
	Average float64 `bson:"average"`
	Count   int     `bson:"count"`
}

type mentorDoc struct {
	UserID             string             `bson:"_id"`
	IsActive           bool               `bson:"isActive"`
	Specializations    []string           `bson:"specializations"`
	Industry           string             `bson:"industry"`
	RelatedIndustries  []string           `bson:"relatedIndustries"`
	Skills             []string           `bson:"skills"`
	ExperienceYears    *int               `bson:"experienceYears,omitempty"`
	PersonalityTraits  map[string]float64 `bson:"personalityTraits"`
	CareerAchievements []string           `bson:"careerAchievements"`
	Availability       availabilityDoc    `bson:"availability"`
	Testimonials       []testimonialDoc   `bson:"testimonials"`
	Rating             ratingDoc          `bson:"rating"`
	CreatedAt          time.Time          `bson:"createdAt"`
	UpdatedAt          time.Time          `bson:"updatedAt"`
	Version            int                `bson:"version"`
}

type menteeDoc struct {
	UserID            string             `bson:"_id"`
	Industry          string             `bson:"industry"`
	SkillsToImprove   []string           `bson:"skillsToImprove"`
	CareerGoals       []string           `bson:"careerGoals"`
	PersonalityTraits map[string]float64 `bson:"personalityTraits"`
	ExperienceYears   *int               `bson:"experienceYears,omitempty"`
	UpdatedAt         time.Time          `bson:"updatedAt"`
}

type goalDoc struct {
	Description string     `bson:"description"`
	IsCompleted bool       `bson:"isCompleted"`
	CompletedAt *time.Time `bson:"completedAt,omitempty"`
}

type meetingDoc struct {
	ScheduledFor    time.Time `bson:"scheduledFor"`
	DurationMinutes int       `bson:"durationMinutes"`
	Status          string    `bson:"status"`
	Notes           string    `bson:"notes,omitempty"`
	MeetingLink     string    `bson:"meetingLink,omitempty"`
}

type feedbackDoc struct {
	MentorRating   *int   `bson:"mentorRating,omitempty"`
	MenteeRating   *int   `bson:"menteeRating,omitempty"`
	MentorFeedback string `bson:"mentorFeedback,omitempty"`
	MenteeFeedback string `bson:"menteeFeedback,omitempty"`
}

// mentorshipDoc carries a derived "open" flag so a partial unique index can
// cover pending and active records.
type mentorshipDoc struct {
	ID                 string       `bson:"_id"`
	MentorID           string       `bson:"mentorId"`
	MenteeID           string       `bson:"menteeId"`
	Status             string       `bson:"status"`
	Open               bool         `bson:"open"`
	CompatibilityScore int          `bson:"compatibilityScore"`
	FocusAreas         []string     `bson:"focusAreas"`
	Goals              []goalDoc    `bson:"goals"`
	Meetings           []meetingDoc `bson:"meetings"`
	Feedback           *feedbackDoc `bson:"feedback,omitempty"`
	Message            string       `bson:"message"`
	CancelReason       string       `bson:"cancelReason,omitempty"`
	StartDate          *time.Time   `bson:"startDate,omitempty"`
	EndDate            *time.Time   `bson:"endDate,omitempty"`
	CreatedAt          time.Time    `bson:"createdAt"`
	UpdatedAt          time.Time    `bson:"updatedAt"`
	Version            int          `bson:"version"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Profile conversion
// ─────────────────────────────────────────────────────────────────────────────

func toMentorDoc(p *profile.MentorProfile) mentorDoc {
	d := mentorDoc{
		UserID:             string(p.UserID),
		IsActive:           p.IsActive,
		Specializations:    make([]string, len(p.Specializations)),
		Industry:           p.Industry,
		RelatedIndustries:  nonNil(p.RelatedIndustries),
		Skills:             nonNil(p.Skills),
		ExperienceYears:    p.ExperienceYears,
		PersonalityTraits:  traitsToDoc(p.PersonalityTraits),
		CareerAchievements: nonNil(p.CareerAchievements),
		Availability: availabilityDoc{
			MaxMentees:     p.Availability.MaxMentees,
			CurrentMentees: p.Availability.CurrentMentees,
			Schedule:       make([]scheduleSlotDoc, len(p.Availability.Schedule)),
			TimeZone:       p.Availability.TimeZone,
		},
		Testimonials: make([]testimonialDoc, len(p.Testimonials)),
		Rating:       ratingDoc{Average: p.Rating.Average, Count: p.Rating.Count},
		CreatedAt:    p.CreatedAt,
		UpdatedAt:    p.UpdatedAt,
		Version:      p.Version,
	}
	for i, s := range p.Specializations {
		d.Specializations[i] = string(s)
	}
	for i, s := range p.Availability.Schedule {
		d.Availability.Schedule[i] = scheduleSlotDoc{Day: s.Day, StartTime: s.StartTime, EndTime: s.EndTime}
	}
	for i, t := range p.Testimonials {
		d.Testimonials[i] = testimonialDoc{MenteeID: string(t.MenteeID), Content: t.Content, Rating: int(t.Rating), Date: t.Date}
	}
	return d
}

func (d mentorDoc) toDomain() *profile.MentorProfile {
	p := &profile.MentorProfile{
		UserID:             shared.UserID(d.UserID),
		IsActive:           d.IsActive,
		Industry:           d.Industry,
		RelatedIndustries:  nilIfEmpty(d.RelatedIndustries),
		Skills:             nilIfEmpty(d.Skills),
		ExperienceYears:    d.ExperienceYears,
		PersonalityTraits:  traitsFromDoc(d.PersonalityTraits),
		CareerAchievements: nilIfEmpty(d.CareerAchievements),
		Availability:       d.Availability.toDomain(),
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
		Version:            d.Version,
	}
	for _, s := range d.Specializations {
		p.Specializations = append(p.Specializations, shared.FocusArea(s))
	}
	for _, t := range d.Testimonials {
		p.Testimonials = append(p.Testimonials, profile.Testimonial{
			MenteeID: shared.UserID(t.MenteeID),
			Content:  t.Content,
			Rating:   shared.Rating(t.Rating),
			Date:     t.Date.UTC(),
		})
	}
	p.RecomputeRating()
	return p
}

func (d availabilityDoc) toDomain() profile.Availability {
	a := profile.Availability{
		MaxMentees:     d.MaxMentees,
		CurrentMentees: d.CurrentMentees,
		TimeZone:       d.TimeZone,
	}
	for _, s := range d.Schedule {
		a.Schedule = append(a.Schedule, profile.ScheduleSlot{Day: s.Day, StartTime: s.StartTime, EndTime: s.EndTime})
	}
	return a
}

func toMenteeDoc(p *profile.MenteeProfile) menteeDoc {
	return menteeDoc{
		UserID:            string(p.UserID),
		Industry:          p.Industry,
		SkillsToImprove:   nonNil(p.SkillsToImprove),
		CareerGoals:       nonNil(p.CareerGoals),
		PersonalityTraits: traitsToDoc(p.PersonalityTraits),
		ExperienceYears:   p.ExperienceYears,
		UpdatedAt:         p.UpdatedAt,
	}
}

func (d menteeDoc) toDomain() *profile.MenteeProfile {
	return &profile.MenteeProfile{
		UserID:            shared.UserID(d.UserID),
		Industry:          d.Industry,
		SkillsToImprove:   nilIfEmpty(d.SkillsToImprove),
		CareerGoals:       nilIfEmpty(d.CareerGoals),
		PersonalityTraits: traitsFromDoc(d.PersonalityTraits),
		ExperienceYears:   d.ExperienceYears,
		UpdatedAt:         d.UpdatedAt.UTC(),
	}
}

func traitsToDoc(t profile.PersonalityTraits) map[string]float64 {
	out := make(map[string]float64, len(t))
	for k, v := range t {
		out[string(k)] = v
	}
	return out
}

func traitsFromDoc(m map[string]float64) profile.PersonalityTraits {
	if len(m) == 0 {
		return nil
	}
	out := make(profile.PersonalityTraits, len(m))
	for k, v := range m {
		out[profile.Trait(k)] = v
	}
	return out
}

// ─────────────────────────────────────────────────────────────────────────────
// Mentorship conversion
// ─────────────────────────────────────────────────────────────────────────────

func toMentorshipDoc(m *mentorship.Mentorship) mentorshipDoc {
	d := mentorshipDoc{
		ID:                 string(m.ID),
		MentorID:           string(m.MentorID),
		MenteeID:           string(m.MenteeID),
		Status:             string(m.Status),
		Open:               m.Status.IsOpen(),
		CompatibilityScore: m.CompatibilityScore,
		FocusAreas:         make([]string, len(m.FocusAreas)),
		Goals:              make([]goalDoc, len(m.Goals)),
		Meetings:           make([]meetingDoc, len(m.Meetings)),
		Message:            m.Message,
		CancelReason:       m.CancelReason,
		StartDate:          m.StartDate,
		EndDate:            m.EndDate,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
		Version:            m.Version,
	}
	for i, f := range m.FocusAreas {
		d.FocusAreas[i] = string(f)
	}
	for i, g := range m.Goals {
		d.Goals[i] = goalDoc{Description: g.Description, IsCompleted: g.IsCompleted, CompletedAt: g.CompletedAt}
	}
	for i, mt := range m.Meetings {
		d.Meetings[i] = meetingDoc{
			ScheduledFor:    mt.ScheduledFor,
			DurationMinutes: int(mt.Duration / time.Minute),
			Status:          string(mt.Status),
			Notes:           mt.Notes,
			MeetingLink:     mt.MeetingLink,
		}
	}
	if fb := m.Feedback; fb != nil {
		d.Feedback = &feedbackDoc{
			MentorRating:   ratingToInt(fb.MentorRating),
			MenteeRating:   ratingToInt(fb.MenteeRating),
			MentorFeedback: fb.MentorFeedback,
			MenteeFeedback: fb.MenteeFeedback,
		}
	}
	return d
}

func (d mentorshipDoc) toDomain() *mentorship.Mentorship {
	m := &mentorship.Mentorship{
		ID:                 mentorship.ID(d.ID),
		MentorID:           shared.UserID(d.MentorID),
		MenteeID:           shared.UserID(d.MenteeID),
		Status:             mentorship.Status(d.Status),
		CompatibilityScore: d.CompatibilityScore,
		Goals:              make([]mentorship.Goal, 0, len(d.Goals)),
		Message:            d.Message,
		CancelReason:       d.CancelReason,
		StartDate:          utcPtr(d.StartDate),
		EndDate:            utcPtr(d.EndDate),
		CreatedAt:          d.CreatedAt.UTC(),
		UpdatedAt:          d.UpdatedAt.UTC(),
		Version:            d.Version,
	}
	for _, f := range d.FocusAreas {
		m.FocusAreas = append(m.FocusAreas, shared.FocusArea(f))
	}
	for _, g := range d.Goals {
		m.Goals = append(m.Goals, mentorship.Goal{Description: g.Description, IsCompleted: g.IsCompleted, CompletedAt: utcPtr(g.CompletedAt)})
	}
	for _, mt := range d.Meetings {
		m.Meetings = append(m.Meetings, mentorship.Meeting{
			ScheduledFor: mt.ScheduledFor.UTC(),
			Duration:     time.Duration(mt.DurationMinutes) * time.Minute,
			Status:       mentorship.MeetingStatus(mt.Status),
			Notes:        mt.Notes,
			MeetingLink:  mt.MeetingLink,
		})
	}
	if fb := d.Feedback; fb != nil {
		m.Feedback = &mentorship.Feedback{
			MentorRating:   intToRating(fb.MentorRating),
			MenteeRating:   intToRating(fb.MenteeRating),
			MentorFeedback: fb.MentorFeedback,
			MenteeFeedback: fb.MenteeFeedback,
		}
	}
	return m
}

func ratingToInt(r *shared.Rating) *int {
	if r == nil {
		return nil
	}
	v := int(*r)
	return &v
}

func intToRating(v *int) *shared.Rating {
	if v == nil {
		return nil
	}
	r := shared.Rating(*v)
	return &r
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
