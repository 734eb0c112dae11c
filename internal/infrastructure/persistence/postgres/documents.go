package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// JSONB DOCUMENTS
// Nested value objects are stored as JSONB columns with stable field names.
// ══════════════════════════════════════════════════════════════════════════════

type scheduleSlotDoc struct {
	Day       string `json:"day"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type testimonialDoc struct {
	MenteeID string    `json:"mentee_id"`
	Content  string    `json:"content"`
	Rating   int       `json:"rating"`
	Date     time.Time `json:"date"`
}

type goalDoc struct {
	Description string     `json:"description"`
	IsCompleted bool       `json:"is_completed"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type meetingDoc struct {
	ScheduledFor    time.Time `json:"scheduled_for"`
	DurationMinutes int       `json:"duration_minutes"`
	Status          string    `json:"status"`
	Notes           string    `json:"notes,omitempty"`
	MeetingLink     string    `json:"meeting_link,omitempty"`
}

type feedbackDoc struct {
	MentorRating   *int   `json:"mentor_rating,omitempty"`
	MenteeRating   *int   `json:"mentee_rating,omitempty"`
	MentorFeedback string `json:"mentor_feedback,omitempty"`
	MenteeFeedback string `json:"mentee_feedback,omitempty"`
}

func marshalTraits(t profile.PersonalityTraits) ([]byte, error) {
	if t == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(t)
}

func unmarshalTraits(raw []byte) (profile.PersonalityTraits, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var t profile.PersonalityTraits
	if err := json.Unmarshal(raw, &t); err != nil {
		return nil, fmt.Errorf("decode personality traits: %w", err)
	}
	if len(t) == 0 {
		return nil, nil
	}
	return t, nil
}

func marshalSchedule(slots []profile.ScheduleSlot) ([]byte, error) {
	docs := make([]scheduleSlotDoc, len(slots))
	for i, s := range slots {
		docs[i] = scheduleSlotDoc{Day: s.Day, StartTime: s.StartTime, EndTime: s.EndTime}
	}
	return json.Marshal(docs)
}

func unmarshalSchedule(raw []byte) ([]profile.ScheduleSlot, error) {
	var docs []scheduleSlotDoc
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("decode schedule: %w", err)
		}
	}
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]profile.ScheduleSlot, len(docs))
	for i, d := range docs {
		out[i] = profile.ScheduleSlot{Day: d.Day, StartTime: d.StartTime, EndTime: d.EndTime}
	}
	return out, nil
}

func marshalTestimonials(ts []profile.Testimonial) ([]byte, error) {
	docs := make([]testimonialDoc, len(ts))
	for i, t := range ts {
		docs[i] = testimonialDoc{MenteeID: string(t.MenteeID), Content: t.Content, Rating: int(t.Rating), Date: t.Date}
	}
	return json.Marshal(docs)
}

func unmarshalTestimonials(raw []byte) ([]profile.Testimonial, error) {
	var docs []testimonialDoc
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("decode testimonials: %w", err)
		}
	}
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]profile.Testimonial, len(docs))
	for i, d := range docs {
		out[i] = profile.Testimonial{
			MenteeID: shared.UserID(d.MenteeID),
			Content:  d.Content,
			Rating:   shared.Rating(d.Rating),
			Date:     d.Date,
		}
	}
	return out, nil
}

func marshalGoals(goals []mentorship.Goal) ([]byte, error) {
	docs := make([]goalDoc, len(goals))
	for i, g := range goals {
		docs[i] = goalDoc{Description: g.Description, IsCompleted: g.IsCompleted, CompletedAt: g.CompletedAt}
	}
	return json.Marshal(docs)
}

func unmarshalGoals(raw []byte) ([]mentorship.Goal, error) {
	var docs []goalDoc
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("decode goals: %w", err)
		}
	}
	out := make([]mentorship.Goal, len(docs))
	for i, d := range docs {
		out[i] = mentorship.Goal{Description: d.Description, IsCompleted: d.IsCompleted, CompletedAt: d.CompletedAt}
	}
	return out, nil
}

func marshalMeetings(meetings []mentorship.Meeting) ([]byte, error) {
	docs := make([]meetingDoc, len(meetings))
	for i, m := range meetings {
		docs[i] = meetingDoc{
			ScheduledFor:    m.ScheduledFor,
			DurationMinutes: int(m.Duration / time.Minute),
			Status:          string(m.Status),
			Notes:           m.Notes,
			MeetingLink:     m.MeetingLink,
		}
	}
	return json.Marshal(docs)
}

func unmarshalMeetings(raw []byte) ([]mentorship.Meeting, error) {
	var docs []meetingDoc
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &docs); err != nil {
			return nil, fmt.Errorf("decode meetings: %w", err)
		}
	}
	if len(docs) == 0 {
		return nil, nil
	}
	out := make([]mentorship.Meeting, len(docs))
	for i, d := range docs {
		out[i] = mentorship.Meeting{
			ScheduledFor: d.ScheduledFor,
			Duration:     time.Duration(d.DurationMinutes) * time.Minute,
			Status:       mentorship.MeetingStatus(d.Status),
			Notes:        d.Notes,
			MeetingLink:  d.MeetingLink,
		}
	}
	return out, nil
}

// marshalFeedback returns nil for SQL NULL when there is no feedback yet.
func marshalFeedback(fb *mentorship.Feedback) ([]byte, error) {
	if fb == nil {
		return nil, nil
	}
	return json.Marshal(feedbackDoc{
		MentorRating:   ratingToInt(fb.MentorRating),
		MenteeRating:   ratingToInt(fb.MenteeRating),
		MentorFeedback: fb.MentorFeedback,
		MenteeFeedback: fb.MenteeFeedback,
	})
}

func unmarshalFeedback(raw []byte) (*mentorship.Feedback, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var d feedbackDoc
	if err := json.Unmarshal(raw, &d); err != nil {
		return nil, fmt.Errorf("decode feedback: %w", err)
	}
	return &mentorship.Feedback{
		MentorRating:   intToRating(d.MentorRating),
		MenteeRating:   intToRating(d.MenteeRating),
		MentorFeedback: d.MentorFeedback,
		MenteeFeedback: d.MenteeFeedback,
	}, nil
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

// textArray keeps NOT NULL TEXT[] columns from receiving NULL for nil slices.
func textArray(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func focusAreasToText(areas []shared.FocusArea) []string {
	out := make([]string, len(areas))
	for i, a := range areas {
		out[i] = string(a)
	}
	return out
}

func textToFocusAreas(s []string) []shared.FocusArea {
	if len(s) == 0 {
		return nil
	}
	out := make([]shared.FocusArea, len(s))
	for i, v := range s {
		out[i] = shared.FocusArea(v)
	}
	return out
}

func nilIfEmpty(s []string) []string {
	if len(s) == 0 {
		return nil
	}
	return s
}
