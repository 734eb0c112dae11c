// Package mentorship содержит агрегат «менторство»: запрос менти к ментору,
// его жизненный цикл, цели, встречи и итоговую обратную связь.
//
// Жизненный цикл:
//
//	(none) --request--> pending --accept--> active --complete--> completed
//	                       |  \--decline--> declined
//	                       \--cancel (менти)--> cancelled <--cancel-- active
package mentorship

import (
	"strings"
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// VALUE OBJECTS
// ══════════════════════════════════════════════════════════════════════════════

// ID - идентификатор менторства (UUID в строковом формате).
type ID string

// String возвращает строковое представление.
func (id ID) String() string {
	return string(id)
}

// IsValid проверяет, что ID непустой.
func (id ID) IsValid() bool {
	return strings.TrimSpace(string(id)) != ""
}

// ══════════════════════════════════════════════════════════════════════════════
// STATUS
// ══════════════════════════════════════════════════════════════════════════════

// Status - статус менторства.
type Status string

const (
	StatusPending   Status = "pending"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusDeclined  Status = "declined"
	StatusCancelled Status = "cancelled"
)

// IsValid проверяет корректность статуса.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusActive, StatusCompleted, StatusDeclined, StatusCancelled:
		return true
	}
	return false
}

// IsFinal возвращает true для терминальных статусов.
func (s Status) IsFinal() bool {
	return s == StatusCompleted || s == StatusDeclined || s == StatusCancelled
}

// IsOpen возвращает true для pending и active. Для пары ментор/менти
// допускается не более одного открытого менторства.
func (s Status) IsOpen() bool {
	return s == StatusPending || s == StatusActive
}

// OpenStatuses возвращает статусы, участвующие в ограничении уникальности.
func OpenStatuses() []Status {
	return []Status{StatusPending, StatusActive}
}

// ParseStatus разбирает статус из строки.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	if !st.IsValid() {
		return "", shared.NewDomainError("mentorship", "ParseStatus", shared.ErrInvalidInput, "unknown status: "+s)
	}
	return st, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GOALS, MEETINGS, FEEDBACK
// ══════════════════════════════════════════════════════════════════════════════

// Goal - цель менторства.
type Goal struct {
	Description string
	IsCompleted bool
	CompletedAt *time.Time
}

// MeetingStatus - статус встречи.
type MeetingStatus string

const (
	MeetingScheduled   MeetingStatus = "scheduled"
	MeetingCompleted   MeetingStatus = "completed"
	MeetingCancelled   MeetingStatus = "cancelled"
	MeetingRescheduled MeetingStatus = "rescheduled"
)

// IsValid проверяет корректность статуса встречи.
func (s MeetingStatus) IsValid() bool {
	switch s {
	case MeetingScheduled, MeetingCompleted, MeetingCancelled, MeetingRescheduled:
		return true
	}
	return false
}

// Meeting - встреча ментора и менти.
type Meeting struct {
	ScheduledFor time.Time
	Duration     time.Duration
	Status       MeetingStatus
	Notes        string
	MeetingLink  string
}

// Feedback - итоговая обратная связь. Поля Mentor* заполняет ментор,
// Mentee* - менти; каждая сторона пишет только свои поля.
type Feedback struct {
	MentorRating   *shared.Rating
	MenteeRating   *shared.Rating
	MentorFeedback string
	MenteeFeedback string
}

// FinalFeedback - то, что участник передаёт при завершении.
type FinalFeedback struct {
	Rating  *int
	Comment string
}

// IsEmpty возвращает true, если обратная связь не передана.
func (f FinalFeedback) IsEmpty() bool {
	return f.Rating == nil && strings.TrimSpace(f.Comment) == ""
}

// ══════════════════════════════════════════════════════════════════════════════
// MENTORSHIP AGGREGATE
// ══════════════════════════════════════════════════════════════════════════════

// DefaultPeriodMonths - срок менторства по умолчанию с момента принятия.
const DefaultPeriodMonths = 3

// Mentorship - отношение ментор/менти.
//
// CompatibilityScore вычисляется один раз при создании запроса и далее
// не меняется: хранилища не перезаписывают его при Save.
type Mentorship struct {
	ID                 ID
	MentorID           shared.UserID
	MenteeID           shared.UserID
	Status             Status
	CompatibilityScore int
	FocusAreas         []shared.FocusArea
	Goals              []Goal
	Meetings           []Meeting
	Feedback           *Feedback
	Message            string
	CancelReason       string
	StartDate          *time.Time
	EndDate            *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time

	// Version - номер версии для оптимистичной блокировки.
	Version int
}

// NewMentorshipParams содержит параметры для создания запроса.
type NewMentorshipParams struct {
	ID                 ID
	MentorID           shared.UserID
	MenteeID           shared.UserID
	CompatibilityScore int
	FocusAreas         []shared.FocusArea
	Goals              []string
	Message            string
	Now                time.Time
}

// NewMentorship создаёт запрос на менторство в статусе pending.
func NewMentorship(params NewMentorshipParams) (*Mentorship, error) {
	if params.MentorID == params.MenteeID {
		return nil, shared.ErrSelfMentorship
	}
	if !params.ID.IsValid() || !params.MentorID.IsValid() || !params.MenteeID.IsValid() {
		return nil, shared.NewDomainError("mentorship", "New", shared.ErrInvalidID, "mentorship, mentor and mentee IDs are required")
	}
	if params.CompatibilityScore < 0 || params.CompatibilityScore > 100 {
		return nil, shared.NewDomainError("mentorship", "New", shared.ErrValueOutOfRange, "compatibility score must be between 0 and 100")
	}
	for _, f := range params.FocusAreas {
		if !f.IsValid() {
			return nil, shared.ErrInvalidFocusArea
		}
	}
	if params.Now.IsZero() {
		params.Now = time.Now().UTC()
	}

	goals := make([]Goal, 0, len(params.Goals))
	for _, g := range params.Goals {
		g = strings.TrimSpace(g)
		if g == "" {
			continue
		}
		goals = append(goals, Goal{Description: g})
	}

	return &Mentorship{
		ID:                 params.ID,
		MentorID:           params.MentorID,
		MenteeID:           params.MenteeID,
		Status:             StatusPending,
		CompatibilityScore: params.CompatibilityScore,
		FocusAreas:         params.FocusAreas,
		Goals:              goals,
		Message:            strings.TrimSpace(params.Message),
		CreatedAt:          params.Now,
		UpdatedAt:          params.Now,
		Version:            1,
	}, nil
}

// IsMentor проверяет, является ли пользователь ментором.
func (m *Mentorship) IsMentor(userID shared.UserID) bool {
	return m.MentorID == userID
}

// IsMentee проверяет, является ли пользователь менти.
func (m *Mentorship) IsMentee(userID shared.UserID) bool {
	return m.MenteeID == userID
}

// IsParticipant проверяет, участвует ли пользователь в менторстве.
func (m *Mentorship) IsParticipant(userID shared.UserID) bool {
	return m.IsMentor(userID) || m.IsMentee(userID)
}

// ══════════════════════════════════════════════════════════════════════════════
// TRANSITIONS
// ══════════════════════════════════════════════════════════════════════════════

// Accept принимает запрос: pending -> active. Проверка ёмкости ментора
// выполняется отдельно и атомарно на уровне хранилища.
func (m *Mentorship) Accept(actor shared.UserID, now time.Time, periodMonths int) error {
	if !m.IsMentor(actor) {
		return shared.ErrNotMentor
	}
	if m.Status != StatusPending {
		return shared.ErrNotPending
	}
	if periodMonths <= 0 {
		periodMonths = DefaultPeriodMonths
	}

	start := now
	end := now.AddDate(0, periodMonths, 0)
	m.Status = StatusActive
	m.StartDate = &start
	m.EndDate = &end
	m.touch(now)
	return nil
}

// Decline отклоняет запрос: pending -> declined.
func (m *Mentorship) Decline(actor shared.UserID, now time.Time) error {
	if !m.IsMentor(actor) {
		return shared.ErrNotMentor
	}
	if m.Status != StatusPending {
		return shared.ErrNotPending
	}

	m.Status = StatusDeclined
	m.touch(now)
	return nil
}

// Complete завершает менторство: active -> completed. Обратная связь
// записывается в поля той стороны, которой является actor.
func (m *Mentorship) Complete(actor shared.UserID, fb FinalFeedback, now time.Time) error {
	if !m.IsParticipant(actor) {
		return shared.ErrNotParticipant
	}
	if m.Status != StatusActive {
		return shared.ErrNotActive
	}

	var rating *shared.Rating
	if fb.Rating != nil {
		r, err := shared.NewRating(*fb.Rating)
		if err != nil {
			return err
		}
		rating = &r
	}

	if !fb.IsEmpty() {
		if m.Feedback == nil {
			m.Feedback = &Feedback{}
		}
		comment := strings.TrimSpace(fb.Comment)
		if m.IsMentor(actor) {
			m.Feedback.MentorRating = rating
			m.Feedback.MentorFeedback = comment
		} else {
			m.Feedback.MenteeRating = rating
			m.Feedback.MenteeFeedback = comment
		}
	}

	end := now
	m.Status = StatusCompleted
	m.EndDate = &end
	m.touch(now)
	return nil
}

// Cancel отменяет менторство. Из active может отменить любой участник,
// из pending - только менти (ментор отклоняет запрос через Decline).
// Возвращает true, если освободилось место у ментора.
func (m *Mentorship) Cancel(actor shared.UserID, reason string, now time.Time) (releasedSlot bool, err error) {
	if !m.IsParticipant(actor) {
		return false, shared.ErrNotParticipant
	}

	switch m.Status {
	case StatusPending:
		if !m.IsMentee(actor) {
			return false, shared.NewDomainError("mentorship", "Cancel", shared.ErrInvalidOperation, "mentor should decline a pending request instead of cancelling it")
		}
	case StatusActive:
		releasedSlot = true
	default:
		return false, shared.ErrAlreadyFinal
	}

	end := now
	m.Status = StatusCancelled
	m.CancelReason = strings.TrimSpace(reason)
	m.EndDate = &end
	m.touch(now)
	return releasedSlot, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS WHILE ACTIVE
// ══════════════════════════════════════════════════════════════════════════════

// requireActiveParticipant проверяет права и статус для операций над прогрессом.
func (m *Mentorship) requireActiveParticipant(actor shared.UserID) error {
	if !m.IsParticipant(actor) {
		return shared.ErrNotParticipant
	}
	if m.Status != StatusActive {
		return shared.ErrNotActive
	}
	return nil
}

// AddGoal добавляет цель.
func (m *Mentorship) AddGoal(actor shared.UserID, description string, now time.Time) error {
	if err := m.requireActiveParticipant(actor); err != nil {
		return err
	}
	description = strings.TrimSpace(description)
	if description == "" {
		return shared.NewDomainError("mentorship", "AddGoal", shared.ErrEmptyValue, "goal description is required")
	}

	m.Goals = append(m.Goals, Goal{Description: description})
	m.touch(now)
	return nil
}

// CompleteGoal отмечает цель с индексом index выполненной.
// Повторное выполнение не меняет CompletedAt.
func (m *Mentorship) CompleteGoal(actor shared.UserID, index int, now time.Time) error {
	if err := m.requireActiveParticipant(actor); err != nil {
		return err
	}
	if index < 0 || index >= len(m.Goals) {
		return shared.ErrGoalNotFound
	}

	goal := &m.Goals[index]
	if goal.IsCompleted {
		return nil
	}
	done := now
	goal.IsCompleted = true
	goal.CompletedAt = &done
	m.touch(now)
	return nil
}

// ScheduleMeeting добавляет встречу в статусе scheduled.
func (m *Mentorship) ScheduleMeeting(actor shared.UserID, meeting Meeting, now time.Time) error {
	if err := m.requireActiveParticipant(actor); err != nil {
		return err
	}
	if meeting.ScheduledFor.IsZero() {
		return shared.NewDomainError("mentorship", "ScheduleMeeting", shared.ErrEmptyValue, "meeting time is required")
	}
	if meeting.Duration <= 0 {
		return shared.NewDomainError("mentorship", "ScheduleMeeting", shared.ErrValueOutOfRange, "meeting duration must be positive")
	}

	meeting.Status = MeetingScheduled
	m.Meetings = append(m.Meetings, meeting)
	m.touch(now)
	return nil
}

// UpdateMeeting меняет статус и заметки встречи.
func (m *Mentorship) UpdateMeeting(actor shared.UserID, index int, status MeetingStatus, notes *string, now time.Time) error {
	if err := m.requireActiveParticipant(actor); err != nil {
		return err
	}
	if index < 0 || index >= len(m.Meetings) {
		return shared.ErrMeetingNotFound
	}
	if status != "" && !status.IsValid() {
		return shared.NewDomainError("mentorship", "UpdateMeeting", shared.ErrInvalidInput, "unknown meeting status: "+string(status))
	}

	meeting := &m.Meetings[index]
	if status != "" {
		meeting.Status = status
	}
	if notes != nil {
		meeting.Notes = strings.TrimSpace(*notes)
	}
	m.touch(now)
	return nil
}

// CompletedGoals возвращает количество выполненных целей.
func (m *Mentorship) CompletedGoals() int {
	n := 0
	for _, g := range m.Goals {
		if g.IsCompleted {
			n++
		}
	}
	return n
}

func (m *Mentorship) touch(now time.Time) {
	m.UpdatedAt = now
}
