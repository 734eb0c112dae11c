package command

import (
	"context"
	"time"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// PROGRESS COMMANDS
// Goals and meetings of an active mentorship. Either participant may write.
// ══════════════════════════════════════════════════════════════════════════════

// AddGoalCommand appends a goal.
type AddGoalCommand struct {
	MentorshipID string
	CallerID     string
	Description  string
}

// CompleteGoalCommand marks the goal at GoalIndex done.
type CompleteGoalCommand struct {
	MentorshipID string
	CallerID     string
	GoalIndex    int
}

// ScheduleMeetingCommand appends a scheduled meeting.
type ScheduleMeetingCommand struct {
	MentorshipID string
	CallerID     string
	ScheduledFor time.Time
	Duration     time.Duration
	MeetingLink  string
}

// UpdateMeetingCommand changes the status and/or notes of a meeting.
type UpdateMeetingCommand struct {
	MentorshipID string
	CallerID     string
	MeetingIndex int

	// Status is optional; empty keeps the current one.
	Status string

	// Notes is optional; nil keeps the current notes.
	Notes *string
}

// ProgressHandler handles goal and meeting commands.
type ProgressHandler struct {
	mentorships mentorship.Repository
	now         Clock
}

// NewProgressHandler creates a new ProgressHandler.
func NewProgressHandler(mentorships mentorship.Repository, now Clock) *ProgressHandler {
	if now == nil {
		now = SystemClock
	}
	return &ProgressHandler{mentorships: mentorships, now: now}
}

// AddGoal handles AddGoalCommand.
func (h *ProgressHandler) AddGoal(ctx context.Context, cmd AddGoalCommand) (*mentorship.Mentorship, error) {
	return h.mutate(ctx, "add_goal", cmd.MentorshipID, func(m *mentorship.Mentorship) error {
		return m.AddGoal(shared.UserID(cmd.CallerID), cmd.Description, h.now())
	})
}

// CompleteGoal handles CompleteGoalCommand.
func (h *ProgressHandler) CompleteGoal(ctx context.Context, cmd CompleteGoalCommand) (*mentorship.Mentorship, error) {
	return h.mutate(ctx, "complete_goal", cmd.MentorshipID, func(m *mentorship.Mentorship) error {
		return m.CompleteGoal(shared.UserID(cmd.CallerID), cmd.GoalIndex, h.now())
	})
}

// ScheduleMeeting handles ScheduleMeetingCommand.
func (h *ProgressHandler) ScheduleMeeting(ctx context.Context, cmd ScheduleMeetingCommand) (*mentorship.Mentorship, error) {
	meeting := mentorship.Meeting{
		ScheduledFor: cmd.ScheduledFor.UTC(),
		Duration:     cmd.Duration,
		MeetingLink:  cmd.MeetingLink,
	}
	return h.mutate(ctx, "schedule_meeting", cmd.MentorshipID, func(m *mentorship.Mentorship) error {
		return m.ScheduleMeeting(shared.UserID(cmd.CallerID), meeting, h.now())
	})
}

// UpdateMeeting handles UpdateMeetingCommand.
func (h *ProgressHandler) UpdateMeeting(ctx context.Context, cmd UpdateMeetingCommand) (*mentorship.Mentorship, error) {
	status := mentorship.MeetingStatus(cmd.Status)
	return h.mutate(ctx, "update_meeting", cmd.MentorshipID, func(m *mentorship.Mentorship) error {
		return m.UpdateMeeting(shared.UserID(cmd.CallerID), cmd.MeetingIndex, status, cmd.Notes, h.now())
	})
}

func (h *ProgressHandler) mutate(ctx context.Context, op, id string, fn func(m *mentorship.Mentorship) error) (*mentorship.Mentorship, error) {
	m, err := mutateMentorship(ctx, h.mentorships, mentorship.ID(id), fn)
	if err != nil {
		return nil, mapLookup(op, "save", err)
	}
	return m, nil
}
