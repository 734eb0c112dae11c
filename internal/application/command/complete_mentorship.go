package command

import (
	"context"
	"fmt"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE / CANCEL MENTORSHIP COMMANDS
// Both end a mentorship. Leaving the active state gives the mentor's slot
// back; the record is saved first and the counter decremented after.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteMentorshipCommand ends an active mentorship with optional feedback.
type CompleteMentorshipCommand struct {
	MentorshipID string
	CallerID     string

	// Rating 1-5, optional.
	Rating *int

	// Comment is stored on the caller's side of the feedback.
	Comment string

	CorrelationID string
}

// CompleteMentorshipHandler handles CompleteMentorshipCommand.
type CompleteMentorshipHandler struct {
	profiles       profile.Repository
	mentorships    mentorship.Repository
	eventPublisher shared.EventPublisher
	now            Clock
}

// NewCompleteMentorshipHandler creates a new CompleteMentorshipHandler.
func NewCompleteMentorshipHandler(
	profiles profile.Repository,
	mentorships mentorship.Repository,
	eventPublisher shared.EventPublisher,
	now Clock,
) *CompleteMentorshipHandler {
	if now == nil {
		now = SystemClock
	}
	return &CompleteMentorshipHandler{
		profiles:       profiles,
		mentorships:    mentorships,
		eventPublisher: eventPublisher,
		now:            now,
	}
}

// Handle executes the completion.
func (h *CompleteMentorshipHandler) Handle(ctx context.Context, cmd CompleteMentorshipCommand) (*mentorship.Mentorship, error) {
	caller := shared.UserID(cmd.CallerID)
	feedback := mentorship.FinalFeedback{Rating: cmd.Rating, Comment: cmd.Comment}

	m, err := mutateMentorship(ctx, h.mentorships, mentorship.ID(cmd.MentorshipID), func(m *mentorship.Mentorship) error {
		return m.Complete(caller, feedback, h.now())
	})
	if err != nil {
		return nil, mapLookup("complete_mentorship", "save", err)
	}

	releaseMentorSlot(ctx, h.profiles, m, "complete_mentorship")

	publish(ctx, h.eventPublisher, cmd.CorrelationID,
		transitionEvent(shared.EventMentorshipCompleted, m, caller, mentorship.StatusActive))
	return m, nil
}

// CancelMentorshipCommand cancels a pending or active mentorship.
type CancelMentorshipCommand struct {
	MentorshipID  string
	CallerID      string
	Reason        string
	CorrelationID string
}

// CancelMentorshipHandler handles CancelMentorshipCommand.
type CancelMentorshipHandler struct {
	profiles       profile.Repository
	mentorships    mentorship.Repository
	eventPublisher shared.EventPublisher
	now            Clock
}

// NewCancelMentorshipHandler creates a new CancelMentorshipHandler.
func NewCancelMentorshipHandler(
	profiles profile.Repository,
	mentorships mentorship.Repository,
	eventPublisher shared.EventPublisher,
	now Clock,
) *CancelMentorshipHandler {
	if now == nil {
		now = SystemClock
	}
	return &CancelMentorshipHandler{
		profiles:       profiles,
		mentorships:    mentorships,
		eventPublisher: eventPublisher,
		now:            now,
	}
}

// Handle executes the cancellation.
func (h *CancelMentorshipHandler) Handle(ctx context.Context, cmd CancelMentorshipCommand) (*mentorship.Mentorship, error) {
	caller := shared.UserID(cmd.CallerID)

	var (
		from     mentorship.Status
		released bool
	)
	m, err := mutateMentorship(ctx, h.mentorships, mentorship.ID(cmd.MentorshipID), func(m *mentorship.Mentorship) error {
		from = m.Status
		var err error
		released, err = m.Cancel(caller, cmd.Reason, h.now())
		return err
	})
	if err != nil {
		return nil, mapLookup("cancel_mentorship", "save", err)
	}

	if released {
		releaseMentorSlot(ctx, h.profiles, m, "cancel_mentorship")
	}

	event := transitionEvent(shared.EventMentorshipCancelled, m, caller, from)
	event.Reason = m.CancelReason
	publish(ctx, h.eventPublisher, cmd.CorrelationID, event)
	return m, nil
}

// releaseMentorSlot decrements the mentor's load after the record left the
// active state. Failures are logged and left to reconciliation.
func releaseMentorSlot(ctx context.Context, profiles profile.Repository, m *mentorship.Mentorship, op string) {
	if _, err := profiles.AdjustMentorLoad(context.WithoutCancel(ctx), m.MentorID, -1); err != nil {
		logger.FromContext(ctx).Error("failed to release mentor slot",
			logger.Operation(op),
			logger.MentorshipID(m.ID.String()),
			logger.MentorID(m.MentorID.String()),
			logger.Err(fmt.Errorf("%s: release slot: %w", op, err)),
		)
	}
}
