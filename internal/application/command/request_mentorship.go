package command

import (
	"context"
	"errors"
	"fmt"

	"github.com/mentorlink/mentorship-core/internal/domain/matching"
	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST MENTORSHIP COMMAND
// A mentee asks a mentor for mentorship. The compatibility score is computed
// once here and stored on the record; later profile edits do not change it.
// ══════════════════════════════════════════════════════════════════════════════

// RequestMentorshipCommand contains the data to request a mentorship.
type RequestMentorshipCommand struct {
	// MenteeID is the authenticated caller.
	MenteeID string

	// MentorID is the mentor being asked.
	MentorID string

	// FocusAreas are raw focus-area tags; validated against the vocabulary.
	FocusAreas []string

	// Goals are plain descriptions, mapped to not-completed goals.
	Goals []string

	// Message is an optional note to the mentor.
	Message string

	// CorrelationID for tracing.
	CorrelationID string
}

// Validate validates the command.
func (c RequestMentorshipCommand) Validate() error {
	if !shared.UserID(c.MenteeID).IsValid() {
		return shared.NewDomainError("mentorship", "Request", shared.ErrInvalidID, "mentee_id is required")
	}
	if !shared.UserID(c.MentorID).IsValid() {
		return shared.NewDomainError("mentorship", "Request", shared.ErrInvalidID, "mentor_id is required")
	}
	return nil
}

// RequestMentorshipResult contains the created mentorship.
type RequestMentorshipResult struct {
	Mentorship *mentorship.Mentorship

	// Breakdown explains the stored compatibility score.
	Breakdown matching.Breakdown
}

// RequestMentorshipHandler handles RequestMentorshipCommand.
type RequestMentorshipHandler struct {
	profiles       profile.Repository
	mentorships    mentorship.Repository
	eventPublisher shared.EventPublisher
	newID          IDGenerator
	now            Clock
}

// NewRequestMentorshipHandler creates a new RequestMentorshipHandler.
// Nil newID and now fall back to UUIDGenerator and SystemClock.
func NewRequestMentorshipHandler(
	profiles profile.Repository,
	mentorships mentorship.Repository,
	eventPublisher shared.EventPublisher,
	newID IDGenerator,
	now Clock,
) *RequestMentorshipHandler {
	if newID == nil {
		newID = UUIDGenerator
	}
	if now == nil {
		now = SystemClock
	}
	return &RequestMentorshipHandler{
		profiles:       profiles,
		mentorships:    mentorships,
		eventPublisher: eventPublisher,
		newID:          newID,
		now:            now,
	}
}

// Handle executes the request.
//
// Checks run in this order: self request, focus areas, existing open
// mentorship for the pair, both profiles present, mentor active.
func (h *RequestMentorshipHandler) Handle(ctx context.Context, cmd RequestMentorshipCommand) (*RequestMentorshipResult, error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	mentorID := shared.UserID(cmd.MentorID)
	menteeID := shared.UserID(cmd.MenteeID)

	if mentorID == menteeID {
		return nil, shared.ErrSelfMentorship
	}

	focusAreas, err := shared.ParseFocusAreas(cmd.FocusAreas)
	if err != nil {
		return nil, err
	}

	existing, err := h.mentorships.FindOpenByPair(ctx, mentorID, menteeID)
	switch {
	case err == nil:
		if existing.Status == mentorship.StatusActive {
			return nil, shared.ErrActiveMentorship
		}
		return nil, shared.ErrPendingRequest
	case !shared.IsNotFound(err):
		return nil, fmt.Errorf("request_mentorship: check existing: %w", err)
	}

	mentor, err := h.profiles.FindMentor(ctx, mentorID)
	if err != nil {
		return nil, mapLookup("request_mentorship", "find mentor", err)
	}
	mentee, err := h.profiles.FindMentee(ctx, menteeID)
	if err != nil {
		return nil, mapLookup("request_mentorship", "find mentee", err)
	}
	if !mentor.IsActive {
		return nil, shared.ErrMentorNotAccepting
	}

	breakdown := matching.Explain(mentor, mentee)

	m, err := mentorship.NewMentorship(mentorship.NewMentorshipParams{
		ID:                 h.newID(),
		MentorID:           mentorID,
		MenteeID:           menteeID,
		CompatibilityScore: breakdown.Score,
		FocusAreas:         focusAreas,
		Goals:              cmd.Goals,
		Message:            cmd.Message,
		Now:                h.now(),
	})
	if err != nil {
		return nil, err
	}

	if err := h.mentorships.Create(ctx, m); err != nil {
		if errors.Is(err, shared.ErrConflict) {
			// lost a race with a concurrent request for the same pair
			return nil, shared.ErrPendingRequest
		}
		return nil, fmt.Errorf("request_mentorship: create: %w", err)
	}

	logger.FromContext(ctx).Info("mentorship requested",
		logger.MentorshipID(m.ID.String()),
		logger.MentorID(mentorID.String()),
		logger.MenteeID(menteeID.String()),
		logger.Score(m.CompatibilityScore),
	)

	areas := make([]string, len(focusAreas))
	for i, f := range focusAreas {
		areas[i] = f.String()
	}
	publish(ctx, h.eventPublisher, cmd.CorrelationID,
		shared.NewMentorshipRequestedEvent(m.ID.String(), mentorID.String(), menteeID.String(), m.CompatibilityScore, areas),
	)

	return &RequestMentorshipResult{Mentorship: m, Breakdown: breakdown}, nil
}

// mapLookup passes business errors through and wraps infrastructure failures.
func mapLookup(op, step string, err error) error {
	if shared.IsBusinessRule(err) {
		return err
	}
	return fmt.Errorf("%s: %s: %w", op, step, err)
}
