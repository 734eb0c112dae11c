package command

import (
	"context"
	"strings"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPOND TO REQUEST COMMAND
// The mentor accepts or declines a pending request. Accepting takes one of
// the mentor's slots through an atomic conditional increment; the slot is
// given back if the mentorship cannot be saved afterwards.
// ══════════════════════════════════════════════════════════════════════════════

// ResponseAction is the mentor's answer to a request.
type ResponseAction string

const (
	ActionAccept  ResponseAction = "accept"
	ActionDecline ResponseAction = "decline"
)

// ParseResponseAction parses accept/decline; "reject" is an alias of decline.
func ParseResponseAction(s string) (ResponseAction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "accept":
		return ActionAccept, nil
	case "decline", "reject":
		return ActionDecline, nil
	}
	return "", shared.ErrInvalidAction
}

// RespondToRequestCommand contains the mentor's response.
type RespondToRequestCommand struct {
	MentorshipID  string
	CallerID      string
	Action        string
	CorrelationID string
}

// RespondToRequestHandler handles RespondToRequestCommand.
type RespondToRequestHandler struct {
	profiles       profile.Repository
	mentorships    mentorship.Repository
	eventPublisher shared.EventPublisher
	periodMonths   int
	now            Clock
}

// NewRespondToRequestHandler creates a new RespondToRequestHandler.
// periodMonths is the planned duration set on accept.
func NewRespondToRequestHandler(
	profiles profile.Repository,
	mentorships mentorship.Repository,
	eventPublisher shared.EventPublisher,
	periodMonths int,
	now Clock,
) *RespondToRequestHandler {
	if periodMonths <= 0 {
		periodMonths = mentorship.DefaultPeriodMonths
	}
	if now == nil {
		now = SystemClock
	}
	return &RespondToRequestHandler{
		profiles:       profiles,
		mentorships:    mentorships,
		eventPublisher: eventPublisher,
		periodMonths:   periodMonths,
		now:            now,
	}
}

// Handle executes the response.
func (h *RespondToRequestHandler) Handle(ctx context.Context, cmd RespondToRequestCommand) (*mentorship.Mentorship, error) {
	action, err := ParseResponseAction(cmd.Action)
	if err != nil {
		return nil, err
	}

	m, err := h.mentorships.FindByID(ctx, mentorship.ID(cmd.MentorshipID))
	if err != nil {
		return nil, mapLookup("respond_to_request", "find mentorship", err)
	}

	caller := shared.UserID(cmd.CallerID)
	from := m.Status
	now := h.now()

	if action == ActionDecline {
		if err := m.Decline(caller, now); err != nil {
			return nil, err
		}
		if err := h.mentorships.Save(ctx, m); err != nil {
			return nil, mapLookup("respond_to_request", "save", err)
		}
		publish(ctx, h.eventPublisher, cmd.CorrelationID,
			transitionEvent(shared.EventMentorshipDeclined, m, caller, from))
		return m, nil
	}

	if err := m.Accept(caller, now, h.periodMonths); err != nil {
		return nil, err
	}

	if _, err := h.profiles.AdjustMentorLoad(ctx, m.MentorID, +1); err != nil {
		return nil, mapLookup("respond_to_request", "reserve slot", err)
	}

	if err := h.mentorships.Save(ctx, m); err != nil {
		releaseMentorSlot(ctx, h.profiles, m, "respond_to_request")
		return nil, mapLookup("respond_to_request", "save", err)
	}

	logger.FromContext(ctx).Info("mentorship accepted",
		logger.MentorshipID(m.ID.String()),
		logger.MentorID(m.MentorID.String()),
		logger.MenteeID(m.MenteeID.String()),
	)

	publish(ctx, h.eventPublisher, cmd.CorrelationID,
		transitionEvent(shared.EventMentorshipAccepted, m, caller, from))
	return m, nil
}
