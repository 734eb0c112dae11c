package command

import (
	"context"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// AddTestimonialCommand contains a mentee's testimonial about a mentor.
type AddTestimonialCommand struct {
	MentorID string
	CallerID string
	Content  string
	Rating   int
}

// AddTestimonialHandler handles AddTestimonialCommand.
type AddTestimonialHandler struct {
	profiles       profile.Repository
	mentorships    mentorship.Repository
	eventPublisher shared.EventPublisher
	now            Clock
}

// NewAddTestimonialHandler creates a new AddTestimonialHandler.
func NewAddTestimonialHandler(
	profiles profile.Repository,
	mentorships mentorship.Repository,
	eventPublisher shared.EventPublisher,
	now Clock,
) *AddTestimonialHandler {
	if now == nil {
		now = SystemClock
	}
	return &AddTestimonialHandler{
		profiles:       profiles,
		mentorships:    mentorships,
		eventPublisher: eventPublisher,
		now:            now,
	}
}

// Handle adds the testimonial and recomputes the mentor's rating.
// Only a mentee with an active or completed mentorship may write one.
// A concurrent write to the profile reloads it and appends again.
func (h *AddTestimonialHandler) Handle(ctx context.Context, cmd AddTestimonialCommand) (*profile.MentorProfile, error) {
	mentorID := shared.UserID(cmd.MentorID)
	caller := shared.UserID(cmd.CallerID)

	if mentorID == caller {
		return nil, shared.ErrSelfTestimonial
	}
	rating, err := shared.NewRating(cmd.Rating)
	if err != nil {
		return nil, err
	}

	testimonial := profile.Testimonial{
		MenteeID: caller,
		Content:  cmd.Content,
		Rating:   rating,
		Date:     h.now(),
	}

	p, err := mutateMentorProfile(ctx, h.profiles, mentorID, func(ctx context.Context, p *profile.MentorProfile) error {
		eligible, err := h.mentorships.ExistsBetween(ctx, mentorID, caller,
			mentorship.StatusActive, mentorship.StatusCompleted)
		if err != nil {
			return mapLookup("add_testimonial", "check mentorship", err)
		}
		if !eligible {
			return shared.ErrTestimonialForbidden
		}
		return p.AddTestimonial(testimonial)
	})
	if err != nil {
		return nil, mapLookup("add_testimonial", "save", err)
	}

	publish(ctx, h.eventPublisher, "", shared.NewTestimonialAddedEvent(
		mentorID.String(), caller.String(), rating.Int(), p.Rating.Average, p.Rating.Count))
	return p, nil
}
