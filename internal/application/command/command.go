// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mentorlink/mentorship-core/internal/domain/mentorship"
	"github.com/mentorlink/mentorship-core/internal/domain/profile"
	"github.com/mentorlink/mentorship-core/internal/domain/shared"
	"github.com/mentorlink/mentorship-core/pkg/logger"
	"github.com/mentorlink/mentorship-core/pkg/retry"
)

// Clock returns the current time. Handlers take it as a dependency so
// tests can pin "now".
type Clock func() time.Time

// SystemClock returns the current UTC time.
func SystemClock() time.Time {
	return time.Now().UTC()
}

// IDGenerator returns a new mentorship id.
type IDGenerator func() mentorship.ID

// UUIDGenerator returns a random UUIDv4 id.
func UUIDGenerator() mentorship.ID {
	return mentorship.ID(uuid.NewString())
}

// publish sends events after the state is persisted. A failing publisher
// never fails the command: the event is logged and dropped.
func publish(ctx context.Context, publisher shared.EventPublisher, correlationID string, events ...shared.Event) {
	if publisher == nil {
		return
	}
	for _, e := range events {
		e = withCorrelation(e, correlationID)
		if err := publisher.Publish(e); err != nil {
			logger.FromContext(ctx).Warn("event publish failed",
				logger.String("event_type", string(e.EventType())),
				logger.String("aggregate_id", e.AggregateID()),
				logger.Err(err),
			)
		}
	}
}

func withCorrelation(e shared.Event, id string) shared.Event {
	if id == "" {
		return e
	}
	switch ev := e.(type) {
	case shared.MentorshipRequestedEvent:
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(id)
		return ev
	case shared.MentorshipTransitionEvent:
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(id)
		return ev
	case shared.ProfileUpdatedEvent:
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(id)
		return ev
	case shared.TestimonialAddedEvent:
		ev.BaseEvent = ev.BaseEvent.WithCorrelationID(id)
		return ev
	}
	return e
}

// mutateMentorship loads the mentorship, applies fn and saves it. A lost
// version check reloads and re-applies fn, so fn must be a pure function
// of the loaded record.
func mutateMentorship(
	ctx context.Context,
	repo mentorship.Repository,
	id mentorship.ID,
	fn func(m *mentorship.Mentorship) error,
) (*mentorship.Mentorship, error) {
	var saved *mentorship.Mentorship

	err := retry.ConflictRetrier(shared.IsConcurrentModification).Do(ctx, func(ctx context.Context) error {
		m, err := repo.FindByID(ctx, id)
		if err != nil {
			return retry.Permanent(err)
		}
		if err := fn(m); err != nil {
			return retry.Permanent(err)
		}
		if err := repo.Save(ctx, m); err != nil {
			return err
		}
		saved = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// mutateMentorProfile is mutateMentorship for mentor profiles. fn also gets
// ctx since it may need to consult other repositories on every attempt.
func mutateMentorProfile(
	ctx context.Context,
	repo profile.Repository,
	id shared.UserID,
	fn func(ctx context.Context, p *profile.MentorProfile) error,
) (*profile.MentorProfile, error) {
	var saved *profile.MentorProfile

	err := retry.ConflictRetrier(shared.IsConcurrentModification).Do(ctx, func(ctx context.Context) error {
		p, err := repo.FindMentor(ctx, id)
		if err != nil {
			return retry.Permanent(err)
		}
		if err := fn(ctx, p); err != nil {
			return retry.Permanent(err)
		}
		if err := repo.SaveMentor(ctx, p); err != nil {
			return err
		}
		saved = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return saved, nil
}

// transitionEvent builds the event for a status change of m.
func transitionEvent(eventType shared.EventType, m *mentorship.Mentorship, actor shared.UserID, from mentorship.Status) shared.MentorshipTransitionEvent {
	return shared.NewMentorshipTransitionEvent(
		eventType,
		m.ID.String(),
		m.MentorID.String(),
		m.MenteeID.String(),
		actor.String(),
		string(from),
		string(m.Status),
	)
}
