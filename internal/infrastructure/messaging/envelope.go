package messaging

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/mentorlink/mentorship-core/internal/domain/shared"
)

// decoders rebuilds concrete event structs from envelope payloads. An event
// type missing here cannot cross instances.
var decoders = map[shared.EventType]func(json.RawMessage) (shared.Event, error){
	shared.EventMentorshipRequested:  decodeAs[shared.MentorshipRequestedEvent],
	shared.EventMentorshipAccepted:   decodeAs[shared.MentorshipTransitionEvent],
	shared.EventMentorshipDeclined:   decodeAs[shared.MentorshipTransitionEvent],
	shared.EventMentorshipCompleted:  decodeAs[shared.MentorshipTransitionEvent],
	shared.EventMentorshipCancelled:  decodeAs[shared.MentorshipTransitionEvent],
	shared.EventMentorProfileUpdated: decodeAs[shared.ProfileUpdatedEvent],
	shared.EventMenteeProfileUpdated: decodeAs[shared.ProfileUpdatedEvent],
	shared.EventTestimonialAdded:     decodeAs[shared.TestimonialAddedEvent],
	shared.EventMentorLoadReconciled: decodeAs[shared.MentorLoadReconciledEvent],
}

func decodeAs[T shared.Event](payload json.RawMessage) (shared.Event, error) {
	var event T
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, err
	}
	return event, nil
}

// NewEnvelope wraps event for transport. Payload is the JSON of the concrete
// struct, header fields are copied out for routing and tracing.
func NewEnvelope(source string, event shared.Event) (shared.EventEnvelope, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return shared.EventEnvelope{}, fmt.Errorf("marshal event %s: %w", event.EventType(), err)
	}

	env := shared.EventEnvelope{
		ID:          uuid.NewString(),
		Source:      source,
		Type:        event.EventType(),
		AggregateID: event.AggregateID(),
		Timestamp:   event.OccurredAt(),
		Version:     1,
		Payload:     payload,
	}
	if h, ok := event.(interface{ Base() shared.BaseEvent }); ok {
		base := h.Base()
		env.Version = base.Version
		env.CorrelationID = base.CorrelationID
	}
	return env, nil
}

// DecodeEvent returns the concrete event inside env.
func DecodeEvent(env shared.EventEnvelope) (shared.Event, error) {
	decode, ok := decoders[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrEventNotSupported, env.Type)
	}
	event, err := decode(env.Payload)
	if err != nil {
		return nil, fmt.Errorf("unmarshal %s: %w", env.Type, err)
	}
	return event, nil
}
