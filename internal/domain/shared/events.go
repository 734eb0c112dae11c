// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages.
package shared

import (
	"encoding/json"
	"time"
)

// EventType represents the type of domain event.
type EventType string

// Domain event types - these drive the event-driven architecture.
// Each event represents something significant that happened in the domain.
const (
	// Mentorship lifecycle events
	EventMentorshipRequested EventType = "mentorship.requested"
	EventMentorshipAccepted  EventType = "mentorship.accepted"
	EventMentorshipDeclined  EventType = "mentorship.declined"
	EventMentorshipCompleted EventType = "mentorship.completed"
	EventMentorshipCancelled EventType = "mentorship.cancelled"

	// Profile events
	EventMentorProfileUpdated EventType = "profile.mentor_updated"
	EventMenteeProfileUpdated EventType = "profile.mentee_updated"
	EventTestimonialAdded     EventType = "profile.testimonial_added"

	// System events
	EventMentorLoadReconciled EventType = "system.mentor_load_reconciled"
)

// Event is the base interface for all domain events.
type Event interface {
	// EventType returns the type of the event.
	EventType() EventType

	// OccurredAt returns when the event occurred.
	OccurredAt() time.Time

	// AggregateID returns the ID of the aggregate that produced this event.
	AggregateID() string

	// Payload returns the event data as a map for serialization.
	Payload() map[string]interface{}
}

// BaseEvent provides common event functionality.
type BaseEvent struct {
	Type          EventType `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	AggregateId   string    `json:"aggregate_id"`
	Version       int       `json:"version"`
	CorrelationID string    `json:"correlation_id,omitempty"`
}

// EventType implements Event interface.
func (e BaseEvent) EventType() EventType {
	return e.Type
}

// OccurredAt implements Event interface.
func (e BaseEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// AggregateID implements Event interface.
func (e BaseEvent) AggregateID() string {
	return e.AggregateId
}

// NewBaseEvent creates a new base event.
func NewBaseEvent(eventType EventType, aggregateID string) BaseEvent {
	return BaseEvent{
		Type:        eventType,
		Timestamp:   time.Now(),
		AggregateId: aggregateID,
		Version:     1,
	}
}

// Base returns the common header. Every event embedding BaseEvent gets it.
func (e BaseEvent) Base() BaseEvent {
	return e
}

// WithCorrelationID sets the correlation ID for tracing.
func (e BaseEvent) WithCorrelationID(id string) BaseEvent {
	e.CorrelationID = id
	return e
}

// ═══════════════════════════════════════════════════════════════════════════
// Mentorship Events
// ═══════════════════════════════════════════════════════════════════════════

// MentorshipRequestedEvent is emitted when a mentee files a new request.
type MentorshipRequestedEvent struct {
	BaseEvent
	MentorID           string   `json:"mentor_id"`
	MenteeID           string   `json:"mentee_id"`
	CompatibilityScore int      `json:"compatibility_score"`
	FocusAreas         []string `json:"focus_areas"`
}

// Payload implements Event interface.
func (e MentorshipRequestedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"mentor_id":           e.MentorID,
		"mentee_id":           e.MenteeID,
		"compatibility_score": e.CompatibilityScore,
		"focus_areas":         e.FocusAreas,
	}
}

// NewMentorshipRequestedEvent creates a new MentorshipRequestedEvent.
func NewMentorshipRequestedEvent(mentorshipID, mentorID, menteeID string, score int, focusAreas []string) MentorshipRequestedEvent {
	return MentorshipRequestedEvent{
		BaseEvent:          NewBaseEvent(EventMentorshipRequested, mentorshipID),
		MentorID:           mentorID,
		MenteeID:           menteeID,
		CompatibilityScore: score,
		FocusAreas:         focusAreas,
	}
}

// MentorshipTransitionEvent is emitted for accept, decline, complete and
// cancel. ActorID is the participant who triggered the transition.
type MentorshipTransitionEvent struct {
	BaseEvent
	MentorID   string `json:"mentor_id"`
	MenteeID   string `json:"mentee_id"`
	ActorID    string `json:"actor_id"`
	FromStatus string `json:"from_status"`
	ToStatus   string `json:"to_status"`
	Reason     string `json:"reason,omitempty"`
}

// Payload implements Event interface.
func (e MentorshipTransitionEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"mentor_id":   e.MentorID,
		"mentee_id":   e.MenteeID,
		"actor_id":    e.ActorID,
		"from_status": e.FromStatus,
		"to_status":   e.ToStatus,
		"reason":      e.Reason,
	}
}

// ReleasesMentorSlot reports whether the transition freed one of the mentor's slots.
func (e MentorshipTransitionEvent) ReleasesMentorSlot() bool {
	return e.FromStatus == "active"
}

// NewMentorshipTransitionEvent creates a new MentorshipTransitionEvent.
func NewMentorshipTransitionEvent(eventType EventType, mentorshipID, mentorID, menteeID, actorID, from, to string) MentorshipTransitionEvent {
	return MentorshipTransitionEvent{
		BaseEvent:  NewBaseEvent(eventType, mentorshipID),
		MentorID:   mentorID,
		MenteeID:   menteeID,
		ActorID:    actorID,
		FromStatus: from,
		ToStatus:   to,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Profile Events
// ═══════════════════════════════════════════════════════════════════════════

// ProfileUpdatedEvent is emitted when a mentor or mentee profile changes.
type ProfileUpdatedEvent struct {
	BaseEvent
	UserID string   `json:"user_id"`
	Fields []string `json:"fields,omitempty"`
}

// Payload implements Event interface.
func (e ProfileUpdatedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"user_id": e.UserID,
		"fields":  e.Fields,
	}
}

// NewMentorProfileUpdatedEvent creates a ProfileUpdatedEvent for the mentor side.
func NewMentorProfileUpdatedEvent(userID string, fields []string) ProfileUpdatedEvent {
	return ProfileUpdatedEvent{
		BaseEvent: NewBaseEvent(EventMentorProfileUpdated, userID),
		UserID:    userID,
		Fields:    fields,
	}
}

// NewMenteeProfileUpdatedEvent creates a ProfileUpdatedEvent for the mentee side.
func NewMenteeProfileUpdatedEvent(userID string) ProfileUpdatedEvent {
	return ProfileUpdatedEvent{
		BaseEvent: NewBaseEvent(EventMenteeProfileUpdated, userID),
		UserID:    userID,
	}
}

// TestimonialAddedEvent is emitted when a mentee leaves a testimonial.
type TestimonialAddedEvent struct {
	BaseEvent
	MentorID      string  `json:"mentor_id"`
	MenteeID      string  `json:"mentee_id"`
	Rating        int     `json:"rating"`
	RatingAverage float64 `json:"rating_average"`
	RatingCount   int     `json:"rating_count"`
}

// Payload implements Event interface.
func (e TestimonialAddedEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"mentor_id":      e.MentorID,
		"mentee_id":      e.MenteeID,
		"rating":         e.Rating,
		"rating_average": e.RatingAverage,
		"rating_count":   e.RatingCount,
	}
}

// NewTestimonialAddedEvent creates a new TestimonialAddedEvent.
func NewTestimonialAddedEvent(mentorID, menteeID string, rating int, average float64, count int) TestimonialAddedEvent {
	return TestimonialAddedEvent{
		BaseEvent:     NewBaseEvent(EventTestimonialAdded, mentorID),
		MentorID:      mentorID,
		MenteeID:      menteeID,
		Rating:        rating,
		RatingAverage: average,
		RatingCount:   count,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// System Events
// ═══════════════════════════════════════════════════════════════════════════

// MentorLoadReconciledEvent is emitted when a mentor's load counter was repaired.
type MentorLoadReconciledEvent struct {
	BaseEvent
	MentorID string `json:"mentor_id"`
	Previous int    `json:"previous"`
	Current  int    `json:"current"`
}

// Payload implements Event interface.
func (e MentorLoadReconciledEvent) Payload() map[string]interface{} {
	return map[string]interface{}{
		"mentor_id": e.MentorID,
		"previous":  e.Previous,
		"current":   e.Current,
	}
}

// NewMentorLoadReconciledEvent creates a new MentorLoadReconciledEvent.
func NewMentorLoadReconciledEvent(mentorID string, previous, current int) MentorLoadReconciledEvent {
	return MentorLoadReconciledEvent{
		BaseEvent: NewBaseEvent(EventMentorLoadReconciled, mentorID),
		MentorID:  mentorID,
		Previous:  previous,
		Current:   current,
	}
}

// ═══════════════════════════════════════════════════════════════════════════
// Event Envelope (for serialization and transport)
// ═══════════════════════════════════════════════════════════════════════════

// EventEnvelope wraps an event for transport/storage.
type EventEnvelope struct {
	ID            string          `json:"id"`
	Source        string          `json:"source,omitempty"`
	Type          EventType       `json:"type"`
	AggregateID   string          `json:"aggregate_id"`
	Timestamp     time.Time       `json:"timestamp"`
	Version       int             `json:"version"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// EventHandler is a function that handles an event.
type EventHandler func(event Event) error

// EventPublisher defines the interface for publishing events.
type EventPublisher interface {
	// Publish sends an event to subscribers.
	Publish(event Event) error
}

// EventSubscriber defines the interface for subscribing to events.
type EventSubscriber interface {
	// Subscribe registers a handler for an event type.
	Subscribe(eventType EventType, handler EventHandler) error

	// SubscribeAll registers a handler for all events.
	SubscribeAll(handler EventHandler) error
}

// EventBus combines publishing and subscribing.
type EventBus interface {
	EventPublisher
	EventSubscriber
}

// NoopPublisher discards all events.
type NoopPublisher struct{}

// Publish implements EventPublisher.
func (NoopPublisher) Publish(Event) error { return nil }
