// Package events provides the in-process event bus used between modules.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Event is implemented by every domain event.
type Event interface {
	// EventName identifies the event type, e.g. "reports.report.submitted".
	EventName() string
	OccurredAt() time.Time
	// EventID is unique per published event and appears in handler logs.
	EventID() uuid.UUID
}

// BaseEvent is embedded by domain events.
type BaseEvent struct {
	ID        uuid.UUID `json:"eventId"`
	Timestamp time.Time `json:"timestamp"`
}

func (e BaseEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseEvent) EventID() uuid.UUID    { return e.ID }

// NewBaseEvent stamps a new event with an id and the current UTC time.
func NewBaseEvent() BaseEvent {
	return BaseEvent{ID: uuid.New(), Timestamp: time.Now().UTC()}
}

// Handler processes one event.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Bus publishes events to the handlers subscribed to their name.
type Bus interface {
	// Publish dispatches asynchronously. Handlers outlive the publishing
	// request's context.
	Publish(ctx context.Context, event Event)

	// PublishSync runs every handler and returns their joined errors.
	PublishSync(ctx context.Context, event Event) error

	Subscribe(eventName string, handler Handler)
}
