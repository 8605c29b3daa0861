// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"qapp_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Auth Domain Events
// =============================================================================

// UserSynced is published after an authenticated user was upserted.
type UserSynced struct {
	BaseEvent
	UserID  uuid.UUID `json:"userId"`
	Email   string    `json:"email"`
	Created bool      `json:"created"`
}

func (e UserSynced) EventName() string { return "auth.user.synced" }

// =============================================================================
// Question Domain Events
// =============================================================================

// QuestionCreated is published when a question record was stored.
type QuestionCreated struct {
	BaseEvent
	QuestionID uuid.UUID `json:"questionId"`
	AuthorID   uuid.UUID `json:"authorId"`
	CourseCode string    `json:"courseCode"`
	ImageCount int       `json:"imageCount"`
}

func (e QuestionCreated) EventName() string { return "questions.question.created" }

// QuestionDeleted is published after a question row was removed.
// ImageKeys are the object keys that no longer have a referencing row.
type QuestionDeleted struct {
	BaseEvent
	QuestionID uuid.UUID `json:"questionId"`
	AuthorID   uuid.UUID `json:"authorId"`
	ImageKeys  []string  `json:"imageKeys"`
}

func (e QuestionDeleted) EventName() string { return "questions.question.deleted" }

// =============================================================================
// Report Domain Events
// =============================================================================

// ReportSubmitted is published when a user reports a question.
type ReportSubmitted struct {
	BaseEvent
	ReportID      uuid.UUID `json:"reportId"`
	QuestionID    uuid.UUID `json:"questionId"`
	QuestionTitle string    `json:"questionTitle"`
	ReporterID    uuid.UUID `json:"reporterId"`
	Reason        string    `json:"reason"`
}

func (e ReportSubmitted) EventName() string { return "reports.report.submitted" }
