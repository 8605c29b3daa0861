// Package notification reacts to domain events with side effects: moderator
// e-mails and storage cleanup.
// Domain modules publish events and never talk to mail providers or the
// object store directly.
package notification

import (
	"context"
	"errors"
	"fmt"

	"qapp_backend/internal/email"
	"qapp_backend/internal/events"
	"qapp_backend/internal/scheduler"
	"qapp_backend/platform/config"
	"qapp_backend/platform/logger"

	"github.com/google/uuid"
)

// ObjectDiscarder deletes stored objects, queued or inline.
type ObjectDiscarder interface {
	DiscardObjects(ctx context.Context, owner uuid.UUID, keys []string, reason string) error
}

// Module subscribes to domain events.
type Module struct {
	sender  email.Sender
	cfg     config.NotificationConfig
	objects ObjectDiscarder
	log     *logger.Logger
}

// New creates a new notification module. objects may be nil when no object
// store is configured.
func New(sender email.Sender, cfg config.NotificationConfig, objects ObjectDiscarder, log *logger.Logger) *Module {
	return &Module{sender: sender, cfg: cfg, objects: objects, log: log}
}

// RegisterHandlers subscribes the module to the events it handles.
func (m *Module) RegisterHandlers(bus events.Bus) {
	bus.Subscribe(events.ReportSubmitted{}.EventName(), m)
	bus.Subscribe(events.QuestionDeleted{}.EventName(), m)
	bus.Subscribe(events.UserSynced{}.EventName(), m)
}

// Handle routes events to their handlers.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ReportSubmitted:
		return m.handleReportSubmitted(ctx, e)
	case events.QuestionDeleted:
		return m.handleQuestionDeleted(ctx, e)
	case events.UserSynced:
		if e.Created {
			m.log.Info("new user joined", "userId", e.UserID)
		}
		return nil
	default:
		m.log.Warn("unhandled event", "event", event.EventName())
		return nil
	}
}

func (m *Module) handleReportSubmitted(ctx context.Context, e events.ReportSubmitted) error {
	moderators := m.cfg.GetModeratorEmails()
	if len(moderators) == 0 {
		m.log.Debug("no moderators configured, skipping report email", "reportId", e.ReportID)
		return nil
	}

	reviewURL := fmt.Sprintf("%s/questions/%s", m.cfg.GetAppBaseURL(), e.QuestionID)

	var errs []error
	for _, to := range moderators {
		if err := m.sender.SendReportSubmittedEmail(ctx, to, e.QuestionTitle, e.Reason, reviewURL); err != nil {
			m.log.Error("failed to send report email", "to", to, "reportId", e.ReportID, "error", err)
			errs = append(errs, err)
			continue
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("report email: %w", errors.Join(errs...))
	}

	m.log.Info("report email sent", "reportId", e.ReportID, "moderators", len(moderators))
	return nil
}

func (m *Module) handleQuestionDeleted(ctx context.Context, e events.QuestionDeleted) error {
	if m.objects == nil || len(e.ImageKeys) == 0 {
		return nil
	}

	if err := m.objects.DiscardObjects(ctx, e.AuthorID, e.ImageKeys, scheduler.ReasonQuestionDeleted); err != nil {
		m.log.Error("failed to discard question images", "questionId", e.QuestionID, "error", err)
		return err
	}

	m.log.Info("question images scheduled for deletion", "questionId", e.QuestionID, "count", len(e.ImageKeys))
	return nil
}

var _ events.Handler = (*Module)(nil)
