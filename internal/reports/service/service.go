// Package service implements question reports and the moderation queue.
package service

import (
	"context"

	"qapp_backend/internal/events"
	"qapp_backend/internal/reports/repository"
	"qapp_backend/internal/reports/transport"
	"qapp_backend/platform/apperr"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50
)

// QuestionLookup resolves the title of a question; it returns an
// apperr.NotFound when the question does not exist.
type QuestionLookup interface {
	QuestionTitle(ctx context.Context, id uuid.UUID) (string, error)
}

// Service provides business logic for reports.
type Service struct {
	repo      repository.Repository
	questions QuestionLookup
	eventBus  events.Bus
	log       *logger.Logger
}

// New creates a new reports service.
func New(repo repository.Repository, questions QuestionLookup, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{repo: repo, questions: questions, eventBus: eventBus, log: log}
}

// Submit files a report against a question.
func (s *Service) Submit(ctx context.Context, reporterID, questionID uuid.UUID, req transport.CreateReportRequest) (transport.ReportResponse, error) {
	if _, err := s.questions.QuestionTitle(ctx, questionID); err != nil {
		return transport.ReportResponse{}, err
	}

	reason := sanitize.Text(req.Reason)
	if len([]rune(reason)) < 5 {
		return transport.ReportResponse{}, apperr.Validation("reason must be at least 5 characters")
	}

	rep, err := s.repo.Create(ctx, repository.CreateParams{
		QuestionID: questionID,
		ReporterID: reporterID,
		Reason:     reason,
	})
	if err != nil {
		return transport.ReportResponse{}, err
	}

	s.log.Info("question reported", "reportId", rep.ID, "questionId", questionID)
	s.eventBus.Publish(ctx, events.ReportSubmitted{
		BaseEvent:     events.NewBaseEvent(),
		ReportID:      rep.ID,
		QuestionID:    rep.QuestionID,
		QuestionTitle: rep.QuestionTitle,
		ReporterID:    reporterID,
		Reason:        rep.Reason,
	})

	return toResponse(rep), nil
}

// List returns the moderation queue.
func (s *Service) List(ctx context.Context, req transport.ListReportsRequest) (transport.ReportListResponse, error) {
	page, limit := normalizePage(req.Page, req.Limit)

	params := repository.ListParams{Offset: (page - 1) * limit, Limit: limit}
	if req.Status != "" {
		status := req.Status
		params.Status = &status
	}

	reports, total, err := s.repo.List(ctx, params)
	if err != nil {
		return transport.ReportListResponse{}, err
	}

	data := make([]transport.ReportResponse, 0, len(reports))
	for _, rep := range reports {
		data = append(data, toResponse(rep))
	}

	totalPages := (total + limit - 1) / limit
	return transport.ReportListResponse{
		Data: data,
		Pagination: transport.Pagination{
			Page:       page,
			Limit:      limit,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
			HasPrev:    page > 1,
		},
	}, nil
}

// UpdateStatus changes the moderation status of a report.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, req transport.UpdateReportStatusRequest) (transport.ReportResponse, error) {
	rep, err := s.repo.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return transport.ReportResponse{}, err
	}
	s.log.Info("report status changed", "reportId", id, "status", req.Status)
	return toResponse(rep), nil
}

func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return page, limit
}

func toResponse(rep repository.Report) transport.ReportResponse {
	return transport.ReportResponse{
		ID:            rep.ID,
		QuestionID:    rep.QuestionID,
		QuestionTitle: rep.QuestionTitle,
		ReporterID:    rep.ReporterID,
		ReporterName:  rep.ReporterName,
		Reason:        rep.Reason,
		Status:        rep.Status,
		CreatedAt:     rep.CreatedAt,
		UpdatedAt:     rep.UpdatedAt,
	}
}
