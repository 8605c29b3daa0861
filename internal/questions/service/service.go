// Package service implements question record creation and browsing.
package service

import (
	"context"
	"fmt"

	"qapp_backend/internal/adapters/storage"
	"qapp_backend/internal/events"
	"qapp_backend/internal/questions/repository"
	"qapp_backend/internal/questions/transport"
	"qapp_backend/platform/apperr"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/sanitize"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"
)

const (
	defaultPageSize = 20
	maxPageSize     = 50

	defaultQRSize = 256
	minQRSize     = 128
	maxQRSize     = 1024
)

// Options configures URL handling.
type Options struct {
	// PublicBaseURL is the public prefix of stored images. When set, image
	// URLs must point at objects in the author's namespace.
	PublicBaseURL string
	// AppBaseURL is the web app origin used for share links.
	AppBaseURL string
}

// Service provides business logic for questions.
type Service struct {
	repo     repository.Repository
	eventBus events.Bus
	opts     Options
	log      *logger.Logger
}

// New creates a new questions service.
func New(repo repository.Repository, eventBus events.Bus, opts Options, log *logger.Logger) *Service {
	return &Service{repo: repo, eventBus: eventBus, opts: opts, log: log}
}

// Create stores a new question authored by authorID.
func (s *Service) Create(ctx context.Context, authorID uuid.UUID, req transport.CreateQuestionRequest) (transport.QuestionResponse, error) {
	if err := s.checkImages(authorID, req.Images); err != nil {
		return transport.QuestionResponse{}, err
	}

	q, err := s.repo.Create(ctx, repository.CreateParams{
		Title:      sanitize.Text(req.Title),
		CourseCode: sanitize.CourseCode(req.CourseCode),
		CourseName: sanitize.Text(req.CourseName),
		Level:      req.Level,
		Year:       req.Year,
		Semester:   req.Semester,
		Hashtags:   sanitize.Tags(req.Hashtags),
		Images:     req.Images,
		AuthorID:   authorID,
	})
	if err != nil {
		return transport.QuestionResponse{}, err
	}

	s.eventBus.Publish(ctx, events.QuestionCreated{
		BaseEvent:  events.NewBaseEvent(),
		QuestionID: q.ID,
		AuthorID:   authorID,
		CourseCode: q.CourseCode,
		ImageCount: len(q.Images),
	})

	s.log.Info("question created", "id", q.ID, "author", authorID, "images", len(q.Images))
	return toQuestionResponse(q), nil
}

func (s *Service) checkImages(authorID uuid.UUID, images []string) error {
	if s.opts.PublicBaseURL == "" {
		return nil
	}
	for i, image := range images {
		key, ok := storage.KeyFromPublicURL(s.opts.PublicBaseURL, image)
		if !ok || !storage.OwnsKey(authorID, key) {
			return apperr.Validation("images must be uploaded through the presign endpoint").
				WithDetails(map[string]any{"index": i, "url": image})
		}
	}
	return nil
}

// Get returns a question with full author attribution.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (transport.QuestionResponse, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.QuestionResponse{}, err
	}
	resp := toQuestionResponse(q)
	createdAt := q.Author.CreatedAt
	resp.Author.CreatedAt = &createdAt
	return resp, nil
}

// List returns the newest questions.
func (s *Service) List(ctx context.Context, req transport.ListQuestionsRequest) (transport.QuestionListResponse, error) {
	page, limit := normalizePage(req.Page, req.Limit)
	items, total, err := s.repo.List(ctx, repository.ListParams{Offset: (page - 1) * limit, Limit: limit})
	if err != nil {
		return transport.QuestionListResponse{}, err
	}
	return transport.QuestionListResponse{Data: toCards(items), Pagination: paginate(page, limit, total)}, nil
}

// ListByAuthor returns the questions uploaded by authorID.
func (s *Service) ListByAuthor(ctx context.Context, authorID uuid.UUID, req transport.ListQuestionsRequest) (transport.QuestionListResponse, error) {
	page, limit := normalizePage(req.Page, req.Limit)
	items, total, err := s.repo.List(ctx, repository.ListParams{AuthorID: &authorID, Offset: (page - 1) * limit, Limit: limit})
	if err != nil {
		return transport.QuestionListResponse{}, err
	}
	return transport.QuestionListResponse{Data: toCards(items), Pagination: paginate(page, limit, total)}, nil
}

// Search filters questions by free text, level, year, semester and hashtag.
func (s *Service) Search(ctx context.Context, req transport.SearchQuestionsRequest) (transport.SearchResponse, error) {
	page, limit := normalizePage(req.Page, req.Limit)
	query := transport.SearchQuery{
		Q:        sanitize.Text(req.Q),
		Level:    req.Level,
		Year:     req.Year,
		Semester: req.Semester,
		Hashtag:  sanitize.Text(req.Hashtag),
	}

	items, total, err := s.repo.List(ctx, repository.ListParams{
		Query:    query.Q,
		Level:    query.Level,
		Year:     query.Year,
		Semester: query.Semester,
		Hashtag:  query.Hashtag,
		Offset:   (page - 1) * limit,
		Limit:    limit,
	})
	if err != nil {
		return transport.SearchResponse{}, err
	}

	return transport.SearchResponse{
		Data:         toCards(items),
		Pagination:   paginate(page, limit, total),
		Query:        query,
		TotalResults: total,
	}, nil
}

// Update changes the metadata of a question owned by callerID.
func (s *Service) Update(ctx context.Context, callerID, id uuid.UUID, req transport.UpdateQuestionRequest) (transport.QuestionResponse, error) {
	if _, err := s.ownedQuestion(ctx, callerID, id, "update"); err != nil {
		return transport.QuestionResponse{}, err
	}

	params := repository.UpdateParams{
		ID:         id,
		Title:      sanitize.TextPtr(req.Title),
		CourseName: sanitize.TextPtr(req.CourseName),
		Level:      req.Level,
		Year:       req.Year,
		Semester:   req.Semester,
	}
	if req.CourseCode != nil {
		code := sanitize.CourseCode(*req.CourseCode)
		params.CourseCode = &code
	}
	if req.Hashtags != nil {
		tags := sanitize.Tags(*req.Hashtags)
		params.Hashtags = &tags
	}

	q, err := s.repo.Update(ctx, params)
	if err != nil {
		return transport.QuestionResponse{}, err
	}
	s.log.Info("question updated", "id", id)
	return toQuestionResponse(q), nil
}

// Delete removes a question owned by callerID and publishes QuestionDeleted
// so its images get cleaned up.
func (s *Service) Delete(ctx context.Context, callerID, id uuid.UUID) (transport.MessageResponse, error) {
	q, err := s.ownedQuestion(ctx, callerID, id, "delete")
	if err != nil {
		return transport.MessageResponse{}, err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return transport.MessageResponse{}, err
	}

	s.eventBus.Publish(ctx, events.QuestionDeleted{
		BaseEvent:  events.NewBaseEvent(),
		QuestionID: id,
		AuthorID:   q.AuthorID,
		ImageKeys:  s.imageKeys(q),
	})

	s.log.Info("question deleted", "id", id)
	return transport.MessageResponse{Message: "Question deleted successfully"}, nil
}

func (s *Service) ownedQuestion(ctx context.Context, callerID, id uuid.UUID, action string) (repository.Question, error) {
	q, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return repository.Question{}, err
	}
	if q.AuthorID != callerID {
		return repository.Question{}, apperr.Forbidden(fmt.Sprintf("you can only %s your own questions", action))
	}
	return q, nil
}

func (s *Service) imageKeys(q repository.Question) []string {
	keys := make([]string, 0, len(q.Images))
	if s.opts.PublicBaseURL == "" {
		return keys
	}
	for _, image := range q.Images {
		if key, ok := storage.KeyFromPublicURL(s.opts.PublicBaseURL, image); ok && storage.OwnsKey(q.AuthorID, key) {
			keys = append(keys, key)
		}
	}
	return keys
}

// ShareURL returns the web link of a question.
func (s *Service) ShareURL(id uuid.UUID) string {
	return s.opts.AppBaseURL + "/questions/" + id.String()
}

// QRCode renders a PNG QR code of the question's share link.
func (s *Service) QRCode(ctx context.Context, id uuid.UUID, size int) ([]byte, error) {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return nil, err
	}

	png, err := qrcode.Encode(s.ShareURL(id), qrcode.Medium, clampQRSize(size))
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, "failed to render QR code", err).WithOp("questions.QRCode")
	}
	return png, nil
}

func clampQRSize(size int) int {
	switch {
	case size <= 0:
		return defaultQRSize
	case size < minQRSize:
		return minQRSize
	case size > maxQRSize:
		return maxQRSize
	default:
		return size
	}
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

func paginate(page, limit, total int) transport.Pagination {
	totalPages := (total + limit - 1) / limit
	return transport.Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: totalPages,
		HasNext:    page < totalPages,
		HasPrev:    page > 1,
	}
}

func toAuthor(a repository.Author) transport.AuthorResponse {
	return transport.AuthorResponse{ID: a.ID, DisplayName: a.DisplayName, AvatarURL: a.AvatarURL}
}

func toQuestionResponse(q repository.Question) transport.QuestionResponse {
	return transport.QuestionResponse{
		ID:         q.ID,
		Title:      q.Title,
		CourseCode: q.CourseCode,
		CourseName: q.CourseName,
		Level:      q.Level,
		Year:       q.Year,
		Semester:   q.Semester,
		Hashtags:   q.Hashtags,
		Images:     q.Images,
		Author:     toAuthor(q.Author),
		CreatedAt:  q.CreatedAt,
		UpdatedAt:  q.UpdatedAt,
	}
}

func toCards(items []repository.Question) []transport.QuestionCard {
	cards := make([]transport.QuestionCard, 0, len(items))
	for _, q := range items {
		card := transport.QuestionCard{
			ID:         q.ID,
			Title:      q.Title,
			CourseCode: q.CourseCode,
			CourseName: q.CourseName,
			Level:      q.Level,
			Year:       q.Year,
			Semester:   q.Semester,
			Hashtags:   q.Hashtags,
			ImageCount: len(q.Images),
			Author:     toAuthor(q.Author),
			CreatedAt:  q.CreatedAt,
		}
		if len(q.Images) > 0 {
			card.Thumbnail = q.Images[0]
		}
		cards = append(cards, card)
	}
	return cards
}
