package adapters

import (
	"context"

	questionsrepo "qapp_backend/internal/questions/repository"
	reportssvc "qapp_backend/internal/reports/service"

	"github.com/google/uuid"
)

// QuestionLookupAdapter lets the reports module check questions without
// depending on the questions module.
type QuestionLookupAdapter struct {
	questions questionsrepo.Reader
}

// NewQuestionLookupAdapter creates a new question lookup adapter.
func NewQuestionLookupAdapter(questions questionsrepo.Reader) *QuestionLookupAdapter {
	return &QuestionLookupAdapter{questions: questions}
}

// QuestionTitle implements reportssvc.QuestionLookup.
func (a *QuestionLookupAdapter) QuestionTitle(ctx context.Context, id uuid.UUID) (string, error) {
	q, err := a.questions.GetByID(ctx, id)
	if err != nil {
		return "", err
	}
	return q.Title, nil
}

var _ reportssvc.QuestionLookup = (*QuestionLookupAdapter)(nil)
