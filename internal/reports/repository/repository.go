package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"qapp_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	reportNotFoundMsg   = "report not found"
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// Report statuses.
const (
	StatusPending  = "pending"
	StatusReviewed = "reviewed"
	StatusResolved = "resolved"
)

// Report is a moderation report filed against a question.
type Report struct {
	ID            uuid.UUID
	QuestionID    uuid.UUID
	QuestionTitle string
	ReporterID    uuid.UUID
	ReporterName  string
	Reason        string
	Status        string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// CreateParams contains the data for a new report.
type CreateParams struct {
	QuestionID uuid.UUID
	ReporterID uuid.UUID
	Reason     string
}

// ListParams filters the moderation queue.
type ListParams struct {
	Status *string
	Offset int
	Limit  int
}

// Repository provides report persistence.
type Repository interface {
	Create(ctx context.Context, params CreateParams) (Report, error)
	List(ctx context.Context, params ListParams) ([]Report, int, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Report, error)
}

// Repo implements Repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new reports repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

var _ Repository = (*Repo)(nil)

const selectReport = `
	SELECT r.id, r.question_id, q.title, r.reporter_id, u.display_name,
	       r.reason, r.status, r.created_at, r.updated_at
	FROM reports r
	JOIN questions q ON q.id = r.question_id
	JOIN users u ON u.id = r.reporter_id`

func scanReport(row pgx.Row) (Report, error) {
	var rep Report
	err := row.Scan(&rep.ID, &rep.QuestionID, &rep.QuestionTitle, &rep.ReporterID, &rep.ReporterName,
		&rep.Reason, &rep.Status, &rep.CreatedAt, &rep.UpdatedAt)
	return rep, err
}

// Create stores a report. A second report by the same user on the same
// question is a conflict.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Report, error) {
	query := `
		WITH inserted AS (
			INSERT INTO reports (question_id, reporter_id, reason)
			VALUES ($1, $2, $3)
			RETURNING *
		)
		SELECT r.id, r.question_id, q.title, r.reporter_id, u.display_name,
		       r.reason, r.status, r.created_at, r.updated_at
		FROM inserted r
		JOIN questions q ON q.id = r.question_id
		JOIN users u ON u.id = r.reporter_id`

	rep, err := scanReport(r.pool.QueryRow(ctx, query, params.QuestionID, params.ReporterID, params.Reason))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case uniqueViolation:
				return Report{}, apperr.Conflict("you have already reported this question")
			case foreignKeyViolation:
				if strings.Contains(pgErr.ConstraintName, "reporter") {
					return Report{}, apperr.Validation("user profile not found, sync your account first")
				}
				return Report{}, apperr.NotFound("question not found")
			}
		}
		return Report{}, fmt.Errorf("create report: %w", err)
	}
	return rep, nil
}

func buildListFilter(params ListParams) (string, []any, int) {
	where := []string{"TRUE"}
	args := []any{}
	argIdx := 1

	if params.Status != nil {
		where = append(where, fmt.Sprintf("r.status = $%d", argIdx))
		args = append(args, *params.Status)
		argIdx++
	}

	return strings.Join(where, " AND "), args, argIdx
}

// List returns reports newest first with the total match count.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Report, int, error) {
	whereClause, args, argIdx := buildListFilter(params)

	var total int
	countQuery := `SELECT COUNT(*) FROM reports r WHERE ` + whereClause
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count reports: %w", err)
	}

	query := fmt.Sprintf(`%s WHERE %s ORDER BY r.created_at DESC LIMIT $%d OFFSET $%d`,
		selectReport, whereClause, argIdx, argIdx+1)
	rows, err := r.pool.Query(ctx, query, append(args, params.Limit, params.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	reports := make([]Report, 0)
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, total, nil
}

// UpdateStatus moves a report through the moderation workflow.
func (r *Repo) UpdateStatus(ctx context.Context, id uuid.UUID, status string) (Report, error) {
	query := `
		WITH updated AS (
			UPDATE reports SET status = $2, updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT r.id, r.question_id, q.title, r.reporter_id, u.display_name,
		       r.reason, r.status, r.created_at, r.updated_at
		FROM updated r
		JOIN questions q ON q.id = r.question_id
		JOIN users u ON u.id = r.reporter_id`

	rep, err := scanReport(r.pool.QueryRow(ctx, query, id, status))
	if errors.Is(err, pgx.ErrNoRows) {
		return Report{}, apperr.NotFound(reportNotFoundMsg)
	}
	if err != nil {
		return Report{}, fmt.Errorf("update report status: %w", err)
	}
	return rep, nil
}
