package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"qapp_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const questionNotFoundMsg = "question not found"

const selectColumns = `
	q.id, q.title, q.course_code, q.course_name, q.level, q.year, q.semester,
	q.hashtags, q.images, q.author_id, q.created_at, q.updated_at,
	u.id, u.display_name, u.avatar_url, u.created_at`

// Repo implements Repository on Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// New creates a new questions repository.
func New(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// Compile-time check that Repo implements Repository.
var _ Repository = (*Repo)(nil)

func scanQuestion(row pgx.Row) (Question, error) {
	var q Question
	err := row.Scan(
		&q.ID, &q.Title, &q.CourseCode, &q.CourseName, &q.Level, &q.Year, &q.Semester,
		&q.Hashtags, &q.Images, &q.AuthorID, &q.CreatedAt, &q.UpdatedAt,
		&q.Author.ID, &q.Author.DisplayName, &q.Author.AvatarURL, &q.Author.CreatedAt,
	)
	if q.Hashtags == nil {
		q.Hashtags = []string{}
	}
	return q, err
}

// Create inserts a question and returns it with author attribution.
func (r *Repo) Create(ctx context.Context, params CreateParams) (Question, error) {
	query := `
		WITH q AS (
			INSERT INTO questions (title, course_code, course_name, level, year, semester, hashtags, images, author_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING *
		)
		SELECT ` + selectColumns + `
		FROM q
		JOIN users u ON u.id = q.author_id`

	hashtags := params.Hashtags
	if hashtags == nil {
		hashtags = []string{}
	}

	q, err := scanQuestion(r.pool.QueryRow(ctx, query,
		params.Title, params.CourseCode, params.CourseName, params.Level, params.Year,
		params.Semester, hashtags, params.Images, params.AuthorID,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return Question{}, apperr.Validation("user profile not found, sync your account first")
		}
		return Question{}, fmt.Errorf("create question: %w", err)
	}
	return q, nil
}

// GetByID returns a question with its author.
func (r *Repo) GetByID(ctx context.Context, id uuid.UUID) (Question, error) {
	query := `SELECT ` + selectColumns + `
		FROM questions q
		JOIN users u ON u.id = q.author_id
		WHERE q.id = $1`

	q, err := scanQuestion(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return Question{}, apperr.NotFound(questionNotFoundMsg)
	}
	if err != nil {
		return Question{}, fmt.Errorf("get question: %w", err)
	}
	return q, nil
}

// buildListFilter builds the WHERE clause and arguments for List. The
// returned index is the next free placeholder number.
func buildListFilter(params ListParams) (string, []interface{}, int) {
	whereClauses := []string{"TRUE"}
	args := []interface{}{}
	argIdx := 1

	if params.AuthorID != nil {
		whereClauses = append(whereClauses, fmt.Sprintf("q.author_id = $%d", argIdx))
		args = append(args, *params.AuthorID)
		argIdx++
	}

	if params.Query != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("(q.course_code ILIKE $%d OR q.course_name ILIKE $%d OR q.title ILIKE $%d)", argIdx, argIdx, argIdx))
		args = append(args, "%"+escapeLike(params.Query)+"%")
		argIdx++
	}

	if params.Level != 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("q.level = $%d", argIdx))
		args = append(args, params.Level)
		argIdx++
	}

	if params.Year != 0 {
		whereClauses = append(whereClauses, fmt.Sprintf("q.year = $%d", argIdx))
		args = append(args, params.Year)
		argIdx++
	}

	if params.Semester != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("q.semester = $%d", argIdx))
		args = append(args, params.Semester)
		argIdx++
	}

	if params.Hashtag != "" {
		whereClauses = append(whereClauses, fmt.Sprintf("$%d = ANY(q.hashtags)", argIdx))
		args = append(args, params.Hashtag)
		argIdx++
	}

	return strings.Join(whereClauses, " AND "), args, argIdx
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List returns a page of questions, newest first, and the total count.
func (r *Repo) List(ctx context.Context, params ListParams) ([]Question, int, error) {
	whereClause, args, argIdx := buildListFilter(params)

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM questions q WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count questions: %w", err)
	}

	args = append(args, params.Limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM questions q
		JOIN users u ON u.id = q.author_id
		WHERE %s
		ORDER BY q.created_at DESC, q.id DESC
		LIMIT $%d OFFSET $%d
	`, selectColumns, whereClause, argIdx, argIdx+1)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list questions: %w", err)
	}
	defer rows.Close()

	items := make([]Question, 0)
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan question: %w", err)
		}
		items = append(items, q)
	}
	if rows.Err() != nil {
		return nil, 0, fmt.Errorf("iterate questions: %w", rows.Err())
	}

	return items, total, nil
}

// Update applies the non-nil fields of params.
func (r *Repo) Update(ctx context.Context, params UpdateParams) (Question, error) {
	query := `
		WITH q AS (
			UPDATE questions SET
				title = COALESCE($2, title),
				course_code = COALESCE($3, course_code),
				course_name = COALESCE($4, course_name),
				level = COALESCE($5, level),
				year = COALESCE($6, year),
				semester = COALESCE($7, semester),
				hashtags = COALESCE($8, hashtags),
				updated_at = now()
			WHERE id = $1
			RETURNING *
		)
		SELECT ` + selectColumns + `
		FROM q
		JOIN users u ON u.id = q.author_id`

	var hashtags []string
	if params.Hashtags != nil {
		hashtags = *params.Hashtags
		if hashtags == nil {
			hashtags = []string{}
		}
	}

	q, err := scanQuestion(r.pool.QueryRow(ctx, query,
		params.ID, params.Title, params.CourseCode, params.CourseName,
		params.Level, params.Year, params.Semester, hashtags,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return Question{}, apperr.NotFound(questionNotFoundMsg)
	}
	if err != nil {
		return Question{}, fmt.Errorf("update question: %w", err)
	}
	return q, nil
}

// Delete removes a question. Reports cascade.
func (r *Repo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM questions WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete question: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound(questionNotFoundMsg)
	}
	return nil
}

// CountByAuthor returns how many questions a user uploaded.
func (r *Repo) CountByAuthor(ctx context.Context, authorID uuid.UUID) (int, error) {
	var count int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM questions WHERE author_id = $1`, authorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count questions by author: %w", err)
	}
	return count, nil
}

// ReferencedImages returns the subset of urls that appear in any question.
func (r *Repo) ReferencedImages(ctx context.Context, urls []string) (map[string]bool, error) {
	result := make(map[string]bool)
	if len(urls) == 0 {
		return result, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT img
		FROM questions, unnest(images) AS img
		WHERE images && $1::text[] AND img = ANY($1::text[])`, urls)
	if err != nil {
		return nil, fmt.Errorf("referenced images: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var img string
		if err := rows.Scan(&img); err != nil {
			return nil, fmt.Errorf("scan referenced image: %w", err)
		}
		result[img] = true
	}
	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate referenced images: %w", rows.Err())
	}
	return result, nil
}
