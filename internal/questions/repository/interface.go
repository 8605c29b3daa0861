package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Question is a stored past question paper with its author.
type Question struct {
	ID         uuid.UUID
	Title      string
	CourseCode string
	CourseName string
	Level      int
	Year       int
	Semester   string
	Hashtags   []string
	Images     []string
	AuthorID   uuid.UUID
	Author     Author
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Author is the denormalized uploader attribution.
type Author struct {
	ID          uuid.UUID
	DisplayName string
	AvatarURL   *string
	CreatedAt   time.Time
}

// CreateParams contains data for creating a question.
type CreateParams struct {
	Title      string
	CourseCode string
	CourseName string
	Level      int
	Year       int
	Semester   string
	Hashtags   []string
	Images     []string
	AuthorID   uuid.UUID
}

// UpdateParams contains the metadata fields to change. Nil fields are kept.
type UpdateParams struct {
	ID         uuid.UUID
	Title      *string
	CourseCode *string
	CourseName *string
	Level      *int
	Year       *int
	Semester   *string
	Hashtags   *[]string
}

// ListParams defines filters for listing questions. Zero values disable a
// filter.
type ListParams struct {
	AuthorID *uuid.UUID
	Query    string
	Level    int
	Year     int
	Semester string
	Hashtag  string
	Offset   int
	Limit    int
}

// Reader provides read operations on questions.
type Reader interface {
	GetByID(ctx context.Context, id uuid.UUID) (Question, error)
	List(ctx context.Context, params ListParams) ([]Question, int, error)
	CountByAuthor(ctx context.Context, authorID uuid.UUID) (int, error)
	ReferencedImages(ctx context.Context, urls []string) (map[string]bool, error)
}

// Writer provides write operations on questions.
type Writer interface {
	Create(ctx context.Context, params CreateParams) (Question, error)
	Update(ctx context.Context, params UpdateParams) (Question, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// Repository combines question reads and writes.
type Repository interface {
	Reader
	Writer
}
