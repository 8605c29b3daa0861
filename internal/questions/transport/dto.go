package transport

import (
	"time"

	"github.com/google/uuid"
)

// CreateQuestionRequest is the record creation body.
type CreateQuestionRequest struct {
	Title      string   `json:"title" validate:"required,notblank,min=5,max=200"`
	CourseCode string   `json:"courseCode" validate:"required,notblank,min=2,max=20"`
	CourseName string   `json:"courseName" validate:"required,notblank,min=3,max=100"`
	Level      int      `json:"level" validate:"required,min=100,max=900,hundreds"`
	Year       int      `json:"year" validate:"required,min=2000,max=2100"`
	Semester   string   `json:"semester" validate:"required,semester"`
	Hashtags   []string `json:"hashtags" validate:"omitempty,max=10,dive,max=30"`
	Images     []string `json:"images" validate:"required,min=1,max=10,dive,required,url,max=2048"`
}

// UpdateQuestionRequest changes metadata. Images are immutable.
type UpdateQuestionRequest struct {
	Title      *string   `json:"title" validate:"omitempty,notblank,min=5,max=200"`
	CourseCode *string   `json:"courseCode" validate:"omitempty,notblank,min=2,max=20"`
	CourseName *string   `json:"courseName" validate:"omitempty,notblank,min=3,max=100"`
	Level      *int      `json:"level" validate:"omitempty,min=100,max=900,hundreds"`
	Year       *int      `json:"year" validate:"omitempty,min=2000,max=2100"`
	Semester   *string   `json:"semester" validate:"omitempty,semester"`
	Hashtags   *[]string `json:"hashtags" validate:"omitempty,max=10,dive,max=30"`
}

// ListQuestionsRequest is the feed query.
type ListQuestionsRequest struct {
	Page  int `form:"page" validate:"omitempty,min=1"`
	Limit int `form:"limit" validate:"omitempty,min=1,max=50"`
}

// SearchQuestionsRequest is the search query. Zero values disable a filter.
type SearchQuestionsRequest struct {
	Q        string `form:"q" validate:"max=100"`
	Level    int    `form:"level" validate:"omitempty,min=100,max=900,hundreds"`
	Year     int    `form:"year" validate:"omitempty,min=2000,max=2100"`
	Semester string `form:"semester" validate:"omitempty,semester"`
	Hashtag  string `form:"hashtag" validate:"max=30"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	Limit    int    `form:"limit" validate:"omitempty,min=1,max=50"`
}

// QRCodeRequest sets the rendered image size in pixels.
type QRCodeRequest struct {
	Size int `form:"size" validate:"omitempty,min=1"`
}

type AuthorResponse struct {
	ID          uuid.UUID  `json:"id"`
	DisplayName string     `json:"displayName"`
	AvatarURL   *string    `json:"avatarUrl"`
	CreatedAt   *time.Time `json:"createdAt,omitempty"`
}

type QuestionResponse struct {
	ID         uuid.UUID      `json:"id"`
	Title      string         `json:"title"`
	CourseCode string         `json:"courseCode"`
	CourseName string         `json:"courseName"`
	Level      int            `json:"level"`
	Year       int            `json:"year"`
	Semester   string         `json:"semester"`
	Hashtags   []string       `json:"hashtags"`
	Images     []string       `json:"images"`
	Author     AuthorResponse `json:"author"`
	CreatedAt  time.Time      `json:"createdAt"`
	UpdatedAt  time.Time      `json:"updatedAt"`
}

// QuestionCard is the feed representation of a question.
type QuestionCard struct {
	ID         uuid.UUID      `json:"id"`
	Title      string         `json:"title"`
	CourseCode string         `json:"courseCode"`
	CourseName string         `json:"courseName"`
	Level      int            `json:"level"`
	Year       int            `json:"year"`
	Semester   string         `json:"semester"`
	Hashtags   []string       `json:"hashtags"`
	Thumbnail  string         `json:"thumbnail"`
	ImageCount int            `json:"imageCount"`
	Author     AuthorResponse `json:"author"`
	CreatedAt  time.Time      `json:"createdAt"`
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type QuestionListResponse struct {
	Data       []QuestionCard `json:"data"`
	Pagination Pagination     `json:"pagination"`
}

// SearchQuery echoes the applied filters.
type SearchQuery struct {
	Q        string `json:"q,omitempty"`
	Level    int    `json:"level,omitempty"`
	Year     int    `json:"year,omitempty"`
	Semester string `json:"semester,omitempty"`
	Hashtag  string `json:"hashtag,omitempty"`
}

type SearchResponse struct {
	Data         []QuestionCard `json:"data"`
	Pagination   Pagination     `json:"pagination"`
	Query        SearchQuery    `json:"query"`
	TotalResults int            `json:"totalResults"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
