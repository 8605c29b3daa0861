package transport

import (
	"time"

	"github.com/google/uuid"
)

type CreateReportRequest struct {
	Reason string `json:"reason" validate:"required,notblank,min=5,max=500"`
}

type ListReportsRequest struct {
	Status string `form:"status" validate:"omitempty,oneof=pending reviewed resolved"`
	Page   int    `form:"page" validate:"omitempty,min=1"`
	Limit  int    `form:"limit" validate:"omitempty,min=1,max=50"`
}

type UpdateReportStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending reviewed resolved"`
}

type ReportResponse struct {
	ID            uuid.UUID `json:"id"`
	QuestionID    uuid.UUID `json:"questionId"`
	QuestionTitle string    `json:"questionTitle"`
	ReporterID    uuid.UUID `json:"reporterId"`
	ReporterName  string    `json:"reporterName"`
	Reason        string    `json:"reason"`
	Status        string    `json:"status"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

type ReportListResponse struct {
	Data       []ReportResponse `json:"data"`
	Pagination Pagination       `json:"pagination"`
}
