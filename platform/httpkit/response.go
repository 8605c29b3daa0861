// Package httpkit provides HTTP response utilities.
// This is part of the platform layer and contains no business logic.
package httpkit

import (
	"errors"
	"net/http"

	"qapp_backend/platform/apperr"
	"qapp_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details any    `json:"details,omitempty"`
}

// JSON sends a JSON response with the given status code.
func JSON(c *gin.Context, status int, payload any) {
	c.JSON(status, payload)
}

// Error sends an error response with the given status code and message.
func Error(c *gin.Context, status int, message string, details any) {
	c.JSON(status, ErrorResponse{Error: message, Details: details})
}

// OK sends a 200 OK response with the given payload.
func OK(c *gin.Context, payload any) {
	c.JSON(http.StatusOK, payload)
}

// Created sends a 201 Created response with the given payload.
func Created(c *gin.Context, payload any) {
	c.JSON(http.StatusCreated, payload)
}

// Accepted sends a 202 Accepted response with the given payload.
func Accepted(c *gin.Context, payload any) {
	c.JSON(http.StatusAccepted, payload)
}

// errorLogger is used for 5xx responses. Replaced at startup by SetErrorLogger.
var errorLogger = logger.Discard()

// SetErrorLogger sets the logger HandleError uses for unexpected errors.
func SetErrorLogger(log *logger.Logger) {
	if log != nil {
		errorLogger = log
	}
}

// HandleError maps domain errors to HTTP responses.
// Typed *apperr.Error values use their Kind. Postgres constraint violations
// map to 409 (unique) and 400 (foreign key). Anything else is logged and
// reported as 500 without leaking the message.
// Returns true if an error was handled, false otherwise.
func HandleError(c *gin.Context, err error) bool {
	if err == nil {
		return false
	}

	var domainErr *apperr.Error
	if errors.As(err, &domainErr) {
		status := domainErr.HTTPStatus()
		if status >= http.StatusInternalServerError {
			errorLogger.HTTPError(c.Request.Method, c.Request.URL.Path, status, err, c.ClientIP())
		}
		c.JSON(status, ErrorResponse{
			Error:   domainErr.Message,
			Details: domainErr.Details,
		})
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			c.JSON(http.StatusConflict, ErrorResponse{Error: "Resource already exists"})
			return true
		case pgForeignKeyViolation:
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Invalid reference"})
			return true
		}
	}

	errorLogger.HTTPError(c.Request.Method, c.Request.URL.Path, http.StatusInternalServerError, err, c.ClientIP())
	c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"})
	return true
}
