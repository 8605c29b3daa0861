// Package reports provides the moderation reports bounded context module.
package reports

import (
	"qapp_backend/internal/events"
	apphttp "qapp_backend/internal/http"
	"qapp_backend/internal/reports/handler"
	"qapp_backend/internal/reports/repository"
	"qapp_backend/internal/reports/service"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the reports bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the reports module.
func NewModule(pool *pgxpool.Pool, questions service.QuestionLookup, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	return newModule(repository.New(pool), questions, eventBus, val, log)
}

func newModule(repo repository.Repository, questions service.QuestionLookup, eventBus events.Bus, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repo, questions, eventBus, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "reports"
}

// Service returns the reports service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts report routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.POST("/questions/:id/reports", m.handler.Submit)

	admin := ctx.Admin.Group("/reports")
	admin.GET("", m.handler.List)
	admin.PATCH("/:id", m.handler.UpdateStatus)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
