// Package questions provides the question papers bounded context module.
package questions

import (
	"qapp_backend/internal/events"
	apphttp "qapp_backend/internal/http"
	"qapp_backend/internal/questions/handler"
	"qapp_backend/internal/questions/repository"
	"qapp_backend/internal/questions/service"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the questions bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    repository.Repository
}

// NewModule creates and initializes the questions module.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, opts service.Options, val *validator.Validator, log *logger.Logger) *Module {
	return newModule(repository.New(pool), eventBus, opts, val, log)
}

func newModule(repo repository.Repository, eventBus events.Bus, opts service.Options, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repo, eventBus, opts, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "questions"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository returns the repository for cross-module adapters.
func (m *Module) Repository() repository.Repository {
	return m.repo
}

// RegisterRoutes mounts question routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	// Public browsing
	ctx.V1.GET("/questions", m.handler.List)
	ctx.V1.GET("/questions/search", m.handler.Search)
	ctx.V1.GET("/questions/:id", m.handler.Get)
	ctx.V1.GET("/questions/:id/qr", m.handler.QRCode)
	ctx.V1.GET("/users/:id/questions", m.handler.ListByAuthor)

	// Authenticated writes
	ctx.Protected.POST("/questions", m.handler.Create)
	ctx.Protected.PUT("/questions/:id", m.handler.Update)
	ctx.Protected.DELETE("/questions/:id", m.handler.Delete)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
