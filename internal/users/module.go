// Package users provides the user profile bounded context module.
package users

import (
	apphttp "qapp_backend/internal/http"
	"qapp_backend/internal/users/handler"
	"qapp_backend/internal/users/repository"
	"qapp_backend/internal/users/service"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the users bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the users module.
func NewModule(pool *pgxpool.Pool, uploads service.UploadCounter, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(repository.New(pool), uploads, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "users"
}

// Service returns the users service for use by adapters (e.g., the auth sync).
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts user routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Protected.GET("/users/me", m.handler.GetMe)
	ctx.Protected.PUT("/users/me", m.handler.UpdateMe)
	ctx.V1.GET("/users/:id", m.handler.GetProfile)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
