// Package auth links identities issued by the hosted auth provider to local
// user accounts.
package auth

import (
	"qapp_backend/internal/auth/handler"
	"qapp_backend/internal/auth/service"
	"qapp_backend/internal/events"
	apphttp "qapp_backend/internal/http"
	"qapp_backend/platform/logger"
)

// Module is the auth bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the auth module.
func NewModule(accounts service.AccountStore, eventBus events.Bus, log *logger.Logger) *Module {
	svc := service.New(accounts, eventBus, log)
	return &Module{
		handler: handler.New(svc),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "auth"
}

// Service returns the auth service.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts auth routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	authGroup := ctx.V1.Group("/auth")
	authGroup.Use(ctx.AuthRateLimiter.RateLimit(), ctx.AuthMiddleware)
	authGroup.POST("/sync", m.handler.Sync)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
