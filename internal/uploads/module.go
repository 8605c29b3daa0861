// Package uploads provides the presigned upload bounded context module.
package uploads

import (
	apphttp "qapp_backend/internal/http"
	"qapp_backend/internal/uploads/handler"
	"qapp_backend/internal/uploads/service"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/validator"
)

// Module is the uploads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates and initializes the uploads module.
func NewModule(presigner service.Presigner, discarder service.ObjectDiscarder, quota service.Quota, opts service.Options, val *validator.Validator, log *logger.Logger) *Module {
	svc := service.New(presigner, discarder, quota, opts, log)
	return &Module{
		handler: handler.New(svc, val),
		service: svc,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "uploads"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes mounts upload routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	group := ctx.Protected.Group("/upload")
	if ctx.UploadRateLimiter != nil {
		group.Use(ctx.UploadRateLimiter.RateLimit())
	}
	group.POST("/presign", m.handler.Presign)
	group.POST("/presign/batch", m.handler.PresignBatch)
	group.POST("/discard", m.handler.Discard)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
