package handler

import (
	"qapp_backend/internal/auth/service"
	"qapp_backend/platform/httpkit"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc *service.Service
}

func New(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Sync links the bearer token's identity to a local account.
// POST /api/v1/auth/sync
func (h *Handler) Sync(c *gin.Context) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	result, err := h.svc.Sync(c.Request.Context(), service.SyncInput{
		UserID:    identity.UserID(),
		Email:     identity.Email(),
		FullName:  identity.DisplayName(),
		AvatarURL: identity.AvatarURL(),
		Provider:  identity.Provider(),
	})
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}
