package transport

import (
	"time"

	"github.com/google/uuid"
)

type UpdateMeRequest struct {
	DisplayName string `json:"displayName" validate:"required,notblank,min=2,max=50"`
}

type UserResponse struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	AvatarURL   *string   `json:"avatarUrl"`
	Provider    string    `json:"provider"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// PublicProfileResponse omits the email address.
type PublicProfileResponse struct {
	ID          uuid.UUID `json:"id"`
	DisplayName string    `json:"displayName"`
	AvatarURL   *string   `json:"avatarUrl"`
	UploadCount int       `json:"uploadCount"`
	CreatedAt   time.Time `json:"createdAt"`
}
