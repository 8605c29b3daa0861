package transport

import "time"

// PresignRequest asks for one presigned PUT URL.
type PresignRequest struct {
	Filename    string `json:"filename" validate:"required,notblank,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	Size        *int64 `json:"size,omitempty" validate:"omitempty,gt=0"`
}

type PresignResponse struct {
	PresignedURL string    `json:"presignedUrl"`
	Key          string    `json:"key"`
	PublicURL    string    `json:"publicUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// PresignFile is one entry of a batch presign request. ClientID is echoed
// back so the caller can match grants to its items.
type PresignFile struct {
	ClientID    string `json:"clientId,omitempty" validate:"omitempty,max=64"`
	Filename    string `json:"filename" validate:"required,notblank,max=255"`
	ContentType string `json:"contentType" validate:"required,max=100"`
	Size        *int64 `json:"size,omitempty" validate:"omitempty,gt=0"`
}

type BatchPresignRequest struct {
	Files []PresignFile `json:"files" validate:"required,min=1,max=10,dive"`
}

type BatchPresignItem struct {
	ClientID     string    `json:"clientId"`
	PresignedURL string    `json:"presignedUrl"`
	Key          string    `json:"key"`
	PublicURL    string    `json:"publicUrl"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

type BatchPresignResponse struct {
	URLs      []BatchPresignItem `json:"urls"`
	ExpiresIn int                `json:"expiresIn"`
}

// DiscardRequest lists uploaded objects the caller no longer needs.
type DiscardRequest struct {
	Keys []string `json:"keys" validate:"required,min=1,max=10,dive,required,max=512"`
}

type DiscardResponse struct {
	Discarded int `json:"discarded"`
}
