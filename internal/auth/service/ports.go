package service

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// SyncInput carries the claims of a verified access token.
type SyncInput struct {
	UserID    uuid.UUID
	Email     string
	FullName  string
	AvatarURL string
	Provider  string
}

// Account is the local user record after a sync.
type Account struct {
	ID          uuid.UUID
	Email       string
	DisplayName string
	AvatarURL   *string
	Provider    string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// AccountStore creates or refreshes local accounts. The bool reports whether
// the account was newly created.
type AccountStore interface {
	SyncAccount(ctx context.Context, input SyncInput) (Account, bool, error)
}
