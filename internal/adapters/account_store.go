package adapters

import (
	"context"

	authsvc "qapp_backend/internal/auth/service"
	userssvc "qapp_backend/internal/users/service"
)

// AccountStoreAdapter lets the auth module sync accounts through the users
// service without importing it.
type AccountStoreAdapter struct {
	users *userssvc.Service
}

// NewAccountStoreAdapter creates a new account store adapter.
func NewAccountStoreAdapter(users *userssvc.Service) *AccountStoreAdapter {
	return &AccountStoreAdapter{users: users}
}

// SyncAccount implements authsvc.AccountStore.
func (a *AccountStoreAdapter) SyncAccount(ctx context.Context, input authsvc.SyncInput) (authsvc.Account, bool, error) {
	u, created, err := a.users.Sync(ctx, userssvc.SyncParams{
		ID:        input.UserID,
		Email:     input.Email,
		FullName:  input.FullName,
		AvatarURL: input.AvatarURL,
		Provider:  input.Provider,
	})
	if err != nil {
		return authsvc.Account{}, false, err
	}
	return authsvc.Account{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Provider:    u.Provider,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}, created, nil
}

var _ authsvc.AccountStore = (*AccountStoreAdapter)(nil)
