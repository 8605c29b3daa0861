// Package service implements the account sync that runs after a client
// signs in with the hosted auth provider.
package service

import (
	"context"

	"qapp_backend/internal/auth/transport"
	"qapp_backend/internal/events"
	"qapp_backend/platform/logger"
)

// Service provides business logic for auth.
type Service struct {
	accounts AccountStore
	eventBus events.Bus
	log      *logger.Logger
}

// New creates a new auth service.
func New(accounts AccountStore, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{accounts: accounts, eventBus: eventBus, log: log}
}

// Sync upserts the caller's account from its token claims.
func (s *Service) Sync(ctx context.Context, input SyncInput) (transport.SyncResponse, error) {
	account, created, err := s.accounts.SyncAccount(ctx, input)
	if err != nil {
		s.log.AuthEvent("sync", input.Email, false, err.Error())
		return transport.SyncResponse{}, err
	}
	s.log.AuthEvent("sync", account.Email, true, "")

	if s.eventBus != nil {
		s.eventBus.Publish(ctx, events.UserSynced{
			BaseEvent: events.NewBaseEvent(),
			UserID:    account.ID,
			Email:     account.Email,
			Created:   created,
		})
	}

	return transport.SyncResponse{
		User: transport.UserResponse{
			ID:          account.ID,
			Email:       account.Email,
			DisplayName: account.DisplayName,
			AvatarURL:   account.AvatarURL,
			Provider:    account.Provider,
			CreatedAt:   account.CreatedAt,
			UpdatedAt:   account.UpdatedAt,
		},
		Created: created,
	}, nil
}
