// Package service implements user profiles.
package service

import (
	"context"
	"strings"
	"unicode/utf8"

	"qapp_backend/internal/users/repository"
	"qapp_backend/internal/users/transport"
	"qapp_backend/platform/apperr"
	"qapp_backend/platform/logger"
	"qapp_backend/platform/sanitize"

	"github.com/google/uuid"
)

const (
	minDisplayName  = 2
	maxDisplayName  = 50
	fallbackName    = "QApp user"
	defaultProvider = "google"
)

// UploadCounter counts a user's uploaded questions.
type UploadCounter interface {
	CountByAuthor(ctx context.Context, authorID uuid.UUID) (int, error)
}

// SyncParams carries the identity claims of a signed-in user.
type SyncParams struct {
	ID        uuid.UUID
	Email     string
	FullName  string
	AvatarURL string
	Provider  string
}

// Service provides business logic for users.
type Service struct {
	repo    repository.Repository
	uploads UploadCounter
	log     *logger.Logger
}

// New creates a new users service.
func New(repo repository.Repository, uploads UploadCounter, log *logger.Logger) *Service {
	return &Service{repo: repo, uploads: uploads, log: log}
}

// Sync upserts the user from token claims and reports whether the account
// was created.
func (s *Service) Sync(ctx context.Context, params SyncParams) (transport.UserResponse, bool, error) {
	email := strings.TrimSpace(params.Email)
	if email == "" {
		return transport.UserResponse{}, false, apperr.BadRequest("token does not carry an email address")
	}

	provider := params.Provider
	if provider == "" {
		provider = defaultProvider
	}

	var avatar *string
	if trimmed := strings.TrimSpace(params.AvatarURL); trimmed != "" {
		avatar = &trimmed
	}

	u, created, err := s.repo.Upsert(ctx, repository.UpsertParams{
		ID:          params.ID,
		Email:       email,
		DisplayName: DeriveDisplayName(params.FullName, email),
		AvatarURL:   avatar,
		Provider:    provider,
	})
	if err != nil {
		return transport.UserResponse{}, false, err
	}

	if created {
		s.log.Info("user created", "id", u.ID)
	}
	return toUserResponse(u), created, nil
}

// DeriveDisplayName picks the token name or the email local part, cut to
// the allowed length.
func DeriveDisplayName(fullName, email string) string {
	name := sanitize.Text(fullName)
	if name == "" {
		local, _, _ := strings.Cut(email, "@")
		name = sanitize.Text(local)
	}
	if utf8.RuneCountInString(name) > maxDisplayName {
		name = strings.TrimSpace(string([]rune(name)[:maxDisplayName]))
	}
	if utf8.RuneCountInString(name) < minDisplayName {
		return fallbackName
	}
	return name
}

// GetMe returns the caller's own profile.
func (s *Service) GetMe(ctx context.Context, id uuid.UUID) (transport.UserResponse, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.UserResponse{}, err
	}
	return toUserResponse(u), nil
}

// UpdateMe changes the caller's display name.
func (s *Service) UpdateMe(ctx context.Context, id uuid.UUID, req transport.UpdateMeRequest) (transport.UserResponse, error) {
	name := sanitize.Text(req.DisplayName)
	if n := utf8.RuneCountInString(name); n < minDisplayName || n > maxDisplayName {
		return transport.UserResponse{}, apperr.Validation("display name must be between 2 and 50 characters")
	}

	u, err := s.repo.UpdateDisplayName(ctx, id, name)
	if err != nil {
		return transport.UserResponse{}, err
	}
	return toUserResponse(u), nil
}

// GetProfile returns a public profile with the user's upload count.
func (s *Service) GetProfile(ctx context.Context, id uuid.UUID) (transport.PublicProfileResponse, error) {
	u, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return transport.PublicProfileResponse{}, err
	}

	count := 0
	if s.uploads != nil {
		count, err = s.uploads.CountByAuthor(ctx, id)
		if err != nil {
			return transport.PublicProfileResponse{}, err
		}
	}

	return transport.PublicProfileResponse{
		ID:          u.ID,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		UploadCount: count,
		CreatedAt:   u.CreatedAt,
	}, nil
}

func toUserResponse(u repository.User) transport.UserResponse {
	return transport.UserResponse{
		ID:          u.ID,
		Email:       u.Email,
		DisplayName: u.DisplayName,
		AvatarURL:   u.AvatarURL,
		Provider:    u.Provider,
		CreatedAt:   u.CreatedAt,
		UpdatedAt:   u.UpdatedAt,
	}
}
