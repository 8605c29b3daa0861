// Package httpkit provides HTTP utilities including identity abstraction.
package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity represents the authenticated user's identity.
// This interface abstracts identity extraction from the web framework,
// allowing handlers to access user information without depending on Gin.
type Identity interface {
	// UserID returns the authenticated user's ID (the Supabase "sub").
	UserID() uuid.UUID
	// Email returns the email address carried by the token, if any.
	Email() string
	// DisplayName returns the name from the provider's user metadata.
	DisplayName() string
	// AvatarURL returns the avatar from the provider's user metadata.
	AvatarURL() string
	// Provider returns the OAuth provider that issued the session.
	Provider() string
	// Roles returns the user's assigned roles.
	Roles() []string
	// HasRole checks if the user has a specific role.
	HasRole(role string) bool
	// IsAuthenticated returns true if the user is authenticated.
	IsAuthenticated() bool
}

// Profile is the user metadata extracted from the token by AuthRequired.
type Profile struct {
	Email       string
	DisplayName string
	AvatarURL   string
	Provider    string
}

type identity struct {
	userID        uuid.UUID
	profile       Profile
	roles         []string
	authenticated bool
}

func (i *identity) UserID() uuid.UUID   { return i.userID }
func (i *identity) Email() string       { return i.profile.Email }
func (i *identity) DisplayName() string { return i.profile.DisplayName }
func (i *identity) AvatarURL() string   { return i.profile.AvatarURL }
func (i *identity) Provider() string    { return i.profile.Provider }
func (i *identity) Roles() []string     { return i.roles }

func (i *identity) HasRole(role string) bool {
	for _, r := range i.roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *identity) IsAuthenticated() bool {
	return i.authenticated
}

// NewIdentity builds an authenticated identity. Used by tests and by
// middleware that authenticates outside of AuthRequired.
func NewIdentity(userID uuid.UUID, profile Profile, roles ...string) Identity {
	return &identity{userID: userID, profile: profile, roles: roles, authenticated: true}
}

// SetIdentity stores an identity on the gin context.
func SetIdentity(c *gin.Context, id Identity) {
	c.Set(ContextUserIDKey, id.UserID())
	c.Set(ContextRolesKey, id.Roles())
	c.Set(ContextProfileKey, Profile{
		Email:       id.Email(),
		DisplayName: id.DisplayName(),
		AvatarURL:   id.AvatarURL(),
		Provider:    id.Provider(),
	})
}

// GetIdentity extracts the Identity from a Gin context.
// Returns an unauthenticated identity if user info is not present.
func GetIdentity(c *gin.Context) Identity {
	userID, userOK := c.Get(ContextUserIDKey)
	if !userOK {
		return &identity{authenticated: false}
	}

	uid, ok := userID.(uuid.UUID)
	if !ok {
		return &identity{authenticated: false}
	}

	var roleList []string
	if roles, rolesOK := c.Get(ContextRolesKey); rolesOK {
		roleList, _ = roles.([]string)
	}

	var profile Profile
	if raw, profileOK := c.Get(ContextProfileKey); profileOK {
		profile, _ = raw.(Profile)
	}

	return &identity{
		userID:        uid,
		profile:       profile,
		roles:         roleList,
		authenticated: true,
	}
}

// MustGetIdentity extracts the Identity from a Gin context.
// If the user is not authenticated, it aborts with 401 Unauthorized and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
