package ports

import (
	"context"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
)

// RegisterInput carries a password registration.
type RegisterInput struct {
	Email       string `validate:"required,email"`
	Password    string `validate:"required,min=6"`
	DisplayName string `validate:"required"`
}

// ExternalIdentity is what an OAuth provider reports about a signed-in user.
type ExternalIdentity struct {
	ProviderUserID string
	Provider       string
	Email          string
	Name           string
	AvatarURL      string
}

// OAuthProvider is a popup/redirect sign-in provider.
type OAuthProvider interface {
	Name() string
	ConsentURL(state string) string
	Exchange(ctx context.Context, code string) (*ExternalIdentity, error)
}

// AuthService signs identities in. New identities always start as
// domain.RoleUser.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.Identity, error)
	Login(ctx context.Context, email, password string) (string, *domain.Identity, error)
	SignInExternal(ctx context.Context, ext ExternalIdentity) (string, *domain.Identity, error)
}

// UpdateProfileInput carries a self-service profile edit.
type UpdateProfileInput struct {
	DisplayName string `validate:"required"`
	Phone       string
	City        string
	Bio         string `validate:"max=1000"`
	AvatarURL   string `validate:"omitempty,url"`
}

// ProfileService reads and edits identities outside the approval workflow.
type ProfileService interface {
	Get(ctx context.Context, id string) (*domain.Identity, error)
	Update(ctx context.Context, id string, in UpdateProfileInput) (*domain.Identity, error)
	SetBanned(ctx context.Context, id string, banned bool) (*domain.Identity, error)
}

// LoginThrottle limits sign-in attempts per key (normally the email).
type LoginThrottle interface {
	Allow(ctx context.Context, key string) (bool, error)
}
