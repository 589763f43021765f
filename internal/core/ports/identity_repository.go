package ports

import (
	"context"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
)

// IdentityRepository defines persistence operations for identities.
// Not-found lookups return domain.ErrIdentityNotFound.
type IdentityRepository interface {
	Create(ctx context.Context, identity *domain.Identity) (*domain.Identity, error)
	FindByID(ctx context.Context, id string) (*domain.Identity, error)
	FindByEmail(ctx context.Context, email string) (*domain.Identity, error)
	// UpdateProfile overwrites the non-privileged fields only.
	UpdateProfile(ctx context.Context, id, displayName string, profile domain.Profile) (*domain.Identity, error)
	// Elevate sets role, marks the identity verified and copies the business
	// fields and contact phone from an approved request.
	Elevate(ctx context.Context, id string, role domain.Role, phone string, business domain.BusinessFields) (*domain.Identity, error)
	SetStatus(ctx context.Context, id string, status domain.IdentityStatus) (*domain.Identity, error)
}
