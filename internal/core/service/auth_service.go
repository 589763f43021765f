package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
	"github.com/vivulocal/marketplace-api/internal/pkg/validation"
)

// AuthService implements registration and sign-in. It never assigns a role
// other than domain.RoleUser.
type AuthService struct {
	repo      ports.IdentityRepository
	throttle  ports.LoginThrottle
	jwtSecret string
	tokenTTL  time.Duration
	log       zerolog.Logger
}

func NewAuthService(repo ports.IdentityRepository, throttle ports.LoginThrottle, jwtSecret string, tokenTTL time.Duration, log zerolog.Logger) *AuthService {
	if tokenTTL <= 0 {
		tokenTTL = 24 * time.Hour
	}
	return &AuthService{repo: repo, throttle: throttle, jwtSecret: jwtSecret, tokenTTL: tokenTTL, log: log}
}

func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.Identity, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	identity := &domain.Identity{
		Email:        normalizeEmail(in.Email),
		DisplayName:  in.DisplayName,
		PasswordHash: string(hash),
		Provider:     "password",
		Role:         domain.RoleUser,
		Status:       domain.StatusActive,
		Business:     domain.BusinessFields{}.Normalized(),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	created, err := s.repo.Create(ctx, identity)
	if err != nil {
		if errors.Is(err, domain.ErrEmailTaken) {
			return nil, domain.NewAuthError(domain.AuthEmailInUse, err)
		}
		return nil, err
	}
	s.log.Info().Str("identity_id", created.ID).Msg("identity registered")
	return created, nil
}

func (s *AuthService) Login(ctx context.Context, email, password string) (string, *domain.Identity, error) {
	if email == "" || password == "" {
		return "", nil, domain.NewAuthError(domain.AuthInvalidCredentials, nil)
	}
	email = normalizeEmail(email)

	allowed, err := s.throttle.Allow(ctx, email)
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle unavailable, continuing")
	} else if !allowed {
		return "", nil, domain.NewAuthError(domain.AuthTooManyRequests, nil)
	}

	identity, err := s.repo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return "", nil, domain.NewAuthError(domain.AuthUserNotFound, err)
		}
		return "", nil, err
	}

	if identity.PasswordHash == "" {
		return "", nil, domain.NewAuthError(domain.AuthInvalidCredentials, nil)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(identity.PasswordHash), []byte(password)); err != nil {
		return "", nil, domain.NewAuthError(domain.AuthInvalidCredentials, err)
	}

	return s.issue(identity)
}

// SignInExternal signs in an OAuth identity, creating it as a plain user on
// first sign-in.
func (s *AuthService) SignInExternal(ctx context.Context, ext ports.ExternalIdentity) (string, *domain.Identity, error) {
	if ext.Email == "" {
		return "", nil, domain.NewAuthError(domain.AuthProviderFailure, errors.New("provider returned no email"))
	}
	email := normalizeEmail(ext.Email)

	identity, err := s.repo.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		now := time.Now().UTC()
		identity, err = s.repo.Create(ctx, &domain.Identity{
			Email:       email,
			DisplayName: ext.Name,
			Provider:    ext.Provider,
			Role:        domain.RoleUser,
			Status:      domain.StatusActive,
			Profile:     domain.Profile{AvatarURL: ext.AvatarURL},
			Business:    domain.BusinessFields{}.Normalized(),
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if err != nil {
			return "", nil, fmt.Errorf("sign in external: create: %w", err)
		}
		s.log.Info().Str("identity_id", identity.ID).Str("provider", ext.Provider).Msg("identity created from provider")
	case err != nil:
		return "", nil, err
	}

	return s.issue(identity)
}

func (s *AuthService) issue(identity *domain.Identity) (string, *domain.Identity, error) {
	if identity.Status == domain.StatusBanned {
		return "", nil, domain.NewAuthError(domain.AuthAccountBanned, nil)
	}
	token, err := s.generateToken(identity)
	if err != nil {
		return "", nil, err
	}
	return token, identity, nil
}

// generateToken signs the identity's id and role. The role claim is a hint
// only; authorization re-reads the stored role.
func (s *AuthService) generateToken(identity *domain.Identity) (string, error) {
	claims := jwt.MapClaims{
		"sub":   identity.ID,
		"email": identity.Email,
		"role":  string(identity.Role),
		"exp":   time.Now().Add(s.tokenTTL).Unix(),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString([]byte(s.jwtSecret))
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
