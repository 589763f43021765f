package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
	"github.com/vivulocal/marketplace-api/internal/pkg/validation"
)

// ProfileService edits identities outside the approval workflow and
// announces every edit on the live feed.
type ProfileService struct {
	repo      ports.IdentityRepository
	publisher ports.ChangePublisher
	log       zerolog.Logger
}

func NewProfileService(repo ports.IdentityRepository, publisher ports.ChangePublisher, log zerolog.Logger) *ProfileService {
	return &ProfileService{repo: repo, publisher: publisher, log: log}
}

func (s *ProfileService) Get(ctx context.Context, id string) (*domain.Identity, error) {
	return s.repo.FindByID(ctx, id)
}

// Update changes display name and profile fields. Role, verification,
// status and email are not reachable from here.
func (s *ProfileService) Update(ctx context.Context, id string, in ports.UpdateProfileInput) (*domain.Identity, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}

	updated, err := s.repo.UpdateProfile(ctx, id, in.DisplayName, domain.Profile{
		Phone:     in.Phone,
		City:      in.City,
		Bio:       in.Bio,
		AvatarURL: in.AvatarURL,
	})
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.publish(ctx, updated.ID, map[string]any{
		domain.FieldDisplayName: updated.DisplayName,
		"phone":                 updated.Profile.Phone,
		"city":                  updated.Profile.City,
		"bio":                   updated.Profile.Bio,
		"avatar_url":            updated.Profile.AvatarURL,
	})
	return updated, nil
}

// SetBanned bans or unbans an identity. Banned identities keep their role.
func (s *ProfileService) SetBanned(ctx context.Context, id string, banned bool) (*domain.Identity, error) {
	status := domain.StatusActive
	if banned {
		status = domain.StatusBanned
	}

	updated, err := s.repo.SetStatus(ctx, id, status)
	if err != nil {
		return nil, fmt.Errorf("set status: %w", err)
	}

	s.log.Info().Str("identity_id", id).Str("status", string(status)).Msg("identity status changed")
	s.publish(ctx, updated.ID, map[string]any{domain.FieldStatus: string(updated.Status)})
	return updated, nil
}

func (s *ProfileService) publish(ctx context.Context, id string, fields map[string]any) {
	change := ports.IdentityChange{IdentityID: id, Fields: fields, At: time.Now().UTC()}
	if err := s.publisher.Publish(ctx, change); err != nil {
		s.log.Warn().Err(err).Str("identity_id", id).Msg("failed to publish identity change")
	}
}
