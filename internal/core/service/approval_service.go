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

// ApprovalService implements ports.ApprovalService.
type ApprovalService struct {
	repo       ports.ApprovalRepository
	identities ports.IdentityRepository
	guard      ports.SubmitGuard
	logger     zerolog.Logger
	now        func() time.Time
}

func NewApprovalService(repo ports.ApprovalRepository, identities ports.IdentityRepository, guard ports.SubmitGuard, logger zerolog.Logger) *ApprovalService {
	return &ApprovalService{
		repo:       repo,
		identities: identities,
		guard:      guard,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Submit validates and stores a new request. The stored status is always
// pending, whatever the caller sent. Validation runs before any write.
func (s *ApprovalService) Submit(ctx context.Context, in ports.SubmitRequestInput) (*domain.ApprovalRequest, error) {
	if err := validation.Struct(in); err != nil {
		return nil, err
	}
	reqType, err := domain.ParseRequestType(in.Type)
	if err != nil {
		return nil, err
	}

	// Only plain users can ask to be elevated; the stored role is authoritative.
	requester, err := s.identities.FindByID(ctx, in.RequesterID)
	if err != nil {
		return nil, fmt.Errorf("submit request: %w", err)
	}
	if requester.Role.Elevated() {
		return nil, fmt.Errorf("submit request: %w: already %s", domain.ErrForbidden, requester.Role)
	}

	// 1. Double-submit guard. A guard outage must not block submissions.
	acquired, err := s.guard.Acquire(ctx, in.RequesterID, in.Type)
	switch {
	case err != nil:
		s.logger.Warn().Err(err).Str("requester_id", in.RequesterID).Msg("submit guard unavailable, continuing")
	case !acquired:
		return nil, domain.ErrDuplicateSubmission
	default:
		defer func() {
			if relErr := s.guard.Release(context.WithoutCancel(ctx), in.RequesterID, in.Type); relErr != nil {
				s.logger.Warn().Err(relErr).Str("requester_id", in.RequesterID).Msg("failed to release submit guard")
			}
		}()
	}

	// 2. One pending request per type.
	pending, err := s.repo.List(ctx, ports.RequestFilter{
		RequesterID: in.RequesterID,
		Type:        reqType,
		Status:      domain.RequestPending,
	})
	if err != nil {
		return nil, fmt.Errorf("submit request: check pending: %w", err)
	}
	if len(pending) > 0 {
		return nil, domain.ErrPendingRequestExists
	}

	if in.Status != "" && in.Status != string(domain.RequestPending) {
		s.logger.Debug().Str("requester_id", in.RequesterID).Str("status", in.Status).Msg("submitted status ignored")
	}

	req := &domain.ApprovalRequest{
		RequesterID:  in.RequesterID,
		Type:         reqType,
		ContactEmail: in.Email,
		Phone:        in.Phone,
		Note:         in.Note,
		Business: domain.BusinessFields{
			FullName:        in.FullName,
			Languages:       in.Languages,
			Experience:      in.Experience,
			Specialties:     in.Specialties,
			Area:            in.Area,
			IDNumber:        in.IDNumber,
			BusinessName:    in.BusinessName,
			BusinessType:    in.BusinessType,
			TaxCode:         in.TaxCode,
			BusinessAddress: in.BusinessAddress,
			LicenseURL:      in.LicenseURL,
			Website:         in.Website,
		}.Normalized(),
		Status:      domain.RequestPending,
		SubmittedAt: s.now(),
	}

	created, err := s.repo.Insert(ctx, req)
	if err != nil {
		s.logger.Error().Err(err).Str("requester_id", in.RequesterID).Msg("failed to store approval request")
		return nil, fmt.Errorf("submit request: %w", err)
	}

	s.logger.Info().
		Str("request_id", created.ID).
		Str("requester_id", created.RequesterID).
		Str("type", string(created.Type)).
		Msg("approval request submitted")
	return created, nil
}

// ListPending returns every pending request. No requests is an empty list.
func (s *ApprovalService) ListPending(ctx context.Context) ([]*domain.ApprovalRequest, error) {
	return s.list(ctx, ports.RequestFilter{Status: domain.RequestPending})
}

func (s *ApprovalService) ListApproved(ctx context.Context, t domain.RequestType) ([]*domain.ApprovalRequest, error) {
	return s.list(ctx, ports.RequestFilter{Status: domain.RequestApproved, Type: t})
}

func (s *ApprovalService) ListMine(ctx context.Context, requesterID string) ([]*domain.ApprovalRequest, error) {
	return s.list(ctx, ports.RequestFilter{RequesterID: requesterID})
}

func (s *ApprovalService) list(ctx context.Context, f ports.RequestFilter) ([]*domain.ApprovalRequest, error) {
	items, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if items == nil {
		items = []*domain.ApprovalRequest{}
	}
	return items, nil
}
