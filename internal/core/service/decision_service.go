package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

const (
	stepMark     = "mark decision in progress"
	stepElevate  = "elevate identity"
	stepFinalize = "finalize request"
)

// resumeGrace is how old a decision marker must be before recovery treats it
// as interrupted rather than still running.
const resumeGrace = 2 * time.Minute

type decisionService struct {
	requests   ports.ApprovalRepository
	identities ports.IdentityRepository
	publisher  ports.ChangePublisher
	log        zerolog.Logger
	now        func() time.Time
}

// NewDecisionService returns a DecisionService implementation.
func NewDecisionService(
	requests ports.ApprovalRepository,
	identities ports.IdentityRepository,
	publisher ports.ChangePublisher,
	log zerolog.Logger,
) ports.DecisionService {
	return &decisionService{
		requests:   requests,
		identities: identities,
		publisher:  publisher,
		log:        log,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Decide applies an admin decision in two phases: mark the request, write
// the identity (approvals only), then finalize the request. A failure after
// the mark leaves the marker in place and returns *domain.PartialWriteError;
// calling Decide again with the same decision resumes the work.
func (s *decisionService) Decide(ctx context.Context, in ports.DecideInput) (*ports.DecisionResult, error) {
	decision, err := domain.ParseDecision(in.Decision)
	if err != nil {
		return nil, err
	}

	// 1. Re-read: never act on the admin's possibly stale list.
	req, err := s.requests.FindByID(ctx, in.RequestID)
	if err != nil {
		return nil, fmt.Errorf("decide: %w", err)
	}
	if string(req.Type) != in.RequestedType || req.RequesterID != in.TargetIdentityID {
		return nil, domain.NewValidationError(domain.FieldViolation{
			Field:   "request",
			Rule:    "match",
			Message: "request type or requester does not match the stored request",
		})
	}

	// 2. Already finalized with the same verdict: nothing to write.
	if req.Status == decision.Status() {
		s.log.Info().Str("request_id", req.ID).Str("decision", string(decision)).Msg("decision already applied")
		return &ports.DecisionResult{Request: req, AlreadyDecided: true}, nil
	}

	resumed := req.DecisionInProgress == decision && req.Status == domain.RequestPending
	if !resumed {
		if !req.Status.CanTransitionTo(decision.Status()) || req.DecisionInProgress != "" {
			return nil, fmt.Errorf("decide: %w (from %s to %s)", domain.ErrInvalidTransition, req.Status, decision.Status())
		}
		if decision == domain.DecisionApproved {
			if err := s.checkTarget(ctx, req); err != nil {
				return nil, err
			}
		}
		// 3. Phase one: the marker makes an interrupted decision detectable.
		if err := s.requests.MarkDecisionInProgress(ctx, req.ID, decision, in.AdminID, in.Reason, s.now()); err != nil {
			return nil, fmt.Errorf("decide: %s: %w", stepMark, err)
		}
	}

	result, err := s.apply(ctx, req, decision, in.AdminID, in.Reason)
	if err != nil {
		return nil, err
	}
	result.Resumed = resumed
	return result, nil
}

// checkTarget refuses to approve a request whose requester already holds a
// different elevated role.
func (s *decisionService) checkTarget(ctx context.Context, req *domain.ApprovalRequest) error {
	identity, err := s.identities.FindByID(ctx, req.RequesterID)
	if err != nil {
		return fmt.Errorf("decide: %w", err)
	}
	if identity.Role.Elevated() && identity.Role != req.Type.Role() {
		return fmt.Errorf("decide: %w (requester is already %s)", domain.ErrInvalidTransition, identity.Role)
	}
	return nil
}

// ResumeInterrupted finishes every request whose decision marker is older
// than resumeGrace. Younger markers belong to decisions still running.
func (s *decisionService) ResumeInterrupted(ctx context.Context) (int, error) {
	cutoff := s.now().Add(-resumeGrace)
	stalled, err := s.requests.List(ctx, ports.RequestFilter{
		Status:       domain.RequestPending,
		Interrupted:  true,
		MarkedBefore: cutoff,
	})
	if err != nil {
		return 0, fmt.Errorf("resume decisions: %w", err)
	}

	done := 0
	var errs []error
	for _, req := range stalled {
		if !req.Interrupted() {
			continue
		}
		if req.DecisionMarkedAt != nil && !req.DecisionMarkedAt.Before(cutoff) {
			continue
		}
		result, err := s.apply(ctx, req, req.DecisionInProgress, req.DecidedBy, req.RejectionReason)
		if err != nil {
			s.log.Error().Err(err).Str("request_id", req.ID).Msg("failed to resume decision")
			errs = append(errs, err)
			continue
		}
		if result.AlreadyDecided {
			continue
		}
		s.log.Info().Str("request_id", req.ID).Str("decision", string(req.DecisionInProgress)).Msg("interrupted decision resumed")
		done++
	}
	return done, errors.Join(errs...)
}

// apply performs the writes after the marker is set. Both writes are
// idempotent, so re-running apply converges.
func (s *decisionService) apply(ctx context.Context, req *domain.ApprovalRequest, decision domain.Decision, adminID, reason string) (*ports.DecisionResult, error) {
	var identity *domain.Identity
	if decision == domain.DecisionApproved {
		var err error
		identity, err = s.identities.Elevate(ctx, req.RequesterID, req.Type.Role(), req.Phone, req.Business.Normalized())
		if err != nil {
			return nil, &domain.PartialWriteError{RequestID: req.ID, Step: stepElevate, Err: err}
		}
	}

	final, err := s.requests.Finalize(ctx, req.ID, decision, adminID, reason, s.now())
	if err != nil {
		// Another caller may have finished the same decision first.
		if errors.Is(err, domain.ErrInvalidTransition) {
			if current, rerr := s.requests.FindByID(ctx, req.ID); rerr == nil && current.Status == decision.Status() {
				s.log.Info().Str("request_id", req.ID).Str("decision", string(decision)).Msg("decision finalized concurrently")
				return &ports.DecisionResult{Request: current, Identity: identity, AlreadyDecided: true}, nil
			}
		}
		return nil, &domain.PartialWriteError{RequestID: req.ID, Step: stepFinalize, Err: err}
	}

	if identity != nil {
		fields := identity.Snapshot()
		delete(fields, domain.FieldID)
		change := ports.IdentityChange{IdentityID: identity.ID, Fields: fields, At: s.now()}
		if err := s.publisher.Publish(ctx, change); err != nil {
			// The write is done; clients converge on their next read.
			s.log.Warn().Err(err).Str("identity_id", identity.ID).Msg("failed to publish identity change")
		}
	}

	s.log.Info().
		Str("request_id", req.ID).
		Str("requester_id", req.RequesterID).
		Str("decision", string(decision)).
		Str("admin_id", adminID).
		Msg("decision applied")

	return &ports.DecisionResult{Request: final, Identity: identity}, nil
}
