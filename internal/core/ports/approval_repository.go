package ports

import (
	"context"
	"time"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
)

// RequestFilter narrows a request listing. Zero-valued fields do not filter.
type RequestFilter struct {
	Status      domain.RequestStatus
	Type        domain.RequestType
	RequesterID string
	// Interrupted selects pending requests carrying a decision marker.
	Interrupted bool
	// MarkedBefore, with Interrupted, drops markers set at or after it.
	// Markers with no timestamp are kept.
	MarkedBefore time.Time
}

// ApprovalRepository defines persistence operations for approval requests.
// Requests are never deleted.
type ApprovalRepository interface {
	Insert(ctx context.Context, r *domain.ApprovalRequest) (*domain.ApprovalRequest, error)
	FindByID(ctx context.Context, id string) (*domain.ApprovalRequest, error)
	List(ctx context.Context, filter RequestFilter) ([]*domain.ApprovalRequest, error)

	// MarkDecisionInProgress records d, the deciding admin, the reason and the
	// time of marking on a request that is still pending and carries no other
	// marker. It returns domain.ErrInvalidTransition when the request has
	// moved on.
	MarkDecisionInProgress(ctx context.Context, id string, d domain.Decision, decidedBy, reason string, at time.Time) error

	// Finalize moves a request marked with d to d's status, stamps the
	// decision and clears the marker.
	Finalize(ctx context.Context, id string, d domain.Decision, decidedBy, reason string, at time.Time) (*domain.ApprovalRequest, error)
}
