package ports

import (
	"context"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
)

// SubmitRequestInput carries an approval request form. Status is accepted
// from callers but ignored: every submission is stored as pending.
type SubmitRequestInput struct {
	RequesterID string `validate:"required"`
	Type        string `validate:"required,oneof=buddy manager"`
	Status      string
	Email       string `validate:"required,email"`
	Phone       string `validate:"required"`
	Note        string `validate:"max=2000"`

	FullName    string `validate:"required_if=Type buddy"`
	Languages   []string
	Experience  string
	Specialties []string
	Area        string
	IDNumber    string

	BusinessName    string `validate:"required_if=Type manager"`
	BusinessType    string
	TaxCode         string
	BusinessAddress string
	LicenseURL      string `validate:"omitempty,url"`
	Website         string `validate:"omitempty,url"`
}

// ApprovalService is the requester-facing side of approval requests. It has
// no update or delete: only DecisionService changes a request's status.
type ApprovalService interface {
	Submit(ctx context.Context, in SubmitRequestInput) (*domain.ApprovalRequest, error)
	ListPending(ctx context.Context) ([]*domain.ApprovalRequest, error)
	// ListApproved lists approved requests; an empty t lists every type.
	ListApproved(ctx context.Context, t domain.RequestType) ([]*domain.ApprovalRequest, error)
	ListMine(ctx context.Context, requesterID string) ([]*domain.ApprovalRequest, error)
}

// DecideInput carries an admin decision.
type DecideInput struct {
	RequestID        string
	TargetIdentityID string
	RequestedType    string
	Decision         string
	AdminID          string
	Reason           string
}

// DecisionResult is the outcome of Decide. Identity is nil for rejections.
type DecisionResult struct {
	Request  *domain.ApprovalRequest
	Identity *domain.Identity
	// Resumed is true when an interrupted decision was completed.
	Resumed bool
	// AlreadyDecided is true when the same decision had already been applied
	// and nothing was written.
	AlreadyDecided bool
}

// DecisionService is the only path that changes a request's status or
// elevates a role.
type DecisionService interface {
	Decide(ctx context.Context, in DecideInput) (*DecisionResult, error)
	// ResumeInterrupted completes every decision left half-applied and
	// returns how many were completed.
	ResumeInterrupted(ctx context.Context) (int, error)
}
