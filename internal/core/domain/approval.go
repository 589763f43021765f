package domain

import (
	"fmt"
	"time"
)

// RequestType is the role an approval request asks for.
type RequestType string

const (
	RequestBuddy   RequestType = "buddy"
	RequestManager RequestType = "manager"
)

// ParseRequestType validates a transported request type.
func ParseRequestType(s string) (RequestType, error) {
	switch RequestType(s) {
	case RequestBuddy, RequestManager:
		return RequestType(s), nil
	}
	return "", NewValidationError(FieldViolation{Field: "type", Rule: "oneof", Message: "type must be one of: buddy manager"})
}

// Role is the role granted when a request of this type is approved.
func (t RequestType) Role() Role {
	switch t {
	case RequestBuddy:
		return RoleBuddy
	case RequestManager:
		return RoleManager
	}
	return RoleUser
}

// RequestStatus represents the lifecycle state of an approval request.
type RequestStatus string

const (
	RequestPending  RequestStatus = "pending"
	RequestApproved RequestStatus = "approved"
	RequestRejected RequestStatus = "rejected"
)

// validTransitions is one-directional: nothing returns to pending.
var validTransitions = map[RequestStatus][]RequestStatus{
	RequestPending: {RequestApproved, RequestRejected},
}

// CanTransitionTo reports whether a transition from current status to next is valid.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range validTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Decision is an admin verdict on a pending request.
type Decision string

const (
	DecisionApproved Decision = "approved"
	DecisionRejected Decision = "rejected"
)

// ParseDecision validates a transported decision.
func ParseDecision(s string) (Decision, error) {
	switch Decision(s) {
	case DecisionApproved, DecisionRejected:
		return Decision(s), nil
	}
	return "", NewValidationError(FieldViolation{Field: "decision", Rule: "oneof", Message: "decision must be one of: approved rejected"})
}

// Status is the request status a decision finalizes to.
func (d Decision) Status() RequestStatus {
	switch d {
	case DecisionApproved:
		return RequestApproved
	case DecisionRejected:
		return RequestRejected
	}
	panic(fmt.Sprintf("domain: unhandled decision %q", string(d)))
}

// ApprovalRequest asks for a requester to be elevated to buddy or manager.
// DecisionInProgress is set while a decision is being applied and cleared
// once the request is finalized; a non-empty value on a pending request
// means a decision is running or was interrupted. DecisionMarkedAt tells the
// two apart by age.
type ApprovalRequest struct {
	ID                 string         `json:"id"`
	RequesterID        string         `json:"requester_id"`
	Type               RequestType    `json:"type"`
	ContactEmail       string         `json:"contact_email"`
	Phone              string         `json:"phone"`
	Note               string         `json:"note,omitempty"`
	Business           BusinessFields `json:"business"`
	Status             RequestStatus  `json:"status"`
	DecisionInProgress Decision       `json:"decision_in_progress,omitempty"`
	DecisionMarkedAt   *time.Time     `json:"decision_marked_at,omitempty"`
	SubmittedAt        time.Time      `json:"submitted_at"`
	DecidedAt          *time.Time     `json:"decided_at,omitempty"`
	DecidedBy          string         `json:"decided_by,omitempty"`
	RejectionReason    string         `json:"rejection_reason,omitempty"`
}

// Interrupted reports whether a decision was started but never finalized.
func (r *ApprovalRequest) Interrupted() bool {
	return r.Status == RequestPending && r.DecisionInProgress != ""
}
