package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound         = errors.New("not found")
	ErrIdentityNotFound = fmt.Errorf("identity %w", ErrNotFound)
	ErrRequestNotFound  = fmt.Errorf("approval request %w", ErrNotFound)

	ErrEmailTaken           = errors.New("email already registered")
	ErrInvalidTransition    = errors.New("invalid status transition")
	ErrPendingRequestExists = errors.New("a pending request of this type already exists")
	ErrDuplicateSubmission  = errors.New("submission already in progress")
	ErrForbidden            = errors.New("access forbidden")
	ErrValidation           = errors.New("validation failed")
	ErrQuotaExceeded        = errors.New("completion quota exceeded")
	ErrUpload               = errors.New("upload failed")
)

// FieldViolation describes one rejected input field.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

// ValidationError reports missing or invalid input. It matches ErrValidation
// with errors.Is.
type ValidationError struct {
	Violations []FieldViolation
}

func NewValidationError(v ...FieldViolation) *ValidationError {
	return &ValidationError{Violations: v}
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Violations))
	for _, v := range e.Violations {
		msgs = append(msgs, v.Message)
	}
	return strings.Join(msgs, "; ")
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

// AuthCode is a provider-neutral authentication failure code.
type AuthCode string

const (
	AuthInvalidCredentials AuthCode = "invalid_credentials"
	AuthUserNotFound       AuthCode = "user_not_found"
	AuthTooManyRequests    AuthCode = "too_many_requests"
	AuthAccountBanned      AuthCode = "account_banned"
	AuthEmailInUse         AuthCode = "email_in_use"
	AuthProviderFailure    AuthCode = "provider_failure"
)

var authMessages = map[AuthCode]string{
	AuthInvalidCredentials: "Email or password is incorrect.",
	AuthUserNotFound:       "No account exists for this email.",
	AuthTooManyRequests:    "Too many attempts. Please wait a moment and try again.",
	AuthAccountBanned:      "This account has been suspended.",
	AuthEmailInUse:         "An account with this email already exists.",
	AuthProviderFailure:    "Sign-in with the external provider failed. Please try again.",
}

// AuthError is an authentication failure carrying a user-facing message.
type AuthError struct {
	Code AuthCode
	Err  error
}

func NewAuthError(code AuthCode, cause error) *AuthError {
	return &AuthError{Code: code, Err: cause}
}

func (e *AuthError) Error() string {
	if msg, ok := authMessages[e.Code]; ok {
		return msg
	}
	return "Authentication failed."
}

func (e *AuthError) Unwrap() error { return e.Err }

// UploadError is a failed file transfer. Retryable is false when the file
// itself was rejected (size or type) and resending it cannot succeed.
type UploadError struct {
	Reason    string
	Retryable bool
	Err       error
}

func (e *UploadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("upload: %s: %v", e.Reason, e.Err)
	}
	return "upload: " + e.Reason
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool { return target == ErrUpload }

// QuotaExceededError is returned once every configured completion model has
// reported quota exhaustion.
type QuotaExceededError struct {
	Tried []string
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("completion quota exceeded on all models (%s)", strings.Join(e.Tried, ", "))
}

func (e *QuotaExceededError) Is(target error) bool { return target == ErrQuotaExceeded }

// PartialWriteError reports an approval whose writes were only partly
// applied. The request keeps its in-progress marker so the same decision can
// be retried to completion.
type PartialWriteError struct {
	RequestID string
	Step      string
	Err       error
}

func (e *PartialWriteError) Error() string {
	return fmt.Sprintf("decision on request %s partially applied: %s failed: %v", e.RequestID, e.Step, e.Err)
}

func (e *PartialWriteError) Unwrap() error { return e.Err }
