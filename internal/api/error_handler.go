package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/vivulocal/marketplace-api/internal/api/metrics"
	"github.com/vivulocal/marketplace-api/internal/core/domain"
)

// errorResponse is the canonical error envelope for all API errors.
type errorResponse struct {
	Error      string                  `json:"error"`
	Code       string                  `json:"code,omitempty"`
	Violations []domain.FieldViolation `json:"violations,omitempty"`
	Retryable  *bool                   `json:"retryable,omitempty"`
}

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps known domain errors to their HTTP status codes.
//   - Logs unexpected errors internally without leaking details to the client.
//   - Renders a consistent JSON envelope: {"error": "<message>"}.
func NewHTTPErrorHandler(log zerolog.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, c echo.Context) (int, errorResponse) {
	// Echo's own errors (bind failures, 404 from router, middleware verdicts).
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code, errorResponse{Error: fmt.Sprintf("%v", he.Message)}
	}

	var verr *domain.ValidationError
	if errors.As(err, &verr) {
		return http.StatusUnprocessableEntity, errorResponse{Error: verr.Error(), Code: "validation_failed", Violations: verr.Violations}
	}

	var aerr *domain.AuthError
	if errors.As(err, &aerr) {
		return authStatus(aerr.Code), errorResponse{Error: aerr.Error(), Code: string(aerr.Code)}
	}

	var uerr *domain.UploadError
	if errors.As(err, &uerr) {
		status := http.StatusBadRequest
		if uerr.Retryable {
			status = http.StatusBadGateway
		}
		retryable := uerr.Retryable
		return status, errorResponse{Error: "upload failed: " + uerr.Reason, Code: "upload_failed", Retryable: &retryable}
	}

	var pw *domain.PartialWriteError
	if errors.As(err, &pw) {
		metrics.PartialWritesTotal.WithLabelValues(pw.Step).Inc()
		log.Error().Err(err).Str("request_id", pw.RequestID).Str("step", pw.Step).Msg("decision partially applied")
		return http.StatusInternalServerError, errorResponse{
			Error: "the decision was only partly applied; retry the same decision to complete it",
			Code:  "partial_write",
		}
	}

	// Known domain errors → deterministic HTTP codes.
	switch {
	case errors.Is(err, domain.ErrQuotaExceeded):
		return http.StatusTooManyRequests, errorResponse{Error: "the assistant is busy, please try again later", Code: "quota_exceeded"}
	case errors.Is(err, domain.ErrIdentityNotFound):
		return http.StatusNotFound, errorResponse{Error: "user not found", Code: "not_found"}
	case errors.Is(err, domain.ErrRequestNotFound):
		return http.StatusNotFound, errorResponse{Error: "approval request not found", Code: "not_found"}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, errorResponse{Error: "not found", Code: "not_found"}
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, errorResponse{Error: "access forbidden"}
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, errorResponse{Error: "the request has already been decided", Code: "invalid_transition"}
	case errors.Is(err, domain.ErrPendingRequestExists):
		return http.StatusConflict, errorResponse{Error: domain.ErrPendingRequestExists.Error(), Code: "pending_exists"}
	case errors.Is(err, domain.ErrDuplicateSubmission):
		return http.StatusConflict, errorResponse{Error: domain.ErrDuplicateSubmission.Error(), Code: "duplicate_submission"}
	}

	// Unexpected error: log the real cause, return a generic message.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	return http.StatusInternalServerError, errorResponse{Error: "internal server error"}
}

func authStatus(code domain.AuthCode) int {
	switch code {
	case domain.AuthTooManyRequests:
		return http.StatusTooManyRequests
	case domain.AuthAccountBanned:
		return http.StatusForbidden
	case domain.AuthEmailInUse:
		return http.StatusConflict
	case domain.AuthUserNotFound:
		return http.StatusNotFound
	case domain.AuthProviderFailure:
		return http.StatusBadGateway
	default:
		return http.StatusUnauthorized
	}
}
