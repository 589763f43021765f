package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
)

func TestHTTPErrorHandler(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"validation", domain.NewValidationError(domain.FieldViolation{Field: "business_name", Rule: "required", Message: "business_name is required"}), http.StatusUnprocessableEntity, "validation_failed"},
		{"auth", domain.NewAuthError(domain.AuthTooManyRequests, nil), http.StatusTooManyRequests, "too_many_requests"},
		{"bad credentials", domain.NewAuthError(domain.AuthInvalidCredentials, nil), http.StatusUnauthorized, "invalid_credentials"},
		{"not found", fmt.Errorf("decide: %w", domain.ErrRequestNotFound), http.StatusNotFound, "not_found"},
		{"transition", fmt.Errorf("decide: %w", domain.ErrInvalidTransition), http.StatusConflict, "invalid_transition"},
		{"pending", domain.ErrPendingRequestExists, http.StatusConflict, "pending_exists"},
		{"upload rejected", &domain.UploadError{Reason: "too big"}, http.StatusBadRequest, "upload_failed"},
		{"upload failed", &domain.UploadError{Reason: "storage", Retryable: true}, http.StatusBadGateway, "upload_failed"},
		{"quota", &domain.QuotaExceededError{Tried: []string{"a"}}, http.StatusTooManyRequests, "quota_exceeded"},
		{"partial", &domain.PartialWriteError{RequestID: "r1", Step: "finalize request", Err: errors.New("x")}, http.StatusInternalServerError, "partial_write"},
		{"echo", echo.NewHTTPError(http.StatusForbidden, "forbidden"), http.StatusForbidden, "forbidden"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal server error"},
	}

	h := NewHTTPErrorHandler(zerolog.Nop())
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			e := echo.New()
			rec := httptest.NewRecorder()
			c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

			h(tc.err, c)

			assert.Equal(t, tc.wantCode, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantBody)
		})
	}
}

func TestHTTPErrorHandler_ValidationCarriesViolations(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodPost, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop())(domain.NewValidationError(
		domain.FieldViolation{Field: "full_name", Rule: "required", Message: "full_name is required"},
	), c)

	var body errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Violations, 1)
	assert.Equal(t, "full_name", body.Violations[0].Field)
}
