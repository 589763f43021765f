package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vivulocal/marketplace-api/internal/api/metrics"
	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

// ApprovalHandler serves requester submissions and the admin review queue.
type ApprovalHandler struct {
	approvals ports.ApprovalService
	decisions ports.DecisionService
}

func NewApprovalHandler(approvals ports.ApprovalService, decisions ports.DecisionService) *ApprovalHandler {
	return &ApprovalHandler{approvals: approvals, decisions: decisions}
}

// Submit files a buddy or manager request for the caller. Any status in the
// body is ignored; new requests are always pending.
//
// @Summary      Submit an approval request
// @Tags         requests
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      submitRequest  true  "Request form"
// @Success      201   {object}  domain.ApprovalRequest
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /v1/requests [post]
func (h *ApprovalHandler) Submit(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req submitRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	created, err := h.approvals.Submit(c.Request().Context(), toSubmitInput(req, userID))
	if err != nil {
		return err
	}

	metrics.RequestsSubmittedTotal.WithLabelValues(string(created.Type)).Inc()
	return c.JSON(http.StatusCreated, created)
}

// Mine lists the caller's own requests.
//
// @Summary      My approval requests
// @Tags         requests
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  listResponse
// @Router       /v1/requests/mine [get]
func (h *ApprovalHandler) Mine(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	items, err := h.approvals.ListMine(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse{Items: items})
}

// List is the admin review queue: pending requests by default, or approved
// requests of one type.
//
// @Summary      List approval requests
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        status  query     string  false  "pending (default) or approved"
// @Param        type    query     string  false  "buddy or manager (approved only)"
// @Success      200     {object}  listResponse
// @Failure      422     {object}  map[string]string
// @Router       /v1/admin/requests [get]
func (h *ApprovalHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	var (
		items []*domain.ApprovalRequest
		err   error
	)
	switch status := c.QueryParam("status"); status {
	case "", string(domain.RequestPending):
		items, err = h.approvals.ListPending(ctx)
	case string(domain.RequestApproved):
		var t domain.RequestType
		if raw := c.QueryParam("type"); raw != "" {
			if t, err = domain.ParseRequestType(raw); err != nil {
				return err
			}
		}
		items, err = h.approvals.ListApproved(ctx, t)
	default:
		return domain.NewValidationError(domain.FieldViolation{
			Field: "status", Rule: "oneof", Message: "status must be one of: pending approved",
		})
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, listResponse{Items: items})
}

// Decide approves or rejects a request and returns the refreshed pending
// queue. Retrying after a partial write with the same decision completes it.
//
// @Summary      Decide an approval request
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string           true  "Request id"
// @Param        body  body      decisionRequest  true  "Decision"
// @Success      200   {object}  decisionResponse
// @Failure      404   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /v1/admin/requests/{id}/decision [post]
func (h *ApprovalHandler) Decide(c echo.Context) error {
	adminID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req decisionRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := c.Validate(&req); err != nil {
		return err
	}

	ctx := c.Request().Context()
	result, err := h.decisions.Decide(ctx, toDecideInput(req, c.Param("id"), adminID))
	if err != nil {
		return err
	}

	outcome := "applied"
	switch {
	case result.AlreadyDecided:
		outcome = "already_decided"
	case result.Resumed:
		outcome = "resumed"
	}
	metrics.DecisionsTotal.WithLabelValues(req.Type, req.Decision, outcome).Inc()

	pending, err := h.approvals.ListPending(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, decisionResponse{
		Request:        result.Request,
		User:           result.Identity,
		Resumed:        result.Resumed,
		AlreadyDecided: result.AlreadyDecided,
		Pending:        pending,
	})
}
