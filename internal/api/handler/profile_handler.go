package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

type ProfileHandler struct {
	profiles ports.ProfileService
}

func NewProfileHandler(profiles ports.ProfileService) *ProfileHandler {
	return &ProfileHandler{profiles: profiles}
}

// GetMe returns the caller's stored identity.
//
// @Summary      Current user
// @Tags         profile
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  domain.Identity
// @Failure      401  {object}  map[string]string
// @Router       /v1/me [get]
func (h *ProfileHandler) GetMe(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	identity, err := h.profiles.Get(c.Request().Context(), userID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}

// UpdateMe edits the caller's profile. Role and verification cannot be set
// here.
//
// @Summary      Update profile
// @Tags         profile
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      updateProfileRequest  true  "Profile fields"
// @Success      200   {object}  domain.Identity
// @Failure      422   {object}  map[string]string
// @Router       /v1/me [patch]
func (h *ProfileHandler) UpdateMe(c echo.Context) error {
	userID, err := ctxUserID(c)
	if err != nil {
		return err
	}

	var req updateProfileRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	identity, err := h.profiles.Update(c.Request().Context(), userID, toUpdateProfileInput(req))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}

// Ban suspends an account.
//
// @Summary      Ban user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.Identity
// @Failure      404  {object}  map[string]string
// @Router       /v1/admin/users/{id}/ban [post]
func (h *ProfileHandler) Ban(c echo.Context) error {
	return h.setBanned(c, true)
}

// Unban reactivates an account.
//
// @Summary      Unban user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id"
// @Success      200  {object}  domain.Identity
// @Failure      404  {object}  map[string]string
// @Router       /v1/admin/users/{id}/unban [post]
func (h *ProfileHandler) Unban(c echo.Context) error {
	return h.setBanned(c, false)
}

func (h *ProfileHandler) setBanned(c echo.Context, banned bool) error {
	adminID, err := ctxUserID(c)
	if err != nil {
		return err
	}
	target := c.Param("id")
	if target == adminID {
		return echo.NewHTTPError(http.StatusBadRequest, "admins cannot change their own status")
	}

	identity, err := h.profiles.SetBanned(c.Request().Context(), target, banned)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, identity)
}
