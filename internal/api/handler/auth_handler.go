package handler

import (
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/ports"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	authService ports.AuthService
	google      ports.OAuthProvider
	frontendURL string
}

func NewAuthHandler(authService ports.AuthService, google ports.OAuthProvider, frontendURL string) *AuthHandler {
	return &AuthHandler{authService: authService, google: google, frontendURL: frontendURL}
}

// Register creates a new account with role "user".
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  authResponse
// @Failure      409   {object}  map[string]string
// @Failure      422   {object}  map[string]string
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	user, err := h.authService.Register(c.Request().Context(), ports.RegisterInput{
		Email:       req.Email,
		Password:    req.Password,
		DisplayName: req.DisplayName,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, authResponse{User: user})
}

// Login authenticates a user and returns a JWT token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  authResponse
// @Failure      401   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Failure      429   {object}  map[string]string
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	token, user, err := h.authService.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, authResponse{Token: token, User: user})
}

// GoogleStart redirects to Google's consent screen.
//
// @Summary      Start Google sign-in
// @Tags         auth
// @Success      307
// @Router       /auth/oauth/google [get]
func (h *AuthHandler) GoogleStart(c echo.Context) error {
	state := uuid.NewString()
	c.SetCookie(&http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/auth/oauth",
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return c.Redirect(http.StatusTemporaryRedirect, h.google.ConsentURL(state))
}

// GoogleCallback completes Google sign-in and hands the token to the
// frontend in the URL fragment.
//
// @Summary      Google sign-in callback
// @Tags         auth
// @Param        code   query  string  true  "Authorization code"
// @Param        state  query  string  true  "State issued by GoogleStart"
// @Success      307
// @Failure      401    {object}  map[string]string
// @Failure      502    {object}  map[string]string
// @Router       /auth/oauth/google/callback [get]
func (h *AuthHandler) GoogleCallback(c echo.Context) error {
	cookie, err := c.Cookie(oauthStateCookie)
	if err != nil || cookie.Value == "" || cookie.Value != c.QueryParam("state") {
		return domain.NewAuthError(domain.AuthInvalidCredentials, nil)
	}
	c.SetCookie(&http.Cookie{Name: oauthStateCookie, Path: "/auth/oauth", MaxAge: -1})

	code := c.QueryParam("code")
	if code == "" {
		return domain.NewAuthError(domain.AuthProviderFailure, nil)
	}

	ext, err := h.google.Exchange(c.Request().Context(), code)
	if err != nil {
		return domain.NewAuthError(domain.AuthProviderFailure, err)
	}

	token, _, err := h.authService.SignInExternal(c.Request().Context(), *ext)
	if err != nil {
		return err
	}

	target := h.frontendURL + "/auth/callback#" + url.Values{"token": {token}}.Encode()
	return c.Redirect(http.StatusTemporaryRedirect, target)
}
