package middleware

import (
	"context"
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vivulocal/marketplace-api/internal/core/domain"
	"github.com/vivulocal/marketplace-api/internal/core/guard"
)

// IdentityResolver loads the current stored identity.
type IdentityResolver interface {
	Get(ctx context.Context, id string) (*domain.Identity, error)
}

// CtxIdentity holds the identity RBAC loaded, for handlers to reuse.
const CtxIdentity = "identity"

// RBAC admits only identities whose stored role is in allowed. The role is
// read from the store on every request, never from the token, so a freshly
// elevated user is admitted without signing in again. Banned or deleted
// identities are treated as signed out.
func RBAC(resolver IdentityResolver, allowed ...domain.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			view := guard.View{}
			userID, _ := c.Get(CtxUserID).(string)

			if userID != "" {
				identity, err := resolver.Get(c.Request().Context(), userID)
				switch {
				case errors.Is(err, context.DeadlineExceeded):
					view.Loading = true
				case errors.Is(err, domain.ErrNotFound):
				case err != nil:
					return err
				case identity.Status != domain.StatusBanned:
					view.SignedIn = true
					view.Role = identity.Role
					c.Set(CtxIdentity, identity)
				}
			}

			switch guard.CanRender(view, allowed...) {
			case guard.VerdictLoading:
				return echo.NewHTTPError(http.StatusServiceUnavailable, "identity is still loading")
			case guard.VerdictRedirectLogin:
				return echo.NewHTTPError(http.StatusUnauthorized, "sign in required")
			case guard.VerdictRedirectHome:
				return echo.NewHTTPError(http.StatusForbidden, "forbidden")
			}
			return next(c)
		}
	}
}
