package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/vivulocal/marketplace-api/internal/api/middleware"
)

// ctxUserID returns the authenticated identity id set by the Auth
// middleware.
func ctxUserID(c echo.Context) (string, error) {
	id, _ := c.Get(middleware.CtxUserID).(string)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing authentication claims")
	}
	return id, nil
}

// optionalUserID is ctxUserID for routes open to anonymous callers.
func optionalUserID(c echo.Context) string {
	id, _ := c.Get(middleware.CtxUserID).(string)
	return id
}

func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid payload")
	}
	return nil
}
