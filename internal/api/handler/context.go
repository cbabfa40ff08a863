package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/api/middleware"
	"github.com/apistarter/auth-api/internal/core/domain"
)

// currentPrincipal returns the caller resolved by the Auth middleware.
// Reaching a protected handler without one means the route was wired
// without Auth; treat it as unauthenticated.
func currentPrincipal(c echo.Context) (*domain.Principal, error) {
	p := middleware.PrincipalFrom(c)
	if p == nil || p.User == nil {
		return nil, domain.ErrUnauthenticated
	}
	return p, nil
}

func userAgent(c echo.Context) string {
	return c.Request().UserAgent()
}
