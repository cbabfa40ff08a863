package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

// RequireRole lets the request through when the caller holds any of roles.
// It must run after Auth. The resolved access is kept on the context for
// later middleware.
func RequireRole(access ports.AccessResolver, roles ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFrom(c)
			if p == nil || p.User == nil {
				return domain.ErrUnauthenticated
			}

			a, err := access.Resolve(c.Request().Context(), p.User)
			if err != nil {
				return err
			}
			c.Set(accessKey, a)

			for _, r := range roles {
				if a.HasRole(r) {
					return next(c)
				}
			}
			return domain.NewPolicyError("role", "User does not have the right roles.")
		}
	}
}

// RequireAbility lets the request through when the bearer token grants
// ability. It must run after Auth.
func RequireAbility(ability string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			p := PrincipalFrom(c)
			if p == nil || p.Token == nil {
				return domain.ErrUnauthenticated
			}
			if !p.Token.Can(ability) {
				return domain.NewPolicyError("ability", "Invalid ability provided.")
			}
			return next(c)
		}
	}
}
