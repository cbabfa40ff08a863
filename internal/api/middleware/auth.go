package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

const (
	principalKey = "principal"
	accessKey    = "access"
)

// Auth resolves the bearer token into a principal and stores it on the
// context. Requests without a usable token fail with domain.ErrUnauthenticated.
func Auth(tokens ports.TokenService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerToken(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				return domain.ErrUnauthenticated
			}

			p, err := tokens.Authenticate(c.Request().Context(), raw)
			if err != nil {
				return err
			}

			c.Set(principalKey, p)
			return next(c)
		}
	}
}

// PrincipalFrom returns the caller stored by Auth, or nil.
func PrincipalFrom(c echo.Context) *domain.Principal {
	p, _ := c.Get(principalKey).(*domain.Principal)
	return p
}

// WithPrincipal stores p the way Auth does.
func WithPrincipal(c echo.Context, p *domain.Principal) {
	c.Set(principalKey, p)
}

func accessFrom(c echo.Context) *domain.UserAccess {
	a, _ := c.Get(accessKey).(*domain.UserAccess)
	return a
}

func bearerToken(header string) (string, bool) {
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, domain.TokenType) {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
