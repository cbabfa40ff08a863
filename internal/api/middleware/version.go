package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"golang.org/x/mod/semver"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// Version tags responses of a versioned route group. Clients asking for a
// newer version through Accept-Version are refused; deprecated versions get
// a Warning header.
func Version(version, latest string, deprecated []string) echo.MiddlewareFunc {
	isDeprecated := version != latest
	for _, d := range deprecated {
		if d == version {
			isDeprecated = true
		}
	}
	warning := fmt.Sprintf(`299 - "Deprecated API Version: This version of the API will be deprecated soon. Please migrate to the latest version %s."`, latest)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if requested := c.Request().Header.Get("Accept-Version"); requested != "" && requested != version {
				if compareVersions(requested, version) > 0 {
					msg := fmt.Sprintf("This version is not yet supported. Please use version %s or earlier.", version)
					return echo.NewHTTPError(http.StatusBadRequest, msg).SetInternal(domain.ErrVersionUnsupported)
				}
			}

			h := c.Response().Header()
			h.Set("API-Version", version)
			if isDeprecated {
				h.Set("Warning", warning)
			}
			return next(c)
		}
	}
}

// compareVersions orders "v1", "1.2" and "v2.0.1" style versions. Unparsable
// versions sort below valid ones.
func compareVersions(a, b string) int {
	return semver.Compare(canonical(a), canonical(b))
}

func canonical(v string) string {
	v = strings.TrimSpace(v)
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	return v
}
