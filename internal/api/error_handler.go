package api

import (
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/api/handler"
	"github.com/apistarter/auth-api/internal/api/metrics"
	"github.com/apistarter/auth-api/internal/core/domain"
)

const genericFailure = "Operation failed."

// NewHTTPErrorHandler returns an echo.HTTPErrorHandler that:
//   - Maps domain errors to their HTTP status codes.
//   - Logs unexpected errors and hides their cause in production.
//   - Renders the envelope {"success": false, "data": ..., "message": ...}.
func NewHTTPErrorHandler(log zerolog.Logger, production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		code, body := resolveError(err, log, production, c)
		if c.Request().Method == http.MethodHead {
			_ = c.NoContent(code)
			return
		}
		_ = c.JSON(code, body)
	}
}

func resolveError(err error, log zerolog.Logger, production bool, c echo.Context) (int, handler.Response) {
	var (
		verr *domain.ValidationError
		perr *domain.PolicyError
		rerr *domain.RateLimitError
		ferr *handler.FailureError
		he   *echo.HTTPError
	)

	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, handler.ErrorResponse("Validation Error.", verr.Fields)

	case errors.As(err, &perr):
		metrics.PolicyDenialsTotal.WithLabelValues(perr.Rule).Inc()
		log.Warn().Str("rule", perr.Rule).Str("path", c.Path()).Msg("policy denied request")
		return http.StatusForbidden, handler.ErrorResponse(perr.Reason, nil)

	case errors.As(err, &rerr):
		secs := int(math.Ceil(rerr.RetryAfter.Seconds()))
		c.Response().Header().Set("Retry-After", strconv.Itoa(secs))
		return http.StatusTooManyRequests, handler.ErrorResponse(rerr.Message, map[string]int{"retry_after": secs})

	case errors.As(err, &ferr):
		log.Error().Err(ferr.Err).Str("method", c.Request().Method).Str("path", c.Path()).Msg(ferr.Message)
		var data any
		if !production {
			data = map[string]string{"error": ferr.Err.Error()}
		}
		return http.StatusInternalServerError, handler.ErrorResponse(ferr.Message, data)

	case errors.As(err, &he):
		return he.Code, handler.ErrorResponse(httpMessage(he), nil)
	}

	if code, msg, ok := domainStatus(err); ok {
		return code, handler.ErrorResponse(msg, nil)
	}

	// Unexpected error: log the real cause and only expose it outside production.
	log.Error().
		Err(err).
		Str("method", c.Request().Method).
		Str("path", c.Path()).
		Msg("unhandled error")

	msg := genericFailure
	if !production {
		msg = genericFailure + " " + err.Error()
	}
	return http.StatusInternalServerError, handler.ErrorResponse(msg, nil)
}

// domainStatus maps sentinel errors to a status code and client message.
func domainStatus(err error) (int, string, bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidCredentials):
		return http.StatusUnauthorized, "These credentials do not match our records.", true
	case errors.Is(err, domain.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthenticated.", true
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "This action is unauthorized.", true
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found.", true
	case errors.Is(err, domain.ErrRoleNotFound):
		return http.StatusNotFound, "Role not found.", true
	case errors.Is(err, domain.ErrNoProfilePicture):
		return http.StatusNotFound, "No profile picture to delete.", true
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Resource not found.", true
	case errors.Is(err, domain.ErrInvalidProvider):
		return http.StatusBadRequest, "Invalid provider.", true
	case errors.Is(err, domain.ErrInvalidOAuthState):
		return http.StatusBadRequest, "Invalid OAuth state.", true
	case errors.Is(err, domain.ErrInvalidResetToken):
		return http.StatusBadRequest, "This password reset token is invalid.", true
	case errors.Is(err, domain.ErrResetThrottled):
		return http.StatusBadRequest, "Please wait before retrying.", true
	case errors.Is(err, domain.ErrResetUserUnknown):
		return http.StatusBadRequest, "We can't find a user with that email address.", true
	case errors.Is(err, domain.ErrVersionUnsupported):
		return http.StatusBadRequest, "API version not supported.", true
	}
	return 0, "", false
}

func httpMessage(he *echo.HTTPError) string {
	if s, ok := he.Message.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", he.Message)
}
