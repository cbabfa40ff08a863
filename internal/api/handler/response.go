package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// Response is the envelope every endpoint renders.
type Response struct {
	Success bool   `json:"success"`
	Data    any    `json:"data"`
	Message string `json:"message,omitempty"`
	Meta    any    `json:"meta,omitempty"`
}

const defaultMessage = "Operation successful"

// Empty is rendered as {} where there is no payload.
type Empty struct{}

// ErrorResponse builds the envelope for a failed request. A nil data
// becomes an empty object.
func ErrorResponse(message string, data any) Response {
	if data == nil {
		data = Empty{}
	}
	return Response{Success: false, Data: data, Message: message}
}

// FailureError reports an unexpected collaborator failure under a
// flow-specific message. It always renders as 500.
type FailureError struct {
	Message string
	Err     error
}

func (e *FailureError) Error() string { return e.Message + " " + e.Err.Error() }

func (e *FailureError) Unwrap() error { return e.Err }

func ok(c echo.Context, data any, message string) error {
	return respond(c, http.StatusOK, data, message)
}

func created(c echo.Context, data any, message string) error {
	return respond(c, http.StatusCreated, data, message)
}

func respond(c echo.Context, code int, data any, message string) error {
	if data == nil {
		data = Empty{}
	}
	if message == "" {
		message = defaultMessage
	}
	return c.JSON(code, Response{Success: true, Data: data, Message: message})
}

// listing is the data block of collection endpoints.
type listing[T any] struct {
	Data []T `json:"data"`
	Meta any `json:"meta,omitempty"`
}

// expected reports whether err is part of the domain taxonomy and should be
// rendered as is rather than as a flow failure.
func expected(err error) bool {
	var (
		verr *domain.ValidationError
		rerr *domain.RateLimitError
	)
	switch {
	case errors.As(err, &verr), errors.As(err, &rerr):
		return true
	}
	for _, target := range []error{
		domain.ErrUnauthenticated,
		domain.ErrInvalidCredentials,
		domain.ErrForbidden,
		domain.ErrNotFound,
		domain.ErrInvalidProvider,
		domain.ErrInvalidOAuthState,
		domain.ErrInvalidResetToken,
		domain.ErrResetThrottled,
		domain.ErrResetUserUnknown,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
