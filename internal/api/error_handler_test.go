package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/api/handler"
	"github.com/apistarter/auth-api/internal/core/domain"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

func renderError(t *testing.T, err error, production bool) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	NewHTTPErrorHandler(zerolog.Nop(), production)(err, c)

	var body envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	if body.Success {
		t.Fatalf("error envelope must not be successful")
	}
	return rec, body
}

func TestErrorHandler_StatusMapping(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		code    int
		message string
	}{
		{"credentials", domain.ErrInvalidCredentials, http.StatusUnauthorized, "These credentials do not match our records."},
		{"unauthenticated", domain.ErrUnauthenticated, http.StatusUnauthorized, "Unauthenticated."},
		{"policy", domain.NewPolicyError("self_delete", "You cannot delete your own account."), http.StatusForbidden, "You cannot delete your own account."},
		{"wrapped user not found", fmt.Errorf("show: %w", domain.ErrUserNotFound), http.StatusNotFound, "User not found."},
		{"role not found", domain.ErrRoleNotFound, http.StatusNotFound, "Role not found."},
		{"provider", domain.ErrInvalidProvider, http.StatusBadRequest, "Invalid provider."},
		{"reset token", domain.ErrInvalidResetToken, http.StatusBadRequest, "This password reset token is invalid."},
		{"echo", echo.NewHTTPError(http.StatusBadRequest, "Invalid request payload."), http.StatusBadRequest, "Invalid request payload."},
		{"route", echo.ErrNotFound, http.StatusNotFound, "Not Found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec, body := renderError(t, tc.err, true)
			if rec.Code != tc.code {
				t.Fatalf("expected %d, got %d", tc.code, rec.Code)
			}
			if body.Message != tc.message {
				t.Fatalf("expected %q, got %q", tc.message, body.Message)
			}
		})
	}
}

func TestErrorHandler_Validation(t *testing.T) {
	verr := domain.NewValidationError("email", "The email has already been taken.")
	rec, body := renderError(t, verr, true)

	if rec.Code != http.StatusUnprocessableEntity || body.Message != "Validation Error." {
		t.Fatalf("unexpected response %d %q", rec.Code, body.Message)
	}
	var fields map[string][]string
	if err := json.Unmarshal(body.Data, &fields); err != nil {
		t.Fatalf("decode fields: %v", err)
	}
	if fields["email"][0] != "The email has already been taken." {
		t.Fatalf("unexpected fields %v", fields)
	}
}

func TestErrorHandler_RateLimit(t *testing.T) {
	rec, body := renderError(t, &domain.RateLimitError{Message: "Too many requests.", RetryAfter: 1500 * time.Millisecond}, true)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "2" {
		t.Fatalf("expected Retry-After 2, got %q", got)
	}
	if string(body.Data) != `{"retry_after":2}` {
		t.Fatalf("unexpected data %s", body.Data)
	}
}

func TestErrorHandler_HidesCauseInProduction(t *testing.T) {
	cause := errors.New("mongo: connection reset")

	_, body := renderError(t, cause, true)
	if body.Message != "Operation failed." {
		t.Fatalf("expected generic message, got %q", body.Message)
	}

	_, body = renderError(t, cause, false)
	if !strings.Contains(body.Message, "connection reset") {
		t.Fatalf("expected cause outside production, got %q", body.Message)
	}

	failure := &handler.FailureError{Message: "Logout failed.", Err: cause}
	rec, body := renderError(t, failure, true)
	if rec.Code != http.StatusInternalServerError || body.Message != "Logout failed." || string(body.Data) != "{}" {
		t.Fatalf("unexpected failure response %d %q %s", rec.Code, body.Message, body.Data)
	}

	_, body = renderError(t, failure, false)
	if !strings.Contains(string(body.Data), "connection reset") {
		t.Fatalf("expected error detail outside production, got %s", body.Data)
	}
}
