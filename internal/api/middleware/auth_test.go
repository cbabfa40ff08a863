package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

type stubTokens struct {
	ports.TokenService
	valid map[string]*domain.Principal
}

func (s *stubTokens) Authenticate(_ context.Context, raw string) (*domain.Principal, error) {
	p, ok := s.valid[raw]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return p, nil
}

func newContext(header string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestAuth_StoresPrincipal(t *testing.T) {
	want := &domain.Principal{User: &domain.User{ID: 7}, Token: &domain.Token{ID: 3}}
	tokens := &stubTokens{valid: map[string]*domain.Principal{"3|secret": want}}

	c, rec := newContext("Bearer 3|secret")
	h := Auth(tokens)(func(c echo.Context) error {
		if got := PrincipalFrom(c); got != want {
			t.Fatalf("expected principal to be stored, got %+v", got)
		}
		return c.NoContent(http.StatusOK)
	})

	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuth_Rejects(t *testing.T) {
	tokens := &stubTokens{valid: map[string]*domain.Principal{}}

	cases := map[string]string{
		"missing header": "",
		"wrong scheme":   "Basic abc",
		"empty token":    "Bearer   ",
		"unknown token":  "Bearer 9|nope",
	}
	for name, header := range cases {
		t.Run(name, func(t *testing.T) {
			c, _ := newContext(header)
			h := Auth(tokens)(func(c echo.Context) error {
				t.Fatalf("should not reach next handler")
				return nil
			})
			if err := h(c); !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestBearerToken_CaseInsensitiveScheme(t *testing.T) {
	tok, ok := bearerToken("bearer 1|abc")
	if !ok || tok != "1|abc" {
		t.Fatalf("expected token 1|abc, got %q (%v)", tok, ok)
	}
}
