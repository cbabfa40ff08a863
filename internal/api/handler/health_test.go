package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func serve(t *testing.T, h echo.HandlerFunc) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	if err := h(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	return rec
}

func TestHealth_Root(t *testing.T) {
	h := NewHealthHandler("v1", nil)
	h.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	rec := serve(t, h.Root)

	var body rootResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := rootResponse{Status: "success", Message: "API is working", Version: "v1", Timestamp: "2026-01-02T03:04:05Z"}
	if body != want {
		t.Fatalf("expected %+v, got %+v", want, body)
	}
}

func TestHealth_Readiness(t *testing.T) {
	up := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	rec := serve(t, NewHealthHandler("v1", map[string]Pinger{"mongo": up, "redis": up}).Readiness)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	rec = serve(t, NewHealthHandler("v1", map[string]Pinger{"mongo": up, "redis": down}).Readiness)
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	var body readinessResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Status != "degraded" || body.Dependencies["redis"].Error != "connection refused" {
		t.Fatalf("unexpected readiness body: %+v", body)
	}
	if body.Dependencies["mongo"].Status != "ok" {
		t.Fatalf("expected mongo ok, got %+v", body.Dependencies["mongo"])
	}
}
