package handler

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"

	"github.com/apistarter/auth-api/internal/core/domain"
)

type prefixURLs string

func (p prefixURLs) URL(key string) string { return string(p) + key }

func TestPresenter_RoleRoundTrip(t *testing.T) {
	created := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	role := &domain.RoleWithPermissions{
		Role:        &domain.Role{ID: 3, Name: "editor", CreatedAt: created, UpdatedAt: created},
		Permissions: []string{"edit-posts", "publish-posts"},
	}

	raw, err := json.Marshal(NewPresenter(nil).Role(role))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var got RoleDTO
	if err := json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if got.ID != 3 || got.Name != "editor" || !reflect.DeepEqual(got.Permissions, role.Permissions) {
		t.Fatalf("round trip changed the role: %+v", got)
	}
	if got.CreatedAt == nil || *got.CreatedAt != "2026-03-01T12:00:00Z" {
		t.Fatalf("unexpected created_at %v", got.CreatedAt)
	}
}

func TestPresenter_EmptyListsRenderAsArrays(t *testing.T) {
	a := &domain.UserAccess{User: &domain.User{ID: 1, Name: "Ann", Email: "ann@x.com"}}

	raw, err := json.Marshal(NewPresenter(nil).User(a))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if _, isList := body["roles"].([]any); !isList {
		t.Fatalf("expected roles to be an array, got %v", body["roles"])
	}
	if body["email_verified_at"] != nil {
		t.Fatalf("expected null email_verified_at, got %v", body["email_verified_at"])
	}
}

func TestPresenter_ProfilePictureURL(t *testing.T) {
	a := &domain.UserAccess{User: &domain.User{ID: 1, ProfilePicture: "profile-pictures/1/a.png"}}

	dto := NewPresenter(prefixURLs("https://cdn.test/")).Profile(a)
	if dto.ProfilePicture == nil || *dto.ProfilePicture != "https://cdn.test/profile-pictures/1/a.png" {
		t.Fatalf("unexpected picture url %v", dto.ProfilePicture)
	}

	if dto := NewPresenter(nil).Profile(&domain.UserAccess{User: &domain.User{ID: 2}}); dto.ProfilePicture != nil {
		t.Fatalf("expected null picture, got %v", *dto.ProfilePicture)
	}
}
