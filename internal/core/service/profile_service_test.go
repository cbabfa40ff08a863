package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

var pngBytes = append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), make([]byte, 64)...)

func newProfileSvc(f *fixture, storage *stubStorage) *ProfileService {
	return NewProfileService(f.users, f.access, storage, zerolog.Nop())
}

func TestProfileService_Update(t *testing.T) {
	f := newFixture(t)
	svc := newProfileSvc(f, newStubStorage())
	user := f.createUser(t, "ann@x.com", "Secret123!")

	got, err := svc.Update(context.Background(), user, ports.UpdateProfileInput{Name: strPtr("Ann B"), Phone: strPtr("+1 555")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.User.Name != "Ann B" || got.User.Phone != "+1 555" || got.User.Email != "ann@x.com" {
		t.Fatalf("unexpected profile: %+v", got.User)
	}
}

func TestProfileService_Update_EmailTaken(t *testing.T) {
	f := newFixture(t)
	svc := newProfileSvc(f, newStubStorage())
	f.createUser(t, "bob@x.com", "Secret123!")
	user := f.createUser(t, "ann@x.com", "Secret123!")

	var verr *domain.ValidationError
	if _, err := svc.Update(context.Background(), user, ports.UpdateProfileInput{Email: strPtr("bob@x.com")}); !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	// Re-submitting one's own email is fine.
	if _, err := svc.Update(context.Background(), user, ports.UpdateProfileInput{Email: strPtr("ANN@x.com")}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestProfileService_UpdatePassword(t *testing.T) {
	f := newFixture(t)
	svc := newProfileSvc(f, newStubStorage())
	user := f.createUser(t, "ann@x.com", "Secret123!")

	var verr *domain.ValidationError
	err := svc.UpdatePassword(context.Background(), user, ports.UpdatePasswordInput{CurrentPassword: "nope", Password: "NewSecret456!"})
	if !errors.As(err, &verr) || len(verr.Fields["current_password"]) == 0 {
		t.Fatalf("expected current_password error, got %v", err)
	}

	if err := svc.UpdatePassword(context.Background(), user, ports.UpdatePasswordInput{CurrentPassword: "Secret123!", Password: "NewSecret456!"}); err != nil {
		t.Fatalf("UpdatePassword: %v", err)
	}
	stored, _ := f.users.FindByID(context.Background(), user.ID)
	if !checkPassword(stored.PasswordHash, "NewSecret456!") {
		t.Fatalf("password not changed")
	}
}

func TestProfileService_UploadPicture_ReplacesPrevious(t *testing.T) {
	f := newFixture(t)
	storage := newStubStorage()
	svc := newProfileSvc(f, storage)
	user := f.createUser(t, "ann@x.com", "Secret123!")

	first, err := svc.UploadPicture(context.Background(), user, ports.UploadInput{Body: bytes.NewReader(pngBytes), Size: int64(len(pngBytes))})
	if err != nil {
		t.Fatalf("UploadPicture: %v", err)
	}
	firstKey := first.User.ProfilePicture
	if !strings.HasPrefix(firstKey, "profile-pictures/") || !strings.HasSuffix(firstKey, ".png") {
		t.Fatalf("unexpected key: %s", firstKey)
	}

	gif := []byte("GIF89a" + strings.Repeat("\x00", 32))
	second, err := svc.UploadPicture(context.Background(), user, ports.UploadInput{Body: bytes.NewReader(gif), Size: int64(len(gif))})
	if err != nil {
		t.Fatalf("second upload: %v", err)
	}
	if !strings.HasSuffix(second.User.ProfilePicture, ".gif") {
		t.Fatalf("unexpected key: %s", second.User.ProfilePicture)
	}
	if _, ok := storage.objects[firstKey]; ok {
		t.Fatalf("expected previous picture deleted")
	}
}

func TestProfileService_UploadPicture_Rejects(t *testing.T) {
	f := newFixture(t)
	storage := newStubStorage()
	svc := newProfileSvc(f, storage)
	user := f.createUser(t, "ann@x.com", "Secret123!")

	cases := map[string]ports.UploadInput{
		"not an image":  {Body: strings.NewReader("%PDF-1.4 hello"), Size: 14},
		"declared size": {Body: bytes.NewReader(pngBytes), Size: MaxPictureBytes + 1},
		"actual size":   {Body: bytes.NewReader(append(append([]byte{}, pngBytes...), make([]byte, MaxPictureBytes)...)), Size: 10},
		"empty":         {Body: bytes.NewReader(nil), Size: 0},
	}
	for name, in := range cases {
		t.Run(name, func(t *testing.T) {
			var verr *domain.ValidationError
			if _, err := svc.UploadPicture(context.Background(), user, in); !errors.As(err, &verr) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
	if len(storage.objects) != 0 {
		t.Fatalf("nothing may be stored, got %d objects", len(storage.objects))
	}
}

func TestProfileService_DeletePicture(t *testing.T) {
	f := newFixture(t)
	storage := newStubStorage()
	svc := newProfileSvc(f, storage)
	user := f.createUser(t, "ann@x.com", "Secret123!")

	if _, err := svc.DeletePicture(context.Background(), user); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound without picture, got %v", err)
	}

	_, _ = svc.UploadPicture(context.Background(), user, ports.UploadInput{Body: bytes.NewReader(pngBytes), Size: int64(len(pngBytes))})
	got, err := svc.DeletePicture(context.Background(), user)
	if err != nil {
		t.Fatalf("DeletePicture: %v", err)
	}
	if got.User.ProfilePicture != "" || len(storage.objects) != 0 {
		t.Fatalf("expected picture removed")
	}
}

func TestProfileService_DeletePicture_RemoteAvatar(t *testing.T) {
	f := newFixture(t)
	storage := newStubStorage()
	svc := newProfileSvc(f, storage)
	user := f.createUser(t, "ann@x.com", "Secret123!")
	user.ProfilePicture = "https://avatars.test/ann.png"

	if _, err := svc.DeletePicture(context.Background(), user); err != nil {
		t.Fatalf("DeletePicture: %v", err)
	}
	if len(storage.deleted) != 0 {
		t.Fatalf("remote avatars are not stored objects, deleted %v", storage.deleted)
	}
}
