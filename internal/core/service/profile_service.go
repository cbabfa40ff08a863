package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

const (
	// MaxPictureBytes is the largest accepted profile picture.
	MaxPictureBytes = 2 << 20

	pictureField  = "profile_picture"
	pictureFolder = "profile-pictures/"
)

var allowedPictureTypes = []string{"image/jpeg", "image/png", "image/gif"}

// ProfileService manages the authenticated user's own account.
type ProfileService struct {
	users   ports.UserRepository
	access  ports.AccessResolver
	storage ports.FileStorage
	log     zerolog.Logger
}

func NewProfileService(users ports.UserRepository, access ports.AccessResolver, storage ports.FileStorage, log zerolog.Logger) *ProfileService {
	return &ProfileService{users: users, access: access, storage: storage, log: log}
}

func (s *ProfileService) Show(ctx context.Context, user *domain.User) (*domain.UserAccess, error) {
	return s.access.Resolve(ctx, user)
}

// Update applies the provided fields. A changed email must not belong to
// another account.
func (s *ProfileService) Update(ctx context.Context, user *domain.User, in ports.UpdateProfileInput) (*domain.UserAccess, error) {
	var email string
	if in.Email != nil {
		email = normalizeEmail(*in.Email)
		if email != user.Email {
			taken, err := emailTaken(ctx, s.users, email, user.ID)
			if err != nil {
				return nil, err
			}
			if taken {
				return nil, domain.NewValidationError("email", msgEmailTaken)
			}
		}
	}

	if in.Name != nil {
		user.Name = *in.Name
	}
	if in.Email != nil {
		user.Email = email
	}
	if in.Phone != nil {
		user.Phone = *in.Phone
	}
	if in.Address != nil {
		user.Address = *in.Address
	}
	user.UpdatedAt = time.Now().UTC()

	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	return s.access.Resolve(ctx, user)
}

func (s *ProfileService) UpdatePassword(ctx context.Context, user *domain.User, in ports.UpdatePasswordInput) error {
	if !checkPassword(user.PasswordHash, in.CurrentPassword) {
		return domain.NewValidationError("current_password", "The current password is incorrect.")
	}
	hash, err := hashPassword(in.Password)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	s.log.Info().Int64("user_id", user.ID).Msg("password changed")
	return nil
}

// UploadPicture stores a new picture and then removes the one it replaces.
// The content type is sniffed from the bytes, not taken from the client.
func (s *ProfileService) UploadPicture(ctx context.Context, user *domain.User, in ports.UploadInput) (*domain.UserAccess, error) {
	if in.Size > MaxPictureBytes {
		return nil, domain.NewValidationError(pictureField, "The profile picture may not be greater than 2048 kilobytes.")
	}
	data, err := io.ReadAll(io.LimitReader(in.Body, MaxPictureBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) > MaxPictureBytes {
		return nil, domain.NewValidationError(pictureField, "The profile picture may not be greater than 2048 kilobytes.")
	}
	if len(data) == 0 {
		return nil, domain.NewValidationError(pictureField, "The profile picture field is required.")
	}

	mt := mimetype.Detect(data)
	if !mimetype.EqualsAny(mt.String(), allowedPictureTypes...) {
		return nil, domain.NewValidationError(pictureField, "The profile picture must be a file of type: jpeg, png, jpg, gif.")
	}

	key := pictureFolder + uuid.NewString() + mt.Extension()
	if err := s.storage.Put(ctx, key, bytes.NewReader(data), int64(len(data)), mt.String()); err != nil {
		return nil, fmt.Errorf("store picture: %w", err)
	}

	old := user.ProfilePicture
	user.ProfilePicture = key
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		s.deleteObject(ctx, key)
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.deleteObject(ctx, old)
	return s.access.Resolve(ctx, user)
}

// DeletePicture clears the picture. Provider avatars are plain URLs and are
// only unset.
func (s *ProfileService) DeletePicture(ctx context.Context, user *domain.User) (*domain.UserAccess, error) {
	if user.ProfilePicture == "" {
		return nil, domain.ErrNoProfilePicture
	}
	old := user.ProfilePicture
	user.ProfilePicture = ""
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}
	s.deleteObject(ctx, old)
	return s.access.Resolve(ctx, user)
}

func (s *ProfileService) deleteObject(ctx context.Context, key string) {
	if key == "" || isRemoteURL(key) {
		return
	}
	if err := s.storage.Delete(ctx, key); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to delete stored picture")
	}
}

func isRemoteURL(ref string) bool {
	return strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://")
}
