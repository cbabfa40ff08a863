package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

const (
	defaultResetTTL      = 60 * time.Minute
	defaultResetThrottle = 60 * time.Second
	resetTokenLength     = 64
)

// PasswordService implements the forgot-password and reset flows. One reset
// token is outstanding per email; issuing a new one replaces the old.
type PasswordService struct {
	users    ports.UserRepository
	store    ports.PasswordResetStore
	tokens   ports.TokenService
	notifier ports.Notifier
	log      zerolog.Logger

	resetURL string
	ttl      time.Duration
	throttle time.Duration
	now      func() time.Time
}

func NewPasswordService(
	users ports.UserRepository,
	store ports.PasswordResetStore,
	tokens ports.TokenService,
	notifier ports.Notifier,
	resetURL string,
	ttl, throttle time.Duration,
	log zerolog.Logger,
) *PasswordService {
	if ttl <= 0 {
		ttl = defaultResetTTL
	}
	if throttle < 0 {
		throttle = defaultResetThrottle
	}
	return &PasswordService{
		users:    users,
		store:    store,
		tokens:   tokens,
		notifier: notifier,
		log:      log,
		resetURL: resetURL,
		ttl:      ttl,
		throttle: throttle,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SendResetLink stores a fresh reset token for email and notifies its owner.
func (s *PasswordService) SendResetLink(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}

	now := s.now()
	prev, err := s.store.Get(ctx, email)
	switch {
	case err == nil:
		if s.throttle > 0 && now.Sub(prev.CreatedAt) < s.throttle {
			return domain.ErrResetThrottled
		}
	case !errors.Is(err, domain.ErrInvalidResetToken):
		return fmt.Errorf("send reset link: %w", err)
	}

	token, err := randomSecret(resetTokenLength)
	if err != nil {
		return fmt.Errorf("send reset link: %w", err)
	}
	rec := ports.PasswordResetRecord{Email: email, TokenHash: hashToken(token), CreatedAt: now}
	if err := s.store.Put(ctx, rec, s.ttl); err != nil {
		return fmt.Errorf("send reset link: %w", err)
	}

	if err := s.notifier.PasswordResetLink(ctx, user, s.resetLink(token, email), s.ttl); err != nil {
		return fmt.Errorf("send reset link: %w", err)
	}
	s.log.Info().Int64("user_id", user.ID).Msg("password reset link issued")
	return nil
}

// Reset sets a new password when token matches the outstanding reset token
// for email. On success the token is consumed and every access token of the
// user is revoked.
func (s *PasswordService) Reset(ctx context.Context, email, token, password string) error {
	email = normalizeEmail(email)
	user, err := s.findUser(ctx, email)
	if err != nil {
		return err
	}

	rec, err := s.store.Get(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidResetToken) {
			return err
		}
		return fmt.Errorf("reset password: %w", err)
	}
	if s.now().Sub(rec.CreatedAt) > s.ttl {
		_ = s.store.Delete(ctx, email)
		return domain.ErrInvalidResetToken
	}
	if !hashesEqual(rec.TokenHash, hashToken(token)) {
		return domain.ErrInvalidResetToken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return fmt.Errorf("reset password: %w", err)
	}
	user.PasswordHash = hash
	user.UpdatedAt = s.now()
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("reset password: %w", err)
	}

	if err := s.store.Delete(ctx, email); err != nil {
		s.log.Warn().Err(err).Msg("failed to delete used reset token")
	}
	if _, err := s.tokens.RevokeAllTokens(ctx, user.ID); err != nil {
		s.log.Warn().Err(err).Int64("user_id", user.ID).Msg("failed to revoke tokens after password reset")
	}
	s.log.Info().Int64("user_id", user.ID).Msg("password reset")
	return nil
}

func (s *PasswordService) findUser(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrResetUserUnknown
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}

func (s *PasswordService) resetLink(token, email string) string {
	q := url.Values{}
	q.Set("token", token)
	q.Set("email", email)
	return strings.TrimRight(s.resetURL, "/") + "?" + q.Encode()
}
