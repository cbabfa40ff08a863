package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

const (
	// DefaultTokenTTL is used when no expiration is configured (7 days).
	DefaultTokenTTL = 10080 * time.Minute

	tokenSecretLength = 40
)

// TokenService issues, resolves and revokes personal access tokens. Callers
// never compute expiry themselves.
type TokenService struct {
	repo  ports.TokenRepository
	users ports.UserRepository
	ttl   time.Duration
	now   func() time.Time
	log   zerolog.Logger
}

func NewTokenService(repo ports.TokenRepository, users ports.UserRepository, ttl time.Duration, log zerolog.Logger) *TokenService {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenService{
		repo:  repo,
		users: users,
		ttl:   ttl,
		now:   func() time.Time { return time.Now().UTC() },
		log:   log,
	}
}

// CreateUserToken persists a new token for user named after device and
// returns its plain text. The plain text has the form "<id>|<secret>".
func (s *TokenService) CreateUserToken(ctx context.Context, user *domain.User, device string, abilities ...string) (*domain.IssuedToken, error) {
	now := s.now()
	if len(abilities) == 0 {
		abilities = []string{domain.AbilityAll}
	}

	secret, err := randomSecret(tokenSecretLength)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	token := &domain.Token{
		UserID:    user.ID,
		Name:      tokenName(device, now),
		Hash:      hashToken(secret),
		Abilities: abilities,
		ExpiresAt: now.Add(s.ttl),
		CreatedAt: now,
		UpdatedAt: now,
	}

	created, err := s.repo.Create(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("create token: %w", err)
	}

	s.log.Info().Int64("user_id", user.ID).Int64("token_id", created.ID).Str("name", created.Name).Msg("token issued")

	return &domain.IssuedToken{
		Token:     created,
		PlainText: strconv.FormatInt(created.ID, 10) + "|" + secret,
		TokenType: domain.TokenType,
		ExpiresAt: created.ExpiresAt,
	}, nil
}

// Authenticate resolves a bearer credential. Unknown, revoked and expired
// tokens, and tokens whose owner no longer exists, are all ErrUnauthenticated.
func (s *TokenService) Authenticate(ctx context.Context, plainText string) (*domain.Principal, error) {
	plainText = strings.TrimSpace(plainText)
	if plainText == "" {
		return nil, domain.ErrUnauthenticated
	}

	token, err := s.lookup(ctx, plainText)
	if err != nil {
		if errors.Is(err, domain.ErrTokenNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	now := s.now()
	if token.Expired(now) {
		return nil, domain.ErrUnauthenticated
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrUnauthenticated
		}
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if err := s.repo.Touch(ctx, token.ID, now); err != nil {
		s.log.Warn().Err(err).Int64("token_id", token.ID).Msg("failed to record token usage")
	} else {
		token.LastUsedAt = &now
	}

	return &domain.Principal{User: user, Token: token}, nil
}

func (s *TokenService) lookup(ctx context.Context, plainText string) (*domain.Token, error) {
	idPart, secret, ok := strings.Cut(plainText, "|")
	if !ok {
		return s.repo.FindByHash(ctx, hashToken(plainText))
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil || id <= 0 {
		return nil, domain.ErrTokenNotFound
	}
	token, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !hashesEqual(token.Hash, hashToken(secret)) {
		return nil, domain.ErrTokenNotFound
	}
	return token, nil
}

// RevokeCurrentToken deletes the token the principal authenticated with.
// It is a no-op when there is no resolvable current token.
func (s *TokenService) RevokeCurrentToken(ctx context.Context, p *domain.Principal) error {
	id := p.TokenID()
	if id == 0 {
		return nil
	}
	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, domain.ErrTokenNotFound) {
		return fmt.Errorf("revoke token: %w", err)
	}
	s.log.Info().Int64("user_id", p.User.ID).Int64("token_id", id).Msg("token revoked")
	return nil
}

// RevokeAllTokens deletes every token owned by userID.
func (s *TokenService) RevokeAllTokens(ctx context.Context, userID int64) (int64, error) {
	n, err := s.repo.DeleteByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("revoke all tokens: %w", err)
	}
	s.log.Info().Int64("user_id", userID).Int64("count", n).Msg("all tokens revoked")
	return n, nil
}

// RevokeTokensByDevice deletes the user's tokens whose name contains device.
// Matching is a plain substring test, so a device label that is a substring
// of another also revokes the other's tokens.
func (s *TokenService) RevokeTokensByDevice(ctx context.Context, userID int64, device string) (int64, error) {
	if device == "" {
		return 0, domain.NewValidationError("device", "The device field is required.")
	}
	n, err := s.repo.DeleteByUserAndName(ctx, userID, device)
	if err != nil {
		return 0, fmt.Errorf("revoke device tokens: %w", err)
	}
	s.log.Info().Int64("user_id", userID).Str("device", device).Int64("count", n).Msg("device tokens revoked")
	return n, nil
}

// ListTokens returns the user's tokens, including expired ones not yet purged.
func (s *TokenService) ListTokens(ctx context.Context, userID int64) ([]*domain.Token, error) {
	return s.repo.ListByUser(ctx, userID)
}

// tokenName derives the stored name from a device label, falling back to a
// timestamp label, bounded to the storage limit.
func tokenName(device string, now time.Time) string {
	name := strings.TrimSpace(device)
	if name == "" {
		name = fmt.Sprintf("token_%d", now.Unix())
	}
	return truncate(name, domain.MaxTokenNameLength)
}
