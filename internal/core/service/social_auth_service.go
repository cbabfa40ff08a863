package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

// SocialAuthService logs users in through an OAuth provider, linking the
// provider identity to an existing account or creating a new one.
type SocialAuthService struct {
	providers ports.SocialProviders
	state     ports.StateSigner
	users     ports.UserRepository
	roles     ports.RoleRepository
	tokens    ports.TokenService
	access    ports.AccessResolver
	log       zerolog.Logger
}

func NewSocialAuthService(
	providers ports.SocialProviders,
	state ports.StateSigner,
	users ports.UserRepository,
	roles ports.RoleRepository,
	tokens ports.TokenService,
	access ports.AccessResolver,
	log zerolog.Logger,
) *SocialAuthService {
	return &SocialAuthService{
		providers: providers,
		state:     state,
		users:     users,
		roles:     roles,
		tokens:    tokens,
		access:    access,
		log:       log,
	}
}

// RedirectURL returns the provider consent URL carrying a signed state.
func (s *SocialAuthService) RedirectURL(_ context.Context, provider string) (string, error) {
	p, err := s.providers.Provider(provider)
	if err != nil {
		return "", err
	}
	state, err := s.state.Issue(p.Name())
	if err != nil {
		return "", fmt.Errorf("oauth state: %w", err)
	}
	return p.AuthCodeURL(state), nil
}

// LoginWithCode completes the authorization code flow. An empty state is
// accepted so that clients driving the consent screen themselves keep working.
func (s *SocialAuthService) LoginWithCode(ctx context.Context, provider, code, state string) (*ports.AuthResult, error) {
	p, err := s.providers.Provider(provider)
	if err != nil {
		return nil, err
	}
	if state != "" {
		if err := s.state.Verify(state, p.Name()); err != nil {
			return nil, domain.ErrInvalidOAuthState
		}
	}
	if code == "" {
		return nil, domain.NewValidationError("code", "The code field is required.")
	}

	su, err := p.UserFromCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("oauth %s: %w", p.Name(), err)
	}
	return s.login(ctx, su, "oauth_"+p.Name())
}

// LoginWithToken accepts an access token the client obtained from the provider.
func (s *SocialAuthService) LoginWithToken(ctx context.Context, provider, accessToken string) (*ports.AuthResult, error) {
	p, err := s.providers.Provider(provider)
	if err != nil {
		return nil, err
	}
	if accessToken == "" {
		return nil, domain.NewValidationError("access_token", "The access token field is required.")
	}

	su, err := p.UserFromToken(ctx, accessToken)
	if err != nil {
		return nil, fmt.Errorf("oauth %s: %w", p.Name(), err)
	}
	return s.login(ctx, su, "oauth_"+p.Name()+"_token")
}

func (s *SocialAuthService) login(ctx context.Context, su *domain.SocialUser, device string) (*ports.AuthResult, error) {
	user, err := s.findOrCreate(ctx, su)
	if err != nil {
		return nil, err
	}
	return issueSession(ctx, s.tokens, s.access, user, device)
}

// findOrCreate matches on provider identity first, then on email. A match by
// email links the provider identity to that account.
func (s *SocialAuthService) findOrCreate(ctx context.Context, su *domain.SocialUser) (*domain.User, error) {
	user, err := s.users.FindByProvider(ctx, su.Provider, su.ID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("find oauth user: %w", err)
	}

	email := normalizeEmail(su.Email)
	if email == "" {
		return nil, domain.NewValidationError("email", "The provider did not return an email address.")
	}

	now := time.Now().UTC()
	user, err = s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		user.Provider = su.Provider
		user.ProviderID = su.ID
		if user.ProfilePicture == "" {
			user.ProfilePicture = su.Avatar
		}
		user.UpdatedAt = now
		if err := s.users.Update(ctx, user); err != nil {
			return nil, fmt.Errorf("link oauth user: %w", err)
		}
		s.log.Info().Int64("user_id", user.ID).Str("provider", su.Provider).Msg("oauth identity linked")
		return user, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return nil, fmt.Errorf("find oauth user: %w", err)
	}

	secret, err := randomSecret(32)
	if err != nil {
		return nil, err
	}
	hash, err := hashPassword(secret)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(su.Name)
	if name == "" {
		name, _, _ = strings.Cut(email, "@")
	}
	user = &domain.User{
		Name:           truncate(name, 255),
		Email:          email,
		PasswordHash:   hash,
		Provider:       su.Provider,
		ProviderID:     su.ID,
		ProfilePicture: su.Avatar,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := assignDefaultRole(ctx, s.roles, user); err != nil {
		return nil, err
	}
	created, err := s.users.Create(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("create oauth user: %w", err)
	}
	s.log.Info().Int64("user_id", created.ID).Str("provider", su.Provider).Msg("oauth user created")
	return created, nil
}
