package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

const (
	defaultLoginMaxAttempts = 5
	defaultLoginDecay       = time.Minute

	unknownDevice = "unknown"
)

// AuthService implements registration, login, logout and token refresh.
type AuthService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	tokens ports.TokenService
	access ports.AccessResolver
	log    zerolog.Logger

	limiter     ports.RateLimiter
	maxAttempts int
	decay       time.Duration
}

func NewAuthService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	tokens ports.TokenService,
	access ports.AccessResolver,
	log zerolog.Logger,
) *AuthService {
	return &AuthService{
		users:       users,
		roles:       roles,
		tokens:      tokens,
		access:      access,
		log:         log,
		maxAttempts: defaultLoginMaxAttempts,
		decay:       defaultLoginDecay,
	}
}

// WithLoginThrottle enables failed-login throttling per email and client IP.
// A nil limiter disables throttling.
func (s *AuthService) WithLoginThrottle(limiter ports.RateLimiter, maxAttempts int, decay time.Duration) *AuthService {
	s.limiter = limiter
	if maxAttempts > 0 {
		s.maxAttempts = maxAttempts
	}
	if decay > 0 {
		s.decay = decay
	}
	return s
}

// Register creates an account holding the default role and logs it in.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*ports.AuthResult, error) {
	email := normalizeEmail(in.Email)

	taken, err := emailTaken(ctx, s.users, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, domain.NewValidationError("email", msgEmailTaken)
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := assignDefaultRole(ctx, s.roles, user); err != nil {
		return nil, err
	}

	created, err := s.users.Create(ctx, user)
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.NewValidationError("email", msgEmailTaken)
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	s.log.Info().Int64("user_id", created.ID).Msg("user registered")
	return issueSession(ctx, s.tokens, s.access, created, "register_"+deviceLabel(in.Device))
}

// Login verifies credentials and issues a new token. Unknown emails and wrong
// passwords are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*ports.AuthResult, error) {
	email := normalizeEmail(in.Email)
	key := loginThrottleKey(email, in.IP)

	if err := s.checkThrottle(ctx, key); err != nil {
		return nil, err
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("login: %w", err)
	}
	if user == nil || !checkPassword(user.PasswordHash, in.Password) {
		s.recordFailure(ctx, key)
		return nil, domain.ErrInvalidCredentials
	}
	s.clearFailures(ctx, key)

	return issueSession(ctx, s.tokens, s.access, user, "login_"+deviceLabel(in.Device))
}

// Logout revokes only the token used for the request.
func (s *AuthService) Logout(ctx context.Context, p *domain.Principal) error {
	return s.tokens.RevokeCurrentToken(ctx, p)
}

// LogoutEverywhere revokes every token of the caller.
func (s *AuthService) LogoutEverywhere(ctx context.Context, p *domain.Principal) error {
	if p == nil || p.User == nil {
		return domain.ErrUnauthenticated
	}
	_, err := s.tokens.RevokeAllTokens(ctx, p.User.ID)
	return err
}

// Refresh revokes the current token and issues a replacement named after it.
// The two steps are not atomic: a failure after the revoke leaves the caller
// without a token and they must log in again.
func (s *AuthService) Refresh(ctx context.Context, p *domain.Principal) (*ports.AuthResult, error) {
	if p == nil || p.User == nil || p.Token == nil {
		return nil, domain.ErrUnauthenticated
	}
	name := p.Token.Name + "_refreshed"

	if err := s.tokens.RevokeCurrentToken(ctx, p); err != nil {
		return nil, fmt.Errorf("refresh: %w", err)
	}
	return issueSession(ctx, s.tokens, s.access, p.User, name)
}

func (s *AuthService) checkThrottle(ctx context.Context, key string) error {
	if s.limiter == nil {
		return nil
	}
	attempts, retryIn, err := s.limiter.Attempts(ctx, key)
	if err != nil {
		s.log.Warn().Err(err).Msg("login throttle unavailable")
		return nil
	}
	if attempts < s.maxAttempts {
		return nil
	}
	if retryIn <= 0 {
		retryIn = s.decay
	}
	return &domain.RateLimitError{
		Message:    fmt.Sprintf("Too many login attempts. Please try again in %d seconds.", int(retryIn.Round(time.Second)/time.Second)),
		RetryAfter: retryIn,
	}
}

func (s *AuthService) recordFailure(ctx context.Context, key string) {
	if s.limiter == nil {
		return
	}
	if _, err := s.limiter.Hit(ctx, key, s.maxAttempts, s.decay); err != nil {
		s.log.Warn().Err(err).Msg("failed to record login attempt")
	}
}

func (s *AuthService) clearFailures(ctx context.Context, key string) {
	if s.limiter == nil {
		return
	}
	if err := s.limiter.Clear(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("failed to clear login attempts")
	}
}

func loginThrottleKey(email, ip string) string {
	return "login:" + email + "|" + ip
}

func deviceLabel(device string) string {
	if device == "" {
		return unknownDevice
	}
	return device
}

// issueSession creates a token for user and resolves the access view returned
// alongside it.
func issueSession(ctx context.Context, tokens ports.TokenService, access ports.AccessResolver, user *domain.User, device string) (*ports.AuthResult, error) {
	issued, err := tokens.CreateUserToken(ctx, user, device)
	if err != nil {
		return nil, err
	}
	view, err := access.Resolve(ctx, user)
	if err != nil {
		return nil, err
	}
	return &ports.AuthResult{Access: view, Token: issued}, nil
}
