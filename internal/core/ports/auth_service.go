package ports

import (
	"context"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// RegisterInput carries the fields of a self-service registration.
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Device   string // client user agent
}

// LoginInput carries credentials plus the client fingerprint used for
// token naming and login throttling.
type LoginInput struct {
	Email    string
	Password string
	Device   string
	IP       string
}

// AuthResult is returned by every flow that issues a token.
type AuthResult struct {
	Access *domain.UserAccess
	Token  *domain.IssuedToken
}

// AuthService implements the bearer-token session flows.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, in LoginInput) (*AuthResult, error)
	Logout(ctx context.Context, p *domain.Principal) error
	LogoutEverywhere(ctx context.Context, p *domain.Principal) error
	Refresh(ctx context.Context, p *domain.Principal) (*AuthResult, error)
}

// TokenService is the only component that creates or revokes tokens.
type TokenService interface {
	CreateUserToken(ctx context.Context, user *domain.User, device string, abilities ...string) (*domain.IssuedToken, error)
	// Authenticate resolves a bearer credential into a principal. Missing,
	// revoked and expired tokens yield domain.ErrUnauthenticated.
	Authenticate(ctx context.Context, plainText string) (*domain.Principal, error)
	RevokeCurrentToken(ctx context.Context, p *domain.Principal) error
	RevokeAllTokens(ctx context.Context, userID int64) (int64, error)
	RevokeTokensByDevice(ctx context.Context, userID int64, device string) (int64, error)
	ListTokens(ctx context.Context, userID int64) ([]*domain.Token, error)
}

// AccessResolver expands users into their role names and effective permissions.
type AccessResolver interface {
	Resolve(ctx context.Context, user *domain.User) (*domain.UserAccess, error)
	ResolveMany(ctx context.Context, users []*domain.User) ([]*domain.UserAccess, error)
}

// PasswordService implements the forgot/reset password flow.
type PasswordService interface {
	SendResetLink(ctx context.Context, email string) error
	Reset(ctx context.Context, email, token, password string) error
}

// SocialAuthService implements OAuth login.
type SocialAuthService interface {
	RedirectURL(ctx context.Context, provider string) (string, error)
	LoginWithCode(ctx context.Context, provider, code, state string) (*AuthResult, error)
	LoginWithToken(ctx context.Context, provider, accessToken string) (*AuthResult, error)
}
