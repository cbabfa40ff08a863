package ports

import (
	"context"
	"io"
	"time"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// RateLimitResult is the outcome of recording one hit against a key.
type RateLimitResult struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetIn   time.Duration
}

// RateLimiter counts hits per key inside a decaying window.
type RateLimiter interface {
	Hit(ctx context.Context, key string, limit int, window time.Duration) (RateLimitResult, error)
	Attempts(ctx context.Context, key string) (int, time.Duration, error)
	Clear(ctx context.Context, key string) error
}

// PasswordResetRecord is a stored reset token hash for an email address.
type PasswordResetRecord struct {
	Email     string
	TokenHash string
	CreatedAt time.Time
}

// PasswordResetStore keeps one outstanding reset token per email.
type PasswordResetStore interface {
	Put(ctx context.Context, rec PasswordResetRecord, ttl time.Duration) error
	// Get returns domain.ErrInvalidResetToken when nothing is stored.
	Get(ctx context.Context, email string) (*PasswordResetRecord, error)
	Delete(ctx context.Context, email string) error
}

// MailMessage is an outgoing email.
type MailMessage struct {
	To       string
	ToName   string
	Subject  string
	HTMLBody string
	TextBody string
}

// Mailer delivers a message synchronously.
type Mailer interface {
	Send(ctx context.Context, msg MailMessage) error
}

// MailQueue accepts messages for asynchronous delivery. Enqueue blocks while
// the queue is full until ctx is done.
type MailQueue interface {
	Enqueue(ctx context.Context, msg MailMessage) error
}

// FileStorage stores uploaded objects.
type FileStorage interface {
	Put(ctx context.Context, key string, body io.Reader, size int64, contentType string) error
	Delete(ctx context.Context, key string) error
}

// SocialProvider talks to one OAuth provider.
type SocialProvider interface {
	Name() string
	AuthCodeURL(state string) string
	UserFromCode(ctx context.Context, code string) (*domain.SocialUser, error)
	UserFromToken(ctx context.Context, accessToken string) (*domain.SocialUser, error)
}

// SocialProviders resolves configured providers by name.
type SocialProviders interface {
	Provider(name string) (SocialProvider, error)
}

// StateSigner issues and verifies the OAuth state parameter.
type StateSigner interface {
	Issue(provider string) (string, error)
	Verify(state, provider string) error
}

// Notifier sends user-facing notifications.
type Notifier interface {
	// PasswordResetLink delivers link to user. validFor is how long the link stays usable.
	PasswordResetLink(ctx context.Context, user *domain.User, link string, validFor time.Duration) error
}
