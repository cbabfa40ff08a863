package service

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/core/domain"
)

func TestTokenService_CreateUserToken(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "ann@x.com", "Secret123!")

	issued, err := f.tokenSvc.CreateUserToken(context.Background(), user, "iPhone 15")
	if err != nil {
		t.Fatalf("CreateUserToken returned error: %v", err)
	}
	if issued.TokenType != "Bearer" {
		t.Errorf("unexpected token type: %s", issued.TokenType)
	}
	id, secret, ok := strings.Cut(issued.PlainText, "|")
	if !ok || id != strconv.FormatInt(issued.Token.ID, 10) {
		t.Fatalf("unexpected plain text format: %q", issued.PlainText)
	}
	if len(secret) != tokenSecretLength {
		t.Errorf("expected %d char secret, got %d", tokenSecretLength, len(secret))
	}

	stored, err := f.tokens.FindByID(context.Background(), issued.Token.ID)
	if err != nil {
		t.Fatalf("token not stored: %v", err)
	}
	if stored.Hash == secret || stored.Hash != hashToken(secret) {
		t.Errorf("expected only the secret hash to be stored")
	}
	if stored.Name != "iPhone 15" {
		t.Errorf("unexpected name: %s", stored.Name)
	}
	if len(stored.Abilities) != 1 || stored.Abilities[0] != domain.AbilityAll {
		t.Errorf("expected default ability *, got %v", stored.Abilities)
	}
	if d := stored.ExpiresAt.Sub(stored.CreatedAt); d != time.Hour {
		t.Errorf("expected expiry one hour after creation, got %v", d)
	}
}

func TestTokenService_DefaultTTL(t *testing.T) {
	f := newFixture(t)
	svc := NewTokenService(f.tokens, f.users, 0, zerolog.Nop())
	if svc.ttl != 10080*time.Minute {
		t.Fatalf("expected default ttl of 10080 minutes, got %v", svc.ttl)
	}
}

func TestTokenName(t *testing.T) {
	now := time.Unix(1700000000, 0)

	if got := tokenName("", now); got != "token_1700000000" {
		t.Errorf("fallback name: got %q", got)
	}
	if got := tokenName("   ", now); got != "token_1700000000" {
		t.Errorf("blank name: got %q", got)
	}
	long := strings.Repeat("é", 300)
	if got := tokenName(long, now); len([]rune(got)) != domain.MaxTokenNameLength {
		t.Errorf("expected truncation to %d runes, got %d", domain.MaxTokenNameLength, len([]rune(got)))
	}
}

func TestTokenService_Authenticate(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "ann@x.com", "Secret123!")
	issued, _ := f.tokenSvc.CreateUserToken(context.Background(), user, "web")

	p, err := f.tokenSvc.Authenticate(context.Background(), issued.PlainText)
	if err != nil {
		t.Fatalf("Authenticate returned error: %v", err)
	}
	if p.User.ID != user.ID || p.TokenID() != issued.Token.ID {
		t.Fatalf("unexpected principal: user %d token %d", p.User.ID, p.TokenID())
	}
	stored, _ := f.tokens.FindByID(context.Background(), issued.Token.ID)
	if stored.LastUsedAt == nil {
		t.Errorf("expected last_used_at to be recorded")
	}
}

func TestTokenService_Authenticate_Rejects(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "ann@x.com", "Secret123!")
	issued, _ := f.tokenSvc.CreateUserToken(context.Background(), user, "web")
	id, _, _ := strings.Cut(issued.PlainText, "|")

	cases := map[string]string{
		"empty":         "",
		"garbage":       "not-a-token",
		"wrong secret":  id + "|" + strings.Repeat("x", tokenSecretLength),
		"bad id":        "abc|secret",
		"unknown id":    "999|secret",
		"negative id":   "-1|secret",
	}
	for name, plain := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := f.tokenSvc.Authenticate(context.Background(), plain); !errors.Is(err, domain.ErrUnauthenticated) {
				t.Fatalf("expected ErrUnauthenticated, got %v", err)
			}
		})
	}
}

func TestTokenService_Authenticate_Expired(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "ann@x.com", "Secret123!")
	issued, _ := f.tokenSvc.CreateUserToken(context.Background(), user, "web")

	f.tokenSvc.now = func() time.Time { return issued.ExpiresAt }
	if _, err := f.tokenSvc.Authenticate(context.Background(), issued.PlainText); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	f.tokenSvc.now = func() time.Time { return issued.ExpiresAt.Add(-time.Second) }
	if _, err := f.tokenSvc.Authenticate(context.Background(), issued.PlainText); err != nil {
		t.Fatalf("expected token to be valid just before expiry, got %v", err)
	}
}

func TestTokenService_Authenticate_DeletedOwner(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "ann@x.com", "Secret123!")
	issued, _ := f.tokenSvc.CreateUserToken(context.Background(), user, "web")
	_ = f.users.Delete(context.Background(), user.ID)

	if _, err := f.tokenSvc.Authenticate(context.Background(), issued.PlainText); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestTokenService_RevokeCurrentToken(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "ann@x.com", "Secret123!")
	first, _ := f.tokenSvc.CreateUserToken(context.Background(), user, "web")
	second, _ := f.tokenSvc.CreateUserToken(context.Background(), user, "phone")

	p, err := f.tokenSvc.Authenticate(context.Background(), first.PlainText)
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if err := f.tokenSvc.RevokeCurrentToken(context.Background(), p); err != nil {
		t.Fatalf("RevokeCurrentToken: %v", err)
	}
	if _, err := f.tokenSvc.Authenticate(context.Background(), first.PlainText); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("revoked token still authenticates: %v", err)
	}
	if _, err := f.tokenSvc.Authenticate(context.Background(), second.PlainText); err != nil {
		t.Fatalf("other token must survive, got %v", err)
	}

	// Revoking again, or with no current token, is a no-op.
	if err := f.tokenSvc.RevokeCurrentToken(context.Background(), p); err != nil {
		t.Fatalf("second revoke: %v", err)
	}
	if err := f.tokenSvc.RevokeCurrentToken(context.Background(), &domain.Principal{User: user}); err != nil {
		t.Fatalf("revoke without token: %v", err)
	}
}

func TestTokenService_RevokeAllTokens(t *testing.T) {
	f := newFixture(t)
	ann := f.createUser(t, "ann@x.com", "Secret123!")
	bob := f.createUser(t, "bob@x.com", "Secret123!")
	_, _ = f.tokenSvc.CreateUserToken(context.Background(), ann, "web")
	_, _ = f.tokenSvc.CreateUserToken(context.Background(), ann, "phone")
	bobs, _ := f.tokenSvc.CreateUserToken(context.Background(), bob, "web")

	n, err := f.tokenSvc.RevokeAllTokens(context.Background(), ann.ID)
	if err != nil {
		t.Fatalf("RevokeAllTokens: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 tokens revoked, got %d", n)
	}
	if _, err := f.tokenSvc.Authenticate(context.Background(), bobs.PlainText); err != nil {
		t.Fatalf("other user's token must survive: %v", err)
	}
}

func TestTokenService_RevokeTokensByDevice(t *testing.T) {
	f := newFixture(t)
	user := f.createUser(t, "ann@x.com", "Secret123!")
	_, _ = f.tokenSvc.CreateUserToken(context.Background(), user, "login_iPhone")
	_, _ = f.tokenSvc.CreateUserToken(context.Background(), user, "login_iPhone_refreshed")
	android, _ := f.tokenSvc.CreateUserToken(context.Background(), user, "login_Android")

	n, err := f.tokenSvc.RevokeTokensByDevice(context.Background(), user.ID, "iPhone")
	if err != nil {
		t.Fatalf("RevokeTokensByDevice: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected substring match to revoke 2 tokens, got %d", n)
	}
	remaining, _ := f.tokenSvc.ListTokens(context.Background(), user.ID)
	if len(remaining) != 1 || remaining[0].ID != android.Token.ID {
		t.Fatalf("unexpected remaining tokens: %+v", remaining)
	}

	var verr *domain.ValidationError
	if _, err := f.tokenSvc.RevokeTokensByDevice(context.Background(), user.ID, ""); !errors.As(err, &verr) {
		t.Fatalf("expected validation error for empty device, got %v", err)
	}
}
