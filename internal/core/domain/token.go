package domain

import "time"

const (
	// TokenType is the scheme clients must use in the Authorization header.
	TokenType = "Bearer"
	// AbilityAll grants unrestricted access.
	AbilityAll = "*"
	// AbilityAdmin is required on tokens used against admin routes.
	AbilityAdmin = "admin"
	// MaxTokenNameLength bounds the stored token name.
	MaxTokenNameLength = 255
)

// Token is a persisted personal access token. Only the SHA-256 hash of the
// secret is stored.
type Token struct {
	ID         int64
	UserID     int64
	Name       string
	Hash       string
	Abilities  []string
	LastUsedAt *time.Time
	ExpiresAt  time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Expired reports whether the token is no longer valid at now.
func (t *Token) Expired(now time.Time) bool {
	return !t.ExpiresAt.IsZero() && !now.Before(t.ExpiresAt)
}

// Can reports whether the token grants ability.
func (t *Token) Can(ability string) bool {
	for _, a := range t.Abilities {
		if a == AbilityAll || a == ability {
			return true
		}
	}
	return false
}

// IssuedToken is returned exactly once when a token is created; PlainText is
// never recoverable afterwards.
type IssuedToken struct {
	Token     *Token
	PlainText string
	TokenType string
	ExpiresAt time.Time
}

// Principal is the authenticated caller of a request: the user and the token
// used to authenticate it.
type Principal struct {
	User  *User
	Token *Token
}

// TokenID returns the id of the credential used for the request, or 0.
func (p *Principal) TokenID() int64 {
	if p == nil || p.Token == nil {
		return 0
	}
	return p.Token.ID
}
