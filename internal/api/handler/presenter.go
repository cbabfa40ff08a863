package handler

import (
	"time"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

// URLResolver turns a stored object key into a public URL.
type URLResolver interface {
	URL(key string) string
}

// UserDTO is the public shape of a user.
type UserDTO struct {
	ID              int64    `json:"id"`
	Name            string   `json:"name"`
	Email           string   `json:"email"`
	EmailVerifiedAt *string  `json:"email_verified_at"`
	Roles           []string `json:"roles"`
	Permissions     []string `json:"permissions"`
}

// UserProfileDTO extends UserDTO with contact details and timestamps.
type UserProfileDTO struct {
	UserDTO
	Phone          *string `json:"phone"`
	Address        *string `json:"address"`
	ProfilePicture *string `json:"profile_picture"`
	CreatedAt      *string `json:"created_at"`
	UpdatedAt      *string `json:"updated_at"`
}

// AuthDTO is returned by every flow that issues a token.
type AuthDTO struct {
	User        UserDTO `json:"user"`
	AccessToken string  `json:"access_token"`
	TokenType   string  `json:"token_type"`
	ExpiresAt   string  `json:"expires_at"`
}

// RoleDTO is the public shape of a role.
type RoleDTO struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Permissions []string `json:"permissions"`
	CreatedAt   *string  `json:"created_at"`
	UpdatedAt   *string  `json:"updated_at"`
}

// PermissionDTO is the public shape of a permission.
type PermissionDTO struct {
	ID        int64   `json:"id"`
	Name      string  `json:"name"`
	CreatedAt *string `json:"created_at"`
	UpdatedAt *string `json:"updated_at"`
}

// TokenDTO describes an issued token without its secret.
type TokenDTO struct {
	ID         int64    `json:"id"`
	Name       string   `json:"name"`
	Abilities  []string `json:"abilities"`
	LastUsedAt *string  `json:"last_used_at"`
	ExpiresAt  *string  `json:"expires_at"`
	CreatedAt  *string  `json:"created_at"`
}

// Presenter shapes domain values into transfer objects.
type Presenter struct {
	urls URLResolver
}

// NewPresenter returns a Presenter. A nil resolver leaves picture keys as stored.
func NewPresenter(urls URLResolver) *Presenter {
	return &Presenter{urls: urls}
}

func (p *Presenter) User(a *domain.UserAccess) UserDTO {
	u := a.User
	return UserDTO{
		ID:              u.ID,
		Name:            u.Name,
		Email:           u.Email,
		EmailVerifiedAt: isoPtr(u.EmailVerifiedAt),
		Roles:           nonNil(a.Roles),
		Permissions:     nonNil(a.Permissions),
	}
}

func (p *Presenter) Profile(a *domain.UserAccess) UserProfileDTO {
	u := a.User
	dto := UserProfileDTO{
		UserDTO:   p.User(a),
		Phone:     optional(u.Phone),
		Address:   optional(u.Address),
		CreatedAt: iso(u.CreatedAt),
		UpdatedAt: iso(u.UpdatedAt),
	}
	if u.ProfilePicture != "" {
		url := u.ProfilePicture
		if p.urls != nil {
			url = p.urls.URL(url)
		}
		dto.ProfilePicture = &url
	}
	return dto
}

func (p *Presenter) Users(items []*domain.UserAccess) []UserDTO {
	out := make([]UserDTO, 0, len(items))
	for _, a := range items {
		out = append(out, p.User(a))
	}
	return out
}

func (p *Presenter) Auth(res *ports.AuthResult) AuthDTO {
	return AuthDTO{
		User:        p.User(res.Access),
		AccessToken: res.Token.PlainText,
		TokenType:   res.Token.TokenType,
		ExpiresAt:   res.Token.ExpiresAt.UTC().Format(time.RFC3339),
	}
}

func (p *Presenter) Role(r *domain.RoleWithPermissions) RoleDTO {
	return RoleDTO{
		ID:          r.Role.ID,
		Name:        r.Role.Name,
		Permissions: nonNil(r.Permissions),
		CreatedAt:   iso(r.Role.CreatedAt),
		UpdatedAt:   iso(r.Role.UpdatedAt),
	}
}

func (p *Presenter) Roles(items []*domain.RoleWithPermissions) []RoleDTO {
	out := make([]RoleDTO, 0, len(items))
	for _, r := range items {
		out = append(out, p.Role(r))
	}
	return out
}

func (p *Presenter) Permissions(items []*domain.Permission) []PermissionDTO {
	out := make([]PermissionDTO, 0, len(items))
	for _, perm := range items {
		out = append(out, PermissionDTO{
			ID:        perm.ID,
			Name:      perm.Name,
			CreatedAt: iso(perm.CreatedAt),
			UpdatedAt: iso(perm.UpdatedAt),
		})
	}
	return out
}

func (p *Presenter) Tokens(items []*domain.Token) []TokenDTO {
	out := make([]TokenDTO, 0, len(items))
	for _, t := range items {
		out = append(out, TokenDTO{
			ID:         t.ID,
			Name:       t.Name,
			Abilities:  nonNil(t.Abilities),
			LastUsedAt: isoPtr(t.LastUsedAt),
			ExpiresAt:  iso(t.ExpiresAt),
			CreatedAt:  iso(t.CreatedAt),
		})
	}
	return out
}

func iso(t time.Time) *string {
	if t.IsZero() {
		return nil
	}
	s := t.UTC().Format(time.RFC3339)
	return &s
}

func isoPtr(t *time.Time) *string {
	if t == nil {
		return nil
	}
	return iso(*t)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
