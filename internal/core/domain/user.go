package domain

import "time"

// User models an account that can authenticate against the API.
type User struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	Email           string     `json:"email"`
	PasswordHash    string     `json:"-"`
	Provider        string     `json:"provider,omitempty"`
	ProviderID      string     `json:"provider_id,omitempty"`
	ProfilePicture  string     `json:"profile_picture,omitempty"`
	Phone           string     `json:"phone,omitempty"`
	Address         string     `json:"address,omitempty"`
	EmailVerifiedAt *time.Time `json:"email_verified_at,omitempty"`
	RoleIDs         []int64    `json:"-"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// HasRoleID reports whether id is among the user's assigned roles.
func (u *User) HasRoleID(id int64) bool {
	for _, r := range u.RoleIDs {
		if r == id {
			return true
		}
	}
	return false
}

// UserAccess is a user together with its resolved role names and the
// effective permission set derived from those roles.
type UserAccess struct {
	User        *User
	Roles       []string
	Permissions []string
}

// HasRole reports whether the resolved roles contain name.
func (a *UserAccess) HasRole(name string) bool {
	for _, r := range a.Roles {
		if r == name {
			return true
		}
	}
	return false
}

// SocialUser is the identity returned by an OAuth provider.
type SocialUser struct {
	Provider string
	ID       string
	Name     string
	Email    string
	Avatar   string
}
