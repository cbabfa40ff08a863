package domain

import "time"

const (
	RoleAdmin = "admin"
	RoleUser  = "user"

	// DefaultGuard is the only guard context roles and permissions live in.
	DefaultGuard = "web"
)

// Role is a named group of permissions assignable to users.
type Role struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	GuardName     string    `json:"guard_name"`
	PermissionIDs []int64   `json:"-"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Permission is a named capability granted through roles.
type Permission struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	GuardName string    `json:"guard_name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RoleWithPermissions pairs a role with the names of its permissions.
type RoleWithPermissions struct {
	Role        *Role
	Permissions []string
}

// IsProtectedRole reports whether a role with this name can never be deleted.
func IsProtectedRole(name string) bool {
	return name == RoleAdmin || name == RoleUser
}
