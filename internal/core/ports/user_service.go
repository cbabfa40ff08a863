package ports

import (
	"context"
	"io"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// UpdateProfileInput holds optional profile fields; nil means unchanged.
type UpdateProfileInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

// UpdatePasswordInput carries a self-service password change.
type UpdatePasswordInput struct {
	CurrentPassword string
	Password        string
}

// UploadInput describes an uploaded profile picture.
type UploadInput struct {
	Body io.Reader
	Size int64
}

// ProfileService implements the authenticated user's own profile endpoints.
type ProfileService interface {
	Show(ctx context.Context, user *domain.User) (*domain.UserAccess, error)
	Update(ctx context.Context, user *domain.User, in UpdateProfileInput) (*domain.UserAccess, error)
	UpdatePassword(ctx context.Context, user *domain.User, in UpdatePasswordInput) error
	UploadPicture(ctx context.Context, user *domain.User, in UploadInput) (*domain.UserAccess, error)
	DeletePicture(ctx context.Context, user *domain.User) (*domain.UserAccess, error)
}

// CreateUserInput carries an admin-created account.
type CreateUserInput struct {
	Name     string
	Email    string
	Password string
	Roles    []string // nil = no roles
}

// UpdateUserInput holds optional fields; nil means unchanged. A non-nil
// Roles replaces the user's role set.
type UpdateUserInput struct {
	Name     *string
	Email    *string
	Password *string
	Roles    *[]string
}

// ListUsersInput carries the admin listing query.
type ListUsersInput struct {
	Search  string
	Role    string
	Page    int
	PerPage int
}

// UserPage is a page of users with their resolved access.
type UserPage struct {
	Items []*domain.UserAccess
	Meta  domain.PageMeta
}

// AdminUserService implements user management for administrators.
type AdminUserService interface {
	List(ctx context.Context, in ListUsersInput) (*UserPage, error)
	Create(ctx context.Context, in CreateUserInput) (*domain.UserAccess, error)
	Get(ctx context.Context, id int64) (*domain.UserAccess, error)
	Update(ctx context.Context, id int64, in UpdateUserInput) (*domain.UserAccess, error)
	Delete(ctx context.Context, actor *domain.User, id int64) error
}

// CreateRoleInput carries a new role.
type CreateRoleInput struct {
	Name        string
	Permissions []string
}

// UpdateRoleInput holds optional fields; a non-nil Permissions replaces the set.
type UpdateRoleInput struct {
	Name        *string
	Permissions *[]string
}

// RolePage is a listing of roles; Meta is nil when the listing is not paginated.
type RolePage struct {
	Items []*domain.RoleWithPermissions
	Meta  *domain.PageMeta
}

// AdminRoleService implements role management for administrators.
type AdminRoleService interface {
	List(ctx context.Context, page, perPage int) (*RolePage, error)
	Create(ctx context.Context, in CreateRoleInput) (*domain.RoleWithPermissions, error)
	Get(ctx context.Context, id int64) (*domain.RoleWithPermissions, error)
	Update(ctx context.Context, id int64, in UpdateRoleInput) (*domain.RoleWithPermissions, error)
	Delete(ctx context.Context, id int64) error
	Permissions(ctx context.Context) ([]*domain.Permission, error)
}
