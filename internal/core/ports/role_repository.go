package ports

import (
	"context"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// RoleRepository defines persistence operations for roles.
type RoleRepository interface {
	// Create assigns the role an id and persists it. Returns domain.ErrDuplicate
	// when the name already exists in the guard.
	Create(ctx context.Context, role *domain.Role) (*domain.Role, error)
	FindByID(ctx context.Context, id int64) (*domain.Role, error)
	FindByName(ctx context.Context, name string) (*domain.Role, error)
	// FindByNames returns the roles whose names are listed; unknown names are skipped.
	FindByNames(ctx context.Context, names []string) ([]*domain.Role, error)
	FindByIDs(ctx context.Context, ids []int64) ([]*domain.Role, error)
	// List returns roles ordered by id. perPage <= 0 returns every role.
	List(ctx context.Context, page, perPage int) ([]*domain.Role, int64, error)
	Update(ctx context.Context, role *domain.Role) error
	Delete(ctx context.Context, id int64) error
	// Lock marks the role as written within the current transaction so that
	// concurrent transactions touching the same role conflict.
	Lock(ctx context.Context, id int64) error
}

// PermissionRepository defines persistence operations for permissions.
type PermissionRepository interface {
	Create(ctx context.Context, perm *domain.Permission) (*domain.Permission, error)
	FindByNames(ctx context.Context, names []string) ([]*domain.Permission, error)
	FindByIDs(ctx context.Context, ids []int64) ([]*domain.Permission, error)
	List(ctx context.Context) ([]*domain.Permission, error)
}
