package ports

import (
	"context"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// UserFilter carries the query parameters for listing users.
type UserFilter struct {
	Search  string // partial match on name or email
	RoleID  int64  // 0 = any role
	Page    int    // 1-based
	PerPage int
}

// UserRepository defines persistence operations for users.
type UserRepository interface {
	// Create assigns the user an id and persists it. Returns domain.ErrDuplicate
	// when the email is already taken.
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByProvider(ctx context.Context, provider, providerID string) (*domain.User, error)
	// Update replaces the stored user, including its role assignments.
	Update(ctx context.Context, user *domain.User) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, filter UserFilter) ([]*domain.User, int64, error)
	CountByRole(ctx context.Context, roleID int64) (int64, error)
	// DetachRole removes roleID from every user holding it.
	DetachRole(ctx context.Context, roleID int64) error
}
