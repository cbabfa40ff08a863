package ports

import (
	"context"
	"time"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// TokenRepository persists personal access tokens.
type TokenRepository interface {
	// Create assigns the token an id and persists it.
	Create(ctx context.Context, token *domain.Token) (*domain.Token, error)
	FindByID(ctx context.Context, id int64) (*domain.Token, error)
	FindByHash(ctx context.Context, hash string) (*domain.Token, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Token, error)
	Touch(ctx context.Context, id int64, at time.Time) error
	Delete(ctx context.Context, id int64) error
	DeleteByUser(ctx context.Context, userID int64) (int64, error)
	// DeleteByUserAndName deletes the user's tokens whose name contains fragment.
	DeleteByUserAndName(ctx context.Context, userID int64, fragment string) (int64, error)
}

// Transactor runs fn so that every repository call made with the context it
// receives commits or aborts as a unit.
type Transactor interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
