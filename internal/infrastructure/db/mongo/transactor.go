package mongo

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// Transactor runs functions inside a MongoDB multi-document transaction.
// Repositories pick the session up from the context they are called with.
// Transactions need a replica set or sharded cluster.
type Transactor struct {
	client *mongo.Client
}

func NewTransactor(client *mongo.Client) *Transactor {
	return &Transactor{client: client}
}

// WithinTransaction commits when fn returns nil and aborts otherwise.
// Transient errors such as write conflicts are retried by the driver.
func (t *Transactor) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	session, err := t.client.StartSession()
	if err != nil {
		return err
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc)
	})
	return err
}

// EnsureIndexes creates the indexes of every repository.
func EnsureIndexes(ctx context.Context, users *UserRepository, roles *RoleRepository, perms *PermissionRepository, tokens *TokenRepository) error {
	for _, ensure := range []func(context.Context) error{
		users.EnsureIndexes,
		roles.EnsureIndexes,
		perms.EnsureIndexes,
		tokens.EnsureIndexes,
	} {
		if err := ensure(ctx); err != nil {
			return err
		}
	}
	return nil
}
