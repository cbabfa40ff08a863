// Package memory keeps users, roles, permissions and tokens in process
// memory. It backs tests and STORE_DRIVER=memory local runs.
package memory

import (
	"context"
	"sync"

	"github.com/apistarter/auth-api/internal/core/domain"
)

// Store holds every collection behind one mutex. Transactions are serialized
// and roll back through an undo log.
type Store struct {
	mu    sync.RWMutex
	txMu  sync.Mutex
	seq   map[string]int64
	users map[int64]*domain.User
	roles map[int64]*domain.Role
	perms map[int64]*domain.Permission
	toks  map[int64]*domain.Token
}

func NewStore() *Store {
	return &Store{
		seq:   make(map[string]int64),
		users: make(map[int64]*domain.User),
		roles: make(map[int64]*domain.Role),
		perms: make(map[int64]*domain.Permission),
		toks:  make(map[int64]*domain.Token),
	}
}

func (s *Store) Users() *UserRepository             { return &UserRepository{s: s} }
func (s *Store) Roles() *RoleRepository             { return &RoleRepository{s: s} }
func (s *Store) Permissions() *PermissionRepository { return &PermissionRepository{s: s} }
func (s *Store) Tokens() *TokenRepository           { return &TokenRepository{s: s} }

// next returns the next id of the named sequence. Callers hold mu.
func (s *Store) next(name string) int64 {
	s.seq[name]++
	return s.seq[name]
}

// WithinTransaction runs fn with exclusive access to transactions. When fn
// returns an error the writes it made through its context are undone in
// reverse order; writes made by other callers meanwhile are kept.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, nested := ctx.Value(undoKey{}).(*undoLog); nested {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	log := &undoLog{}
	if err := fn(context.WithValue(ctx, undoKey{}, log)); err != nil {
		s.mu.Lock()
		for i := len(log.ops) - 1; i >= 0; i-- {
			log.ops[i]()
		}
		s.mu.Unlock()
		return err
	}
	return nil
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

type undoKey struct{}

// undoLog holds the inverse of every write made inside one transaction.
type undoLog struct {
	ops []func()
}

// record registers undo for the write about to happen. Callers hold mu.
// Ids handed out by next are not reclaimed.
func (s *Store) record(ctx context.Context, undo func()) {
	if log, ok := ctx.Value(undoKey{}).(*undoLog); ok {
		log.ops = append(log.ops, undo)
	}
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	c.RoleIDs = append([]int64(nil), u.RoleIDs...)
	if u.EmailVerifiedAt != nil {
		t := *u.EmailVerifiedAt
		c.EmailVerifiedAt = &t
	}
	return &c
}

func cloneRole(r *domain.Role) *domain.Role {
	c := *r
	c.PermissionIDs = append([]int64(nil), r.PermissionIDs...)
	return &c
}

func clonePermission(p *domain.Permission) *domain.Permission {
	c := *p
	return &c
}

func cloneToken(t *domain.Token) *domain.Token {
	c := *t
	c.Abilities = append([]string(nil), t.Abilities...)
	if t.LastUsedAt != nil {
		at := *t.LastUsedAt
		c.LastUsedAt = &at
	}
	return &c
}
