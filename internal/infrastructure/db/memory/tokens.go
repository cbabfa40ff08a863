package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/apistarter/auth-api/internal/core/domain"
)

type TokenRepository struct {
	s *Store
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.Token) (*domain.Token, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	c := cloneToken(t)
	c.ID = r.s.next("personal_access_tokens")
	r.s.record(ctx, func() { delete(r.s.toks, c.ID) })
	r.s.toks[c.ID] = c
	return cloneToken(c), nil
}

func (r *TokenRepository) FindByID(_ context.Context, id int64) (*domain.Token, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.toks[id]
	if !ok {
		return nil, domain.ErrTokenNotFound
	}
	return cloneToken(t), nil
}

func (r *TokenRepository) FindByHash(_ context.Context, hash string) (*domain.Token, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, t := range r.s.toks {
		if t.Hash == hash {
			return cloneToken(t), nil
		}
	}
	return nil, domain.ErrTokenNotFound
}

func (r *TokenRepository) ListByUser(_ context.Context, userID int64) ([]*domain.Token, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Token{}
	for _, t := range r.s.toks {
		if t.UserID == userID {
			out = append(out, cloneToken(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *TokenRepository) Touch(ctx context.Context, id int64, at time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.toks[id]
	if !ok {
		return domain.ErrTokenNotFound
	}
	prev := t.LastUsedAt
	r.s.record(ctx, func() { t.LastUsedAt = prev })
	t.LastUsedAt = &at
	return nil
}

func (r *TokenRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	t, ok := r.s.toks[id]
	if !ok {
		return domain.ErrTokenNotFound
	}
	r.s.record(ctx, func() { r.s.toks[id] = t })
	delete(r.s.toks, id)
	return nil
}

func (r *TokenRepository) DeleteByUser(ctx context.Context, userID int64) (int64, error) {
	return r.deleteWhere(ctx, func(t *domain.Token) bool { return t.UserID == userID }), nil
}

func (r *TokenRepository) DeleteByUserAndName(ctx context.Context, userID int64, fragment string) (int64, error) {
	return r.deleteWhere(ctx, func(t *domain.Token) bool {
		return t.UserID == userID && strings.Contains(t.Name, fragment)
	}), nil
}

func (r *TokenRepository) deleteWhere(ctx context.Context, match func(*domain.Token) bool) int64 {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var n int64
	for id, t := range r.s.toks {
		if match(t) {
			r.s.record(ctx, func() { r.s.toks[id] = t })
			delete(r.s.toks, id)
			n++
		}
	}
	return n
}

// Count returns the number of stored tokens.
func (r *TokenRepository) Count() int {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return len(r.s.toks)
}
