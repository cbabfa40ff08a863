package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if u.Email == user.Email {
			return nil, domain.ErrDuplicate
		}
	}
	c := cloneUser(user)
	c.ID = r.s.next("users")
	r.s.record(ctx, func() { delete(r.s.users, c.ID) })
	r.s.users[c.ID] = c
	return cloneUser(c), nil
}

func (r *UserRepository) FindByID(_ context.Context, id int64) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	return r.findOne(func(u *domain.User) bool { return u.Email == email })
}

func (r *UserRepository) FindByProvider(_ context.Context, provider, providerID string) (*domain.User, error) {
	if provider == "" || providerID == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(func(u *domain.User) bool { return u.Provider == provider && u.ProviderID == providerID })
}

func (r *UserRepository) findOne(match func(*domain.User) bool) (*domain.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, u := range r.s.users {
		if match(u) {
			return cloneUser(u), nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (r *UserRepository) Update(ctx context.Context, user *domain.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.users[user.ID]
	if !ok {
		return domain.ErrUserNotFound
	}
	for id, u := range r.s.users {
		if id != user.ID && u.Email == user.Email {
			return domain.ErrDuplicate
		}
	}
	r.s.record(ctx, func() { r.s.users[prev.ID] = prev })
	r.s.users[user.ID] = cloneUser(user)
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	r.s.record(ctx, func() { r.s.users[id] = u })
	delete(r.s.users, id)
	return nil
}

func (r *UserRepository) List(_ context.Context, f ports.UserFilter) ([]*domain.User, int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	search := strings.ToLower(f.Search)
	var matched []*domain.User
	for _, u := range r.s.users {
		if f.RoleID != 0 && !u.HasRoleID(f.RoleID) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.Name), search) &&
			!strings.Contains(strings.ToLower(u.Email), search) {
			continue
		}
		matched = append(matched, u)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	total := int64(len(matched))
	start, end := pageBounds(len(matched), f.Page, f.PerPage)
	out := make([]*domain.User, 0, end-start)
	for _, u := range matched[start:end] {
		out = append(out, cloneUser(u))
	}
	return out, total, nil
}

func (r *UserRepository) CountByRole(_ context.Context, roleID int64) (int64, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var n int64
	for _, u := range r.s.users {
		if u.HasRoleID(roleID) {
			n++
		}
	}
	return n, nil
}

func (r *UserRepository) DetachRole(ctx context.Context, roleID int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if !u.HasRoleID(roleID) {
			continue
		}
		prev := append([]int64(nil), u.RoleIDs...)
		r.s.record(ctx, func() { u.RoleIDs = prev })
		kept := make([]int64, 0, len(u.RoleIDs))
		for _, id := range u.RoleIDs {
			if id != roleID {
				kept = append(kept, id)
			}
		}
		u.RoleIDs = kept
	}
	return nil
}

// pageBounds returns the slice bounds of a 1-based page. perPage <= 0 selects everything.
func pageBounds(n, page, perPage int) (int, int) {
	if perPage <= 0 {
		return 0, n
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * perPage
	if start > n {
		start = n
	}
	end := start + perPage
	if end > n {
		end = n
	}
	return start, end
}
