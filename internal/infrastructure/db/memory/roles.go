package memory

import (
	"context"
	"sort"

	"github.com/apistarter/auth-api/internal/core/domain"
)

type RoleRepository struct {
	s *Store
}

func (r *RoleRepository) Create(ctx context.Context, role *domain.Role) (*domain.Role, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.roles {
		if existing.Name == role.Name && existing.GuardName == role.GuardName {
			return nil, domain.ErrDuplicate
		}
	}
	c := cloneRole(role)
	c.ID = r.s.next("roles")
	r.s.record(ctx, func() { delete(r.s.roles, c.ID) })
	r.s.roles[c.ID] = c
	return cloneRole(c), nil
}

func (r *RoleRepository) FindByID(_ context.Context, id int64) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	role, ok := r.s.roles[id]
	if !ok {
		return nil, domain.ErrRoleNotFound
	}
	return cloneRole(role), nil
}

func (r *RoleRepository) FindByName(_ context.Context, name string) (*domain.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, role := range r.s.roles {
		if role.Name == name {
			return cloneRole(role), nil
		}
	}
	return nil, domain.ErrRoleNotFound
}

func (r *RoleRepository) FindByNames(_ context.Context, names []string) ([]*domain.Role, error) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	return r.collect(func(role *domain.Role) bool {
		_, ok := want[role.Name]
		return ok
	}), nil
}

func (r *RoleRepository) FindByIDs(_ context.Context, ids []int64) ([]*domain.Role, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return r.collect(func(role *domain.Role) bool {
		_, ok := want[role.ID]
		return ok
	}), nil
}

func (r *RoleRepository) List(_ context.Context, page, perPage int) ([]*domain.Role, int64, error) {
	all := r.collect(func(*domain.Role) bool { return true })
	start, end := pageBounds(len(all), page, perPage)
	return all[start:end], int64(len(all)), nil
}

func (r *RoleRepository) collect(match func(*domain.Role) bool) []*domain.Role {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Role{}
	for _, role := range r.s.roles {
		if match(role) {
			out = append(out, cloneRole(role))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (r *RoleRepository) Update(ctx context.Context, role *domain.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	prev, ok := r.s.roles[role.ID]
	if !ok {
		return domain.ErrRoleNotFound
	}
	for id, existing := range r.s.roles {
		if id != role.ID && existing.Name == role.Name && existing.GuardName == role.GuardName {
			return domain.ErrDuplicate
		}
	}
	r.s.record(ctx, func() { r.s.roles[prev.ID] = prev })
	r.s.roles[role.ID] = cloneRole(role)
	return nil
}

func (r *RoleRepository) Delete(ctx context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	role, ok := r.s.roles[id]
	if !ok {
		return domain.ErrRoleNotFound
	}
	r.s.record(ctx, func() { r.s.roles[id] = role })
	delete(r.s.roles, id)
	return nil
}

// Lock only checks existence; transactions are already serialized.
func (r *RoleRepository) Lock(ctx context.Context, id int64) error {
	_, err := r.FindByID(ctx, id)
	return err
}

type PermissionRepository struct {
	s *Store
}

func (r *PermissionRepository) Create(ctx context.Context, p *domain.Permission) (*domain.Permission, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.perms {
		if existing.Name == p.Name && existing.GuardName == p.GuardName {
			return nil, domain.ErrDuplicate
		}
	}
	c := clonePermission(p)
	c.ID = r.s.next("permissions")
	r.s.record(ctx, func() { delete(r.s.perms, c.ID) })
	r.s.perms[c.ID] = c
	return clonePermission(c), nil
}

func (r *PermissionRepository) FindByNames(_ context.Context, names []string) ([]*domain.Permission, error) {
	want := make(map[string]struct{}, len(names))
	for _, n := range names {
		want[n] = struct{}{}
	}
	return r.collect(func(p *domain.Permission) bool {
		_, ok := want[p.Name]
		return ok
	}), nil
}

func (r *PermissionRepository) FindByIDs(_ context.Context, ids []int64) ([]*domain.Permission, error) {
	want := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	return r.collect(func(p *domain.Permission) bool {
		_, ok := want[p.ID]
		return ok
	}), nil
}

func (r *PermissionRepository) List(context.Context) ([]*domain.Permission, error) {
	return r.collect(func(*domain.Permission) bool { return true }), nil
}

func (r *PermissionRepository) collect(match func(*domain.Permission) bool) []*domain.Permission {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := []*domain.Permission{}
	for _, p := range r.s.perms {
		if match(p) {
			out = append(out, clonePermission(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
