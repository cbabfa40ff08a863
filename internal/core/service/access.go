package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

// AccessResolver expands role assignments into role names and the effective
// permission set. A user's permissions are the union of the permissions of
// every role they hold, deduplicated by name.
type AccessResolver struct {
	roles ports.RoleRepository
	perms ports.PermissionRepository
}

func NewAccessResolver(roles ports.RoleRepository, perms ports.PermissionRepository) *AccessResolver {
	return &AccessResolver{roles: roles, perms: perms}
}

func (r *AccessResolver) Resolve(ctx context.Context, user *domain.User) (*domain.UserAccess, error) {
	list, err := r.ResolveMany(ctx, []*domain.User{user})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// ResolveMany loads the roles and permissions of all users with two queries.
func (r *AccessResolver) ResolveMany(ctx context.Context, users []*domain.User) ([]*domain.UserAccess, error) {
	roleIDs := uniqueIDs(func(yield func(int64)) {
		for _, u := range users {
			for _, id := range u.RoleIDs {
				yield(id)
			}
		}
	})

	roleByID := make(map[int64]*domain.Role)
	if len(roleIDs) > 0 {
		roles, err := r.roles.FindByIDs(ctx, roleIDs)
		if err != nil {
			return nil, fmt.Errorf("resolve roles: %w", err)
		}
		for _, role := range roles {
			roleByID[role.ID] = role
		}
	}

	permIDs := uniqueIDs(func(yield func(int64)) {
		for _, role := range roleByID {
			for _, id := range role.PermissionIDs {
				yield(id)
			}
		}
	})
	permNames, err := r.permissionNames(ctx, permIDs)
	if err != nil {
		return nil, err
	}

	out := make([]*domain.UserAccess, 0, len(users))
	for _, u := range users {
		held := make([]*domain.Role, 0, len(u.RoleIDs))
		for _, id := range u.RoleIDs {
			if role, ok := roleByID[id]; ok {
				held = append(held, role)
			}
		}
		sort.Slice(held, func(i, j int) bool { return held[i].ID < held[j].ID })

		access := &domain.UserAccess{
			User:        u,
			Roles:       make([]string, 0, len(held)),
			Permissions: effectivePermissions(held, permNames),
		}
		for _, role := range held {
			access.Roles = append(access.Roles, role.Name)
		}
		out = append(out, access)
	}
	return out, nil
}

func (r *AccessResolver) permissionNames(ctx context.Context, ids []int64) (map[int64]string, error) {
	names := make(map[int64]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}
	perms, err := r.perms.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	for _, p := range perms {
		names[p.ID] = p.Name
	}
	return names, nil
}

// effectivePermissions returns the sorted union of permission names granted by roles.
func effectivePermissions(roles []*domain.Role, names map[int64]string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, role := range roles {
		for _, id := range role.PermissionIDs {
			name, ok := names[id]
			if !ok {
				continue
			}
			if _, dup := seen[name]; dup {
				continue
			}
			seen[name] = struct{}{}
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func uniqueIDs(each func(yield func(int64))) []int64 {
	seen := make(map[int64]struct{})
	var out []int64
	each(func(id int64) {
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}
		out = append(out, id)
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
