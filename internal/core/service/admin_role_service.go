package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

// AdminRoleService implements role management and the protected role rules.
type AdminRoleService struct {
	roles ports.RoleRepository
	perms ports.PermissionRepository
	users ports.UserRepository
	tx    ports.Transactor
	log   zerolog.Logger
}

func NewAdminRoleService(
	roles ports.RoleRepository,
	perms ports.PermissionRepository,
	users ports.UserRepository,
	tx ports.Transactor,
	log zerolog.Logger,
) *AdminRoleService {
	return &AdminRoleService{roles: roles, perms: perms, users: users, tx: tx, log: log}
}

// List returns every role, or one page of roles when perPage is positive.
func (s *AdminRoleService) List(ctx context.Context, page, perPage int) (*ports.RolePage, error) {
	paged := perPage > 0
	if paged {
		page, perPage = normalizePage(page, perPage)
	} else {
		page, perPage = 1, 0
	}

	roles, total, err := s.roles.List(ctx, page, perPage)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	items, err := s.describe(ctx, roles)
	if err != nil {
		return nil, err
	}
	out := &ports.RolePage{Items: items}
	if paged {
		meta := domain.NewPageMeta(page, perPage, len(items), total)
		out.Meta = &meta
	}
	return out, nil
}

func (s *AdminRoleService) Create(ctx context.Context, in ports.CreateRoleInput) (*domain.RoleWithPermissions, error) {
	name := strings.TrimSpace(in.Name)
	verr := &domain.ValidationError{}

	if err := s.checkNameFree(ctx, name, 0, verr); err != nil {
		return nil, err
	}
	permIDs, err := resolvePermissionIDs(ctx, s.perms, "permissions", in.Permissions, verr)
	if err != nil {
		return nil, err
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	role, err := s.roles.Create(ctx, &domain.Role{
		Name:          name,
		GuardName:     domain.DefaultGuard,
		PermissionIDs: permIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.NewValidationError("name", msgNameTaken)
		}
		return nil, fmt.Errorf("create role: %w", err)
	}
	s.log.Info().Int64("role_id", role.ID).Str("name", role.Name).Msg("role created")
	return s.describeOne(ctx, role)
}

func (s *AdminRoleService) Get(ctx context.Context, id int64) (*domain.RoleWithPermissions, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.describeOne(ctx, role)
}

// Update renames the role and/or replaces its permission set. The admin role
// keeps its name.
func (s *AdminRoleService) Update(ctx context.Context, id int64, in ports.UpdateRoleInput) (*domain.RoleWithPermissions, error) {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	verr := &domain.ValidationError{}
	var name string
	if in.Name != nil {
		name = strings.TrimSpace(*in.Name)
		if role.Name == domain.RoleAdmin && name != domain.RoleAdmin {
			s.log.Warn().Int64("role_id", role.ID).Msg("refused admin role rename")
			return nil, domain.NewPolicyError("admin_rename", "Cannot rename the admin role.")
		}
		if name != role.Name {
			if err := s.checkNameFree(ctx, name, role.ID, verr); err != nil {
				return nil, err
			}
		}
	}
	var permIDs []int64
	if in.Permissions != nil {
		if permIDs, err = resolvePermissionIDs(ctx, s.perms, "permissions", *in.Permissions, verr); err != nil {
			return nil, err
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	if in.Name != nil {
		role.Name = name
	}
	if in.Permissions != nil {
		role.PermissionIDs = permIDs
	}
	role.UpdatedAt = time.Now().UTC()
	if err := s.roles.Update(ctx, role); err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.NewValidationError("name", msgNameTaken)
		}
		return nil, fmt.Errorf("update role: %w", err)
	}
	s.log.Info().Int64("role_id", role.ID).Str("name", role.Name).Msg("role updated")
	return s.describeOne(ctx, role)
}

// Delete removes a role and its assignments. Protected roles stay.
func (s *AdminRoleService) Delete(ctx context.Context, id int64) error {
	role, err := s.roles.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if domain.IsProtectedRole(role.Name) {
		s.log.Warn().Int64("role_id", role.ID).Str("name", role.Name).Msg("refused protected role deletion")
		return domain.NewPolicyError("protected_role", fmt.Sprintf("Cannot delete the %s role.", role.Name))
	}

	err = s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if err := s.users.DetachRole(ctx, role.ID); err != nil {
			return err
		}
		return s.roles.Delete(ctx, role.ID)
	})
	if err != nil {
		return fmt.Errorf("delete role: %w", err)
	}
	s.log.Info().Int64("role_id", role.ID).Str("name", role.Name).Msg("role deleted")
	return nil
}

func (s *AdminRoleService) Permissions(ctx context.Context) ([]*domain.Permission, error) {
	return s.perms.List(ctx)
}

func (s *AdminRoleService) checkNameFree(ctx context.Context, name string, exceptID int64, verr *domain.ValidationError) error {
	existing, err := s.roles.FindByName(ctx, name)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil
		}
		return fmt.Errorf("check role name: %w", err)
	}
	if existing.ID != exceptID {
		verr.Add("name", msgNameTaken)
	}
	return nil
}

func (s *AdminRoleService) describeOne(ctx context.Context, role *domain.Role) (*domain.RoleWithPermissions, error) {
	list, err := s.describe(ctx, []*domain.Role{role})
	if err != nil {
		return nil, err
	}
	return list[0], nil
}

// describe attaches permission names to roles, preserving each role's
// permission order.
func (s *AdminRoleService) describe(ctx context.Context, roles []*domain.Role) ([]*domain.RoleWithPermissions, error) {
	ids := uniqueIDs(func(yield func(int64)) {
		for _, r := range roles {
			for _, id := range r.PermissionIDs {
				yield(id)
			}
		}
	})
	names := make(map[int64]string, len(ids))
	if len(ids) > 0 {
		perms, err := s.perms.FindByIDs(ctx, ids)
		if err != nil {
			return nil, fmt.Errorf("load permissions: %w", err)
		}
		for _, p := range perms {
			names[p.ID] = p.Name
		}
	}

	out := make([]*domain.RoleWithPermissions, 0, len(roles))
	for _, r := range roles {
		rp := &domain.RoleWithPermissions{Role: r, Permissions: []string{}}
		for _, id := range r.PermissionIDs {
			if name, ok := names[id]; ok {
				rp.Permissions = append(rp.Permissions, name)
			}
		}
		out = append(out, rp)
	}
	return out, nil
}
