package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

// SeedConfig lists the reference data ensured at startup.
type SeedConfig struct {
	Permissions   []string
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Seeder creates the protected roles, the configured permissions and an
// optional bootstrap administrator. Running it again changes nothing that
// already exists, except that admin gains newly configured permissions.
type Seeder struct {
	roles ports.RoleRepository
	perms ports.PermissionRepository
	users ports.UserRepository
	log   zerolog.Logger
}

func NewSeeder(roles ports.RoleRepository, perms ports.PermissionRepository, users ports.UserRepository, log zerolog.Logger) *Seeder {
	return &Seeder{roles: roles, perms: perms, users: users, log: log}
}

func (s *Seeder) Run(ctx context.Context, cfg SeedConfig) error {
	permIDs, err := s.ensurePermissions(ctx, cfg.Permissions)
	if err != nil {
		return err
	}
	admin, err := s.ensureRole(ctx, domain.RoleAdmin, permIDs)
	if err != nil {
		return err
	}
	if _, err := s.ensureRole(ctx, domain.RoleUser, nil); err != nil {
		return err
	}
	if cfg.AdminEmail == "" || cfg.AdminPassword == "" {
		return nil
	}
	return s.ensureAdmin(ctx, cfg, admin.ID)
}

func (s *Seeder) ensurePermissions(ctx context.Context, names []string) ([]int64, error) {
	if len(names) == 0 {
		return nil, nil
	}
	existing, err := s.perms.FindByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("seed permissions: %w", err)
	}
	byName := make(map[string]int64, len(existing))
	for _, p := range existing {
		byName[p.Name] = p.ID
	}

	ids := make([]int64, 0, len(names))
	for _, name := range names {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
			continue
		}
		now := time.Now().UTC()
		p, err := s.perms.Create(ctx, &domain.Permission{Name: name, GuardName: domain.DefaultGuard, CreatedAt: now, UpdatedAt: now})
		if err != nil {
			return nil, fmt.Errorf("seed permission %q: %w", name, err)
		}
		byName[name] = p.ID
		ids = append(ids, p.ID)
		s.log.Info().Str("permission", name).Msg("permission seeded")
	}
	return ids, nil
}

func (s *Seeder) ensureRole(ctx context.Context, name string, permIDs []int64) (*domain.Role, error) {
	role, err := s.roles.FindByName(ctx, name)
	switch {
	case err == nil:
		missing := false
		for _, id := range permIDs {
			if !containsID(role.PermissionIDs, id) {
				role.PermissionIDs = append(role.PermissionIDs, id)
				missing = true
			}
		}
		if missing {
			role.UpdatedAt = time.Now().UTC()
			if err := s.roles.Update(ctx, role); err != nil {
				return nil, fmt.Errorf("seed role %q: %w", name, err)
			}
		}
		return role, nil
	case !errors.Is(err, domain.ErrRoleNotFound):
		return nil, fmt.Errorf("seed role %q: %w", name, err)
	}

	now := time.Now().UTC()
	role, err = s.roles.Create(ctx, &domain.Role{
		Name:          name,
		GuardName:     domain.DefaultGuard,
		PermissionIDs: permIDs,
		CreatedAt:     now,
		UpdatedAt:     now,
	})
	if err != nil {
		return nil, fmt.Errorf("seed role %q: %w", name, err)
	}
	s.log.Info().Str("role", name).Msg("role seeded")
	return role, nil
}

func (s *Seeder) ensureAdmin(ctx context.Context, cfg SeedConfig, adminRoleID int64) error {
	email := normalizeEmail(cfg.AdminEmail)
	_, err := s.users.FindByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("seed admin: %w", err)
	}

	hash, err := hashPassword(cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	name := cfg.AdminName
	if name == "" {
		name = "Administrator"
	}
	now := time.Now().UTC()
	user, err := s.users.Create(ctx, &domain.User{
		Name:            name,
		Email:           email,
		PasswordHash:    hash,
		RoleIDs:         []int64{adminRoleID},
		EmailVerifiedAt: &now,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	s.log.Info().Int64("user_id", user.ID).Msg("admin user seeded")
	return nil
}
