package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

const (
	msgEmailTaken = "The email has already been taken."
	msgNameTaken  = "The name has already been taken."
)

// emailTaken reports whether email belongs to a user other than exceptID.
func emailTaken(ctx context.Context, users ports.UserRepository, email string, exceptID int64) (bool, error) {
	existing, err := users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("check email: %w", err)
	}
	return existing.ID != exceptID, nil
}

func assignDefaultRole(ctx context.Context, roles ports.RoleRepository, user *domain.User) error {
	role, err := roles.FindByName(ctx, domain.RoleUser)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil
		}
		return fmt.Errorf("default role: %w", err)
	}
	user.RoleIDs = []int64{role.ID}
	return nil
}

// resolveRoleIDs maps role names to ids. Unknown names are reported on verr
// as "<field>.<index>".
func resolveRoleIDs(ctx context.Context, roles ports.RoleRepository, field string, names []string, verr *domain.ValidationError) ([]int64, error) {
	found, err := roles.FindByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}
	byName := make(map[string]int64, len(found))
	for _, r := range found {
		byName[r.Name] = r.ID
	}
	ids := make([]int64, 0, len(names))
	for i, name := range names {
		id, ok := byName[name]
		if !ok {
			key := fmt.Sprintf("%s.%d", field, i)
			verr.Add(key, fmt.Sprintf("The selected %s is invalid.", key))
			continue
		}
		if !containsID(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// resolvePermissionIDs maps permission names to ids in the same way.
func resolvePermissionIDs(ctx context.Context, perms ports.PermissionRepository, field string, names []string, verr *domain.ValidationError) ([]int64, error) {
	found, err := perms.FindByNames(ctx, names)
	if err != nil {
		return nil, fmt.Errorf("resolve permissions: %w", err)
	}
	byName := make(map[string]int64, len(found))
	for _, p := range found {
		byName[p.Name] = p.ID
	}
	ids := make([]int64, 0, len(names))
	for i, name := range names {
		id, ok := byName[name]
		if !ok {
			key := fmt.Sprintf("%s.%d", field, i)
			verr.Add(key, fmt.Sprintf("The selected %s is invalid.", key))
			continue
		}
		if !containsID(ids, id) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func containsID(ids []int64, id int64) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
