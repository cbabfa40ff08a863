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

const (
	defaultPerPage = 10
	maxPerPage     = 100
)

// AdminUserService implements user management and enforces the last-admin
// and self-deletion rules.
type AdminUserService struct {
	users  ports.UserRepository
	roles  ports.RoleRepository
	tokens ports.TokenService
	access ports.AccessResolver
	tx     ports.Transactor
	log    zerolog.Logger
}

func NewAdminUserService(
	users ports.UserRepository,
	roles ports.RoleRepository,
	tokens ports.TokenService,
	access ports.AccessResolver,
	tx ports.Transactor,
	log zerolog.Logger,
) *AdminUserService {
	return &AdminUserService{users: users, roles: roles, tokens: tokens, access: access, tx: tx, log: log}
}

func (s *AdminUserService) List(ctx context.Context, in ports.ListUsersInput) (*ports.UserPage, error) {
	page, perPage := normalizePage(in.Page, in.PerPage)

	filter := ports.UserFilter{Search: in.Search, Page: page, PerPage: perPage}
	if in.Role != "" {
		role, err := s.roles.FindByName(ctx, in.Role)
		if err != nil {
			if errors.Is(err, domain.ErrRoleNotFound) {
				return &ports.UserPage{Items: []*domain.UserAccess{}, Meta: domain.NewPageMeta(page, perPage, 0, 0)}, nil
			}
			return nil, fmt.Errorf("list users: %w", err)
		}
		filter.RoleID = role.ID
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	items, err := s.access.ResolveMany(ctx, users)
	if err != nil {
		return nil, err
	}
	return &ports.UserPage{Items: items, Meta: domain.NewPageMeta(page, perPage, len(items), total)}, nil
}

func (s *AdminUserService) Create(ctx context.Context, in ports.CreateUserInput) (*domain.UserAccess, error) {
	email := normalizeEmail(in.Email)
	verr := &domain.ValidationError{}

	taken, err := emailTaken(ctx, s.users, email, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		verr.Add("email", msgEmailTaken)
	}
	var roleIDs []int64
	if len(in.Roles) > 0 {
		if roleIDs, err = resolveRoleIDs(ctx, s.roles, "roles", in.Roles, verr); err != nil {
			return nil, err
		}
	}
	if err := verr.Err(); err != nil {
		return nil, err
	}

	hash, err := hashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	now := time.Now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Name:         in.Name,
		Email:        email,
		PasswordHash: hash,
		RoleIDs:      roleIDs,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		if errors.Is(err, domain.ErrDuplicate) {
			return nil, domain.NewValidationError("email", msgEmailTaken)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	s.log.Info().Int64("user_id", created.ID).Strs("roles", in.Roles).Msg("user created by admin")
	return s.access.Resolve(ctx, created)
}

func (s *AdminUserService) Get(ctx context.Context, id int64) (*domain.UserAccess, error) {
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.access.Resolve(ctx, user)
}

// Update validates the whole request, checks the last-admin rule and only
// then writes. The check and the write share one transaction.
func (s *AdminUserService) Update(ctx context.Context, id int64, in ports.UpdateUserInput) (*domain.UserAccess, error) {
	var updated *domain.User
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		user, err := s.users.FindByID(ctx, id)
		if err != nil {
			return err
		}

		verr := &domain.ValidationError{}
		var email string
		if in.Email != nil {
			email = normalizeEmail(*in.Email)
			if email != user.Email {
				taken, err := emailTaken(ctx, s.users, email, user.ID)
				if err != nil {
					return err
				}
				if taken {
					verr.Add("email", msgEmailTaken)
				}
			}
		}
		var roleIDs []int64
		if in.Roles != nil {
			if roleIDs, err = resolveRoleIDs(ctx, s.roles, "roles", *in.Roles, verr); err != nil {
				return err
			}
		}
		if err := verr.Err(); err != nil {
			return err
		}

		if in.Roles != nil {
			if err := s.guardLastAdmin(ctx, user, *in.Roles); err != nil {
				return err
			}
		}

		var hash string
		if in.Password != nil {
			if hash, err = hashPassword(*in.Password); err != nil {
				return fmt.Errorf("update user: %w", err)
			}
		}

		if in.Name != nil {
			user.Name = *in.Name
		}
		if in.Email != nil {
			user.Email = email
		}
		if hash != "" {
			user.PasswordHash = hash
		}
		if in.Roles != nil {
			user.RoleIDs = roleIDs
		}
		user.UpdatedAt = time.Now().UTC()

		if err := s.users.Update(ctx, user); err != nil {
			return fmt.Errorf("update user: %w", err)
		}
		updated = user
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info().Int64("user_id", id).Msg("user updated by admin")
	return s.access.Resolve(ctx, updated)
}

// guardLastAdmin rejects a role sync that drops admin from the only user
// holding it. The admin role is locked first so concurrent demotions conflict.
func (s *AdminUserService) guardLastAdmin(ctx context.Context, user *domain.User, roles []string) error {
	if containsString(roles, domain.RoleAdmin) {
		return nil
	}
	admin, err := s.roles.FindByName(ctx, domain.RoleAdmin)
	if err != nil {
		if errors.Is(err, domain.ErrRoleNotFound) {
			return nil
		}
		return fmt.Errorf("last admin check: %w", err)
	}
	if !user.HasRoleID(admin.ID) {
		return nil
	}
	if err := s.roles.Lock(ctx, admin.ID); err != nil {
		return fmt.Errorf("last admin check: %w", err)
	}
	count, err := s.users.CountByRole(ctx, admin.ID)
	if err != nil {
		return fmt.Errorf("last admin check: %w", err)
	}
	if count <= 1 {
		s.log.Warn().Int64("user_id", user.ID).Msg("refused to remove the last admin")
		return domain.NewPolicyError("last_admin", "Cannot remove admin role from the last admin user.")
	}
	return nil
}

// Delete removes the user and every token they own. actor may not delete
// their own account.
func (s *AdminUserService) Delete(ctx context.Context, actor *domain.User, id int64) error {
	if actor != nil && actor.ID == id {
		s.log.Warn().Int64("user_id", id).Msg("refused self deletion")
		return domain.NewPolicyError("self_delete", "You cannot delete your own account.")
	}
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.users.FindByID(ctx, id); err != nil {
			return err
		}
		if _, err := s.tokens.RevokeAllTokens(ctx, id); err != nil {
			return err
		}
		return s.users.Delete(ctx, id)
	})
	if err != nil {
		return err
	}
	s.log.Info().Int64("user_id", id).Msg("user deleted")
	return nil
}

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	if perPage > maxPerPage {
		perPage = maxPerPage
	}
	return page, perPage
}
