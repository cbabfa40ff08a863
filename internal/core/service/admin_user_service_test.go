package service

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

func newAdminUserSvc(f *fixture) *AdminUserService {
	return NewAdminUserService(f.users, f.roles, f.tokenSvc, f.access, f.store, zerolog.Nop())
}

func TestAdminUserService_Create(t *testing.T) {
	f := newFixture(t)
	svc := newAdminUserSvc(f)

	got, err := svc.Create(context.Background(), ports.CreateUserInput{
		Name: "Bob", Email: "bob@x.com", Password: "Secret123!", Roles: []string{"user", "admin"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !got.HasRole("admin") || !got.HasRole("user") {
		t.Fatalf("unexpected roles: %v", got.Roles)
	}
}

func TestAdminUserService_Create_UnknownRole(t *testing.T) {
	f := newFixture(t)
	svc := newAdminUserSvc(f)

	_, err := svc.Create(context.Background(), ports.CreateUserInput{
		Name: "Bob", Email: "bob@x.com", Password: "Secret123!", Roles: []string{"user", "ghost"},
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields["roles.1"]) == 0 {
		t.Fatalf("expected roles.1 error, got %v", verr.Fields)
	}
	if _, err := f.users.FindByEmail(context.Background(), "bob@x.com"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("user must not be created, got %v", err)
	}
	if _, err := f.roles.FindByName(context.Background(), "ghost"); !errors.Is(err, domain.ErrRoleNotFound) {
		t.Fatalf("missing role must not be created, got %v", err)
	}
}

func TestAdminUserService_List(t *testing.T) {
	f := newFixture(t)
	svc := newAdminUserSvc(f)
	f.createUser(t, "alice@x.com", "Secret123!", f.adminRole.ID)
	f.createUser(t, "bob@x.com", "Secret123!", f.userRole.ID)
	f.createUser(t, "carol@y.com", "Secret123!", f.userRole.ID)

	page, err := svc.List(context.Background(), ports.ListUsersInput{Role: "user", PerPage: 1, Page: 2})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if page.Meta.Total != 2 || page.Meta.LastPage != 2 || len(page.Items) != 1 {
		t.Fatalf("unexpected page: %+v", page.Meta)
	}
	if page.Items[0].User.Email != "carol@y.com" {
		t.Fatalf("unexpected item: %s", page.Items[0].User.Email)
	}

	page, _ = svc.List(context.Background(), ports.ListUsersInput{Search: "X.COM"})
	if page.Meta.Total != 2 || page.Meta.PerPage != 10 {
		t.Fatalf("unexpected search page: %+v", page.Meta)
	}

	page, _ = svc.List(context.Background(), ports.ListUsersInput{Role: "ghost"})
	if page.Meta.Total != 0 || len(page.Items) != 0 {
		t.Fatalf("expected empty page for unknown role, got %+v", page.Meta)
	}
}

func TestAdminUserService_Update_PartialFields(t *testing.T) {
	f := newFixture(t)
	svc := newAdminUserSvc(f)
	bob := f.createUser(t, "bob@x.com", "Secret123!", f.userRole.ID)

	got, err := svc.Update(context.Background(), bob.ID, ports.UpdateUserInput{Name: strPtr("Robert")})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.User.Name != "Robert" || got.User.Email != "bob@x.com" || !got.HasRole("user") {
		t.Fatalf("unexpected user after update: %+v roles=%v", got.User, got.Roles)
	}
}

func TestAdminUserService_Update_LastAdminGuard(t *testing.T) {
	f := newFixture(t)
	svc := newAdminUserSvc(f)
	admin := f.createUser(t, "admin@x.com", "Secret123!", f.adminRole.ID)

	roles := []string{"user"}
	_, err := svc.Update(context.Background(), admin.ID, ports.UpdateUserInput{
		Name:  strPtr("Changed"),
		Email: strPtr("changed@x.com"),
		Roles: &roles,
	})
	if !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}

	stored, _ := f.users.FindByID(context.Background(), admin.ID)
	if stored.Name != admin.Name || stored.Email != "admin@x.com" || !stored.HasRoleID(f.adminRole.ID) {
		t.Fatalf("no field may change on rejection, got %+v", stored)
	}
}

func TestAdminUserService_Update_DemoteWithAnotherAdmin(t *testing.T) {
	f := newFixture(t)
	svc := newAdminUserSvc(f)
	first := f.createUser(t, "a1@x.com", "Secret123!", f.adminRole.ID)
	f.createUser(t, "a2@x.com", "Secret123!", f.adminRole.ID)

	roles := []string{"user"}
	got, err := svc.Update(context.Background(), first.ID, ports.UpdateUserInput{Roles: &roles})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.HasRole("admin") {
		t.Fatalf("expected admin removed, got %v", got.Roles)
	}

	// The remaining admin is now the last one.
	second, _ := f.users.FindByEmail(context.Background(), "a2@x.com")
	if _, err := svc.Update(context.Background(), second.ID, ports.UpdateUserInput{Roles: &roles}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("expected last admin to be protected, got %v", err)
	}
}

func TestAdminUserService_Update_ValidationBeforeWrite(t *testing.T) {
	f := newFixture(t)
	svc := newAdminUserSvc(f)
	f.createUser(t, "taken@x.com", "Secret123!")
	bob := f.createUser(t, "bob@x.com", "Secret123!", f.userRole.ID)

	roles := []string{"ghost"}
	_, err := svc.Update(context.Background(), bob.ID, ports.UpdateUserInput{
		Name:  strPtr("Robert"),
		Email: strPtr("taken@x.com"),
		Roles: &roles,
	})
	var verr *domain.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if len(verr.Fields["email"]) == 0 || len(verr.Fields["roles.0"]) == 0 {
		t.Fatalf("expected email and roles.0 errors, got %v", verr.Fields)
	}
	stored, _ := f.users.FindByID(context.Background(), bob.ID)
	if stored.Name == "Robert" {
		t.Fatalf("name must not change on rejection")
	}
}

func TestAdminUserService_Update_NotFound(t *testing.T) {
	f := newFixture(t)
	svc := newAdminUserSvc(f)

	if _, err := svc.Update(context.Background(), 404, ports.UpdateUserInput{Name: strPtr("x")}); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAdminUserService_Delete(t *testing.T) {
	f := newFixture(t)
	svc := newAdminUserSvc(f)
	admin := f.createUser(t, "admin@x.com", "Secret123!", f.adminRole.ID)
	bob := f.createUser(t, "bob@x.com", "Secret123!")
	issued, _ := f.tokenSvc.CreateUserToken(context.Background(), bob, "web")

	if err := svc.Delete(context.Background(), admin, bob.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := f.users.FindByID(context.Background(), bob.ID); !errors.Is(err, domain.ErrUserNotFound) {
		t.Fatalf("expected user deleted, got %v", err)
	}
	if _, err := f.tokenSvc.Authenticate(context.Background(), issued.PlainText); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("deleted user's token must not authenticate, got %v", err)
	}
	if err := svc.Delete(context.Background(), admin, bob.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestAdminUserService_Delete_Self(t *testing.T) {
	f := newFixture(t)
	svc := newAdminUserSvc(f)
	admin := f.createUser(t, "admin@x.com", "Secret123!", f.adminRole.ID)
	f.createUser(t, "admin2@x.com", "Secret123!", f.adminRole.ID)

	err := svc.Delete(context.Background(), admin, admin.ID)
	var perr *domain.PolicyError
	if !errors.As(err, &perr) || perr.Rule != "self_delete" {
		t.Fatalf("expected self_delete policy error, got %v", err)
	}
	if _, err := f.users.FindByID(context.Background(), admin.ID); err != nil {
		t.Fatalf("user must survive: %v", err)
	}
}
