package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/core/domain"
	"github.com/apistarter/auth-api/internal/core/ports"
)

// AdminUserHandler serves user management for administrators.
type AdminUserHandler struct {
	users   ports.AdminUserService
	present *Presenter
}

func NewAdminUserHandler(users ports.AdminUserService, present *Presenter) *AdminUserHandler {
	return &AdminUserHandler{users: users, present: present}
}

// List pages through users.
//
// @Summary      List users
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        search    query     string  false  "Name or email substring"
// @Param        role      query     string  false  "Role name"
// @Param        page      query     int     false  "Page number"
// @Param        per_page  query     int     false  "Page size (default 10)"
// @Success      200       {object}  Response
// @Failure      403       {object}  Response
// @Router       /v1/admin/users [get]
func (h *AdminUserHandler) List(c echo.Context) error {
	var req listUsersRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	page, err := h.users.List(c.Request().Context(), ports.ListUsersInput{
		Search:  req.Search,
		Role:    req.Role,
		Page:    req.Page,
		PerPage: req.PerPage,
	})
	if err != nil {
		return err
	}
	return ok(c, listing[UserDTO]{Data: h.present.Users(page.Items), Meta: page.Meta}, "")
}

// Store creates a user.
//
// @Summary      Create user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createUserRequest  true  "New user"
// @Success      201   {object}  Response{data=UserProfileDTO}
// @Failure      422   {object}  Response
// @Router       /v1/admin/users [post]
func (h *AdminUserHandler) Store(c echo.Context) error {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	access, err := h.users.Create(c.Request().Context(), ports.CreateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		return err
	}
	return created(c, h.present.Profile(access), "User created successfully.")
}

// Show returns one user.
//
// @Summary      Show user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  Response{data=UserProfileDTO}
// @Failure      404  {object}  Response
// @Router       /v1/admin/users/{id} [get]
func (h *AdminUserHandler) Show(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	access, err := h.users.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, h.present.Profile(access), "")
}

// Update changes the fields present in the body. A roles list replaces the
// user's roles.
//
// @Summary      Update user
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "User id"
// @Param        body  body      updateUserRequest  true  "Fields to change"
// @Success      200   {object}  Response{data=UserProfileDTO}
// @Failure      403   {object}  Response
// @Failure      422   {object}  Response
// @Router       /v1/admin/users/{id} [put]
func (h *AdminUserHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	verr := &domain.ValidationError{}
	confirmed(verr, "password", req.Password, req.PasswordConfirmation)
	if err := verr.Err(); err != nil {
		return err
	}

	access, err := h.users.Update(c.Request().Context(), id, ports.UpdateUserInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Roles:    req.Roles,
	})
	if err != nil {
		return err
	}
	return ok(c, h.present.Profile(access), "User updated successfully.")
}

// Destroy deletes a user and revokes its tokens.
//
// @Summary      Delete user
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "User id"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Router       /v1/admin/users/{id} [delete]
func (h *AdminUserHandler) Destroy(c echo.Context) error {
	p, err := currentPrincipal(c)
	if err != nil {
		return err
	}
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.Request().Context(), p.User, id); err != nil {
		return err
	}
	return ok(c, nil, "User deleted successfully.")
}

// pathID reads the :id parameter without touching the request body. A
// malformed id cannot name a record and is reported as not found.
func pathID(c echo.Context) (int64, error) {
	var id int64
	if err := echo.PathParamsBinder(c).MustInt64("id", &id).BindError(); err != nil || id <= 0 {
		return 0, domain.ErrNotFound
	}
	return id, nil
}
