package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/apistarter/auth-api/internal/core/ports"
)

// AdminRoleHandler serves role management for administrators.
type AdminRoleHandler struct {
	roles   ports.AdminRoleService
	present *Presenter
}

func NewAdminRoleHandler(roles ports.AdminRoleService, present *Presenter) *AdminRoleHandler {
	return &AdminRoleHandler{roles: roles, present: present}
}

// List returns all roles, or one page when per_page is given.
//
// @Summary      List roles
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        page      query     int  false  "Page number"
// @Param        per_page  query     int  false  "Page size; omit for all roles"
// @Success      200       {object}  Response
// @Router       /v1/admin/roles [get]
func (h *AdminRoleHandler) List(c echo.Context) error {
	var req listRolesRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	page, err := h.roles.List(c.Request().Context(), req.Page, req.PerPage)
	if err != nil {
		return err
	}
	out := listing[RoleDTO]{Data: h.present.Roles(page.Items)}
	if page.Meta != nil {
		out.Meta = page.Meta
	}
	return ok(c, out, "")
}

// Store creates a role in the web guard.
//
// @Summary      Create role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRoleRequest  true  "New role"
// @Success      201   {object}  Response{data=RoleDTO}
// @Failure      422   {object}  Response
// @Router       /v1/admin/roles [post]
func (h *AdminRoleHandler) Store(c echo.Context) error {
	var req createRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := h.roles.Create(c.Request().Context(), ports.CreateRoleInput{
		Name:        req.Name,
		Permissions: req.Permissions,
	})
	if err != nil {
		return err
	}
	return created(c, h.present.Role(role), "Role created successfully.")
}

// Show returns one role with its permissions.
//
// @Summary      Show role
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Role id"
// @Success      200  {object}  Response{data=RoleDTO}
// @Failure      404  {object}  Response
// @Router       /v1/admin/roles/{id} [get]
func (h *AdminRoleHandler) Show(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	role, err := h.roles.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, h.present.Role(role), "")
}

// Update renames a role or replaces its permissions.
//
// @Summary      Update role
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      int                true  "Role id"
// @Param        body  body      updateRoleRequest  true  "Fields to change"
// @Success      200   {object}  Response{data=RoleDTO}
// @Failure      403   {object}  Response
// @Failure      422   {object}  Response
// @Router       /v1/admin/roles/{id} [put]
func (h *AdminRoleHandler) Update(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var req updateRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	role, err := h.roles.Update(c.Request().Context(), id, ports.UpdateRoleInput{
		Name:        req.Name,
		Permissions: req.Permissions,
	})
	if err != nil {
		return err
	}
	return ok(c, h.present.Role(role), "Role updated successfully.")
}

// Destroy deletes a role that is not protected.
//
// @Summary      Delete role
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      int  true  "Role id"
// @Success      200  {object}  Response
// @Failure      403  {object}  Response
// @Failure      404  {object}  Response
// @Router       /v1/admin/roles/{id} [delete]
func (h *AdminRoleHandler) Destroy(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err := h.roles.Delete(c.Request().Context(), id); err != nil {
		return err
	}
	return ok(c, nil, "Role deleted successfully.")
}

// Permissions lists every permission that roles can grant.
//
// @Summary      List permissions
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  Response{data=[]PermissionDTO}
// @Router       /v1/admin/permissions [get]
func (h *AdminRoleHandler) Permissions(c echo.Context) error {
	perms, err := h.roles.Permissions(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, h.present.Permissions(perms), "")
}
