package handler

import (
	"github.com/gin-gonic/gin"
	identityapp "github.com/pharmapos/backend/internal/application/identity"
)

// RoleHandler handles role and permission endpoints
type RoleHandler struct {
	BaseHandler
	roleService *identityapp.RoleService
}

// NewRoleHandler creates a new RoleHandler
func NewRoleHandler(roleService *identityapp.RoleService) *RoleHandler {
	return &RoleHandler{roleService: roleService}
}

// Create godoc
// @ID           createRole
// @Summary      Create role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        request body identityapp.CreateRoleRequest true "Role"
// @Success      201 {object} APIResponse[identityapp.RoleResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/roles [post]
func (h *RoleHandler) Create(c *gin.Context) {
	var req identityapp.CreateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	role, err := h.roleService.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, role)
}

// GetByID godoc
// @ID           getRole
// @Summary      Get role
// @Tags         roles
// @Produce      json
// @Param        id path string true "Role ID" format(uuid)
// @Success      200 {object} APIResponse[identityapp.RoleResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/roles/{id} [get]
func (h *RoleHandler) GetByID(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	role, err := h.roleService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, role)
}

// List godoc
// @ID           listRoles
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Success      200 {object} APIResponse[[]identityapp.RoleResponse]
// @Security     BearerAuth
// @Router       /identity/roles [get]
func (h *RoleHandler) List(c *gin.Context) {
	roles, err := h.roleService.List(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, roles)
}

// Update godoc
// @ID           updateRole
// @Summary      Update role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        id path string true "Role ID" format(uuid)
// @Param        request body identityapp.UpdateRoleRequest true "Changes"
// @Success      200 {object} APIResponse[identityapp.RoleResponse]
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/roles/{id} [put]
func (h *RoleHandler) Update(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req identityapp.UpdateRoleRequest
	if !h.bindJSON(c, &req) {
		return
	}
	role, err := h.roleService.Update(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, role)
}

// SetPermissions godoc
// @ID           setRolePermissions
// @Summary      Replace role permissions
// @Description  Unknown permission codes are rejected. System role permissions cannot be changed.
// @Tags         roles
// @Accept       json
// @Produce      json
// @Param        id path string true "Role ID" format(uuid)
// @Param        request body identityapp.SetPermissionsRequest true "Permission codes"
// @Success      200 {object} APIResponse[identityapp.RoleResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/roles/{id}/permissions [put]
func (h *RoleHandler) SetPermissions(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	var req identityapp.SetPermissionsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	role, err := h.roleService.SetPermissions(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, role)
}

// Delete godoc
// @ID           deleteRole
// @Summary      Delete role
// @Tags         roles
// @Param        id path string true "Role ID" format(uuid)
// @Success      204
// @Failure      409 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /identity/roles/{id} [delete]
func (h *RoleHandler) Delete(c *gin.Context) {
	id, ok := h.pathUUID(c, "id")
	if !ok {
		return
	}
	if err := h.roleService.Delete(c.Request.Context(), id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

// ListPermissions godoc
// @ID           listPermissions
// @Summary      Permission catalog
// @Tags         roles
// @Produce      json
// @Success      200 {object} APIResponse[[]identity.Permission]
// @Security     BearerAuth
// @Router       /identity/permissions [get]
func (h *RoleHandler) ListPermissions(c *gin.Context) {
	h.Success(c, h.roleService.ListPermissions())
}
