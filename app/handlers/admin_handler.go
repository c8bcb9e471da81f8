package handlers

import (
	"fmt"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	businessflow "github.com/sexto-andar/auth-service/business_flow"

	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/app/middleware"
	"github.com/sexto-andar/auth-service/utils"
)

// AdminHandler handles account administration and the shared user info endpoint
type AdminHandler struct {
	adminFlow businessflow.AdminAccountFlow
	validator *validator.Validate
}

// NewAdminHandler creates a new administration handler
func NewAdminHandler(adminFlow businessflow.AdminAccountFlow) *AdminHandler {
	return &AdminHandler{
		adminFlow: adminFlow,
		validator: newValidator(),
	}
}

// ListUsers returns a page of non-admin accounts
// @Summary List user and property owner accounts
// @Tags admin
// @Produce json
// @Param page query int false "Page number, starting at 1"
// @Param size query int false "Page size, at most 100"
// @Success 200 {object} dto.APIResponse{data=dto.AccountListData}
// @Failure 400 {object} dto.APIResponse
// @Failure 403 {object} dto.APIResponse
// @Router /auth/admin/users [get]
func (h *AdminHandler) ListUsers(c fiber.Ctx) error {
	page, err := queryInt(c, "page", 1)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid pagination parameters", dto.ErrorInvalidPagination, nil)
	}
	size, err := queryInt(c, "size", utils.DefaultPageSize)
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid pagination parameters", dto.ErrorInvalidPagination, nil)
	}

	ctx, cancel := requestContext(c, "/auth/admin/users")
	defer cancel()

	listing, err := h.adminFlow.ListUsers(ctx, page, size)
	if err != nil {
		return respondBusinessError(c, err)
	}

	return successResponse(c, fiber.StatusOK, "Accounts retrieved successfully", listing)
}

// ExportUsers streams every non-admin account as an xlsx workbook
// @Summary Export user and property owner accounts
// @Tags admin
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Failure 403 {object} dto.APIResponse
// @Router /auth/admin/users/export [get]
func (h *AdminHandler) ExportUsers(c fiber.Ctx) error {
	ctx, cancel := requestContext(c, "/auth/admin/users/export")
	defer cancel()

	filename, content, err := h.adminFlow.ExportUsers(ctx)
	if err != nil {
		return respondBusinessError(c, err)
	}

	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	return c.Status(fiber.StatusOK).Send(content)
}

// UserInfo returns another account's profile subject to role rules
// @Summary Get an account by ID
// @Description Admins may read any account. Property owners may read their
// @Description own account and user accounts they have a property relation
// @Description with. Users may only use /auth/me.
// @Tags accounts
// @Produce json
// @Param user_id path string true "Account ID"
// @Success 200 {object} dto.APIResponse{data=dto.AccountInfo}
// @Failure 403 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /auth/admin/users/{user_id} [get]
func (h *AdminHandler) UserInfo(c fiber.Ctx) error {
	requester, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	targetID, err := pathUUID(c, "user_id")
	if err != nil {
		return errorResponse(c, fiber.StatusUnprocessableEntity, "Invalid account ID", dto.ErrorValidationFailed, nil)
	}

	ctx, cancel := requestContext(c, "/auth/admin/users/:user_id")
	defer cancel()

	info, err := h.adminFlow.UserInfo(ctx, requester, targetID)
	if err != nil {
		return respondBusinessError(c, err)
	}

	return successResponse(c, fiber.StatusOK, "Account retrieved successfully", info)
}

// UpdateUser updates a non-admin account's profile fields
// @Summary Update a user account
// @Tags admin
// @Accept json
// @Produce json
// @Param user_id path string true "Account ID"
// @Param request body dto.AdminUpdateUserRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.AccountInfo}
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Router /auth/admin/users/{user_id} [put]
func (h *AdminHandler) UpdateUser(c fiber.Ctx) error {
	actor, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	targetID, err := pathUUID(c, "user_id")
	if err != nil {
		return errorResponse(c, fiber.StatusUnprocessableEntity, "Invalid account ID", dto.ErrorValidationFailed, nil)
	}

	var req dto.AdminUpdateUserRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request format", dto.ErrorValidationFailed, nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	ctx, cancel := requestContext(c, "/auth/admin/users/:user_id")
	defer cancel()

	info, err := h.adminFlow.UpdateUser(ctx, actor, targetID, &req, clientMetadata(c))
	if err != nil {
		return respondBusinessError(c, err)
	}

	return successResponse(c, fiber.StatusOK, "Account updated successfully", info)
}

// SetUserPassword overrides a non-admin account's password
// @Summary Set a user account's password
// @Tags admin
// @Accept json
// @Param user_id path string true "Account ID"
// @Param request body dto.SetPasswordRequest true "New password"
// @Success 204 "No Content"
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Router /auth/admin/users/{user_id}/password [put]
func (h *AdminHandler) SetUserPassword(c fiber.Ctx) error {
	actor, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	targetID, err := pathUUID(c, "user_id")
	if err != nil {
		return errorResponse(c, fiber.StatusUnprocessableEntity, "Invalid account ID", dto.ErrorValidationFailed, nil)
	}

	var req dto.SetPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request format", dto.ErrorValidationFailed, nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	ctx, cancel := requestContext(c, "/auth/admin/users/:user_id/password")
	defer cancel()

	if err := h.adminFlow.SetUserPassword(ctx, actor, targetID, req.NewPassword, clientMetadata(c)); err != nil {
		return respondBusinessError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// DeleteUser removes a non-admin account and notifies the properties service
// @Summary Delete a user account
// @Tags admin
// @Param user_id path string true "Account ID"
// @Success 204 "No Content"
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /auth/admin/users/{user_id} [delete]
func (h *AdminHandler) DeleteUser(c fiber.Ctx) error {
	actor, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	targetID, err := pathUUID(c, "user_id")
	if err != nil {
		return errorResponse(c, fiber.StatusUnprocessableEntity, "Invalid account ID", dto.ErrorValidationFailed, nil)
	}

	ctx, cancel := requestContext(c, "/auth/admin/users/:user_id")
	defer cancel()

	if err := h.adminFlow.DeleteUser(ctx, actor, targetID, clientMetadata(c)); err != nil {
		return respondBusinessError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// CreateAdmin registers a new administrator account
// @Summary Create an admin account
// @Tags admin
// @Accept json
// @Produce json
// @Param request body dto.CreateAdminRequest true "Admin account data"
// @Success 201 {object} dto.APIResponse{data=dto.AccountInfo}
// @Failure 400 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Router /auth/admin/create-admin [post]
func (h *AdminHandler) CreateAdmin(c fiber.Ctx) error {
	actor, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	var req dto.CreateAdminRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request format", dto.ErrorValidationFailed, nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	ctx, cancel := requestContext(c, "/auth/admin/create-admin")
	defer cancel()

	info, err := h.adminFlow.CreateAdmin(ctx, actor, &req, clientMetadata(c))
	if err != nil {
		return respondBusinessError(c, err)
	}

	return successResponse(c, fiber.StatusCreated, "Admin account created successfully", info)
}

// DeleteAdmin removes an administrator account
// @Summary Delete an admin account
// @Description Refuses self-deletion and removal of the last remaining admin
// @Tags admin
// @Param admin_id path string true "Account ID"
// @Success 204 "No Content"
// @Failure 400 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /auth/admin/delete-admin/{admin_id} [post]
func (h *AdminHandler) DeleteAdmin(c fiber.Ctx) error {
	actor, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	targetID, err := pathUUID(c, "admin_id")
	if err != nil {
		return errorResponse(c, fiber.StatusUnprocessableEntity, "Invalid account ID", dto.ErrorValidationFailed, nil)
	}

	ctx, cancel := requestContext(c, "/auth/admin/delete-admin/:admin_id")
	defer cancel()

	if err := h.adminFlow.DeleteAdmin(ctx, actor, targetID, clientMetadata(c)); err != nil {
		return respondBusinessError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func pathUUID(c fiber.Ctx, name string) (uuid.UUID, error) {
	return uuid.Parse(c.Params(name))
}

func queryInt(c fiber.Ctx, name string, fallback int) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return fallback, nil
	}
	return strconv.Atoi(raw)
}
