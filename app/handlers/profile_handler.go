package handlers

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	businessflow "github.com/sexto-andar/auth-service/business_flow"

	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/app/middleware"
)

// ProfileHandler handles self-service profile and picture endpoints
type ProfileHandler struct {
	profileFlow businessflow.ProfileFlow
	validator   *validator.Validate
}

// NewProfileHandler creates a new profile handler
func NewProfileHandler(profileFlow businessflow.ProfileFlow) *ProfileHandler {
	return &ProfileHandler{
		profileFlow: profileFlow,
		validator:   newValidator(),
	}
}

// UpdateProfile handles partial profile updates for the authenticated account
// @Summary Update the current account's profile
// @Description Updates full name, email, phone number or password. Changing
// @Description email or password requires the current password.
// @Tags profile
// @Accept json
// @Produce json
// @Param request body dto.UpdateProfileRequest true "Fields to update"
// @Success 200 {object} dto.APIResponse{data=dto.AccountInfo}
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Router /auth/profile [put]
func (h *ProfileHandler) UpdateProfile(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	var req dto.UpdateProfileRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request format", dto.ErrorValidationFailed, nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	ctx, cancel := requestContext(c, "/auth/profile")
	defer cancel()

	info, err := h.profileFlow.UpdateProfile(ctx, accountID, &req, clientMetadata(c))
	if err != nil {
		return respondBusinessError(c, err)
	}

	return successResponse(c, fiber.StatusOK, "Profile updated successfully", info)
}

// DeleteProfile deletes the authenticated account
// @Summary Delete the current account
// @Description Removes the account permanently. Admin accounts cannot delete
// @Description themselves through this endpoint.
// @Tags profile
// @Success 204 "No Content"
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Router /auth/profile [delete]
func (h *ProfileHandler) DeleteProfile(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	ctx, cancel := requestContext(c, "/auth/profile")
	defer cancel()

	if err := h.profileFlow.DeleteAccount(ctx, accountID, clientMetadata(c)); err != nil {
		return respondBusinessError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// UploadPicture stores the uploaded file as the account's profile picture
// @Summary Upload a profile picture
// @Description Accepts JPEG, PNG or GIF up to 5 MiB as multipart field "file"
// @Tags profile
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Image file"
// @Success 200 {object} dto.APIResponse
// @Failure 400 {object} dto.APIResponse
// @Failure 401 {object} dto.APIResponse
// @Router /auth/profile/picture [post]
func (h *ProfileHandler) UploadPicture(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Missing file upload", dto.ErrorValidationFailed, nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Unable to read file upload", dto.ErrorValidationFailed, nil)
	}
	defer file.Close()

	ctx, cancel := requestContext(c, "/auth/profile/picture")
	defer cancel()

	if err := h.profileFlow.UploadPicture(ctx, accountID, file, clientMetadata(c)); err != nil {
		return respondBusinessError(c, err)
	}

	return successResponse(c, fiber.StatusOK, "Profile picture uploaded successfully", nil)
}

// GetPicture streams the stored profile picture
// @Summary Download the current account's profile picture
// @Tags profile
// @Produce image/jpeg
// @Success 200 {file} binary
// @Failure 401 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /auth/profile/picture [get]
func (h *ProfileHandler) GetPicture(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	ctx, cancel := requestContext(c, "/auth/profile/picture")
	defer cancel()

	content, contentType, err := h.profileFlow.GetPicture(ctx, accountID)
	if err != nil {
		return respondBusinessError(c, err)
	}

	c.Set(fiber.HeaderContentType, contentType)
	return c.Status(fiber.StatusOK).Send(content)
}

// PicturePreview streams a downscaled thumbnail of the profile picture
// @Summary Download a thumbnail of the profile picture
// @Tags profile
// @Produce image/jpeg
// @Success 200 {file} binary
// @Failure 401 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /auth/profile/picture/preview [get]
func (h *ProfileHandler) PicturePreview(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	ctx, cancel := requestContext(c, "/auth/profile/picture/preview")
	defer cancel()

	content, contentType, err := h.profileFlow.PicturePreview(ctx, accountID)
	if err != nil {
		return respondBusinessError(c, err)
	}

	c.Set(fiber.HeaderContentType, contentType)
	return c.Status(fiber.StatusOK).Send(content)
}

// DeletePicture removes the stored profile picture
// @Summary Delete the current account's profile picture
// @Tags profile
// @Success 204 "No Content"
// @Failure 401 {object} dto.APIResponse
// @Failure 404 {object} dto.APIResponse
// @Router /auth/profile/picture [delete]
func (h *ProfileHandler) DeletePicture(c fiber.Ctx) error {
	accountID, ok := middleware.GetAccountIDFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	ctx, cancel := requestContext(c, "/auth/profile/picture")
	defer cancel()

	if err := h.profileFlow.DeletePicture(ctx, accountID, clientMetadata(c)); err != nil {
		return respondBusinessError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}
