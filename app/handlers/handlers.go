// Package handlers contains HTTP request handlers and presentation layer logic for the API endpoints
package handlers

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	businessflow "github.com/sexto-andar/auth-service/business_flow"

	"github.com/sexto-andar/auth-service/app/dto"
)

const requestTimeout = 30 * time.Second

var (
	usernameFormatRegex = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	phoneDigitRegex     = regexp.MustCompile(`\d`)
)

// newValidator builds a validator with the custom rules shared by the
// authentication endpoints.
func newValidator() *validator.Validate {
	v := validator.New()

	_ = v.RegisterValidation("username_format", func(fl validator.FieldLevel) bool {
		return usernameFormatRegex.MatchString(fl.Field().String())
	})

	_ = v.RegisterValidation("phone_digits", func(fl validator.FieldLevel) bool {
		digits := len(phoneDigitRegex.FindAllString(fl.Field().String(), -1))
		return digits >= 10 && digits <= 15
	})

	return v
}

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "len":
		return err.Field() + " must be exactly " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "username_format":
		return "Username may only contain letters, digits and underscores"
	case "phone_digits":
		return "Phone number must contain between 10 and 15 digits"
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// validationDetails flattens validator errors into per-field messages
func validationDetails(err error) map[string]string {
	details := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			details[fieldError.Field()] = getValidationErrorMessage(fieldError)
		}
	}
	return details
}

// errorResponse sends a standardized error response
func errorResponse(c fiber.Ctx, statusCode int, message string, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// successResponse sends a standardized success response
func successResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validationErrorResponse sends a 422 with per-field messages
func validationErrorResponse(c fiber.Ctx, err error) error {
	return errorResponse(c, fiber.StatusUnprocessableEntity, "Validation failed", dto.ErrorValidationFailed, validationDetails(err))
}

// requestContext builds a timeout-bound context enriched with the request
// scoped values the flows use for audit logging. The caller must invoke the
// returned cancel function.
func requestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)

	ctx = context.WithValue(ctx, "request_id", requestID(c))
	ctx = context.WithValue(ctx, "user_agent", c.Get("User-Agent"))
	ctx = context.WithValue(ctx, "ip_address", c.IP())
	ctx = context.WithValue(ctx, "endpoint", endpoint)

	return ctx, cancel
}

// requestID resolves the request ID for the current request. Client-supplied
// X-Request-ID headers win, otherwise the ID generated by the requestid
// middleware is used.
func requestID(c fiber.Ctx) string {
	if rid := c.Get(businessflow.RequestIDKey); rid != "" {
		return rid
	}
	return requestid.FromContext(c)
}

// clientMetadata captures the caller's network identity for audit trails
func clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	if rid := requestID(c); rid != "" {
		metadata.SetRequestID(rid)
	}
	return metadata
}

// respondBusinessError maps flow errors onto HTTP statuses. Unrecognized
// errors become opaque 500s so internals never leak to clients.
func respondBusinessError(c fiber.Ctx, err error) error {
	var businessErr *businessflow.BusinessError
	message := "Internal server error"
	code := dto.ErrorInternalServer
	if e, ok := err.(*businessflow.BusinessError); ok {
		businessErr = e
		message = e.Message
		code = e.Code
	}

	status := fiber.StatusInternalServerError
	switch {
	case businessflow.IsInvalidCredentials(err),
		businessflow.IsCurrentPasswordIncorrect(err):
		status = fiber.StatusUnauthorized
	case businessflow.IsAccessDenied(err):
		status = fiber.StatusForbidden
	case businessflow.IsAccountNotFound(err),
		businessflow.IsPictureNotFound(err):
		status = fiber.StatusNotFound
	case businessflow.IsUsernameAlreadyTaken(err),
		businessflow.IsEmailAlreadyTaken(err),
		businessflow.IsNoFieldsToUpdate(err),
		businessflow.IsCurrentPasswordRequired(err),
		businessflow.IsTargetIsAdmin(err),
		businessflow.IsTargetNotAdmin(err),
		businessflow.IsCannotDeleteSelf(err),
		businessflow.IsLastAdmin(err),
		businessflow.IsInvalidPage(err),
		businessflow.IsInvalidPageSize(err),
		businessflow.IsPictureTooLarge(err),
		businessflow.IsUnsupportedImageType(err):
		status = fiber.StatusBadRequest
	default:
		if businessErr != nil {
			message = "Internal server error"
			code = dto.ErrorInternalServer
		}
	}

	return errorResponse(c, status, message, code, nil)
}
