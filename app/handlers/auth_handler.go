package handlers

import (
	"context"
	"log"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	businessflow "github.com/sexto-andar/auth-service/business_flow"

	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/app/middleware"
	"github.com/sexto-andar/auth-service/app/services"
)

// CookieSettings controls how the session cookie is written
type CookieSettings struct {
	Secure bool
	Domain string
}

// AuthHandler handles registration, login, logout and token introspection
type AuthHandler struct {
	registrationFlow businessflow.RegistrationFlow
	loginFlow        businessflow.LoginFlow
	tokenService     services.TokenService
	cookies          CookieSettings
	validator        *validator.Validate
}

// NewAuthHandler creates a new authentication handler
func NewAuthHandler(
	registrationFlow businessflow.RegistrationFlow,
	loginFlow businessflow.LoginFlow,
	tokenService services.TokenService,
	cookies CookieSettings,
) *AuthHandler {
	return &AuthHandler{
		registrationFlow: registrationFlow,
		loginFlow:        loginFlow,
		tokenService:     tokenService,
		cookies:          cookies,
		validator:        newValidator(),
	}
}

// RegisterUser handles tenant account registration
// @Summary Register a new user account
// @Description Creates a USER account with the given credentials
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration data"
// @Success 201 {object} dto.APIResponse{data=dto.AccountInfo}
// @Failure 400 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Router /auth/register/user [post]
func (h *AuthHandler) RegisterUser(c fiber.Ctx) error {
	return h.register(c, "/auth/register/user", h.registrationFlow.RegisterUser)
}

// RegisterPropertyOwner handles property owner account registration
// @Summary Register a new property owner account
// @Description Creates a PROPERTY_OWNER account with the given credentials
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.RegisterRequest true "Registration data"
// @Success 201 {object} dto.APIResponse{data=dto.AccountInfo}
// @Failure 400 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Router /auth/register/property-owner [post]
func (h *AuthHandler) RegisterPropertyOwner(c fiber.Ctx) error {
	return h.register(c, "/auth/register/property-owner", h.registrationFlow.RegisterPropertyOwner)
}

type registerFunc func(ctx context.Context, req *dto.RegisterRequest, metadata *businessflow.ClientMetadata) (*dto.AccountInfo, error)

func (h *AuthHandler) register(c fiber.Ctx, endpoint string, fn registerFunc) error {
	var req dto.RegisterRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request format", dto.ErrorValidationFailed, nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	ctx, cancel := requestContext(c, endpoint)
	defer cancel()

	account, err := fn(ctx, &req, clientMetadata(c))
	if err != nil {
		return respondBusinessError(c, err)
	}

	return successResponse(c, fiber.StatusCreated, "Account registered successfully", account)
}

// Login handles credential login
// @Summary Authenticate with username and password
// @Description Verifies credentials and issues an access token. The token is
// @Description also written to an httponly cookie for browser clients.
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Login credentials"
// @Success 200 {object} dto.APIResponse{data=dto.AuthSessionData}
// @Failure 401 {object} dto.APIResponse
// @Failure 422 {object} dto.APIResponse
// @Router /auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request format", dto.ErrorValidationFailed, nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	ctx, cancel := requestContext(c, "/auth/login")
	defer cancel()

	session, err := h.loginFlow.Login(ctx, &req, clientMetadata(c))
	if err != nil {
		if businessflow.IsInvalidCredentials(err) {
			c.Set("WWW-Authenticate", "Bearer")
		}
		return respondBusinessError(c, err)
	}

	h.setSessionCookie(c, session.AccessToken, session.ExpiresIn)

	return successResponse(c, fiber.StatusOK, "Login successful", session)
}

// Logout revokes the current token and clears the session cookie. It always
// reports success so a stale or missing token still resets the client.
// @Summary Log out the current session
// @Tags authentication
// @Produce json
// @Success 200 {object} dto.APIResponse
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	token, hasToken := middleware.GetAccessTokenFromContext(c)
	claims, hasClaims := middleware.GetTokenClaimsFromContext(c)

	if hasToken && hasClaims {
		ctx, cancel := requestContext(c, "/auth/logout")
		defer cancel()

		if err := h.loginFlow.Logout(ctx, token, claims, clientMetadata(c)); err != nil {
			log.Printf("logout: revocation failed for account %s: %v", claims.AccountID, err)
		}
	}

	h.clearSessionCookie(c)

	return successResponse(c, fiber.StatusOK, "Successfully logged out", nil)
}

// Me returns the authenticated account's profile
// @Summary Get the current account
// @Tags authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.AccountInfo}
// @Failure 401 {object} dto.APIResponse
// @Router /auth/me [get]
func (h *AuthHandler) Me(c fiber.Ctx) error {
	account, ok := middleware.GetAccountFromContext(c)
	if !ok {
		return errorResponse(c, fiber.StatusUnauthorized, "Could not validate credentials", dto.ErrorUnauthenticated, nil)
	}

	info := businessflow.ToAccountInfo(account)
	return successResponse(c, fiber.StatusOK, "Account retrieved successfully", info)
}

// Introspect reports whether a token is active. The response is always 200;
// inactive tokens carry a single generic reason so the endpoint cannot be
// used to distinguish expiry from forgery.
// @Summary Introspect an access token
// @Tags authentication
// @Accept json
// @Produce json
// @Param request body dto.IntrospectRequest true "Token to inspect"
// @Success 200 {object} dto.APIResponse{data=dto.IntrospectData}
// @Failure 422 {object} dto.APIResponse
// @Router /auth/introspect [post]
func (h *AuthHandler) Introspect(c fiber.Ctx) error {
	var req dto.IntrospectRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request format", dto.ErrorValidationFailed, nil)
	}

	if err := h.validator.Struct(&req); err != nil {
		return validationErrorResponse(c, err)
	}

	ctx, cancel := requestContext(c, "/auth/introspect")
	defer cancel()

	claims, err := h.tokenService.ValidateToken(ctx, req.Token)
	if err != nil {
		return successResponse(c, fiber.StatusOK, "Token introspected", dto.IntrospectData{
			Active: false,
			Reason: dto.IntrospectReasonInvalid,
		})
	}

	return successResponse(c, fiber.StatusOK, "Token introspected", dto.IntrospectData{
		Active: true,
		Claims: map[string]any{
			"sub":      claims.AccountID.String(),
			"username": claims.Username,
			"role":     claims.Role,
			"jti":      claims.TokenID,
			"iat":      claims.IssuedAt.Unix(),
			"exp":      claims.ExpiresAt.Unix(),
		},
	})
}

func (h *AuthHandler) setSessionCookie(c fiber.Ctx, token string, maxAge int) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    token,
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   maxAge,
		Secure:   h.cookies.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (h *AuthHandler) clearSessionCookie(c fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     middleware.AccessTokenCookie,
		Value:    "",
		Path:     "/",
		Domain:   h.cookies.Domain,
		MaxAge:   -1,
		Secure:   h.cookies.Secure,
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
