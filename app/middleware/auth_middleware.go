// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/app/services"
	"github.com/sexto-andar/auth-service/models"
	"github.com/sexto-andar/auth-service/repository"
)

// AccessTokenCookie is the cookie consulted when no Authorization header is
// present.
const AccessTokenCookie = "access_token"

// AuthMiddleware handles JWT token validation for protected endpoints
type AuthMiddleware struct {
	tokenService services.TokenService
	accountRepo  repository.AccountRepository
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(tokenService services.TokenService, accountRepo repository.AccountRepository) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		accountRepo:  accountRepo,
	}
}

// Authenticate validates the access token and loads the account it names.
// The token is read from the Authorization header first, then from the
// access_token cookie. Every failure mode produces the same 401 so callers
// cannot probe which part failed.
func (m *AuthMiddleware) Authenticate() fiber.Handler {
	return func(c fiber.Ctx) error {
		token := ExtractToken(c)
		if token == "" {
			return unauthenticated(c)
		}

		claims, err := m.tokenService.ValidateToken(c.Context(), token)
		if err != nil {
			return unauthenticated(c)
		}

		account, err := m.accountRepo.ByID(c.Context(), claims.AccountID)
		if err != nil || account == nil {
			return unauthenticated(c)
		}

		c.Locals("account", account)
		c.Locals("account_id", account.ID)
		c.Locals("token_claims", claims)
		c.Locals("access_token", token)

		// Store RequestID for audit logging
		if requestID := c.Get("X-Request-ID"); requestID != "" {
			c.Locals("request_id", requestID)
		}

		return c.Next()
	}
}

// RequireAdmin refuses non-admin accounts. It must run after Authenticate.
func (m *AuthMiddleware) RequireAdmin() fiber.Handler {
	return func(c fiber.Ctx) error {
		account, ok := GetAccountFromContext(c)
		if !ok {
			return unauthenticated(c)
		}
		if !account.IsAdmin() {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Not enough permissions",
				Error:   dto.ErrorDetail{Code: dto.ErrorForbidden},
			})
		}
		return c.Next()
	}
}

// OptionalAuth loads the account when a valid token is present but lets the
// request through either way. Logout uses it so a stale token still clears
// the cookie.
func (m *AuthMiddleware) OptionalAuth() fiber.Handler {
	return func(c fiber.Ctx) error {
		token := ExtractToken(c)
		if token == "" {
			return c.Next()
		}

		claims, err := m.tokenService.ValidateToken(c.Context(), token)
		if err != nil {
			return c.Next()
		}

		if account, err := m.accountRepo.ByID(c.Context(), claims.AccountID); err == nil && account != nil {
			c.Locals("account", account)
			c.Locals("account_id", account.ID)
			c.Locals("token_claims", claims)
			c.Locals("access_token", token)
		}

		return c.Next()
	}
}

// ExtractToken pulls the access token from the Authorization header, falling
// back to the session cookie.
func ExtractToken(c fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		if !strings.HasPrefix(authHeader, "Bearer ") {
			return ""
		}
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	return c.Cookies(AccessTokenCookie)
}

func unauthenticated(c fiber.Ctx) error {
	c.Set("WWW-Authenticate", "Bearer")
	return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
		Success: false,
		Message: "Could not validate credentials",
		Error:   dto.ErrorDetail{Code: dto.ErrorUnauthenticated},
	})
}

// GetAccountFromContext extracts the authenticated account from the request context
func GetAccountFromContext(c fiber.Ctx) (*models.Account, bool) {
	account, ok := c.Locals("account").(*models.Account)
	return account, ok
}

// GetAccountIDFromContext extracts the authenticated account ID from the request context
func GetAccountIDFromContext(c fiber.Ctx) (uuid.UUID, bool) {
	accountID, ok := c.Locals("account_id").(uuid.UUID)
	return accountID, ok
}

// GetTokenClaimsFromContext extracts token claims from the request context
func GetTokenClaimsFromContext(c fiber.Ctx) (*services.AccountClaims, bool) {
	claims, ok := c.Locals("token_claims").(*services.AccountClaims)
	return claims, ok
}

// GetAccessTokenFromContext extracts the raw bearer token from the request context
func GetAccessTokenFromContext(c fiber.Ctx) (string, bool) {
	token, ok := c.Locals("access_token").(string)
	return token, ok
}
