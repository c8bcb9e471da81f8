// Package dto contains Data Transfer Objects for API request and response structures
package dto

// LoginRequest represents the request payload for credential login
type LoginRequest struct {
	Username string `json:"username" validate:"required,min=3,max=50" example:"alice_smith"`
	Password string `json:"password" validate:"required,min=8,max=100" example:"SecurePass123"`
}

// AuthSessionData represents the successful login payload
type AuthSessionData struct {
	AccessToken string      `json:"access_token" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType   string      `json:"token_type" example:"bearer"`
	ExpiresIn   int         `json:"expires_in" example:"1800"`
	User        AccountInfo `json:"user"`
}

// RegisterRequest represents the request payload for user and property owner
// registration
type RegisterRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=50,username_format" example:"alice_smith"`
	FullName    string  `json:"full_name" validate:"required,min=2,max=100" example:"Alice Smith"`
	Email       string  `json:"email" validate:"required,email,max=255" example:"alice@example.com"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,min=10,max=20,phone_digits" example:"+5511987654321"`
	Password    string  `json:"password" validate:"required,min=8,max=100" example:"SecurePass123"`
}

// CreateAdminRequest represents the request payload for creating an admin
// account. Field rules match registration.
type CreateAdminRequest struct {
	Username    string  `json:"username" validate:"required,min=3,max=50,username_format" example:"root_admin"`
	FullName    string  `json:"full_name" validate:"required,min=2,max=100" example:"Root Admin"`
	Email       string  `json:"email" validate:"required,email,max=255" example:"admin@example.com"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,min=10,max=20,phone_digits" example:"+5511987654321"`
	Password    string  `json:"password" validate:"required,min=8,max=100" example:"SecurePass123"`
}

// IntrospectRequest represents the request payload for token introspection
type IntrospectRequest struct {
	Token string `json:"token" validate:"required,min=10" example:"eyJhbGciOiJIUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// IntrospectData represents the introspection result. Inactive tokens carry a
// single generic reason regardless of why validation failed.
type IntrospectData struct {
	Active bool           `json:"active" example:"true"`
	Claims map[string]any `json:"claims,omitempty"`
	Reason string         `json:"reason,omitempty" example:"invalid_or_expired"`
}

// IntrospectReasonInvalid is the only reason ever reported for inactive tokens
const IntrospectReasonInvalid = "invalid_or_expired"

// Common error codes for authentication operations
const (
	ErrorInvalidCredentials = "INVALID_CREDENTIALS"
	ErrorUnauthenticated    = "UNAUTHENTICATED"
	ErrorForbidden          = "NOT_ENOUGH_PERMISSIONS"
	ErrorUsernameTaken      = "USERNAME_ALREADY_EXISTS"
	ErrorEmailTaken         = "EMAIL_ALREADY_EXISTS"
	ErrorValidationFailed   = "VALIDATION_ERROR"
	ErrorInternalServer     = "INTERNAL_SERVER_ERROR"
)
