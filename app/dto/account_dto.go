package dto

// AccountInfo represents account information returned by the API
type AccountInfo struct {
	ID                string  `json:"id" example:"550e8400-e29b-41d4-a716-446655440000"`
	Username          string  `json:"username" example:"alice_smith"`
	FullName          string  `json:"full_name" example:"Alice Smith"`
	Email             string  `json:"email" example:"alice@example.com"`
	PhoneNumber       *string `json:"phone_number,omitempty" example:"+5511987654321"`
	Role              string  `json:"role" example:"USER"`
	HasProfilePicture bool    `json:"has_profile_picture" example:"false"`
	CreatedAt         string  `json:"created_at" example:"2024-01-15T10:30:00Z"`
	UpdatedAt         string  `json:"updated_at" example:"2024-01-15T10:30:00Z"`
}

// AccountListData represents a page of non-admin accounts
type AccountListData struct {
	Accounts []AccountInfo `json:"accounts"`
	Total    int64         `json:"total" example:"42"`
	Page     int           `json:"page" example:"1"`
	Size     int           `json:"size" example:"10"`
}

// UpdateProfileRequest represents the self-service profile update payload.
// All fields are optional; changing email or password additionally requires
// the current password.
type UpdateProfileRequest struct {
	FullName        *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=100" example:"Alice S. Smith"`
	Email           *string `json:"email,omitempty" validate:"omitempty,email,max=255" example:"alice.new@example.com"`
	PhoneNumber     *string `json:"phone_number,omitempty" validate:"omitempty,min=10,max=20,phone_digits" example:"+5511987654321"`
	Password        *string `json:"password,omitempty" validate:"omitempty,min=8,max=100" example:"NewSecurePass123"`
	CurrentPassword *string `json:"current_password,omitempty" validate:"omitempty,min=8,max=100" example:"SecurePass123"`
}

// AdminUpdateUserRequest represents the admin-side account update payload
type AdminUpdateUserRequest struct {
	FullName    *string `json:"full_name,omitempty" validate:"omitempty,min=2,max=100" example:"Alice S. Smith"`
	Email       *string `json:"email,omitempty" validate:"omitempty,email,max=255" example:"alice.new@example.com"`
	PhoneNumber *string `json:"phone_number,omitempty" validate:"omitempty,min=10,max=20,phone_digits" example:"+5511987654321"`
}

// SetPasswordRequest represents the admin password override payload
type SetPasswordRequest struct {
	NewPassword string `json:"new_password" validate:"required,min=8,max=100" example:"NewSecurePass123"`
}

// Common error codes for account operations
const (
	ErrorAccountNotFound   = "ACCOUNT_NOT_FOUND"
	ErrorTargetIsAdmin     = "TARGET_IS_ADMIN"
	ErrorTargetNotAdmin    = "TARGET_NOT_ADMIN"
	ErrorCannotDeleteSelf  = "CANNOT_DELETE_SELF"
	ErrorLastAdmin         = "LAST_ADMIN"
	ErrorNoFieldsToUpdate  = "NO_FIELDS_TO_UPDATE"
	ErrorReauthRequired    = "CURRENT_PASSWORD_REQUIRED"
	ErrorReauthFailed      = "CURRENT_PASSWORD_INCORRECT"
	ErrorPictureTooLarge   = "PICTURE_TOO_LARGE"
	ErrorPictureBadFormat  = "UNSUPPORTED_IMAGE_TYPE"
	ErrorPictureNotFound   = "PICTURE_NOT_FOUND"
	ErrorInvalidPagination = "INVALID_PAGINATION"
)
