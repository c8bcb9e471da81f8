// Package models contains domain entities and business models for the authentication system
package models

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Account roles
const (
	RoleUser          = "USER"
	RolePropertyOwner = "PROPERTY_OWNER"
	RoleAdmin         = "ADMIN"
)

// Field bounds enforced by NewAccount and the update paths
const (
	UsernameMinLength = 3
	UsernameMaxLength = 50
	FullNameMinLength = 2
	FullNameMaxLength = 100
	PhoneMinLength    = 10
	PhoneMaxLength    = 20
	PasswordMinLength = 8
)

var (
	usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)
	emailPattern    = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)
	nonDigitPattern = regexp.MustCompile(`\D`)
)

// Account represents a platform account of any role. Usernames and emails are
// stored lowercased so uniqueness is case-insensitive.
type Account struct {
	ID                 uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Username           string    `gorm:"size:50;not null;uniqueIndex:uk_accounts_username" json:"username"`
	FullName           string    `gorm:"size:100;not null" json:"full_name"`
	Email              string    `gorm:"size:255;not null;uniqueIndex:uk_accounts_email" json:"email"`
	PhoneNumber        *string   `gorm:"size:20" json:"phone_number,omitempty"`
	PasswordHash       string    `gorm:"size:255;not null" json:"-"`
	Role               string    `gorm:"size:20;not null;index:idx_accounts_role" json:"role"`
	ProfilePicture     []byte    `gorm:"type:bytea" json:"-"`
	ProfilePictureType *string   `gorm:"size:100" json:"-"`
	CreatedAt          time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt          time.Time `gorm:"default:CURRENT_TIMESTAMP" json:"updated_at"`
}

func (Account) TableName() string {
	return "accounts"
}

// AccountFilter represents filter criteria for account queries
type AccountFilter struct {
	ID            *uuid.UUID
	Username      *string
	Email         *string
	Role          *string
	Roles         []string
	CreatedAfter  *time.Time
	CreatedBefore *time.Time
}

// NewAccount validates and normalizes the given fields and returns a ready to
// persist account. passwordHash must already be a bcrypt hash; plaintext
// handling stays outside the model.
func NewAccount(username, fullName, email string, phoneNumber *string, passwordHash, role string) (*Account, error) {
	username, err := NormalizeUsername(username)
	if err != nil {
		return nil, err
	}

	if err := ValidateFullName(fullName); err != nil {
		return nil, err
	}

	email, err = NormalizeEmail(email)
	if err != nil {
		return nil, err
	}

	if phoneNumber != nil {
		if err := ValidatePhoneNumber(*phoneNumber); err != nil {
			return nil, err
		}
	}

	if passwordHash == "" {
		return nil, fmt.Errorf("password hash must not be empty")
	}

	if !IsValidRole(role) {
		return nil, fmt.Errorf("unknown role %q", role)
	}

	return &Account{
		ID:           uuid.New(),
		Username:     username,
		FullName:     strings.TrimSpace(fullName),
		Email:        email,
		PhoneNumber:  phoneNumber,
		PasswordHash: passwordHash,
		Role:         role,
	}, nil
}

// NormalizeUsername validates the username and returns its canonical
// lowercase form.
func NormalizeUsername(username string) (string, error) {
	username = strings.TrimSpace(username)
	if len(username) < UsernameMinLength || len(username) > UsernameMaxLength {
		return "", fmt.Errorf("username must be between %d and %d characters", UsernameMinLength, UsernameMaxLength)
	}
	if !usernamePattern.MatchString(username) {
		return "", fmt.Errorf("username may only contain letters, digits and underscores")
	}
	return strings.ToLower(username), nil
}

// NormalizeEmail validates the email and returns its canonical lowercase form.
func NormalizeEmail(email string) (string, error) {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > 255 || !emailPattern.MatchString(email) {
		return "", fmt.Errorf("invalid email address")
	}
	return strings.ToLower(email), nil
}

// ValidateFullName checks display-name bounds.
func ValidateFullName(fullName string) error {
	fullName = strings.TrimSpace(fullName)
	if len(fullName) < FullNameMinLength || len(fullName) > FullNameMaxLength {
		return fmt.Errorf("full name must be between %d and %d characters", FullNameMinLength, FullNameMaxLength)
	}
	return nil
}

// ValidatePhoneNumber checks overall length and that the number carries 10 to
// 15 digits once separators are stripped.
func ValidatePhoneNumber(phone string) error {
	phone = strings.TrimSpace(phone)
	if len(phone) < PhoneMinLength || len(phone) > PhoneMaxLength {
		return fmt.Errorf("phone number must be between %d and %d characters", PhoneMinLength, PhoneMaxLength)
	}
	digits := nonDigitPattern.ReplaceAllString(phone, "")
	if len(digits) < 10 || len(digits) > 15 {
		return fmt.Errorf("phone number must contain between 10 and 15 digits")
	}
	return nil
}

// IsValidRole reports whether role is one of the known role constants.
func IsValidRole(role string) bool {
	switch role {
	case RoleUser, RolePropertyOwner, RoleAdmin:
		return true
	}
	return false
}

func (a *Account) IsAdmin() bool {
	return a.Role == RoleAdmin
}

func (a *Account) IsPropertyOwner() bool {
	return a.Role == RolePropertyOwner
}

func (a *Account) IsUser() bool {
	return a.Role == RoleUser
}

// HasProfilePicture reports whether a picture blob is stored for the account.
func (a *Account) HasProfilePicture() bool {
	return len(a.ProfilePicture) > 0 && a.ProfilePictureType != nil
}
