// Package businessflow contains the core business logic and use cases for authentication workflows
package businessflow

import (
	"errors"
	"fmt"
)

// Business flow error constants
var (
	// Credential and account errors
	ErrInvalidCredentials   = errors.New("incorrect username or password")
	ErrAccountNotFound      = errors.New("account not found")
	ErrUsernameAlreadyTaken = errors.New("username already exists")
	ErrEmailAlreadyTaken    = errors.New("email already exists")

	// Profile update errors
	ErrNoFieldsToUpdate         = errors.New("at least one field must be provided for update")
	ErrCurrentPasswordRequired  = errors.New("current password is required to change email or password")
	ErrCurrentPasswordIncorrect = errors.New("current password is incorrect")

	// Access errors
	ErrAccessDenied = errors.New("not enough permissions")

	// Admin management errors
	ErrTargetIsAdmin    = errors.New("target account is an admin")
	ErrTargetNotAdmin   = errors.New("target account is not an admin")
	ErrCannotDeleteSelf = errors.New("cannot delete your own admin account")
	ErrLastAdmin        = errors.New("cannot delete the last admin account in the system")

	// Pagination errors
	ErrInvalidPage     = errors.New("page must be at least 1")
	ErrInvalidPageSize = errors.New("page size must be between 1 and 100")

	// Profile picture errors
	ErrPictureTooLarge      = errors.New("profile picture exceeds the maximum allowed size")
	ErrUnsupportedImageType = errors.New("profile picture must be a JPEG, PNG or GIF image")
	ErrPictureNotFound      = errors.New("no profile picture is set")
)

type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

func NewBusinessErrorf(code, message string, err error, args ...any) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: fmt.Sprintf(message, args...),
		Err:     err,
	}
}

func IsInvalidCredentials(err error) bool {
	return errors.Is(err, ErrInvalidCredentials)
}

func IsAccountNotFound(err error) bool {
	return errors.Is(err, ErrAccountNotFound)
}

func IsUsernameAlreadyTaken(err error) bool {
	return errors.Is(err, ErrUsernameAlreadyTaken)
}

func IsEmailAlreadyTaken(err error) bool {
	return errors.Is(err, ErrEmailAlreadyTaken)
}

func IsNoFieldsToUpdate(err error) bool {
	return errors.Is(err, ErrNoFieldsToUpdate)
}

func IsCurrentPasswordRequired(err error) bool {
	return errors.Is(err, ErrCurrentPasswordRequired)
}

func IsCurrentPasswordIncorrect(err error) bool {
	return errors.Is(err, ErrCurrentPasswordIncorrect)
}

func IsAccessDenied(err error) bool {
	return errors.Is(err, ErrAccessDenied)
}

func IsTargetIsAdmin(err error) bool {
	return errors.Is(err, ErrTargetIsAdmin)
}

func IsTargetNotAdmin(err error) bool {
	return errors.Is(err, ErrTargetNotAdmin)
}

func IsCannotDeleteSelf(err error) bool {
	return errors.Is(err, ErrCannotDeleteSelf)
}

func IsLastAdmin(err error) bool {
	return errors.Is(err, ErrLastAdmin)
}

func IsInvalidPage(err error) bool {
	return errors.Is(err, ErrInvalidPage)
}

func IsInvalidPageSize(err error) bool {
	return errors.Is(err, ErrInvalidPageSize)
}

func IsPictureTooLarge(err error) bool {
	return errors.Is(err, ErrPictureTooLarge)
}

func IsUnsupportedImageType(err error) bool {
	return errors.Is(err, ErrUnsupportedImageType)
}

func IsPictureNotFound(err error) bool {
	return errors.Is(err, ErrPictureNotFound)
}
