package services

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordService hashes and verifies account passwords
type PasswordService interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// PasswordServiceImpl implements PasswordService with bcrypt
type PasswordServiceImpl struct {
	cost int
}

// NewPasswordService creates a password service. cost outside bcrypt's valid
// range falls back to the library default.
func NewPasswordService(cost int) PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &PasswordServiceImpl{cost: cost}
}

// Hash returns a salted bcrypt hash of the plaintext password
func (s *PasswordServiceImpl) Hash(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Verify reports whether plain matches hash. Malformed hashes and mismatches
// both report false; callers never learn which.
func (s *PasswordServiceImpl) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
