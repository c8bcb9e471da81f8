// Package testing provides test utilities and database setup for testing the authentication service
package testing

import (
	"fmt"
	"math/rand"

	"golang.org/x/crypto/bcrypt"

	"github.com/sexto-andar/auth-service/models"
)

// TestPassword is the plaintext password every fixture account is created with
const TestPassword = "TestPass123"

// TestFixtures provides helper methods for creating test data
type TestFixtures struct {
	DB *TestDB
}

// NewTestFixtures creates a new test fixtures instance
func NewTestFixtures(db *TestDB) *TestFixtures {
	return &TestFixtures{DB: db}
}

// CreateTestAccount creates an account with the given role and a random
// username and email.
func (tf *TestFixtures) CreateTestAccount(role string) (*models.Account, error) {
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(TestPassword), bcrypt.MinCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	suffix := rand.Intn(900000000) + 100000000
	phone := fmt.Sprintf("+5511%09d", suffix)

	account, err := models.NewAccount(
		fmt.Sprintf("test_user_%d", suffix),
		"John Doe",
		fmt.Sprintf("john.doe.%d@example.com", suffix),
		&phone,
		string(hashedPassword),
		role,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to build test account: %w", err)
	}

	if err := tf.DB.DB.Create(account).Error; err != nil {
		return nil, fmt.Errorf("failed to create test account: %w", err)
	}

	return account, nil
}

// CreateTestUser creates a USER account
func (tf *TestFixtures) CreateTestUser() (*models.Account, error) {
	return tf.CreateTestAccount(models.RoleUser)
}

// CreateTestPropertyOwner creates a PROPERTY_OWNER account
func (tf *TestFixtures) CreateTestPropertyOwner() (*models.Account, error) {
	return tf.CreateTestAccount(models.RolePropertyOwner)
}

// CreateTestAdmin creates an ADMIN account
func (tf *TestFixtures) CreateTestAdmin() (*models.Account, error) {
	return tf.CreateTestAccount(models.RoleAdmin)
}
