package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAccount(t *testing.T) {
	phone := "+5511987654321"

	t.Run("valid account", func(t *testing.T) {
		account, err := NewAccount("Alice_Smith", " Alice Smith ", "Alice@Example.COM", &phone, "$2a$10$hash", RoleUser)
		require.NoError(t, err)
		require.NotNil(t, account)

		assert.NotEqual(t, "", account.ID.String())
		assert.Equal(t, "alice_smith", account.Username)
		assert.Equal(t, "Alice Smith", account.FullName)
		assert.Equal(t, "alice@example.com", account.Email)
		assert.Equal(t, &phone, account.PhoneNumber)
		assert.Equal(t, RoleUser, account.Role)
		assert.False(t, account.HasProfilePicture())
	})

	t.Run("nil phone number is allowed", func(t *testing.T) {
		account, err := NewAccount("bob", "Bob Jones", "bob@example.com", nil, "$2a$10$hash", RolePropertyOwner)
		require.NoError(t, err)
		assert.Nil(t, account.PhoneNumber)
	})

	t.Run("unique IDs per account", func(t *testing.T) {
		a, err := NewAccount("carol", "Carol One", "carol1@example.com", nil, "$2a$10$hash", RoleUser)
		require.NoError(t, err)
		b, err := NewAccount("carol", "Carol Two", "carol2@example.com", nil, "$2a$10$hash", RoleUser)
		require.NoError(t, err)
		assert.NotEqual(t, a.ID, b.ID)
	})

	invalid := []struct {
		name     string
		username string
		fullName string
		email    string
		phone    *string
		hash     string
		role     string
	}{
		{"username too short", "ab", "Alice Smith", "alice@example.com", nil, "$2a$10$hash", RoleUser},
		{"username too long", strings.Repeat("a", 51), "Alice Smith", "alice@example.com", nil, "$2a$10$hash", RoleUser},
		{"username with spaces", "alice smith", "Alice Smith", "alice@example.com", nil, "$2a$10$hash", RoleUser},
		{"username with symbols", "alice!", "Alice Smith", "alice@example.com", nil, "$2a$10$hash", RoleUser},
		{"full name too short", "alice", "A", "alice@example.com", nil, "$2a$10$hash", RoleUser},
		{"full name too long", "alice", strings.Repeat("a", 101), "alice@example.com", nil, "$2a$10$hash", RoleUser},
		{"email missing domain", "alice", "Alice Smith", "alice@", nil, "$2a$10$hash", RoleUser},
		{"email missing at sign", "alice", "Alice Smith", "alice.example.com", nil, "$2a$10$hash", RoleUser},
		{"phone too few digits", "alice", "Alice Smith", "alice@example.com", strPtr("+55 11 987"), "$2a$10$hash", RoleUser},
		{"empty password hash", "alice", "Alice Smith", "alice@example.com", nil, "", RoleUser},
		{"unknown role", "alice", "Alice Smith", "alice@example.com", nil, "$2a$10$hash", "SUPERUSER"},
		{"lowercase role rejected", "alice", "Alice Smith", "alice@example.com", nil, "$2a$10$hash", "user"},
	}

	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			account, err := NewAccount(tc.username, tc.fullName, tc.email, tc.phone, tc.hash, tc.role)
			assert.Error(t, err)
			assert.Nil(t, account)
		})
	}
}

func TestNormalizeUsername(t *testing.T) {
	username, err := NormalizeUsername("  Alice_99 ")
	require.NoError(t, err)
	assert.Equal(t, "alice_99", username)

	_, err = NormalizeUsername("a")
	assert.Error(t, err)
}

func TestNormalizeEmail(t *testing.T) {
	email, err := NormalizeEmail(" Alice@EXAMPLE.com ")
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", email)

	_, err = NormalizeEmail("not-an-email")
	assert.Error(t, err)
}

func TestValidatePhoneNumber(t *testing.T) {
	tests := []struct {
		name    string
		phone   string
		wantErr bool
	}{
		{"plain digits", "11987654321", false},
		{"with country code and plus", "+5511987654321", false},
		{"with separators", "+55 (11) 98765-4321", false},
		{"too short overall", "123456789", true},
		{"too long overall", "+55 11 98765 43210 99999", true},
		{"enough characters but too few digits", "+1-2-3-4-5-", true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePhoneNumber(tc.phone)
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRoleHelpers(t *testing.T) {
	assert.True(t, IsValidRole(RoleUser))
	assert.True(t, IsValidRole(RolePropertyOwner))
	assert.True(t, IsValidRole(RoleAdmin))
	assert.False(t, IsValidRole("MODERATOR"))

	admin := &Account{Role: RoleAdmin}
	assert.True(t, admin.IsAdmin())
	assert.False(t, admin.IsUser())
	assert.False(t, admin.IsPropertyOwner())

	owner := &Account{Role: RolePropertyOwner}
	assert.True(t, owner.IsPropertyOwner())
}

func TestHasProfilePicture(t *testing.T) {
	account := &Account{}
	assert.False(t, account.HasProfilePicture())

	pictureType := "image/png"
	account.ProfilePicture = []byte{1, 2, 3}
	assert.False(t, account.HasProfilePicture(), "type must be set too")

	account.ProfilePictureType = &pictureType
	assert.True(t, account.HasProfilePicture())
}

func strPtr(s string) *string { return &s }
