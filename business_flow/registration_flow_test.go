package businessflow

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sexto-andar/auth-service/app/dto"
	"github.com/sexto-andar/auth-service/models"
)

func registerRequest(username, email string) *dto.RegisterRequest {
	phone := "+5511987654321"
	return &dto.RegisterRequest{
		Username:    username,
		FullName:    "Alice Smith",
		Email:       email,
		PhoneNumber: &phone,
		Password:    "SecurePass123",
	}
}

func TestRegisterUser(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.registrationFlow()
	ctx := context.Background()

	username, email := uniqueCredentials()
	info, err := flow.RegisterUser(ctx, registerRequest(username, email), testMetadata())
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, username, info.Username)
	assert.Equal(t, email, info.Email)
	assert.Equal(t, models.RoleUser, info.Role)
	assert.False(t, info.HasProfilePicture)

	t.Run("account is persisted with a hashed password", func(t *testing.T) {
		account, err := env.accountRepo.ByUsername(ctx, username)
		require.NoError(t, err)
		require.NotNil(t, account)
		assert.NotEqual(t, "SecurePass123", account.PasswordHash)
		assert.True(t, env.passwordSvc.Verify("SecurePass123", account.PasswordHash))
	})

	t.Run("registration is audited", func(t *testing.T) {
		logs, err := env.auditRepo.ListByAction(ctx, models.AuditActionRegistrationCompleted, 10, 0)
		require.NoError(t, err)
		assert.NotEmpty(t, logs)
	})
}

func TestRegisterPropertyOwner(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.registrationFlow()

	username, email := uniqueCredentials()
	info, err := flow.RegisterPropertyOwner(context.Background(), registerRequest(username, email), testMetadata())
	require.NoError(t, err)
	assert.Equal(t, models.RolePropertyOwner, info.Role)
}

func TestRegisterNormalizesIdentifiers(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.registrationFlow()

	username, email := uniqueCredentials()
	req := registerRequest(strings.ToUpper(username), strings.ToUpper(email))

	info, err := flow.RegisterUser(context.Background(), req, testMetadata())
	require.NoError(t, err)
	assert.Equal(t, username, info.Username)
	assert.Equal(t, email, info.Email)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.registrationFlow()
	ctx := context.Background()

	username, email := uniqueCredentials()
	_, err := flow.RegisterUser(ctx, registerRequest(username, email), testMetadata())
	require.NoError(t, err)

	t.Run("duplicate username", func(t *testing.T) {
		_, otherEmail := uniqueCredentials()
		_, err := flow.RegisterUser(ctx, registerRequest(username, otherEmail), testMetadata())
		require.Error(t, err)
		assert.True(t, IsUsernameAlreadyTaken(err))
		assert.Contains(t, err.Error(), "Username already exists")
	})

	t.Run("duplicate username in different case", func(t *testing.T) {
		_, otherEmail := uniqueCredentials()
		_, err := flow.RegisterUser(ctx, registerRequest(strings.ToUpper(username), otherEmail), testMetadata())
		require.Error(t, err)
		assert.True(t, IsUsernameAlreadyTaken(err))
	})

	t.Run("duplicate email", func(t *testing.T) {
		otherUsername, _ := uniqueCredentials()
		_, err := flow.RegisterUser(ctx, registerRequest(otherUsername, email), testMetadata())
		require.Error(t, err)
		assert.True(t, IsEmailAlreadyTaken(err))
		assert.Contains(t, err.Error(), "Email already exists")
	})

	t.Run("registering as property owner does not bypass uniqueness", func(t *testing.T) {
		_, err := flow.RegisterPropertyOwner(ctx, registerRequest(username, email), testMetadata())
		require.Error(t, err)
		assert.True(t, IsUsernameAlreadyTaken(err))
	})
}

func TestRegisterRejectsInvalidFields(t *testing.T) {
	env := newFlowEnv(t)
	flow := env.registrationFlow()

	username, email := uniqueCredentials()
	req := registerRequest("bad name!", email)

	_, err := flow.RegisterUser(context.Background(), req, testMetadata())
	require.Error(t, err)

	var businessErr *BusinessError
	require.ErrorAs(t, err, &businessErr)
	assert.Equal(t, dto.ErrorValidationFailed, businessErr.Code)

	// Nothing was persisted for the rejected request.
	account, lookupErr := env.accountRepo.ByUsername(context.Background(), username)
	require.NoError(t, lookupErr)
	assert.Nil(t, account)
}
