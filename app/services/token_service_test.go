package services

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sexto-andar/auth-service/models"
)

const testSecretKey = "test-secret-key-for-jwt-signing-32-chars"

// createTestTokenService creates a token service for testing with a symmetric key
func createTestTokenService(t *testing.T, revocations RevocationStore) TokenService {
	t.Helper()

	svc, err := NewTokenService(
		15*time.Minute,
		"test-issuer",
		"test-audience",
		false,
		"",
		"",
		testSecretKey,
		revocations,
	)
	require.NoError(t, err)
	return svc
}

func testAccount(t *testing.T) *models.Account {
	t.Helper()

	account, err := models.NewAccount("alice_smith", "Alice Smith", "alice@example.com", nil, "$2a$10$hash", models.RoleUser)
	require.NoError(t, err)
	return account
}

func TestNewTokenService(t *testing.T) {
	t.Run("symmetric key configuration", func(t *testing.T) {
		svc, err := NewTokenService(15*time.Minute, "iss", "aud", false, "", "", testSecretKey, nil)
		require.NoError(t, err)
		assert.Equal(t, 15*time.Minute, svc.AccessTokenTTL())
	})

	t.Run("missing secret key", func(t *testing.T) {
		_, err := NewTokenService(15*time.Minute, "iss", "aud", false, "", "", "", nil)
		assert.Error(t, err)
	})

	t.Run("rsa mode without keys", func(t *testing.T) {
		_, err := NewTokenService(15*time.Minute, "iss", "aud", true, "", "", "", nil)
		assert.Error(t, err)
	})
}

func TestGenerateAndValidateToken(t *testing.T) {
	svc := createTestTokenService(t, nil)
	account := testAccount(t)

	token, err := svc.GenerateToken(account)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	assert.Equal(t, account.ID, claims.AccountID)
	assert.Equal(t, account.Username, claims.Username)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	svc := createTestTokenService(t, nil)

	t.Run("malformed token", func(t *testing.T) {
		_, err := svc.ValidateToken(context.Background(), "not.a.jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("empty token", func(t *testing.T) {
		_, err := svc.ValidateToken(context.Background(), "")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		other := createTestTokenService(t, nil)
		token, err := other.(*TokenServiceImpl).generateToken(jwt.MapClaims{
			"sub":      testAccount(t).ID.String(),
			"username": "alice_smith",
			"role":     models.RoleUser,
			"jti":      "abc123",
			"iat":      time.Now().Unix(),
			"exp":      time.Now().Add(time.Hour).Unix(),
		})
		require.NoError(t, err)

		forged, err := NewTokenService(15*time.Minute, "iss", "aud", false, "", "", "another-secret-key-that-is-32-chars!", nil)
		require.NoError(t, err)

		_, err = forged.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("unsigned algorithm", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"sub": testAccount(t).ID.String(),
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("invalid role claim", func(t *testing.T) {
		token, err := svc.(*TokenServiceImpl).generateToken(jwt.MapClaims{
			"sub":      testAccount(t).ID.String(),
			"username": "alice_smith",
			"role":     "SUPERUSER",
			"jti":      "abc123",
			"iat":      time.Now().Unix(),
			"exp":      time.Now().Add(time.Hour).Unix(),
		})
		require.NoError(t, err)

		_, err = svc.ValidateToken(context.Background(), token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestValidateTokenExpired(t *testing.T) {
	svc := createTestTokenService(t, nil)

	token, err := svc.(*TokenServiceImpl).generateToken(jwt.MapClaims{
		"sub":      testAccount(t).ID.String(),
		"username": "alice_smith",
		"role":     models.RoleUser,
		"jti":      "abc123",
		"iat":      time.Now().Add(-2 * time.Hour).Unix(),
		"exp":      time.Now().Add(-1 * time.Hour).Unix(),
	})
	require.NoError(t, err)

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestRevokeToken(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedisRevocationStore(client)
	svc := createTestTokenService(t, store)
	account := testAccount(t)

	token, err := svc.GenerateToken(account)
	require.NoError(t, err)

	// Valid before revocation
	_, err = svc.ValidateToken(context.Background(), token)
	require.NoError(t, err)

	require.NoError(t, svc.RevokeToken(context.Background(), token))

	_, err = svc.ValidateToken(context.Background(), token)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	t.Run("revoking twice is a no-op", func(t *testing.T) {
		assert.NoError(t, svc.RevokeToken(context.Background(), token))
	})

	t.Run("other tokens stay valid", func(t *testing.T) {
		other, err := svc.GenerateToken(account)
		require.NoError(t, err)
		_, err = svc.ValidateToken(context.Background(), other)
		assert.NoError(t, err)
	})

	t.Run("revocation entry expires with the token", func(t *testing.T) {
		victim, err := svc.GenerateToken(account)
		require.NoError(t, err)
		require.NoError(t, svc.RevokeToken(context.Background(), victim))

		mr.FastForward(16 * time.Minute)

		// The token itself is also expired by now, so validation still fails,
		// but the store no longer holds the jti.
		claims, err := svc.ValidateToken(context.Background(), victim)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}

func TestRevocationStoreUnavailableIsNotFatal(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	svc := createTestTokenService(t, NewRedisRevocationStore(client))
	token, err := svc.GenerateToken(testAccount(t))
	require.NoError(t, err)

	mr.Close()

	// Validation proceeds when the store cannot be reached.
	_, err = svc.ValidateToken(context.Background(), token)
	assert.NoError(t, err)
}
