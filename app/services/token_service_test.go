// Package services provides external service integrations and technical concerns like notifications and tokens
package services

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// createTestTokenService creates a token service for testing with symmetric key
func createTestTokenService() (TokenService, error) {
	return NewTokenService(
		15*time.Minute,
		7*24*time.Hour,
		"test-issuer",
		"test-audience",
		false, // useRSAKeys
		"",    // privateKeyPEM
		"",    // publicKeyPEM
		"test-secret-key-for-jwt-signing-32-chars", // secretKey
	)
}

func TestNewTokenService(t *testing.T) {
	tests := []struct {
		name        string
		useRSAKeys  bool
		privateKey  string
		publicKey   string
		secretKey   string
		expectError bool
	}{
		{
			name:        "valid symmetric key configuration",
			secretKey:   "test-secret-key-for-jwt-signing-32-chars",
			expectError: false,
		},
		{
			name:        "missing secret key",
			secretKey:   "",
			expectError: true,
		},
		{
			name:        "RSA requested without keys",
			useRSAKeys:  true,
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, err := NewTokenService(
				15*time.Minute,
				7*24*time.Hour,
				"test-issuer",
				"test-audience",
				tt.useRSAKeys,
				tt.privateKey,
				tt.publicKey,
				tt.secretKey,
			)

			if tt.expectError {
				assert.Error(t, err)
				assert.Nil(t, service)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, service)
			}
		})
	}
}

func TestGenerateTokens(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	tests := []struct {
		name   string
		userID uint
	}{
		{name: "valid user ID", userID: 123},
		{name: "zero user ID", userID: 0},
		{name: "large user ID", userID: 999999999},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			accessToken, refreshToken, err := service.GenerateTokens(tt.userID)

			require.NoError(t, err)
			assert.NotEmpty(t, accessToken)
			assert.NotEmpty(t, refreshToken)
			assert.NotEqual(t, accessToken, refreshToken)
		})
	}
}

func TestValidateToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(123)
	require.NoError(t, err)

	t.Run("valid access token", func(t *testing.T) {
		claims, err := service.ValidateToken(accessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(123), claims.UserID)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEmpty(t, claims.TokenID)
		assert.False(t, claims.IssuedAt.IsZero())
		assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
	})

	t.Run("valid refresh token", func(t *testing.T) {
		claims, err := service.ValidateToken(refreshToken)
		require.NoError(t, err)
		assert.Equal(t, uint(123), claims.UserID)
		assert.Equal(t, "refresh", claims.TokenType)
	})

	t.Run("malformed token", func(t *testing.T) {
		claims, err := service.ValidateToken("not.a.token")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("empty token", func(t *testing.T) {
		claims, err := service.ValidateToken("")
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("token signed with different key", func(t *testing.T) {
		other, err := NewTokenService(
			15*time.Minute,
			7*24*time.Hour,
			"test-issuer",
			"test-audience",
			false, "", "",
			"another-secret-key-for-jwt-signing-32ch",
		)
		require.NoError(t, err)

		foreign, _, err := other.GenerateTokens(123)
		require.NoError(t, err)

		claims, err := service.ValidateToken(foreign)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})
}

func TestRefreshToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, refreshToken, err := service.GenerateTokens(123)
	require.NoError(t, err)

	t.Run("valid refresh token", func(t *testing.T) {
		newAccess, newRefresh, err := service.RefreshToken(refreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, newAccess)
		assert.NotEmpty(t, newRefresh)

		claims, err := service.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(123), claims.UserID)
	})

	t.Run("access token rejected", func(t *testing.T) {
		_, _, err := service.RefreshToken(accessToken)
		assert.Error(t, err)
	})

	t.Run("garbage rejected", func(t *testing.T) {
		_, _, err := service.RefreshToken("garbage")
		assert.Error(t, err)
	})
}

func TestRevokeToken(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	accessToken, _, err := service.GenerateTokens(123)
	require.NoError(t, err)

	t.Run("token valid before revocation", func(t *testing.T) {
		assert.False(t, service.IsTokenRevoked(accessToken))
		_, err := service.ValidateToken(accessToken)
		assert.NoError(t, err)
	})

	t.Run("token rejected after revocation", func(t *testing.T) {
		require.NoError(t, service.RevokeToken(accessToken))

		assert.True(t, service.IsTokenRevoked(accessToken))
		claims, err := service.ValidateToken(accessToken)
		assert.Error(t, err)
		assert.Nil(t, claims)
	})

	t.Run("revoking garbage fails", func(t *testing.T) {
		assert.Error(t, service.RevokeToken("garbage"))
	})

	t.Run("other tokens unaffected", func(t *testing.T) {
		otherAccess, _, err := service.GenerateTokens(123)
		require.NoError(t, err)

		_, err = service.ValidateToken(otherAccess)
		assert.NoError(t, err)
	})
}

func TestTokenUniqueness(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	token1, _, err := service.GenerateTokens(123)
	require.NoError(t, err)
	token2, _, err := service.GenerateTokens(123)
	require.NoError(t, err)

	// Tokens carry unique token IDs even for the same user
	assert.NotEqual(t, token1, token2)
}

func TestConcurrentTokenGeneration(t *testing.T) {
	service, err := createTestTokenService()
	require.NoError(t, err)

	const workers = 20
	var wg sync.WaitGroup
	tokens := make([]string, workers)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			access, _, err := service.GenerateTokens(uint(i + 1))
			assert.NoError(t, err)
			tokens[i] = access
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool, workers)
	for i, token := range tokens {
		require.NotEmpty(t, token)
		assert.False(t, seen[token], "duplicate token at index %d", i)
		seen[token] = true
	}
}
