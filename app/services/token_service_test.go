// Package services provides external service integrations and technical concerns like payments and tokens
package services

import (
	"context"
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
		nil, // revocations, defaults to the in-memory store
	)
}

func TestNewTokenService(t *testing.T) {
	t.Run("symmetric key service", func(t *testing.T) {
		svc, err := createTestTokenService()
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("missing secret key fails", func(t *testing.T) {
		_, err := NewTokenService(
			15*time.Minute,
			7*24*time.Hour,
			"test-issuer",
			"test-audience",
			false,
			"",
			"",
			"",
			nil,
		)
		assert.Error(t, err)
	})

	t.Run("rsa without keys fails", func(t *testing.T) {
		_, err := NewTokenService(
			15*time.Minute,
			7*24*time.Hour,
			"test-issuer",
			"test-audience",
			true,
			"",
			"",
			"",
			nil,
		)
		assert.Error(t, err)
	})
}

func TestGenerateTokens(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	t.Run("generates distinct access and refresh tokens", func(t *testing.T) {
		accessToken, refreshToken, err := svc.GenerateTokens(42)
		require.NoError(t, err)

		assert.NotEmpty(t, accessToken)
		assert.NotEmpty(t, refreshToken)
		assert.NotEqual(t, accessToken, refreshToken)
	})

	t.Run("claims carry the account id and token type", func(t *testing.T) {
		accessToken, refreshToken, err := svc.GenerateTokens(42)
		require.NoError(t, err)

		accessClaims, err := svc.ValidateToken(accessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(42), accessClaims.AccountID)
		assert.Equal(t, "access", accessClaims.TokenType)
		assert.NotEmpty(t, accessClaims.TokenID)

		refreshClaims, err := svc.ValidateToken(refreshToken)
		require.NoError(t, err)
		assert.Equal(t, uint(42), refreshClaims.AccountID)
		assert.Equal(t, "refresh", refreshClaims.TokenType)
		assert.NotEqual(t, accessClaims.TokenID, refreshClaims.TokenID)
	})

	t.Run("expiry follows the configured ttl", func(t *testing.T) {
		accessToken, refreshToken, err := svc.GenerateTokens(42)
		require.NoError(t, err)

		accessClaims, err := svc.ValidateToken(accessToken)
		require.NoError(t, err)
		assert.WithinDuration(t, accessClaims.IssuedAt.Add(15*time.Minute), accessClaims.ExpiresAt, time.Second)

		refreshClaims, err := svc.ValidateToken(refreshToken)
		require.NoError(t, err)
		assert.WithinDuration(t, refreshClaims.IssuedAt.Add(7*24*time.Hour), refreshClaims.ExpiresAt, time.Second)
	})
}

func TestValidateToken(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	t.Run("garbage token is invalid", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("token signed with another key is invalid", func(t *testing.T) {
		other, err := NewTokenService(
			15*time.Minute,
			7*24*time.Hour,
			"test-issuer",
			"test-audience",
			false,
			"",
			"",
			"a-completely-different-signing-key-here",
			nil,
		)
		require.NoError(t, err)

		token, _, err := other.GenerateTokens(42)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("expired token is rejected", func(t *testing.T) {
		shortLived, err := NewTokenService(
			-time.Minute,
			-time.Minute,
			"test-issuer",
			"test-audience",
			false,
			"",
			"",
			"test-secret-key-for-jwt-signing-32-chars",
			nil,
		)
		require.NoError(t, err)

		token, _, err := shortLived.GenerateTokens(42)
		require.NoError(t, err)

		_, err = shortLived.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestRevokeToken(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	t.Run("revoked token stops validating", func(t *testing.T) {
		accessToken, _, err := svc.GenerateTokens(42)
		require.NoError(t, err)

		_, err = svc.ValidateToken(accessToken)
		require.NoError(t, err)
		assert.False(t, svc.IsTokenRevoked(accessToken))

		require.NoError(t, svc.RevokeToken(accessToken))

		_, err = svc.ValidateToken(accessToken)
		assert.ErrorIs(t, err, ErrTokenRevoked)
		assert.True(t, svc.IsTokenRevoked(accessToken))
	})

	t.Run("revocation is per token", func(t *testing.T) {
		first, _, err := svc.GenerateTokens(42)
		require.NoError(t, err)
		second, _, err := svc.GenerateTokens(42)
		require.NoError(t, err)

		require.NoError(t, svc.RevokeToken(first))

		_, err = svc.ValidateToken(second)
		assert.NoError(t, err)
	})

	t.Run("claims remain readable after revocation", func(t *testing.T) {
		accessToken, _, err := svc.GenerateTokens(42)
		require.NoError(t, err)
		require.NoError(t, svc.RevokeToken(accessToken))

		claims, err := svc.GetTokenClaims(accessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.AccountID)
	})
}

func TestRefreshToken(t *testing.T) {
	svc, err := createTestTokenService()
	require.NoError(t, err)

	t.Run("refresh token yields a new pair", func(t *testing.T) {
		_, refreshToken, err := svc.GenerateTokens(42)
		require.NoError(t, err)

		newAccess, newRefresh, err := svc.RefreshToken(refreshToken)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(42), claims.AccountID)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEqual(t, refreshToken, newRefresh)
	})

	t.Run("access token cannot be used to refresh", func(t *testing.T) {
		accessToken, _, err := svc.GenerateTokens(42)
		require.NoError(t, err)

		_, _, err = svc.RefreshToken(accessToken)
		assert.Error(t, err)
	})

	t.Run("revoked refresh token is rejected", func(t *testing.T) {
		_, refreshToken, err := svc.GenerateTokens(42)
		require.NoError(t, err)
		require.NoError(t, svc.RevokeToken(refreshToken))

		_, _, err = svc.RefreshToken(refreshToken)
		assert.Error(t, err)
	})
}

func TestMemoryRevocationStore(t *testing.T) {
	store := NewMemoryRevocationStore()
	ctx := context.Background()

	t.Run("revoked id is reported until expiry", func(t *testing.T) {
		require.NoError(t, store.Revoke(ctx, "token-1", time.Minute))
		assert.True(t, store.IsRevoked(ctx, "token-1"))
		assert.False(t, store.IsRevoked(ctx, "token-2"))
	})

	t.Run("non-positive ttl is a no-op", func(t *testing.T) {
		require.NoError(t, store.Revoke(ctx, "token-3", 0))
		assert.False(t, store.IsRevoked(ctx, "token-3"))
	})
}

func BenchmarkGenerateTokens(b *testing.B) {
	svc, err := createTestTokenService()
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _, err := svc.GenerateTokens(42)
		if err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkValidateToken(b *testing.B) {
	svc, err := createTestTokenService()
	if err != nil {
		b.Fatal(err)
	}

	token, _, err := svc.GenerateTokens(42)
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, err := svc.ValidateToken(token)
		if err != nil {
			b.Fatal(err)
		}
	}
}
