package businessflow

import (
	"encoding/hex"
	"testing"
	"time"

	"github.com/amirphl/Susanoo/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIssueToken(t *testing.T) {
	t.Run("plaintext is hex of the requested byte length", func(t *testing.T) {
		issued, err := IssueToken(utils.VerificationTokenBytes, utils.VerificationTokenTTL)
		require.NoError(t, err)

		assert.Len(t, issued.Plaintext, utils.VerificationTokenBytes*2)
		_, err = hex.DecodeString(issued.Plaintext)
		assert.NoError(t, err)
	})

	t.Run("hash matches HashToken of the plaintext", func(t *testing.T) {
		issued, err := IssueToken(utils.PasswordResetTokenBytes, utils.PasswordResetTokenTTL)
		require.NoError(t, err)

		assert.Len(t, issued.Plaintext, utils.PasswordResetTokenBytes*2)
		assert.Equal(t, HashToken(issued.Plaintext), issued.Hash)
		assert.NotEqual(t, issued.Plaintext, issued.Hash)
	})

	t.Run("expiry honors the ttl", func(t *testing.T) {
		before := time.Now().UTC()
		issued, err := IssueToken(16, 30*time.Minute)
		require.NoError(t, err)
		after := time.Now().UTC()

		assert.False(t, issued.ExpiresAt.Before(before.Add(30*time.Minute)))
		assert.False(t, issued.ExpiresAt.After(after.Add(30*time.Minute)))
	})

	t.Run("successive tokens differ", func(t *testing.T) {
		first, err := IssueToken(16, time.Minute)
		require.NoError(t, err)
		second, err := IssueToken(16, time.Minute)
		require.NoError(t, err)

		assert.NotEqual(t, first.Plaintext, second.Plaintext)
		assert.NotEqual(t, first.Hash, second.Hash)
	})

	t.Run("non-positive byte length is rejected", func(t *testing.T) {
		_, err := IssueToken(0, time.Minute)
		assert.Error(t, err)

		_, err = IssueToken(-4, time.Minute)
		assert.Error(t, err)
	})
}

func TestHashToken(t *testing.T) {
	t.Run("is deterministic", func(t *testing.T) {
		assert.Equal(t, HashToken("abc123"), HashToken("abc123"))
	})

	t.Run("is a 64 character hex digest", func(t *testing.T) {
		sum := HashToken("abc123")
		assert.Len(t, sum, 64)
		_, err := hex.DecodeString(sum)
		assert.NoError(t, err)
	})

	t.Run("differs per input", func(t *testing.T) {
		assert.NotEqual(t, HashToken("abc123"), HashToken("abc124"))
	})
}

func TestCheckToken(t *testing.T) {
	now := time.Now().UTC()
	future := now.Add(time.Hour)
	past := now.Add(-time.Hour)

	issued, err := IssueToken(16, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name      string
		plaintext string
		hash      *string
		expiry    *time.Time
		expected  TokenCheckResult
	}{
		{"valid token", issued.Plaintext, &issued.Hash, &future, TokenValid},
		{"wrong plaintext", "not-the-token", &issued.Hash, &future, TokenMismatch},
		{"nil stored hash", issued.Plaintext, nil, &future, TokenMismatch},
		{"empty stored hash", issued.Plaintext, utils.ToPtr(""), &future, TokenMismatch},
		{"expired token", issued.Plaintext, &issued.Hash, &past, TokenExpired},
		{"nil expiry", issued.Plaintext, &issued.Hash, nil, TokenExpired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := CheckToken(tt.plaintext, tt.hash, tt.expiry, now)
			assert.Equal(t, tt.expected, result)
		})
	}

	t.Run("expiry is checked before the hash", func(t *testing.T) {
		// A matching but expired token reports expired, not mismatch
		result := CheckToken(issued.Plaintext, &issued.Hash, &past, now)
		assert.Equal(t, TokenExpired, result)
	})
}

func TestTokenCheckResultString(t *testing.T) {
	assert.Equal(t, "valid", TokenValid.String())
	assert.Equal(t, "mismatch", TokenMismatch.String())
	assert.Equal(t, "expired", TokenExpired.String())
	assert.Equal(t, "unknown", TokenCheckResult(42).String())
}
