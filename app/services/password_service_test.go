// Package services provides external service integrations and technical concerns like payments and tokens
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestPasswordService(t *testing.T) {
	svc := NewPasswordService(bcrypt.MinCost)

	t.Run("hash and verify round trip", func(t *testing.T) {
		hash, err := svc.Hash("SecurePass123")
		require.NoError(t, err)

		assert.NotEqual(t, "SecurePass123", hash)
		assert.True(t, svc.Matches("SecurePass123", hash))
	})

	t.Run("wrong password does not match", func(t *testing.T) {
		hash, err := svc.Hash("SecurePass123")
		require.NoError(t, err)

		assert.False(t, svc.Matches("WrongPass123", hash))
	})

	t.Run("garbage hash does not match", func(t *testing.T) {
		assert.False(t, svc.Matches("SecurePass123", "not-a-bcrypt-hash"))
	})

	t.Run("same password hashes to different salts", func(t *testing.T) {
		first, err := svc.Hash("SecurePass123")
		require.NoError(t, err)
		second, err := svc.Hash("SecurePass123")
		require.NoError(t, err)

		assert.NotEqual(t, first, second)
		assert.True(t, svc.Matches("SecurePass123", first))
		assert.True(t, svc.Matches("SecurePass123", second))
	})

	t.Run("out of range cost falls back to the default", func(t *testing.T) {
		fallback := NewPasswordService(100)

		hash, err := fallback.Hash("SecurePass123")
		require.NoError(t, err)

		cost, err := bcrypt.Cost([]byte(hash))
		require.NoError(t, err)
		assert.Equal(t, bcrypt.DefaultCost, cost)
	})
}
