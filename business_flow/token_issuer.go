// Package businessflow contains the core business logic and use cases for identity workflows
package businessflow

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"time"
)

// TokenCheckResult classifies the outcome of checking a presented token
// against the stored hash and expiry.
type TokenCheckResult int

const (
	TokenValid TokenCheckResult = iota
	TokenMismatch
	TokenExpired
)

func (r TokenCheckResult) String() string {
	switch r {
	case TokenValid:
		return "valid"
	case TokenMismatch:
		return "mismatch"
	case TokenExpired:
		return "expired"
	default:
		return "unknown"
	}
}

// IssuedToken carries a freshly minted single-use token. Plaintext goes to the
// account holder over email; only Hash is ever persisted.
type IssuedToken struct {
	Plaintext string
	Hash      string
	ExpiresAt time.Time
}

// IssueToken mints a random hex token of byteLen random bytes with the given
// time-to-live. The stored form is the hex sha256 digest of the plaintext.
func IssueToken(byteLen int, ttl time.Duration) (*IssuedToken, error) {
	if byteLen <= 0 {
		return nil, fmt.Errorf("token byte length must be positive, got %d", byteLen)
	}

	buf := make([]byte, byteLen)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("failed to generate random token: %w", err)
	}

	plaintext := hex.EncodeToString(buf)

	return &IssuedToken{
		Plaintext: plaintext,
		Hash:      HashToken(plaintext),
		ExpiresAt: time.Now().UTC().Add(ttl),
	}, nil
}

// HashToken returns the hex sha256 digest of a plaintext token
func HashToken(plaintext string) string {
	sum := sha256.Sum256([]byte(plaintext))
	return hex.EncodeToString(sum[:])
}

// CheckToken compares a presented plaintext token against the stored hash and
// expiry. Expiry is checked before the hash so an expired token reports
// TokenExpired even when the hash matches.
func CheckToken(plaintext string, storedHash *string, storedExpiry *time.Time, now time.Time) TokenCheckResult {
	if storedHash == nil || *storedHash == "" {
		return TokenMismatch
	}

	if storedExpiry == nil || !storedExpiry.After(now) {
		return TokenExpired
	}

	presented := HashToken(plaintext)
	if subtle.ConstantTimeCompare([]byte(presented), []byte(*storedHash)) != 1 {
		return TokenMismatch
	}

	return TokenValid
}
