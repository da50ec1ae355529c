// Package services provides external service integrations and technical concerns like payments and tokens
package services

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// PasswordService hashes and verifies account passwords
type PasswordService interface {
	Hash(password string) (string, error)
	Matches(password, hash string) bool
}

// BcryptPasswordService implements PasswordService over bcrypt
type BcryptPasswordService struct {
	cost int
}

// NewPasswordService creates a password service with the given bcrypt cost.
// Costs outside the bcrypt range fall back to the library default.
func NewPasswordService(cost int) PasswordService {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptPasswordService{cost: cost}
}

// Hash derives a bcrypt hash from a plaintext password
func (s *BcryptPasswordService) Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}

// Matches reports whether the plaintext password matches the stored hash
func (s *BcryptPasswordService) Matches(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
