// Package auth provides the password-verification primitive and the HTTP
// middleware that guards authenticated routes.
package auth

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// defaultCost is the bcrypt work factor. Roughly 250ms per hash on current
// server hardware — slow enough to make offline cracking expensive, fast
// enough that login latency stays acceptable.
const defaultCost = 12

// PasswordService provides bcrypt hashing and constant-time verification.
//
// It is a struct rather than free functions so the cost can be lowered in
// tests — bcrypt at cost 12 would add ~250ms to every test that registers
// a user.
type PasswordService struct {
	cost int
}

// NewPasswordService creates a PasswordService with the default cost.
func NewPasswordService() *PasswordService {
	return &PasswordService{cost: defaultCost}
}

// NewPasswordServiceForTest creates a PasswordService with a custom cost.
// Use bcrypt.MinCost (4) in tests. Do not use in production.
func NewPasswordServiceForTest(cost int) *PasswordService {
	return &PasswordService{cost: cost}
}

// Hash hashes a plaintext password. The output embeds the salt and cost, so
// it is stored as-is in the users table.
//
// Plaintexts longer than 72 bytes are rejected explicitly — bcrypt would
// silently truncate them otherwise.
func (p *PasswordService) Hash(plaintext string) (string, error) {
	if len(plaintext) > 72 {
		return "", fmt.Errorf("auth: password must be 72 bytes or fewer")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), p.cost)
	if err != nil {
		return "", fmt.Errorf("auth: hashing password: %w", err)
	}

	return string(hashed), nil
}

// Matches reports whether the plaintext matches the stored hash.
//
// bcrypt.CompareHashAndPassword compares in constant time, so response
// timing reveals nothing about how close the guess was. A malformed stored
// hash is returned as an error distinct from a simple mismatch — that is a
// data problem, not a wrong password.
func (p *PasswordService) Matches(plaintext, storedHash string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(plaintext))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return false, nil
		}
		return false, fmt.Errorf("auth: comparing password hash: %w", err)
	}
	return true, nil
}
