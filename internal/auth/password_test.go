package auth

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// All tests use bcrypt.MinCost — the logic under test is identical at every
// cost, and cost 12 would make this file take seconds to run.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(bcrypt.MinCost)
}

func TestHash_ProducesVerifiableHash(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "" {
		t.Fatal("Hash() returned empty string")
	}
	if hash == "correct horse battery staple" {
		t.Fatal("Hash() returned the plaintext")
	}

	ok, err := ps.Matches("correct horse battery staple", hash)
	if err != nil {
		t.Fatalf("Matches() error = %v", err)
	}
	if !ok {
		t.Error("Matches() = false for the correct password")
	}
}

func TestHash_SamePasswordDifferentHashes(t *testing.T) {
	ps := newTestPasswordService()

	h1, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	// bcrypt salts every hash, so equal inputs must not produce equal output
	if h1 == h2 {
		t.Error("two hashes of the same password should differ (random salt)")
	}
}

func TestHash_RejectsOver72Bytes(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash(strings.Repeat("a", 73)); err == nil {
		t.Error("Hash() should reject passwords longer than 72 bytes")
	}
}

func TestMatches_WrongPassword(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("right-password")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	ok, err := ps.Matches("wrong-password", hash)
	if err != nil {
		t.Fatalf("Matches() returned unexpected error = %v", err)
	}
	if ok {
		t.Error("Matches() = true for the wrong password")
	}
}

func TestMatches_MalformedHashIsAnError(t *testing.T) {
	ps := newTestPasswordService()

	// A corrupt stored hash is an infrastructure problem, not a wrong
	// password — it must surface as an error, not a silent false.
	_, err := ps.Matches("anything", "not-a-bcrypt-hash")
	if err == nil {
		t.Error("Matches() should return an error for a malformed stored hash")
	}
}
