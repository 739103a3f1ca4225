// Package crypt provides salted password hashing for account records.
// The algorithm is a pluggable capability behind the Hasher interface;
// the default is scrypt with per-account random salts.
package crypt

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/scrypt"
)

// SaltSize is the length of per-account salts. The salt is not secret: the
// server hands it to the client during the login exchange.
const SaltSize = 16

// Hasher derives password hashes and verifies attempts. Implementations must
// compare in constant time.
type Hasher interface {
	Hash(password string, salt []byte) ([]byte, error)
	Verify(password string, salt, stored []byte) bool
}

// NewSalt generates a fresh random salt. Also used to mint decoy salts for
// unknown accounts, so a login probe cannot distinguish existing names.
func NewSalt() ([]byte, error) {
	salt := make([]byte, SaltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("generate salt: %w", err)
	}
	return salt, nil
}

// ScryptHasher is the default Hasher. Parameters follow the x/crypto
// recommendations for interactive logins.
type ScryptHasher struct {
	N      int
	R      int
	P      int
	KeyLen int
}

// NewScryptHasher returns a hasher with the recommended interactive parameters.
func NewScryptHasher() *ScryptHasher {
	return &ScryptHasher{N: 1 << 15, R: 8, P: 1, KeyLen: 32}
}

// Hash derives the stored hash for a password under the given salt.
func (h *ScryptHasher) Hash(password string, salt []byte) ([]byte, error) {
	key, err := scrypt.Key([]byte(password), salt, h.N, h.R, h.P, h.KeyLen)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return key, nil
}

// Verify re-derives the hash for an attempt and compares in constant time.
func (h *ScryptHasher) Verify(password string, salt, stored []byte) bool {
	key, err := h.Hash(password, salt)
	if err != nil {
		return false
	}
	return subtle.ConstantTimeCompare(key, stored) == 1
}
