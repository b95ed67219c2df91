// Package security holds the credential store used for account passwords.
package security

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrPasswordTooLong is returned when the plaintext exceeds bcrypt's input limit.
var ErrPasswordTooLong = errors.New("password exceeds 72 bytes")

// Hasher hashes and verifies passwords. Implementations must embed a random
// per-call salt in the output so equal passwords never share a stored hash.
type Hasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// BcryptHasher is the default Hasher.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher with bcrypt.DefaultCost.
func NewBcryptHasher() *BcryptHasher {
	return &BcryptHasher{Cost: bcrypt.DefaultCost}
}

// Hash returns the bcrypt encoding of plain.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(hash), nil
}

// Verify reports whether plain matches hash. A malformed hash is a mismatch.
func (h *BcryptHasher) Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}
