package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// UnusablePrefix starts every hash produced for a missing password.
// Such hashes never verify.
const UnusablePrefix = "!"

// ErrPasswordTooLong is returned for passwords bcrypt cannot hash (>72 bytes).
var ErrPasswordTooLong = bcrypt.ErrPasswordTooLong

// Hasher derives and verifies one-way password hashes.
type Hasher interface {
	Hash(plain string) (string, error)
	Compare(hash, plain string) bool
}

// BcryptHasher hashes with bcrypt at the given cost.
type BcryptHasher struct {
	Cost int
}

// NewBcryptHasher returns a hasher using bcrypt.DefaultCost when cost is 0.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{Cost: cost}
}

// Hash returns a bcrypt hash, or an unusable marker when plain is empty.
func (h *BcryptHasher) Hash(plain string) (string, error) {
	if plain == "" {
		return UnusablePassword()
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), h.Cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrPasswordTooLong
		}
		return "", err
	}
	return string(hash), nil
}

func (h *BcryptHasher) Compare(hash, plain string) bool {
	if hash == "" || strings.HasPrefix(hash, UnusablePrefix) {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// UnusablePassword returns a random marker that no password hashes to.
func UnusablePassword() (string, error) {
	buf := make([]byte, 20)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return UnusablePrefix + hex.EncodeToString(buf), nil
}
