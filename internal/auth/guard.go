// Package auth decides whether a caller holds the administrator credential.
package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// ErrNoAdminSecret is returned when neither a plain nor a hashed admin
// secret is configured.
var ErrNoAdminSecret = errors.New("ADMIN_TOKEN or ADMIN_TOKEN_HASH is required")

// Guard compares supplied credentials against the configured admin secret.
type Guard struct {
	token []byte
	hash  []byte
}

// NewGuard accepts a plaintext secret, a bcrypt hash of it, or both. When
// both are set a credential matching either one is accepted.
func NewGuard(token, hash string) (*Guard, error) {
	if token == "" && hash == "" {
		return nil, ErrNoAdminSecret
	}
	g := &Guard{}
	if token != "" {
		g.token = []byte(token)
	}
	if hash != "" {
		if _, err := bcrypt.Cost([]byte(hash)); err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TOKEN_HASH: %w", err)
		}
		g.hash = []byte(hash)
	}
	return g, nil
}

// IsAdmin reports whether credential is the admin secret. The plaintext
// comparison runs in constant time; an empty credential never matches.
func (g *Guard) IsAdmin(credential string) bool {
	if credential == "" {
		return false
	}
	if g.token != nil && subtle.ConstantTimeCompare(g.token, []byte(credential)) == 1 {
		return true
	}
	if g.hash != nil && bcrypt.CompareHashAndPassword(g.hash, []byte(credential)) == nil {
		return true
	}
	return false
}

// HashSecret returns the bcrypt hash to put in ADMIN_TOKEN_HASH.
func HashSecret(secret string) (string, error) {
	if secret == "" {
		return "", errors.New("secret must not be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
