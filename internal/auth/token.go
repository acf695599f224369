package auth

import (
	"crypto/subtle"

	"golang.org/x/crypto/bcrypt"
)

const bcryptCost = 12

// Hash returns a bcrypt hash of the token, suitable for ACCESS_TOKEN_HASH.
func Hash(token string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(token), bcryptCost)
	return string(b), err
}

// TokenVerifier checks the shared access token that guards uploads.
type TokenVerifier struct {
	token string
	hash  []byte
}

// NewTokenVerifier returns a verifier for a plain token, or for a bcrypt hash
// when hash is non-empty. The hash wins if both are given.
func NewTokenVerifier(token, hash string) *TokenVerifier {
	v := &TokenVerifier{token: token}
	if hash != "" {
		v.hash = []byte(hash)
	}
	return v
}

// Verify reports whether the submitted token is the configured one.
func (v *TokenVerifier) Verify(submitted string) bool {
	if submitted == "" {
		return false
	}
	if v.hash != nil {
		return bcrypt.CompareHashAndPassword(v.hash, []byte(submitted)) == nil
	}
	if v.token == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(v.token), []byte(submitted)) == 1
}
