// Package security provides bearer-token authentication and per-client rate
// limiting for the HTTP API.
package security

import (
	"crypto/subtle"
	"strings"
)

// TokenVerifier validates API bearer tokens. An empty configured token
// disables authentication entirely.
type TokenVerifier struct {
	token string
}

// NewTokenVerifier creates a verifier for the configured token
func NewTokenVerifier(token string) *TokenVerifier {
	return &TokenVerifier{token: token}
}

// Enabled reports whether authentication is configured
func (v *TokenVerifier) Enabled() bool {
	return v.token != ""
}

// Verify checks an Authorization header value against the configured token
// using a constant-time comparison.
func (v *TokenVerifier) Verify(authorization string) bool {
	if !v.Enabled() {
		return true
	}

	const prefix = "Bearer "
	if len(authorization) <= len(prefix) || !strings.EqualFold(authorization[:len(prefix)], prefix) {
		return false
	}
	provided := authorization[len(prefix):]

	return subtle.ConstantTimeCompare([]byte(provided), []byte(v.token)) == 1
}
