package security

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

const (
	// sessionTokenBytes yields 256 bits of entropy per session token.
	sessionTokenBytes = 32
	// inviteCodeBytes yields codes short enough to paste around but still
	// infeasible to guess.
	inviteCodeBytes = 12
)

// GenerateSecureToken returns a base64 URL-safe random string using the
// specified number of random bytes from a cryptographically strong source.
func GenerateSecureToken(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("length must be positive")
	}
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// GenerateSessionToken mints an opaque session identifier.
func GenerateSessionToken() (string, error) {
	return GenerateSecureToken(sessionTokenBytes)
}

// GenerateInviteCode mints a high-entropy invite code.
func GenerateInviteCode() (string, error) {
	return GenerateSecureToken(inviteCodeBytes)
}
