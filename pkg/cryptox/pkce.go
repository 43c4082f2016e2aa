package cryptox

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

// PKCE challenge methods (RFC 7636).
const (
	PKCEMethodS256  = "S256"
	PKCEMethodPlain = "plain"
)

// NormalizePKCEMethod maps a client supplied method onto its canonical form.
// An empty method defaults to S256. ok is false for unknown methods.
func NormalizePKCEMethod(method string) (normalized string, ok bool) {
	switch m := strings.TrimSpace(method); {
	case m == "", strings.EqualFold(m, PKCEMethodS256):
		return PKCEMethodS256, true
	case strings.EqualFold(m, PKCEMethodPlain):
		return PKCEMethodPlain, true
	default:
		return "", false
	}
}

// S256Challenge derives the code challenge for verifier:
// BASE64URL(SHA256(verifier)) without padding.
func S256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// VerifyPKCE recomputes the challenge from verifier using method and compares
// it against the recorded challenge. An empty challenge means PKCE was not
// used for the grant and any verifier is accepted.
func VerifyPKCE(challenge, method, verifier string) bool {
	if challenge == "" {
		return true
	}
	if verifier == "" {
		return false
	}

	var derived string
	switch method {
	case PKCEMethodPlain:
		derived = verifier
	case PKCEMethodS256, "":
		derived = S256Challenge(verifier)
	default:
		return false
	}

	return EqualConstantTime(derived, challenge)
}
