package jwtx

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"

	"github.com/golang-jwt/jwt/v5"
)

// MinKeySize is the shortest HS256 key accepted, in bytes.
const MinKeySize = 32

var ErrWeakKey = errors.New("jwtx: hmac key shorter than 32 bytes")

// DeriveKey derives a purpose bound key from a shared secret so one secret
// can back several token types without them being interchangeable.
func DeriveKey(secret []byte, purpose string) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(purpose))
	return mac.Sum(nil)
}

// Signer issues HS256 tokens.
type Signer struct {
	key []byte
}

// NewSigner creates a signer for key.
func NewSigner(key []byte) (*Signer, error) {
	if len(key) < MinKeySize {
		return nil, ErrWeakKey
	}
	return &Signer{key: key}, nil
}

func (s *Signer) Alg() string { return jwt.SigningMethodHS256.Alg() }

// Sign turns claims into a compact JWT.
func (s *Signer) Sign(claims jwt.Claims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.key)
}
