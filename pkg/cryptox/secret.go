package cryptox

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for newly hashed secrets. Verification reads the
// parameters back out of the encoded hash.
const (
	memory      = 19 * 1024 // KiB
	iterations  = 2
	parallelism = 1
	keyLength   = 32
	saltLength  = 16
)

var (
	// ErrSecretMismatch is returned when a secret does not match its hash.
	ErrSecretMismatch = errors.New("cryptox: secret does not match")
	// ErrMalformedHash is returned for hashes not in argon2id PHC form.
	ErrMalformedHash = errors.New("cryptox: malformed argon2id hash")
)

// SecretHasher hashes client secrets with Argon2id. The pepper is mixed into
// every hash and is kept outside the database.
type SecretHasher struct {
	pepper []byte
}

func NewSecretHasher(pepper []byte) *SecretHasher {
	return &SecretHasher{pepper: pepper}
}

// Hash returns a PHC-format string: $argon2id$v=19$m=..,t=..,p=..$salt$hash
func (h *SecretHasher) Hash(secret string) (string, error) {
	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return "", err
	}

	sum := argon2.IDKey(h.peppered(secret), salt, iterations, memory, parallelism, keyLength)

	return fmt.Sprintf(
		"$argon2id$v=%d$m=%d,t=%d,p=%d$%s$%s",
		argon2.Version,
		memory,
		iterations,
		parallelism,
		base64.RawStdEncoding.EncodeToString(salt),
		base64.RawStdEncoding.EncodeToString(sum),
	), nil
}

// Verify checks secret against an encoded hash produced by Hash.
func (h *SecretHasher) Verify(secret, encoded string) error {
	parts := strings.Split(encoded, "$")
	if len(parts) != 6 || parts[0] != "" || parts[1] != "argon2id" {
		return ErrMalformedHash
	}
	if parts[2] != fmt.Sprintf("v=%d", argon2.Version) {
		return ErrMalformedHash
	}

	var (
		mem, iters uint32
		par        uint8
	)
	if _, err := fmt.Sscanf(parts[3], "m=%d,t=%d,p=%d", &mem, &iters, &par); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedHash, err)
	}

	salt, err := base64.RawStdEncoding.DecodeString(parts[4])
	if err != nil {
		return fmt.Errorf("%w: salt: %v", ErrMalformedHash, err)
	}
	want, err := base64.RawStdEncoding.DecodeString(parts[5])
	if err != nil || len(want) == 0 {
		return fmt.Errorf("%w: hash", ErrMalformedHash)
	}

	got := argon2.IDKey(h.peppered(secret), salt, iters, mem, par, uint32(len(want))) // #nosec G115
	if subtle.ConstantTimeCompare(got, want) != 1 {
		return ErrSecretMismatch
	}
	return nil
}

func (h *SecretHasher) peppered(secret string) []byte {
	out := make([]byte, 0, len(secret)+len(h.pepper))
	out = append(out, secret...)
	return append(out, h.pepper...)
}
