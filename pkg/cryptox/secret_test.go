package cryptox

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestHasher(t *testing.T) *SecretHasher {
	t.Helper()
	pepper, err := LoadOrCreatePepper(filepath.Join(t.TempDir(), "pepper"))
	require.NoError(t, err)
	return NewSecretHasher(pepper)
}

func TestSecretHasher_RoundTrip(t *testing.T) {
	h := newTestHasher(t)

	tests := []struct {
		name   string
		secret string
	}{
		{"generated secret", "q9Xz0Yv1m3kP4r8sT2uW6eA5bC7dF0gH1jK2lM3nO4p"},
		{"symbols", "P@ssw0rd!#$%^&*()"},
		{"long", strings.Repeat("a", 200)},
		{"empty", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := h.Hash(tt.secret)
			require.NoError(t, err)
			require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=19456,t=2,p=1$"))

			require.NoError(t, h.Verify(tt.secret, hash))
			require.ErrorIs(t, h.Verify(tt.secret+"x", hash), ErrSecretMismatch)
		})
	}
}

func TestSecretHasher_UniqueSalts(t *testing.T) {
	h := newTestHasher(t)

	a, err := h.Hash("same")
	require.NoError(t, err)
	b, err := h.Hash("same")
	require.NoError(t, err)

	require.NotEqual(t, a, b)
	require.NoError(t, h.Verify("same", a))
	require.NoError(t, h.Verify("same", b))
}

func TestSecretHasher_PepperMatters(t *testing.T) {
	hash, err := NewSecretHasher([]byte("pepper-one")).Hash("secret")
	require.NoError(t, err)

	require.NoError(t, NewSecretHasher([]byte("pepper-one")).Verify("secret", hash))
	require.ErrorIs(t, NewSecretHasher([]byte("pepper-two")).Verify("secret", hash), ErrSecretMismatch)
}

func TestSecretHasher_MalformedHash(t *testing.T) {
	h := newTestHasher(t)

	for _, bad := range []string{
		"",
		"$bcrypt$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456",
		"$argon2id$v=19$invalid$c2FsdA$aGFzaA",
		"$argon2id$v=19$m=19456,t=2,p=1$!!!$aGFzaA",
		"$argon2id$v=18$m=19456,t=2,p=1$c2FsdA$aGFzaA",
	} {
		require.ErrorIs(t, h.Verify("secret", bad), ErrMalformedHash, bad)
	}
}

func TestLoadOrCreatePepper(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "pepper")

	first, err := LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	second, err := LoadOrCreatePepper(path)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestLoadOrCreatePepper_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pepper")
	require.NoError(t, os.WriteFile(path, []byte("  \n"), 0o600))

	_, err := LoadOrCreatePepper(path)
	require.Error(t, err)
}
