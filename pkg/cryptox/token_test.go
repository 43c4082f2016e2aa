package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		wantLen int
	}{
		{"authorization code", TokenSize128, 22},
		{"bearer token", TokenSize256, 43},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.Len(t, a, tt.wantLen)

			b, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.NotEqual(t, a, b)
		})
	}
}

func TestGenerateToken_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}
}

func TestFingerprintToken(t *testing.T) {
	fp := FingerprintToken("test-token-1")

	require.Equal(t, fp, FingerprintToken("test-token-1"))
	require.NotEqual(t, fp, FingerprintToken("test-token-2"))
	require.Len(t, fp, 43)
}

func TestEqualConstantTime(t *testing.T) {
	require.True(t, EqualConstantTime("abc", "abc"))
	require.False(t, EqualConstantTime("abc", "abd"))
	require.False(t, EqualConstantTime("abc", "abcd"))
	require.True(t, EqualConstantTime("", ""))
}
