package cryptox

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// Test vector from RFC 7636 appendix B.
const (
	rfcVerifier  = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
	rfcChallenge = "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM"
)

func TestS256Challenge(t *testing.T) {
	require.Equal(t, rfcChallenge, S256Challenge(rfcVerifier))
}

func TestVerifyPKCE(t *testing.T) {
	tests := []struct {
		name      string
		challenge string
		method    string
		verifier  string
		want      bool
	}{
		{"s256 match", rfcChallenge, PKCEMethodS256, rfcVerifier, true},
		{"s256 mismatch", rfcChallenge, PKCEMethodS256, "wrong-verifier", false},
		{"s256 missing verifier", rfcChallenge, PKCEMethodS256, "", false},
		{"plain match", "plain-secret", PKCEMethodPlain, "plain-secret", true},
		{"plain mismatch", "plain-secret", PKCEMethodPlain, "plain-secre", false},
		{"plain verifier against s256 challenge", rfcChallenge, PKCEMethodS256, rfcChallenge, false},
		{"unknown method", rfcChallenge, "S512", rfcVerifier, false},
		{"no challenge recorded", "", "", "anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, VerifyPKCE(tt.challenge, tt.method, tt.verifier))
		})
	}
}

func TestNormalizePKCEMethod(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"", PKCEMethodS256, true},
		{"S256", PKCEMethodS256, true},
		{"s256", PKCEMethodS256, true},
		{"plain", PKCEMethodPlain, true},
		{" PLAIN ", PKCEMethodPlain, true},
		{"S123", "", false},
	}

	for _, tt := range tests {
		got, ok := NormalizePKCEMethod(tt.in)
		require.Equal(t, tt.ok, ok, tt.in)
		require.Equal(t, tt.want, got, tt.in)
	}
}
