package jwtx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/saltoplay/platform/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

var testKey = []byte("0123456789abcdef0123456789abcdef")

func newPair(t *testing.T, key []byte, opts jwtx.VerifyOptions) (*jwtx.Signer, *jwtx.Verifier) {
	t.Helper()
	s, err := jwtx.NewSigner(key)
	require.NoError(t, err)
	v, err := jwtx.NewVerifier(key, opts)
	require.NoError(t, err)
	return s, v
}

func TestWeakKeyRejected(t *testing.T) {
	_, err := jwtx.NewSigner([]byte("short"))
	require.ErrorIs(t, err, jwtx.ErrWeakKey)

	_, err = jwtx.NewVerifier([]byte("short"), jwtx.VerifyOptions{})
	require.ErrorIs(t, err, jwtx.ErrWeakKey)
}

func TestSessionRoundTrip(t *testing.T) {
	s, v := newPair(t, testKey, jwtx.VerifyOptions{})
	require.Equal(t, "HS256", s.Alg())

	tok, err := s.Sign(jwtx.NewSessionClaims("user-1", "Alice", time.Hour, time.Now()))
	require.NoError(t, err)

	var got jwtx.SessionClaims
	require.NoError(t, v.Verify(tok, &got, ""))
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, "Alice", got.Name)
}

func TestVerifyFailures(t *testing.T) {
	s, v := newPair(t, testKey, jwtx.VerifyOptions{Issuer: "oauth"})
	now := time.Now()

	t.Run("expired", func(t *testing.T) {
		c := jwtx.NewConsentClaims("oauth", "u", "c", time.Minute, now.Add(-time.Hour))
		tok, err := s.Sign(c)
		require.NoError(t, err)
		require.ErrorIs(t, v.Verify(tok, &jwtx.ConsentClaims{}, "c"), jwtx.ErrExpired)
	})

	t.Run("wrong audience", func(t *testing.T) {
		tok, err := s.Sign(jwtx.NewConsentClaims("oauth", "u", "c", time.Minute, now))
		require.NoError(t, err)
		require.ErrorIs(t, v.Verify(tok, &jwtx.ConsentClaims{}, "other"), jwtx.ErrAudience)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		tok, err := s.Sign(jwtx.NewConsentClaims("someone-else", "u", "c", time.Minute, now))
		require.NoError(t, err)
		require.ErrorIs(t, v.Verify(tok, &jwtx.ConsentClaims{}, "c"), jwtx.ErrIssuer)
	})

	t.Run("other key", func(t *testing.T) {
		other, err := jwtx.NewSigner(jwtx.DeriveKey(testKey, "other"))
		require.NoError(t, err)
		tok, err := other.Sign(jwtx.NewConsentClaims("oauth", "u", "c", time.Minute, now))
		require.NoError(t, err)
		require.ErrorIs(t, v.Verify(tok, &jwtx.ConsentClaims{}, "c"), jwtx.ErrInvalidSig)
	})

	t.Run("missing exp", func(t *testing.T) {
		tok, err := s.Sign(jwt.RegisteredClaims{Issuer: "oauth", Subject: "u"})
		require.NoError(t, err)
		require.Error(t, v.Verify(tok, &jwtx.SessionClaims{}, ""))
	})

	t.Run("garbage", func(t *testing.T) {
		require.ErrorIs(t, v.Verify("not.a.jwt", &jwtx.SessionClaims{}, ""), jwtx.ErrMalformed)
	})

	t.Run("alg none", func(t *testing.T) {
		tok, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwtx.NewSessionClaims("u", "", time.Hour, now)).
			SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)
		require.Error(t, v.Verify(tok, &jwtx.SessionClaims{}, ""))
	})
}

func TestConsentClaimsCarryRequest(t *testing.T) {
	s, v := newPair(t, jwtx.DeriveKey(testKey, "consent"), jwtx.VerifyOptions{Issuer: "oauth"})

	c := jwtx.NewConsentClaims("oauth", "user-1", "client-1", time.Minute, time.Now())
	c.RedirectURI = "https://game.example/cb"
	c.Scope = "user:read user:email"
	c.State = "xyz"
	tok, err := s.Sign(c)
	require.NoError(t, err)
	require.Equal(t, 2, strings.Count(tok, "."))

	var got jwtx.ConsentClaims
	require.NoError(t, v.Verify(tok, &got, "client-1"))
	require.Equal(t, "user-1", got.Subject)
	require.Equal(t, c.RedirectURI, got.RedirectURI)
	require.Equal(t, c.Scope, got.Scope)
	require.Equal(t, "xyz", got.State)
}

func TestDeriveKeyIsPurposeBound(t *testing.T) {
	a := jwtx.DeriveKey(testKey, "consent")
	require.Len(t, a, 32)
	require.Equal(t, a, jwtx.DeriveKey(testKey, "consent"))
	require.NotEqual(t, a, jwtx.DeriveKey(testKey, "session"))
}
