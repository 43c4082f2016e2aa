package domain_test

import (
	"testing"
	"time"

	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/stretchr/testify/require"
)

func TestValidateRedirectURI(t *testing.T) {
	ok := []string{
		"https://game.example.com/cb",
		"https://game.example.com/cb?x=1",
		"http://localhost:8080/cb",
		"http://127.0.0.1/cb",
		"http://[::1]:9000/cb",
	}
	for _, u := range ok {
		require.NoError(t, domain.ValidateRedirectURI(u), u)
	}

	bad := []string{
		"",
		"/relative",
		"http://game.example.com/cb",
		"https://game.example.com/cb#frag",
		"https://user:pw@game.example.com/cb",
		"javascript:alert(1)",
		"ftp://game.example.com/",
	}
	for _, u := range bad {
		require.ErrorIs(t, domain.ValidateRedirectURI(u), domain.ErrRedirectURIFormat, u)
	}
}

func TestParseScopes(t *testing.T) {
	require.Nil(t, domain.ParseScopes("  "))
	require.Equal(t, []string{"user:read", "user:email"}, domain.ParseScopes("user:read  user:email user:read"))
	require.Equal(t, "user:read user:email", domain.JoinScopes([]string{"user:read", "user:email"}))
}

func TestUnknownScopes(t *testing.T) {
	require.Nil(t, domain.UnknownScopes([]string{"user:read"}, domain.DefaultAllowedScopes))
	require.Equal(t, []string{"admin", "chat:write"},
		domain.UnknownScopes([]string{"admin", "user:read", "chat:write"}, domain.DefaultAllowedScopes))
}

func TestPrincipals(t *testing.T) {
	var p domain.Principal = domain.SessionUser{UserID: "u1"}
	require.Equal(t, "u1", p.Subject())

	p = domain.OAuthPrincipal{UserID: "u2", Scopes: []string{domain.ScopeUserRead}}
	require.Equal(t, "u2", p.Subject())

	op, ok := p.(domain.OAuthPrincipal)
	require.True(t, ok)
	require.True(t, op.HasScope(domain.ScopeUserRead))
	require.False(t, op.HasScope(domain.ScopeUserEmail))
}

func TestExpiryBoundaries(t *testing.T) {
	now := time.Now()

	code := domain.AuthorizationCode{ExpiresAt: now}
	require.True(t, code.Expired(now))
	require.False(t, code.Expired(now.Add(-time.Nanosecond)))

	at := domain.AccessToken{ExpiresAt: now.Add(time.Hour)}
	require.False(t, at.Expired(now))

	rt := domain.RefreshToken{ExpiresAt: now.Add(time.Hour)}
	require.True(t, rt.Usable(now))
	rt.RevokedAt = &now
	require.False(t, rt.Usable(now))
}

func TestApplicationConfidential(t *testing.T) {
	require.False(t, domain.Application{}.IsConfidential())
	require.True(t, domain.Application{SecretHash: "$argon2id$..."}.IsConfidential())

	secret := ""
	require.False(t, domain.User{TOTPSecret: &secret}.HasTOTP())
	secret = "JBSWY3DPEHPK3PXP"
	require.True(t, domain.User{TOTPSecret: &secret}.HasTOTP())
}
