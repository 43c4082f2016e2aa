package service

import (
	"context"
	"net/url"
	"sync"
	"testing"

	"github.com/saltoplay/platform/internal/oauth/cache"
	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/store"
	"github.com/saltoplay/platform/internal/oauth/store/drivers/sqlite"
	"github.com/saltoplay/platform/internal/oauth/store/storetest"
	"github.com/saltoplay/platform/pkg/cryptox"
	"github.com/stretchr/testify/require"
)

const (
	testRedirect = "https://game.example.com/callback"
	testVerifier = "dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"
)

type testEnv struct {
	store     store.Store
	cache     *memCache
	apps      *ApplicationService
	authorize *AuthorizeService
	tokens    *TokenService
	userinfo  *UserInfoService
	users     *UserService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	s, err := sqlite.NewStore("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	mc := newMemCache()
	apps := &ApplicationService{Store: s, Hasher: cryptox.NewSecretHasher([]byte("test-pepper")), Cache: mc}

	return &testEnv{
		store:     s,
		cache:     mc,
		apps:      apps,
		authorize: &AuthorizeService{Store: s},
		tokens:    &TokenService{Store: s, Applications: apps, Cache: mc},
		userinfo:  &UserInfoService{Store: s},
		users:     &UserService{Store: s, TOTPIssuer: "SaltoPlay Test"},
	}
}

func (e *testEnv) publicApp(t *testing.T) domain.Application {
	t.Helper()
	app, secret, err := e.apps.RegisterApplication(context.Background(), "Salto Racer", testRedirect, false)
	require.NoError(t, err)
	require.Empty(t, secret)
	return app
}

func (e *testEnv) confidentialApp(t *testing.T) (domain.Application, string) {
	t.Helper()
	app, secret, err := e.apps.RegisterApplication(context.Background(), "Salto Chess", testRedirect, true)
	require.NoError(t, err)
	require.NotEmpty(t, secret)
	return app, secret
}

func (e *testEnv) user(t *testing.T) domain.User {
	t.Helper()
	u, err := e.users.CreateUser(context.Background(), storetest.FakeUser())
	require.NoError(t, err)
	return u
}

func session(u domain.User) domain.SessionUser {
	return domain.SessionUser{UserID: u.ID, Name: u.Username}
}

// pkceRequest is a valid authorization request for app using S256.
func pkceRequest(app domain.Application, scopes ...string) AuthorizeRequest {
	return AuthorizeRequest{
		ResponseType:  "code",
		ClientID:      app.ID,
		RedirectURI:   app.RedirectURI,
		Scopes:        scopes,
		State:         "xyz",
		CodeChallenge: cryptox.S256Challenge(testVerifier),
	}
}

// issueCode runs an approved authorization request and returns the code.
func (e *testEnv) issueCode(t *testing.T, req AuthorizeRequest, u domain.User) string {
	t.Helper()
	res, err := e.authorize.Authorize(context.Background(), req, session(u), "")
	require.NoError(t, err)

	redirect, err := url.Parse(res.RedirectURI)
	require.NoError(t, err)
	require.Equal(t, res.Code, redirect.Query().Get("code"))
	return res.Code
}

// memCache is an in-process TokenCache that records reads.
type memCache struct {
	mu     sync.Mutex
	tokens map[string]domain.AccessToken
	hits   int

	// beforeSet runs once, ahead of the next write.
	beforeSet func(domain.AccessToken)
}

func newMemCache() *memCache {
	return &memCache{tokens: map[string]domain.AccessToken{}}
}

func (c *memCache) GetAccessToken(_ context.Context, hash string) (domain.AccessToken, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t, ok := c.tokens[hash]
	if !ok {
		return domain.AccessToken{}, cache.ErrMiss
	}
	c.hits++
	return t, nil
}

func (c *memCache) SetAccessToken(_ context.Context, t domain.AccessToken) error {
	c.mu.Lock()
	hook := c.beforeSet
	c.beforeSet = nil
	c.mu.Unlock()
	if hook != nil {
		hook(t)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[t.TokenHash] = t
	return nil
}

func (c *memCache) DeleteAccessTokens(_ context.Context, hashes ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, h := range hashes {
		delete(c.tokens, h)
	}
	return nil
}

func (c *memCache) Ping(context.Context) error { return nil }
func (c *memCache) Close() error               { return nil }

func (c *memCache) has(hash string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tokens[hash]
	return ok
}
