//go:build e2e

package cache_test

import (
	"context"
	"testing"
	"time"

	"github.com/saltoplay/platform/internal/oauth/cache"
	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	ctr, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ctr.Terminate(context.Background()) })

	endpoint, err := ctr.Endpoint(ctx, "")
	require.NoError(t, err)
	return endpoint
}

func TestRedisRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := cache.NewRedis(cache.RedisConfig{Addr: startRedis(t), TTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.Ping(ctx))

	now := time.Now().UTC().Truncate(time.Millisecond)
	tok := domain.AccessToken{
		ID:        "at1",
		TokenHash: "hash1",
		ClientID:  "game",
		UserID:    "u1",
		Scopes:    []string{domain.ScopeUserRead},
		ExpiresAt: now.Add(time.Hour),
		CreatedAt: now,
	}

	_, err := c.GetAccessToken(ctx, tok.TokenHash)
	require.ErrorIs(t, err, cache.ErrMiss)

	require.NoError(t, c.SetAccessToken(ctx, tok))
	got, err := c.GetAccessToken(ctx, tok.TokenHash)
	require.NoError(t, err)
	require.Equal(t, tok.UserID, got.UserID)
	require.Equal(t, tok.Scopes, got.Scopes)
	require.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))

	require.NoError(t, c.DeleteAccessTokens(ctx, tok.TokenHash))
	_, err = c.GetAccessToken(ctx, tok.TokenHash)
	require.ErrorIs(t, err, cache.ErrMiss)
}

func TestRedisSkipsExpiredTokens(t *testing.T) {
	ctx := context.Background()
	c := cache.NewRedis(cache.RedisConfig{Addr: startRedis(t), TTL: time.Minute})
	t.Cleanup(func() { _ = c.Close() })

	require.NoError(t, c.SetAccessToken(ctx, domain.AccessToken{
		TokenHash: "stale",
		ExpiresAt: time.Now().Add(-time.Second),
	}))
	_, err := c.GetAccessToken(ctx, "stale")
	require.ErrorIs(t, err, cache.ErrMiss)
}
