package service

import (
	"context"
	"testing"
	"time"

	"github.com/saltoplay/platform/pkg/cryptox"
	"github.com/saltoplay/platform/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestHousekeepingCleanup(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	app := env.publicApp(t)
	user := env.user(t)

	// One live pair, one code left to expire, one pair already expired.
	live := env.issueCode(t, pkceRequest(app), user)
	livePair, err := env.tokens.ExchangeAuthorizationCode(ctx, exchange(app, "", live))
	require.NoError(t, err)

	env.authorize.CodeTTL = time.Nanosecond
	stale := env.issueCode(t, pkceRequest(app), user)
	env.authorize.CodeTTL = 0

	env.tokens.AccessTTL = time.Nanosecond
	env.tokens.RefreshTTL = time.Nanosecond
	code := env.issueCode(t, pkceRequest(app), user)
	_, err = env.tokens.ExchangeAuthorizationCode(ctx, exchange(app, "", code))
	require.NoError(t, err)
	time.Sleep(2 * time.Millisecond)

	hk := NewHousekeepingService(env.store, slogx.Discard(), 0)
	require.Equal(t, time.Hour, hk.Interval)
	require.EqualValues(t, 3, hk.Cleanup(ctx))
	require.EqualValues(t, 0, hk.Cleanup(ctx))

	_, err = env.store.AuthorizationCodes().ConsumeAuthorizationCode(ctx, cryptox.FingerprintToken(stale))
	require.Error(t, err)

	_, err = env.tokens.ValidateAccessToken(ctx, livePair.AccessToken)
	require.NoError(t, err)
}

func TestHousekeepingStartStop(t *testing.T) {
	env := newTestEnv(t)

	hk := NewHousekeepingService(env.store, slogx.Discard(), 10*time.Millisecond)
	hk.Start()
	time.Sleep(30 * time.Millisecond)
	hk.Stop()
}
