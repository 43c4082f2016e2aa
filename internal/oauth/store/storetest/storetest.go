// Package storetest is a conformance suite every store driver runs.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/internal/oauth/store"
	"github.com/saltoplay/platform/pkg/cryptox"
	"github.com/saltoplay/platform/pkg/idx"
	"github.com/stretchr/testify/require"
)

// Factory returns a migrated, empty store. It is called once per subtest.
type Factory func(t *testing.T) store.Store

// Run exercises every repository against the store from newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("Applications", func(t *testing.T) { testApplications(t, newStore(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newStore(t)) })
	t.Run("AuthorizationCodes", func(t *testing.T) { testAuthorizationCodes(t, newStore(t)) })
	t.Run("ConcurrentConsume", func(t *testing.T) { testConcurrentConsume(t, newStore(t)) })
	t.Run("Tokens", func(t *testing.T) { testTokens(t, newStore(t)) })
	t.Run("Housekeeping", func(t *testing.T) { testHousekeeping(t, newStore(t)) })
	t.Run("Transactions", func(t *testing.T) { testTransactions(t, newStore(t)) })
	t.Run("Cascade", func(t *testing.T) { testCascade(t, newStore(t)) })
}

func now() time.Time { return time.Now().UTC().Truncate(time.Millisecond) }

// FakeUser returns a user with random profile data.
func FakeUser() domain.User {
	ts := now()
	return domain.User{
		ID:          idx.New().String(),
		Username:    gofakeit.Username() + gofakeit.DigitN(4),
		DisplayName: gofakeit.Name(),
		Email:       gofakeit.Email(),
		AvatarURL:   gofakeit.URL(),
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

// FakeApplication returns a confidential application with a random name.
func FakeApplication() domain.Application {
	ts := now()
	return domain.Application{
		ID:          idx.New().String(),
		Name:        gofakeit.AppName(),
		SecretHash:  "$argon2id$v=19$m=19456,t=2,p=1$c2FsdA$aGFzaA",
		RedirectURI: "https://" + gofakeit.DomainName() + "/callback",
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

func seed(t *testing.T, s store.Store) (domain.Application, domain.User) {
	t.Helper()
	ctx := context.Background()

	app := FakeApplication()
	require.NoError(t, s.Applications().CreateApplication(ctx, app))
	user := FakeUser()
	require.NoError(t, s.Users().CreateUser(ctx, user))
	return app, user
}

func newCode(app domain.Application, user domain.User, ttl time.Duration) domain.AuthorizationCode {
	ts := now()
	return domain.AuthorizationCode{
		ID:                  idx.New().String(),
		CodeHash:            cryptox.FingerprintToken(gofakeit.UUID()),
		ClientID:            app.ID,
		UserID:              user.ID,
		RedirectURI:         app.RedirectURI,
		Scopes:              []string{domain.ScopeUserRead, domain.ScopeUserEmail},
		CodeChallenge:       cryptox.S256Challenge("verifier"),
		CodeChallengeMethod: cryptox.PKCEMethodS256,
		ExpiresAt:           ts.Add(ttl),
		CreatedAt:           ts,
	}
}

func testApplications(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.Applications()

	_, err := repo.GetApplicationByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)

	app := FakeApplication()
	require.NoError(t, repo.CreateApplication(ctx, app))
	require.ErrorIs(t, repo.CreateApplication(ctx, app), store.ErrAlreadyExists)

	got, err := repo.GetApplicationByID(ctx, app.ID)
	require.NoError(t, err)
	require.Equal(t, app, got)

	public := FakeApplication()
	public.SecretHash = ""
	public.CreatedAt = app.CreatedAt.Add(time.Second)
	require.NoError(t, repo.CreateApplication(ctx, public))

	list, err := repo.ListApplications(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	require.Equal(t, public.ID, list[0].ID, "newest first")
	require.False(t, list[0].IsConfidential())

	later := now().Add(time.Minute)
	require.NoError(t, repo.UpdateApplicationSecretHash(ctx, app.ID, "new-hash", later))
	require.NoError(t, repo.UpdateApplicationRedirectURI(ctx, app.ID, "https://new.example.com/cb", later))
	got, err = repo.GetApplicationByID(ctx, app.ID)
	require.NoError(t, err)
	require.Equal(t, "new-hash", got.SecretHash)
	require.Equal(t, "https://new.example.com/cb", got.RedirectURI)
	require.Equal(t, later, got.UpdatedAt)

	require.ErrorIs(t, repo.UpdateApplicationSecretHash(ctx, "missing", "x", later), store.ErrNotFound)

	require.NoError(t, repo.DeleteApplication(ctx, app.ID))
	require.ErrorIs(t, repo.DeleteApplication(ctx, app.ID), store.ErrNotFound)
}

func testUsers(t *testing.T, s store.Store) {
	ctx := context.Background()
	repo := s.Users()

	u := FakeUser()
	require.NoError(t, repo.CreateUser(ctx, u))

	dup := FakeUser()
	dup.Username = u.Username
	require.ErrorIs(t, repo.CreateUser(ctx, dup), store.ErrAlreadyExists)

	got, err := repo.GetUserByUsername(ctx, u.Username)
	require.NoError(t, err)
	require.Equal(t, u, got)
	require.Nil(t, got.TOTPSecret)

	u.DisplayName = "Renamed"
	u.Email = "renamed@example.com"
	u.UpdatedAt = now().Add(time.Second)
	require.NoError(t, repo.UpdateUserProfile(ctx, u))

	secret := "JBSWY3DPEHPK3PXP"
	require.NoError(t, repo.UpdateUserTOTPSecret(ctx, u.ID, &secret, now()))

	got, err = repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.Equal(t, "Renamed", got.DisplayName)
	require.Equal(t, "renamed@example.com", got.Email)
	require.True(t, got.HasTOTP())

	require.NoError(t, repo.UpdateUserTOTPSecret(ctx, u.ID, nil, now()))
	got, err = repo.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	require.False(t, got.HasTOTP())

	_, err = repo.GetUserByID(ctx, "missing")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testAuthorizationCodes(t *testing.T, s store.Store) {
	ctx := context.Background()
	app, user := seed(t, s)
	repo := s.AuthorizationCodes()

	code := newCode(app, user, 10*time.Minute)
	require.NoError(t, repo.CreateAuthorizationCode(ctx, code))
	require.ErrorIs(t, repo.CreateAuthorizationCode(ctx, code), store.ErrAlreadyExists)

	got, err := repo.ConsumeAuthorizationCode(ctx, code.CodeHash)
	require.NoError(t, err)
	require.Equal(t, code, got)

	_, err = repo.ConsumeAuthorizationCode(ctx, code.CodeHash)
	require.ErrorIs(t, err, store.ErrNotFound, "codes are single use")
}

func testConcurrentConsume(t *testing.T, s store.Store) {
	ctx := context.Background()
	app, user := seed(t, s)

	code := newCode(app, user, 10*time.Minute)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.WithTx(ctx, func(tx store.Tx) error {
				_, err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.CodeHash)
				return err
			})
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
				return
			}
			if !errors.Is(err, store.ErrNotFound) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, wins)
}

func testTokens(t *testing.T, s store.Store) {
	ctx := context.Background()
	app, user := seed(t, s)
	ts := now()

	rt := domain.RefreshToken{
		ID:        idx.New().String(),
		TokenHash: cryptox.FingerprintToken("refresh"),
		ClientID:  app.ID,
		UserID:    user.ID,
		Scopes:    []string{domain.ScopeUserRead},
		ExpiresAt: ts.Add(24 * time.Hour),
		CreatedAt: ts,
	}
	require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt))

	at := domain.AccessToken{
		ID:             idx.New().String(),
		TokenHash:      cryptox.FingerprintToken("access"),
		ClientID:       app.ID,
		UserID:         user.ID,
		Scopes:         []string{domain.ScopeUserRead},
		RefreshTokenID: rt.ID,
		ExpiresAt:      ts.Add(time.Hour),
		CreatedAt:      ts,
	}
	require.NoError(t, s.AccessTokens().CreateAccessToken(ctx, at))

	gotAT, err := s.AccessTokens().GetAccessTokenByHash(ctx, at.TokenHash)
	require.NoError(t, err)
	require.Equal(t, at, gotAT)

	gotRT, err := s.RefreshTokens().GetRefreshTokenByHash(ctx, rt.TokenHash)
	require.NoError(t, err)
	require.Equal(t, rt, gotRT)
	require.True(t, gotRT.Usable(ts))

	require.NoError(t, s.RefreshTokens().RevokeRefreshToken(ctx, rt.ID, ts))
	require.ErrorIs(t, s.RefreshTokens().RevokeRefreshToken(ctx, rt.ID, ts), store.ErrNotFound,
		"revoking twice loses")

	gotRT, err = s.RefreshTokens().GetRefreshTokenByHash(ctx, rt.TokenHash)
	require.NoError(t, err)
	require.NotNil(t, gotRT.RevokedAt)
	require.Equal(t, ts, *gotRT.RevokedAt)

	hashes, err := s.AccessTokens().DeleteAccessTokensByRefreshTokenID(ctx, rt.ID)
	require.NoError(t, err)
	require.Equal(t, []string{at.TokenHash}, hashes)

	_, err = s.AccessTokens().GetAccessTokenByHash(ctx, at.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)

	standalone := at
	standalone.ID = idx.New().String()
	standalone.TokenHash = cryptox.FingerprintToken("standalone")
	standalone.RefreshTokenID = ""
	require.NoError(t, s.AccessTokens().CreateAccessToken(ctx, standalone))

	deleted, err := s.AccessTokens().DeleteAccessTokenByHash(ctx, standalone.TokenHash)
	require.NoError(t, err)
	require.Equal(t, standalone, deleted)
	_, err = s.AccessTokens().DeleteAccessTokenByHash(ctx, standalone.TokenHash)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func testHousekeeping(t *testing.T, s store.Store) {
	ctx := context.Background()
	app, user := seed(t, s)
	ts := now()

	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, newCode(app, user, -time.Minute)))
	live := newCode(app, user, time.Minute)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, live))

	for i, exp := range []time.Duration{-time.Minute, time.Hour} {
		require.NoError(t, s.AccessTokens().CreateAccessToken(ctx, domain.AccessToken{
			ID:        idx.New().String(),
			TokenHash: cryptox.FingerprintToken(gofakeit.UUID()),
			ClientID:  app.ID,
			UserID:    user.ID,
			ExpiresAt: ts.Add(exp),
			CreatedAt: ts,
		}), "access %d", i)
	}

	revokedAt := ts
	for i, rt := range []domain.RefreshToken{
		{ExpiresAt: ts.Add(-time.Minute)},
		{ExpiresAt: ts.Add(time.Hour), RevokedAt: &revokedAt},
		{ExpiresAt: ts.Add(time.Hour)},
	} {
		rt.ID = idx.New().String()
		rt.TokenHash = cryptox.FingerprintToken(gofakeit.UUID())
		rt.ClientID = app.ID
		rt.UserID = user.ID
		rt.CreatedAt = ts
		require.NoError(t, s.RefreshTokens().CreateRefreshToken(ctx, rt), "refresh %d", i)
	}

	n, err := s.AuthorizationCodes().DeleteExpiredAuthorizationCodes(ctx, ts)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.AccessTokens().DeleteExpiredAccessTokens(ctx, ts)
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	n, err = s.RefreshTokens().DeleteExpiredRefreshTokens(ctx, ts)
	require.NoError(t, err)
	require.EqualValues(t, 2, n)

	_, err = s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, live.CodeHash)
	require.NoError(t, err)
}

func testTransactions(t *testing.T, s store.Store) {
	ctx := context.Background()
	app, user := seed(t, s)
	code := newCode(app, user, time.Minute)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	boom := errors.New("boom")
	err := s.WithTx(ctx, func(tx store.Tx) error {
		_, err := tx.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.CodeHash)
		require.NoError(t, err)
		return boom
	})
	require.ErrorIs(t, err, boom)

	// Rolled back, so the code is still there.
	_, err = s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.CodeHash)
	require.NoError(t, err)

	tx, err := s.Tx(ctx)
	require.NoError(t, err)
	defer func() { _ = tx.Rollback() }()
	_, err = tx.Tx(ctx)
	require.Error(t, err, "nested transactions are not supported")
	require.NoError(t, tx.Ping(ctx))
	require.NoError(t, tx.ApplyMigrations())
}

func testCascade(t *testing.T, s store.Store) {
	ctx := context.Background()
	app, user := seed(t, s)
	other, _ := seed(t, s)
	code := newCode(app, user, time.Minute)
	require.NoError(t, s.AuthorizationCodes().CreateAuthorizationCode(ctx, code))

	newAccessToken := func(clientID, raw string) domain.AccessToken {
		ts := now()
		at := domain.AccessToken{
			ID:        idx.New().String(),
			TokenHash: cryptox.FingerprintToken(raw),
			ClientID:  clientID,
			UserID:    user.ID,
			Scopes:    []string{domain.ScopeUserRead},
			ExpiresAt: ts.Add(time.Hour),
			CreatedAt: ts,
		}
		require.NoError(t, s.AccessTokens().CreateAccessToken(ctx, at))
		return at
	}
	first := newAccessToken(app.ID, "access-1")
	second := newAccessToken(app.ID, "access-2")
	kept := newAccessToken(other.ID, "access-3")

	hashes, err := s.AccessTokens().DeleteAccessTokensByApplicationID(ctx, app.ID)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{first.TokenHash, second.TokenHash}, hashes)

	_, err = s.AccessTokens().GetAccessTokenByHash(ctx, kept.TokenHash)
	require.NoError(t, err)

	require.NoError(t, s.Applications().DeleteApplication(ctx, app.ID))

	_, err = s.AuthorizationCodes().ConsumeAuthorizationCode(ctx, code.CodeHash)
	require.ErrorIs(t, err, store.ErrNotFound)
}
