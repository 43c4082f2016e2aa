package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/saltoplay/platform/internal/oauth/service"
	"github.com/saltoplay/platform/internal/oauth/store/drivers/sqlite"
	"github.com/saltoplay/platform/pkg/cryptox"
	"github.com/saltoplay/platform/pkg/slogx"
	"github.com/stretchr/testify/require"
)

type testCLI struct {
	*CLI
	out, err *bytes.Buffer
}

func newTestCLI(t *testing.T) *testCLI {
	t.Helper()

	s, err := sqlite.NewStore("file::memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	require.NoError(t, s.ApplyMigrations())

	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	return &testCLI{
		CLI: &CLI{
			Store:        s,
			Applications: &service.ApplicationService{Store: s, Hasher: cryptox.NewSecretHasher([]byte("test-pepper"))},
			Users:        &service.UserService{Store: s, TOTPIssuer: "SaltoPlay Test"},
			Logger:       slogx.Discard(),
			Out:          out,
			Err:          errOut,
		},
		out: out,
		err: errOut,
	}
}

// runJSON runs args with -json and decodes the output into v.
func (c *testCLI) runJSON(t *testing.T, v any, args ...string) {
	t.Helper()
	c.out.Reset()
	require.NoError(t, c.Run(context.Background(), append(args, "-json")), c.err.String())
	require.NoError(t, json.Unmarshal(c.out.Bytes(), v), c.out.String())
}

func TestAppsLifecycle(t *testing.T) {
	cli := newTestCLI(t)

	var registered applicationView
	cli.runJSON(t, &registered, "apps", "register",
		"-name", "Salto Chess",
		"-redirect-uri", "https://chess.example.com/callback",
		"-confidential")
	require.NotEmpty(t, registered.ClientID)
	require.NotEmpty(t, registered.ClientSecret)
	require.Equal(t, "confidential", registered.Type)

	_, err := cli.Applications.Authenticate(context.Background(), registered.ClientID, registered.ClientSecret)
	require.NoError(t, err)

	var rotated map[string]string
	cli.runJSON(t, &rotated, "apps", "rotate-secret", "-id", registered.ClientID)
	require.NotEqual(t, registered.ClientSecret, rotated["client_secret"])

	_, err = cli.Applications.Authenticate(context.Background(), registered.ClientID, registered.ClientSecret)
	require.ErrorIs(t, err, service.ErrInvalidClient)

	var updated map[string]string
	cli.runJSON(t, &updated, "apps", "set-redirect",
		"-id", registered.ClientID,
		"-redirect-uri", "http://127.0.0.1:9000/callback")

	var listed []applicationView
	cli.runJSON(t, &listed, "apps", "list")
	require.Len(t, listed, 1)
	require.Equal(t, "http://127.0.0.1:9000/callback", listed[0].RedirectURI)
	require.Empty(t, listed[0].ClientSecret)

	var deleted map[string]string
	cli.runJSON(t, &deleted, "apps", "delete", "-id", registered.ClientID)

	cli.runJSON(t, &listed, "apps", "list")
	require.Empty(t, listed)
}

func TestAppsRegisterRejectsBadRedirect(t *testing.T) {
	cli := newTestCLI(t)

	err := cli.Run(context.Background(), []string{"apps", "register",
		"-name", "Salto Racer",
		"-redirect-uri", "http://racer.example.com/callback"})
	require.ErrorIs(t, err, service.ErrInvalidRedirect)
}

func TestUsersLifecycle(t *testing.T) {
	cli := newTestCLI(t)

	var created userView
	cli.runJSON(t, &created, "users", "create", "-username", "salto", "-email", "salto@example.com")
	require.NotEmpty(t, created.ID)
	require.False(t, created.TOTP)

	var profile userView
	cli.runJSON(t, &profile, "users", "set-profile",
		"-id", created.ID,
		"-display-name", "Salto",
		"-email", "new@example.com")
	require.Equal(t, "Salto", profile.DisplayName)
	require.Equal(t, "new@example.com", profile.Email)

	var enrollment map[string]string
	cli.runJSON(t, &enrollment, "users", "totp-enroll", "-id", created.ID)
	require.NotEmpty(t, enrollment["secret"])
	require.Contains(t, enrollment["url"], "otpauth://totp/")

	var shown userView
	cli.runJSON(t, &shown, "users", "show", "-username", "salto")
	require.True(t, shown.TOTP)

	var disabled map[string]string
	cli.runJSON(t, &disabled, "users", "totp-disable", "-id", created.ID)
	cli.runJSON(t, &shown, "users", "show", "-id", created.ID)
	require.False(t, shown.TOTP)

	err := cli.Run(context.Background(), []string{"users", "create", "-username", "salto"})
	require.ErrorIs(t, err, service.ErrUsernameTaken)
}

func TestTextOutput(t *testing.T) {
	cli := newTestCLI(t)

	require.NoError(t, cli.Run(context.Background(), []string{"apps", "register",
		"-name", "Salto Racer",
		"-redirect-uri", "https://racer.example.com/callback"}))
	require.Contains(t, cli.out.String(), "client_id")
	require.Contains(t, cli.out.String(), "public")
	require.NotContains(t, cli.out.String(), "client_secret")

	cli.out.Reset()
	require.NoError(t, cli.Run(context.Background(), []string{"apps", "list"}))
	require.Contains(t, cli.out.String(), "CLIENT ID")
	require.Contains(t, cli.out.String(), "Salto Racer")
}

func TestHousekeepingRun(t *testing.T) {
	cli := newTestCLI(t)

	var result map[string]int64
	cli.runJSON(t, &result, "housekeeping", "run")
	require.Equal(t, int64(0), result["removed"])
}

func TestUsageErrors(t *testing.T) {
	cli := newTestCLI(t)
	ctx := context.Background()

	for name, args := range map[string][]string{
		"no command":       nil,
		"unknown command":  {"apps", "launch"},
		"missing required": {"apps", "rotate-secret"},
		"unknown flag":     {"users", "create", "-nickname", "x"},
		"stray argument":   {"apps", "list", "extra"},
		"show without key": {"users", "show"},
	} {
		t.Run(name, func(t *testing.T) {
			cli.err.Reset()
			require.ErrorIs(t, cli.Run(ctx, args), ErrUsage)
			require.NotEmpty(t, cli.err.String())
		})
	}
}

func TestLoadConfigReadsCacheSettings(t *testing.T) {
	t.Setenv("OAUTH_REDIS_ADDR", "redis:6379")
	t.Setenv("OAUTH_REDIS_DB", "2")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	require.Equal(t, "redis:6379", cfg.RedisAddr)
	require.Equal(t, 2, cfg.RedisDB)
	require.Equal(t, "sqlite", cfg.DatabaseDriver)
}
