package app

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/saltoplay/platform/pkg/httpx"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func parseFrom(t *testing.T, vars map[string]string) (Config, error) {
	t.Helper()
	return parseConfig(env.Options{Environment: vars})
}

func TestConfigDefaults(t *testing.T) {
	cfg, err := parseFrom(t, map[string]string{"OAUTH_SESSION_SECRET": testSecret})
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, DriverSQLite, cfg.DatabaseDriver)
	require.Equal(t, "salto_session", cfg.SessionCookie)
	require.Equal(t, []string{"user:read", "user:email"}, cfg.AllowedScopes)
	require.Equal(t, 10*time.Minute, cfg.CodeTTL)
	require.Equal(t, time.Hour, cfg.AccessTTL)
	require.Equal(t, 30*24*time.Hour, cfg.RefreshTTL)
	require.Equal(t, time.Hour, cfg.HousekeepingInterval)
	require.Empty(t, cfg.RedisAddr)
	require.Equal(t, httpx.DefaultRateLimits(), cfg.RateLimits)
}

func TestConfigOverrides(t *testing.T) {
	cfg, err := parseFrom(t, map[string]string{
		"OAUTH_SESSION_SECRET":    testSecret,
		"PORT":                    "9000",
		"OAUTH_DATABASE_DRIVER":   "postgres",
		"OAUTH_DATABASE_DSN":      "postgres://oauth:oauth@db:5432/oauth?sslmode=disable",
		"OAUTH_ALLOWED_SCOPES":    "user:read",
		"OAUTH_ACCESS_TTL":        "15m",
		"OAUTH_REDIS_ADDR":        "redis:6379",
		"RATELIMIT_STRICT_BURST":  "3",
		"RATELIMIT_STRICT_WINDOW": "30s",
	})
	require.NoError(t, err)

	require.Equal(t, 9000, cfg.Port)
	require.Equal(t, DriverPostgres, cfg.DatabaseDriver)
	require.Equal(t, []string{"user:read"}, cfg.AllowedScopes)
	require.Equal(t, 15*time.Minute, cfg.AccessTTL)
	require.Equal(t, "redis:6379", cfg.RedisAddr)

	defaults := httpx.DefaultRateLimits()
	require.Equal(t, 3, cfg.RateLimits.Strict.Burst)
	require.Equal(t, 30*time.Second, cfg.RateLimits.Strict.Window)
	require.Equal(t, defaults.Strict.RequestsPerWindow, cfg.RateLimits.Strict.RequestsPerWindow)
	require.Equal(t, defaults.Public, cfg.RateLimits.Public)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
		want string
	}{
		{
			name: "missing session secret",
			vars: map[string]string{},
			want: "OAUTH_SESSION_SECRET is required",
		},
		{
			name: "short session secret",
			vars: map[string]string{"OAUTH_SESSION_SECRET": "short"},
			want: "at least 32 bytes",
		},
		{
			name: "unknown driver",
			vars: map[string]string{"OAUTH_SESSION_SECRET": testSecret, "OAUTH_DATABASE_DRIVER": "mysql"},
			want: `unknown driver "mysql"`,
		},
		{
			name: "relative login url",
			vars: map[string]string{"OAUTH_SESSION_SECRET": testSecret, "OAUTH_LOGIN_URL": "/login"},
			want: "OAUTH_LOGIN_URL",
		},
		{
			name: "zero code ttl",
			vars: map[string]string{"OAUTH_SESSION_SECRET": testSecret, "OAUTH_CODE_TTL": "0s"},
			want: "OAUTH_CODE_TTL must be positive",
		},
		{
			name: "zero rate limit",
			vars: map[string]string{"OAUTH_SESSION_SECRET": testSecret, "RATELIMIT_PUBLIC_REQUESTS": "0"},
			want: "RATELIMIT_PUBLIC_*",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseFrom(t, tt.vars)
			require.ErrorContains(t, err, tt.want)
		})
	}
}

func TestConfigRejectsMalformedDuration(t *testing.T) {
	_, err := parseFrom(t, map[string]string{
		"OAUTH_SESSION_SECRET": testSecret,
		"OAUTH_REFRESH_TTL":    "forever",
	})
	require.ErrorContains(t, err, "parse env")
}
