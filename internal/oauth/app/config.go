package app

import (
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/saltoplay/platform/internal/oauth/domain"
	"github.com/saltoplay/platform/pkg/httpx"
	"github.com/saltoplay/platform/pkg/jwtx"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

type Config struct {
	Env       string `env:"ENV" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	Port      int    `env:"PORT" envDefault:"8080"`

	DatabaseDriver string `env:"OAUTH_DATABASE_DRIVER" envDefault:"sqlite"`
	DatabaseDSN    string `env:"OAUTH_DATABASE_DSN" envDefault:"file:oauth.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`
	PepperFile     string `env:"OAUTH_PEPPER_FILE" envDefault:"pepper"`

	// SessionSecret is shared with the platform web app, which signs the
	// session tokens. Consent tickets use a key derived from it.
	SessionSecret string `env:"OAUTH_SESSION_SECRET"`
	SessionCookie string `env:"OAUTH_SESSION_COOKIE" envDefault:"salto_session"`
	Issuer        string `env:"OAUTH_ISSUER" envDefault:"saltoplay"`
	LoginURL      string `env:"OAUTH_LOGIN_URL"`
	TOTPIssuer    string `env:"OAUTH_TOTP_ISSUER" envDefault:"SaltoPlay"`

	AllowedScopes []string      `env:"OAUTH_ALLOWED_SCOPES" envSeparator:"," envDefault:"user:read,user:email"`
	CodeTTL       time.Duration `env:"OAUTH_CODE_TTL" envDefault:"10m"`
	ConsentTTL    time.Duration `env:"OAUTH_CONSENT_TTL" envDefault:"10m"`
	AccessTTL     time.Duration `env:"OAUTH_ACCESS_TTL" envDefault:"1h"`
	RefreshTTL    time.Duration `env:"OAUTH_REFRESH_TTL" envDefault:"720h"`

	// Token cache. Empty RedisAddr disables it.
	RedisAddr     string        `env:"OAUTH_REDIS_ADDR"`
	RedisPassword string        `env:"OAUTH_REDIS_PASSWORD"`
	RedisDB       int           `env:"OAUTH_REDIS_DB" envDefault:"0"`
	TokenCacheTTL time.Duration `env:"OAUTH_TOKEN_CACHE_TTL" envDefault:"5m"`

	// OTLP/HTTP endpoint, e.g. http://otel-collector:4318. Empty disables
	// tracing export.
	OTelEndpoint string `env:"OTEL_ENDPOINT"`

	ShutdownGracePeriod  time.Duration `env:"SHUTDOWN_GRACE_PERIOD" envDefault:"10s"`
	HousekeepingInterval time.Duration `env:"HOUSEKEEPING_INTERVAL" envDefault:"1h"`

	RateLimits httpx.RateLimits `envPrefix:"RATELIMIT_"`
}

// LoadConfig reads the environment. Rate limit profiles not overridden keep
// their defaults.
func LoadConfig() (Config, error) {
	return parseConfig(env.Options{})
}

func parseConfig(opts env.Options) (Config, error) {
	cfg := Config{RateLimits: httpx.DefaultRateLimits()}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, cfg.Validate()
}

func (c Config) Validate() error {
	var errs []error

	switch c.DatabaseDriver {
	case DriverSQLite, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("OAUTH_DATABASE_DRIVER: unknown driver %q", c.DatabaseDriver))
	}
	if c.DatabaseDSN == "" {
		errs = append(errs, errors.New("OAUTH_DATABASE_DSN is required"))
	}

	if c.SessionSecret == "" {
		errs = append(errs, errors.New("OAUTH_SESSION_SECRET is required"))
	} else if len(c.SessionSecret) < jwtx.MinKeySize {
		errs = append(errs, fmt.Errorf("OAUTH_SESSION_SECRET must be at least %d bytes", jwtx.MinKeySize))
	}

	if c.LoginURL != "" {
		if u, err := url.Parse(c.LoginURL); err != nil || !u.IsAbs() {
			errs = append(errs, errors.New("OAUTH_LOGIN_URL must be an absolute URL"))
		}
	}

	if len(c.AllowedScopes) == 0 {
		errs = append(errs, errors.New("OAUTH_ALLOWED_SCOPES must not be empty"))
	}
	for _, s := range c.AllowedScopes {
		if len(domain.ParseScopes(s)) != 1 {
			errs = append(errs, fmt.Errorf("OAUTH_ALLOWED_SCOPES: invalid scope %q", s))
		}
	}

	for name, d := range map[string]time.Duration{
		"OAUTH_CODE_TTL":        c.CodeTTL,
		"OAUTH_CONSENT_TTL":     c.ConsentTTL,
		"OAUTH_ACCESS_TTL":      c.AccessTTL,
		"OAUTH_REFRESH_TTL":     c.RefreshTTL,
		"HOUSEKEEPING_INTERVAL": c.HousekeepingInterval,
	} {
		if d <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive", name))
		}
	}

	for name, rl := range map[string]httpx.RateLimitConfig{
		"STRICT":   c.RateLimits.Strict,
		"MODERATE": c.RateLimits.Moderate,
		"LENIENT":  c.RateLimits.Lenient,
		"PUBLIC":   c.RateLimits.Public,
	} {
		if rl.RequestsPerWindow <= 0 || rl.Window <= 0 || rl.Burst <= 0 {
			errs = append(errs, fmt.Errorf("RATELIMIT_%s_* values must be positive", name))
		}
	}

	return errors.Join(errs...)
}
