package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saltoplay/platform/internal/oauth/cache"
	httpapi "github.com/saltoplay/platform/internal/oauth/http"
	"github.com/saltoplay/platform/internal/oauth/service"
	"github.com/saltoplay/platform/internal/oauth/store"
	"github.com/saltoplay/platform/internal/oauth/store/drivers/postgres"
	"github.com/saltoplay/platform/internal/oauth/store/drivers/sqlite"
	"github.com/saltoplay/platform/pkg/cryptox"
	"github.com/saltoplay/platform/pkg/jwtx"
	"github.com/saltoplay/platform/pkg/otelx"
	"github.com/saltoplay/platform/pkg/slogx"
)

const ServiceName = "oauth-provider"

// BuildVersion is overridden at build time with -ldflags "-X".
var BuildVersion = "v0.1.0"

// Application owns the provider's dependencies and their lifecycle.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db              store.Store
	tokenCache      cache.TokenCache // nil when no redis is configured
	shutdownTracing func(context.Context) error

	applicationService  *service.ApplicationService
	authorizeService    *service.AuthorizeService
	tokenService        *service.TokenService
	userInfoService     *service.UserInfoService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New builds an Application from cfg. Nothing is listening until Run.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: ServiceName,
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initTracing(); err != nil {
		return nil, err
	}
	if err := app.initDatabase(); err != nil {
		app.closeResources()
		return nil, err
	}
	app.initCache()

	if err := app.initServices(); err != nil {
		app.closeResources()
		return nil, err
	}
	if err := app.initHTTP(); err != nil {
		app.closeResources()
		return nil, err
	}

	return app, nil
}

// Run serves until SIGINT/SIGTERM or a server failure.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("oauth provider starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"database", app.cfg.DatabaseDriver,
		"token_cache", app.tokenCache != nil,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(shutdown)

	select {
	case err := <-serverErrors:
		app.housekeepingService.Stop()
		app.closeResources()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown drains in-flight requests, stops housekeeping and releases the
// database, cache and tracer.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down oauth provider")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.closeResources(); err != nil {
		return err
	}

	app.logger.Info("oauth provider stopped")
	return nil
}

func (app *Application) closeResources() error {
	var errs []error

	if app.tokenCache != nil {
		if err := app.tokenCache.Close(); err != nil {
			app.logger.Error("error closing token cache", "error", err)
			errs = append(errs, err)
		}
	}
	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database", "error", err)
			errs = append(errs, err)
		}
	}
	if app.shutdownTracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.shutdownTracing(ctx); err != nil {
			app.logger.Error("error flushing traces", "error", err)
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func (app *Application) initTracing() error {
	shutdown, err := otelx.Setup(context.Background(), app.cfg.OTelEndpoint, ServiceName, BuildVersion)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	app.shutdownTracing = shutdown
	if app.cfg.OTelEndpoint != "" {
		app.logger.Info("tracing enabled", "endpoint", app.cfg.OTelEndpoint)
	}
	return nil
}

// OpenStore opens the configured driver and brings its schema up to date.
func OpenStore(driver, dsn string) (store.Store, error) {
	var (
		db  store.Store
		err error
	)
	switch driver {
	case DriverSQLite:
		db, err = sqlite.NewStore(dsn)
	case DriverPostgres:
		db, err = postgres.NewStore(dsn)
	default:
		return nil, fmt.Errorf("unknown database driver %q", driver)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to apply database migrations: %w", err)
	}
	return db, nil
}

func (app *Application) initDatabase() error {
	db, err := OpenStore(app.cfg.DatabaseDriver, app.cfg.DatabaseDSN)
	if err != nil {
		return err
	}
	app.db = db

	app.logger.Info("database migrations applied successfully", "driver", app.cfg.DatabaseDriver)
	return nil
}

func (app *Application) initCache() {
	if app.cfg.RedisAddr == "" {
		return
	}
	app.tokenCache = cache.NewRedis(cache.RedisConfig{
		Addr:     app.cfg.RedisAddr,
		Password: app.cfg.RedisPassword,
		DB:       app.cfg.RedisDB,
		TTL:      app.cfg.TokenCacheTTL,
	})

	// An unreachable cache only costs latency; lookups fall back to the
	// database.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := app.tokenCache.Ping(ctx); err != nil {
		app.logger.Warn("token cache unreachable at startup", "addr", app.cfg.RedisAddr, "error", err)
		return
	}
	app.logger.Info("token cache enabled", "addr", app.cfg.RedisAddr)
}

// NewApplicationService builds the registry service with the configured
// pepper.
func NewApplicationService(db store.Store, pepperFile string) (*service.ApplicationService, error) {
	pepper, err := cryptox.LoadOrCreatePepper(pepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	return &service.ApplicationService{Store: db, Hasher: cryptox.NewSecretHasher(pepper)}, nil
}

func (app *Application) initServices() error {
	apps, err := NewApplicationService(app.db, app.cfg.PepperFile)
	if err != nil {
		return err
	}
	app.applicationService = apps

	app.authorizeService = &service.AuthorizeService{
		Store:         app.db,
		AllowedScopes: app.cfg.AllowedScopes,
		CodeTTL:       app.cfg.CodeTTL,
	}
	app.tokenService = &service.TokenService{
		Store:        app.db,
		Applications: apps,
		AccessTTL:    app.cfg.AccessTTL,
		RefreshTTL:   app.cfg.RefreshTTL,
	}
	if app.tokenCache != nil {
		apps.Cache = app.tokenCache
		app.tokenService.Cache = app.tokenCache
	}
	app.userInfoService = &service.UserInfoService{Store: app.db}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
	return nil
}

func (app *Application) initHTTP() error {
	sessionVerifier, err := jwtx.NewVerifier([]byte(app.cfg.SessionSecret), jwtx.VerifyOptions{Leeway: 30 * time.Second})
	if err != nil {
		return fmt.Errorf("failed to initialize session verifier: %w", err)
	}
	consent, err := httpapi.NewConsentTickets([]byte(app.cfg.SessionSecret), app.cfg.Issuer, app.cfg.ConsentTTL)
	if err != nil {
		return fmt.Errorf("failed to initialize consent tickets: %w", err)
	}

	router := httpapi.NewRouter(
		BuildVersion,
		app.db,
		app.tokenCache,
		app.cfg.RateLimits,
		app.logger,
	)

	router.Sessions = &httpapi.SessionResolver{
		Verifier:   sessionVerifier,
		CookieName: app.cfg.SessionCookie,
	}
	router.Consent = consent
	router.LoginURL = app.cfg.LoginURL
	router.AuthorizeService = app.authorizeService
	router.TokenService = app.tokenService
	router.UserInfoService = app.userInfoService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
	return nil
}
