package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/saltoplay/platform/internal/oauth/admin"
	"github.com/saltoplay/platform/internal/oauth/app"
	"github.com/saltoplay/platform/internal/oauth/cache"
	"github.com/saltoplay/platform/internal/oauth/service"
	"github.com/saltoplay/platform/pkg/slogx"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := admin.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "oauthctl: %v\n", err)
		return 1
	}

	db, err := app.OpenStore(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oauthctl: %v\n", err)
		return 1
	}
	defer db.Close()

	apps, err := app.NewApplicationService(db, cfg.PepperFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "oauthctl: %v\n", err)
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.RedisAddr != "" {
		tc := cache.NewRedis(cache.RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer tc.Close()
		if err := tc.Ping(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "oauthctl: token cache: %v\n", err)
			return 1
		}
		apps.Cache = tc
	}

	cli := &admin.CLI{
		Store:        db,
		Applications: apps,
		Users:        &service.UserService{Store: db, TOTPIssuer: cfg.TOTPIssuer},
		Logger: slogx.New(slogx.Config{
			Service: "oauthctl",
			Version: app.BuildVersion,
			Env:     "cli",
			Level:   "warn",
			Format:  "text",
		}),
		Out: os.Stdout,
		Err: os.Stderr,
	}

	switch err := cli.Run(ctx, os.Args[1:]); {
	case err == nil:
		return 0
	case errors.Is(err, admin.ErrUsage):
		return 2
	default:
		fmt.Fprintf(os.Stderr, "oauthctl: %v\n", err)
		return 1
	}
}
