package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"caffeine/internal/auth"
	"caffeine/internal/backend"
	"caffeine/internal/cache"
	"caffeine/internal/cli"
	"caffeine/internal/config"
	"caffeine/internal/dataaccess"
	apphttp "caffeine/internal/http"
	applog "caffeine/internal/log"
	"caffeine/internal/timezone"
)

const (
	shutdownTimeout      = 30 * time.Second
	cacheCleanupInterval = time.Minute
)

func main() {
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"))
	cfg := cli.LoadAndValidateConfig(logger, (*config.Config).Validate)

	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		logger.Error("Invalid backend configuration", "error", err)
		os.Exit(1)
	}
	result, err := backend.NewFactory(logger.WithComponent(applog.ComponentBackend).Logger).
		CreateBackend(context.Background(), backendCfg)
	if err != nil {
		logger.Error("Failed to initialize backend", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	authenticator, err := auth.New(auth.Config{
		Users:          cfg.AuthUsers,
		Disabled:       cfg.AuthDisabled,
		LocalPrincipal: cfg.LocalPrincipal,
		SecureCookies:  cfg.SecureCookies,
	}, logger.WithComponent(applog.ComponentAuth).Logger)
	if err != nil {
		logger.Error("Failed to initialize authentication", "error", err)
		os.Exit(1)
	}
	if cfg.AuthDisabled {
		logger.Warn("Authentication disabled, all requests act as the local principal",
			applog.FieldPrincipal, cfg.LocalPrincipal)
	}

	cacheManager := cache.NewManager(logger.WithComponent(applog.ComponentCache).Logger)
	stores := dataaccess.NewStores(cfg.CacheSize, cfg.CacheTTL)
	stores.Register(cacheManager)
	cacheManager.Register(authenticator)
	cacheManager.StartCleanup(cacheCleanupInterval)

	data := dataaccess.New(result.Backend, stores, logger.WithComponent(applog.ComponentBackend).Logger)

	defaultLoc, err := timezone.ParseTimezone(cfg.DefaultTimezone)
	if err != nil {
		logger.Warn("Invalid default timezone, using UTC", "error", err)
	}
	if cfg.DefaultTimezone == "" {
		defaultLoc = time.Local
	}

	opts := apphttp.Options{
		Addr:               ":" + cfg.Port,
		Data:               data,
		Auth:               authenticator,
		Logger:             logger,
		DefaultLocation:    defaultLoc,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
	}
	if p, ok := result.Backend.(apphttp.Pinger); ok {
		opts.Pinger = p
	}
	srv := apphttp.NewServer(opts)

	ctx, done := cli.GracefulShutdown(logger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if result.Cleanup != nil {
			if err := result.Cleanup(); err != nil {
				logger.Error("Backend cleanup error", "error", err)
			}
		}
	})

	logger.Info("Starting caffeine server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"auth_disabled", cfg.AuthDisabled,
		"default_timezone", defaultLoc.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
