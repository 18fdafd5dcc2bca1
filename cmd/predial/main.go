package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"predial/internal/backend"
	"predial/internal/cli"
	"predial/internal/dashboard"
	apphttp "predial/internal/http"
	applog "predial/internal/log"
	"predial/internal/middleware/ratelimit"
)

func main() {
	cfg, logger := cli.Bootstrap(applog.ComponentApp)
	cli.ExitOnError(logger, "Configuration validation failed", cfg.Validate())

	site, err := dashboard.LoadSite(cfg.PagesFile)
	cli.ExitOnError(logger, "Failed to load page definitions", err, "pages_file", cfg.PagesFile)

	backendCfg, err := backend.FromAppConfig(cfg)
	cli.ExitOnError(logger, "Invalid backend configuration", err)

	res, err := backend.NewFactory(logger).CreateBackend(context.Background(), backendCfg)
	cli.ExitOnError(logger, "Failed to initialize data backend", err, "backend", cfg.DataBackend)
	defer res.Close()

	if cfg.WarmSheets {
		warmCtx, cancel := context.WithTimeout(context.Background(), cfg.LoadTimeout)
		if err := res.Source.Warm(warmCtx, site.Sheets()); err != nil {
			// Pages with a missing sheet show their own error; startup continues.
			logger.Warn("Sheet warm-up incomplete", applog.FieldError, err)
		}
		cancel()
		logger.Info("Sheet cache warmed", "loaded", res.Source.Loaded(), "pages", len(site.Pages))
	}

	left, right := cfg.BrandingPaths()
	branding := apphttp.ResolveBranding(cfg.BrandingEnabled, left, right)
	if cfg.BrandingEnabled && !branding.Enabled() {
		logger.Warn("Branding enabled but logo files are missing", "left", left, "right", right)
	}

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:        ":" + cfg.Port,
		Site:        site,
		Source:      res.Source,
		LoadTimeout: cfg.LoadTimeout,
		Branding:    branding,
		Logger:      logger.WithComponent(applog.ComponentHTTP),
		RateLimit:   ratelimit.Config{Requests: cfg.RateLimitPerMinute, Window: time.Minute},
	})
	cli.ExitOnError(logger, "Failed to initialize HTTP server", err)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = cfg.LoadTimeout + 10*time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", applog.FieldError, err)
		}
	})

	logger.Info("Starting predial server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"pages", len(site.Pages),
		"branding", branding.Enabled())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", applog.FieldError, err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}
