package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hls-liveness/internal/api"
	"hls-liveness/internal/auth"
	"hls-liveness/internal/platform/config"
	"hls-liveness/internal/platform/logger"
	"hls-liveness/internal/platform/metrics"
	"hls-liveness/internal/platform/ratelimit"
	"hls-liveness/internal/registry"

	"golang.org/x/sync/errgroup"
)

const readHeaderTimeout = 10 * time.Second

func main() {
	var (
		configPath string
		port       int
		verbose    bool
	)
	flag.StringVar(&configPath, "c", "config.yaml", "config file path")
	flag.StringVar(&configPath, "config", "config.yaml", "config file path")
	flag.IntVar(&port, "p", 0, "override server port")
	flag.IntVar(&port, "port", 0, "override server port")
	flag.BoolVar(&verbose, "v", false, "enable debug logging")
	flag.BoolVar(&verbose, "verbose", false, "enable debug logging")
	flag.Parse()

	_ = config.Load()

	cfg, err := config.LoadFile(configPath)
	missingConfig := errors.Is(err, config.ErrConfigNotFound)
	if err != nil && !missingConfig {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	cfg.ApplyEnv()
	if port > 0 {
		cfg.Server.Port = port
	}
	if verbose {
		cfg.Logging.Level = "debug"
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	slog.SetDefault(log)

	if missingConfig {
		log.Warn("config file not found, using defaults", "path", configPath)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	artifacts := registry.NewDirSource(cfg.HLS.Path)
	if !artifacts.Exists() {
		log.Warn("HLS path does not exist", "path", cfg.HLS.Path)
	}

	reg := registry.New(artifacts,
		registry.WithLogger(log),
		registry.WithRecencyWindow(cfg.HLS.RecencyWindow),
	)
	keys := auth.NewKeyStore(cfg.Auth.StreamKeys, cfg.Auth.Enabled)
	met := metrics.New()

	var limiter *ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		limiter = ratelimit.New(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	}

	h := api.NewHandler(reg, keys, cfg.HLS.Path, cfg.Web.Path, log, met)
	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           api.NewRouter(h, log, met, limiter),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	scanner := registry.NewScanner(reg, cfg.HLS.ScanInterval, log, met)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return scanner.Run(ctx)
	})

	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		log.Info("shutdown signal received, draining connections")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	log.Info("server starting",
		"addr", srv.Addr,
		"hls_path", cfg.HLS.Path,
		"web_path", cfg.Web.Path,
		"auth_enabled", cfg.Auth.Enabled,
		"rtmp_port", cfg.RTMP.Port,
		"rtmp_application", cfg.RTMP.Application,
		"scan_interval", cfg.HLS.ScanInterval,
		"recency_window", cfg.HLS.RecencyWindow,
	)

	if err := g.Wait(); err != nil {
		log.Error("server error", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
