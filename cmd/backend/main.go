package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	configloader "github.com/lumeolabs/lexilens/external/config"
	deviceimpl "github.com/lumeolabs/lexilens/external/device"
	forwarderimpl "github.com/lumeolabs/lexilens/external/forwarder"
	geocoderimpl "github.com/lumeolabs/lexilens/external/geocoder"
	inferenceimpl "github.com/lumeolabs/lexilens/external/inference"
	"github.com/lumeolabs/lexilens/internal/config"
	devicepkg "github.com/lumeolabs/lexilens/internal/device"
	"github.com/lumeolabs/lexilens/internal/metrics"
	"github.com/lumeolabs/lexilens/internal/session"
	"github.com/samber/do/v2"
)

const webhookBindTimeout = 20 * time.Second

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching companion app")
	runApp(cfg, injector)
}

func mustLoadConfig() *config.Config {
	cfg, err := configloader.Load()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.Config) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.Config) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	metrics.RegisterDI(injector)
	inferenceimpl.RegisterDI(injector)
	geocoderimpl.RegisterDI(injector)
	forwarderimpl.RegisterDI(injector)
	deviceimpl.RegisterDI(injector)
	session.RegisterDI(injector)

	return injector
}

func runApp(cfg *config.Config, injector do.Injector) {
	client, err := do.Invoke[devicepkg.Client](injector)
	if err != nil {
		slog.Error("failed to resolve device client", "error", err)
		os.Exit(1)
	}
	manager, err := do.Invoke[*session.Manager](injector)
	if err != nil {
		slog.Error("failed to resolve session manager", "error", err)
		os.Exit(1)
	}

	client.RegisterSessionHandler(manager)

	ctx, cancel := context.WithTimeout(context.Background(), webhookBindTimeout)
	defer cancel()

	slog.Info("startup: binding webhook listener", "port", cfg.Port)
	if err := client.Connect(ctx); err != nil {
		slog.Error("webhook listen failed", "error", err)
		os.Exit(1)
	}
	slog.Info("startup: webhook listener bound",
		"track_location", cfg.TrackLocation, "listen_window_seconds", cfg.ListenWindowSeconds)

	defer func() {
		if err := client.Close(); err != nil {
			slog.Error("device client close failed", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		slog.Info("startup: serving platform sessions")
		if err := client.Run(); err != nil {
			slog.Error("webhook server failed", "error", err)
		}
		close(done)
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
		slog.Info("shutting down")
	case <-done:
	}
}
