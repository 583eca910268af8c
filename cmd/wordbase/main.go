package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	configloader "github.com/lumeolabs/lexilens/external/config"
	wordstoreimpl "github.com/lumeolabs/lexilens/external/wordstore"
	"github.com/lumeolabs/lexilens/internal/config"
	"github.com/lumeolabs/lexilens/internal/wordbase"
	"github.com/samber/do/v2"
)

func main() {
	slog.Info("startup: loading configuration")
	cfg := mustLoadConfig()
	initLogger(cfg)
	slog.Info("startup: configuration loaded", "env", cfg.Env)

	slog.Info("startup: building dependency graph")
	injector := setupDI(cfg)

	slog.Info("startup: launching wordbase api")
	runServer(cfg, injector)
}

func mustLoadConfig() *config.WordbaseConfig {
	cfg, err := configloader.LoadWordbase()
	if err != nil {
		slog.Error("config validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

func initLogger(cfg *config.WordbaseConfig) {
	logLevel := slog.LevelInfo
	if cfg.IsDevelopment() {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel})))
}

func setupDI(cfg *config.WordbaseConfig) do.Injector {
	injector := do.New()

	do.ProvideValue(injector, cfg)
	wordstoreimpl.RegisterDI(injector)
	wordbase.RegisterDI(injector)

	return injector
}

func runServer(cfg *config.WordbaseConfig, injector do.Injector) {
	server, err := do.Invoke[*wordbase.Server](injector)
	if err != nil {
		slog.Error("failed to resolve wordbase server", "error", err)
		os.Exit(1)
	}

	slog.Info("startup: binding api listener", "port", cfg.Port)
	if err := server.Listen(cfg.Port); err != nil {
		slog.Error("api listen failed", "error", err)
		os.Exit(1)
	}

	defer func() {
		if err := server.Close(); err != nil {
			slog.Error("wordbase server close failed", "error", err)
		}
	}()

	done := make(chan struct{})
	go func() {
		slog.Info("startup: serving wordbase api")
		if err := server.Run(); err != nil {
			slog.Error("wordbase server failed", "error", err)
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
