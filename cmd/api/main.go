// Command api runs the paycore service: the HTTP API, the webhook worker
// pool and the maintenance scheduler, all wired through the container.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/centralpay/paycore/internal/config"
	"github.com/centralpay/paycore/internal/container"
)

// Stamped at build time via
// -ldflags "-X main.version=... -X main.buildTime=...".
var (
	version   = "dev"
	buildTime = "unknown"
)

const initializeTimeout = 30 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Local development keeps settings in .env; a missing file is fine.
	_ = godotenv.Load()

	configPath := envOrDefault("PAYCORE_CONFIG_PATH", "./configs")
	configName := envOrDefault("PAYCORE_CONFIG_NAME", "config")

	cfg, err := config.Load(configPath, configName)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}
	cfg.App.Version = version
	cfg.App.BuildTime = buildTime

	c := container.New(cfg)

	// Shutdown also unwinds a partially initialized container, so the
	// deferred call comes before Initialize.
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := c.Shutdown(ctx); err != nil {
			slog.Error("shutdown incomplete", "error", err)
		}
	}()

	initCtx, cancel := context.WithTimeout(context.Background(), initializeTimeout)
	defer cancel()
	if err := c.Initialize(initCtx); err != nil {
		return err
	}

	return c.Run()
}

func envOrDefault(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
