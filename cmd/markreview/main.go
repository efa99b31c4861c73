//go:build !wails

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/yuta-ueno/markreview-oss/internal/app"
	"github.com/yuta-ueno/markreview-oss/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.FromEnv()
	slog.SetDefault(cfg.Logger())

	application := app.NewWithConfig(cfg, os.Args)
	if err := application.Start(ctx); err != nil {
		slog.Error("application startup failed", "error", err)
		os.Exit(1)
	}

	application.AnnounceLaunchDocument(ctx, func(path string) {
		slog.Info("launch document ready", "path", path)
	})

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), app.DefaultShutdownTimeout)
	defer cancel()
	if err := application.Stop(shutdownCtx); err != nil {
		slog.Error("application shutdown failed", "error", err)
		os.Exit(1)
	}
}
