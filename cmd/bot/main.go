package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"tradebot/internal/app"
	"tradebot/internal/strategy"

	_ "tradebot/internal/adapter/bitget"
	_ "tradebot/internal/adapter/paper"
)

func main() {
	// Secrets come from the environment; a local .env is optional.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("failed to load .env", "error", err)
	}

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(); err != nil {
		slog.Error("bootstrap failed", "error", err)
		os.Exit(1)
	}
	defer bootstrap.Shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := bootstrap.Run(ctx); err != nil {
		if strategy.IsFatal(err) {
			slog.Error("trading halted on fatal error", "error", err)
		} else {
			slog.Error("engine failed", "error", err)
		}
		os.Exit(1)
	}

	slog.Info("shutdown complete")
}
