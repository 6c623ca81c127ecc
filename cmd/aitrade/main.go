package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jichang0619/aitrade/internal/app"
)

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	once := flag.Bool("once", false, "run a single cycle and exit")
	flag.Parse()

	bootstrap := app.NewBootstrap()
	if err := bootstrap.Initialize(*configPath); err != nil {
		slog.Error("❌ Bootstrapping failed", slog.Any("error", err))
		os.Exit(1)
	}
	defer bootstrap.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bootstrap.MarkStream.Start(ctx)
	slog.Info("✅ Mark price stream started", "symbol", bootstrap.Config.Trading.Symbol)

	cycle := app.NewTradingCycle(bootstrap, slog.Default())

	if *once {
		if err := cycle.RunOnce(ctx); err != nil {
			slog.Error("Cycle failed", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	slog.Info("✨ aitrade operational. Press Ctrl+C to exit.")
	cycle.Loop(ctx)

	slog.Info("👋 Shutting down gracefully...")
}
