package main

import (
	"context"
	"errors"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"budgie/internal/cli"
	"budgie/internal/log"
	"budgie/internal/services"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout).WithComponent(log.ComponentWorker)

	logger.Info("Starting budgie-worker")

	app, err := cli.NewApp(context.Background(), cfg, logger, cli.Options{WithoutReceipts: true})
	if err != nil {
		logger.Error("Failed to initialize application", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer func() {
		if err := app.Close(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	}()

	proc := services.NewAlertProcessor(app.Budgets, app.Backend.Store,
		services.AlertProcessorConfig{Interval: cfg.AlertCheckInterval}, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return proc.Run(gctx) })
	if app.Backend.Publisher != nil {
		g.Go(func() error {
			return app.Backend.Publisher.ConsumeLedgerEvents(gctx, proc.HandleEvent)
		})
	} else {
		logger.Info("Skipping ledger event consumption - no AMQP_URL provided")
	}

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Worker stopped", "error", err)
		return
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker shutdown complete")
}
