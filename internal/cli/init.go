// Package cli provides common CLI initialization utilities.
// This package consolidates the startup shared by cmd/budgie,
// cmd/budgie-worker and cmd/budgiectl.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"budgie/internal/backend"
	"budgie/internal/cache"
	"budgie/internal/config"
	"budgie/internal/log"
	"budgie/internal/pipeline"
	"budgie/internal/services"
)

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds a text logger at the LOG_LEVEL level and sets it as the
// process default.
func SetupLogger(level string, w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stdout
	}
	lvl := log.ParseLevel(level)
	logger := log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentApp,
		Handler:   slog.NewTextHandler(w, &slog.HandlerOptions{Level: lvl}),
	})
	log.SetDefault(logger)
	return logger
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// App is the wired service graph shared by the binaries.
type App struct {
	Config   *config.Config
	Backend  *backend.BackendResult
	Ledger   *services.LedgerService
	Budgets  *services.BudgetService
	Receipts *services.ReceiptService
	Caches   *cache.Manager
	Logger   *log.Logger
}

// Options trims what NewApp builds.
type Options struct {
	// WithoutReceipts skips the OCR and LLM gateways, for processes that only
	// read the ledger.
	WithoutReceipts bool
	// SeedUser pre-populates the memory backend with default categories.
	SeedUser string
}

// NewApp opens the configured backend and wires the services around it.
// Close releases everything it opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, opts Options) (*App, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	bcfg.SeedUser = opts.SeedUser

	res, err := backend.NewFactory(logger.WithComponent(log.ComponentBackend).Logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	app := &App{
		Config:  cfg,
		Backend: res,
		Ledger:  services.NewLedgerService(res.Store, res.Publisher, logger),
		Budgets: services.NewBudgetService(res.Store),
		Caches:  cache.NewManager(logger),
		Logger:  logger,
	}
	if opts.WithoutReceipts {
		return app, nil
	}

	if app.Receipts, err = app.newReceiptService(ctx); err != nil {
		_ = app.Close()
		return nil, err
	}
	app.Caches.StartCleanup(time.Minute)
	return app, nil
}

func (a *App) newReceiptService(ctx context.Context) (*services.ReceiptService, error) {
	cfg := a.Config
	ocrGateway, err := backend.NewOCRGateway(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create OCR gateway: %w", err)
	}
	llmGateway, err := backend.NewLLMGateway(cfg)
	if err != nil {
		return nil, fmt.Errorf("create LLM gateway: %w", err)
	}
	policy, err := pipeline.ParsePolicy(cfg.OnUnmatchedCategory)
	if err != nil {
		return nil, err
	}
	p, err := pipeline.New(pipeline.Config{
		OCR:       ocrGateway,
		LLM:       llmGateway,
		Ledger:    a.Backend.Store,
		Policy:    policy,
		Downscale: cfg.DownscaleImages,
		Logger:    a.Logger,
	})
	if err != nil {
		return nil, err
	}
	return services.NewReceiptService(services.ReceiptServiceConfig{
		Pipeline: p,
		Store:    a.Backend.Store,
		Budgets:  a.Budgets,
		Events:   a.Backend.Publisher,
		DedupTTL: cfg.ScanDedupTTL,
		Timeout:  2*cfg.GatewayTimeout + 10*time.Second,
		Caches:   a.Caches,
		Logger:   a.Logger,
	})
}

// Close stops the cache sweeper and releases the backend.
func (a *App) Close() error {
	a.Caches.Stop()
	return a.Backend.Cleanup()
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when cleanup is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		defer close(done)
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigChan)

		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}
		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
			return
		}
		logger.Info("Shutdown complete")
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}
