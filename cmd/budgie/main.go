package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"budgie/internal/auth"
	"budgie/internal/cli"
	apphttp "budgie/internal/http"
	"budgie/internal/llm"
	"budgie/internal/ocr"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel, os.Stdout)

	ctx := context.Background()
	app, err := cli.NewApp(ctx, cfg, logger, cli.Options{})
	if err != nil {
		logger.Error("Failed to initialize application", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}

	tokens, err := auth.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	if err != nil {
		logger.Error("Failed to initialize token service", "error", err)
		os.Exit(1)
	}

	deps := apphttp.Deps{
		Ledger:            app.Ledger,
		Budgets:           app.Budgets,
		Receipts:          app.Receipts,
		Tokens:            tokens,
		Caches:            app.Caches,
		Logger:            logger,
		RequestsPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:    cfg.TrustedProxies,
	}

	// Proxy endpoints are served only when this process holds the keys.
	if cfg.GoogleVisionAPIKey != "" {
		vision, err := ocr.NewVisionGateway(ctx, cfg.GoogleVisionAPIKey, cfg.VisionEndpoint, cfg.GatewayTimeout)
		if err != nil {
			logger.Error("Failed to initialize vision proxy", "error", err)
			os.Exit(1)
		}
		deps.Vision = vision
	}
	if cfg.AnthropicAPIKey != "" {
		deps.Messages = llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, llm.TipMaxTokens, cfg.GatewayTimeout)
	}

	srv, err := apphttp.NewServer(":"+cfg.Port, deps)
	if err != nil {
		logger.Error("Failed to create server", "error", err)
		os.Exit(1)
	}
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	shutdownCtx, done := cli.GracefulShutdown(logger, 30*time.Second, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		if err := app.Close(); err != nil {
			logger.Error("Backend cleanup error", "error", err)
		}
	})

	logger.Info("Starting budgie server",
		"port", cfg.Port,
		"backend", cfg.DataBackend,
		"ocr_provider", cfg.OCRProvider,
		"llm_provider", cfg.LLMProvider,
		"events", app.Backend.Publisher != nil)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(shutdownCtx, done)
	logger.Info("Server stopped gracefully")
}
