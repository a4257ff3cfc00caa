package backend

import (
	"context"
	"fmt"

	"budgie/internal/config"
	"budgie/internal/llm"
	"budgie/internal/ocr"
)

// OCR provider names.
const (
	OCRVision = "vision"
	OCRProxy  = "proxy"
	OCRAzure  = "azure"
)

// LLM provider names.
const (
	LLMAnthropic = "anthropic"
	LLMProxy     = "proxy"
)

// NewOCRGateway builds the OCR transport selected by OCR_PROVIDER.
func NewOCRGateway(ctx context.Context, cfg *config.Config) (ocr.Gateway, error) {
	switch cfg.OCRProvider {
	case OCRVision:
		return ocr.NewVisionGateway(ctx, cfg.GoogleVisionAPIKey, cfg.VisionEndpoint, cfg.GatewayTimeout)
	case OCRProxy:
		return ocr.NewProxyGateway(cfg.OCRProxyURL, cfg.GatewayTimeout), nil
	case OCRAzure:
		return ocr.NewAzureGateway(cfg.AzureVisionURL, cfg.AzureVisionKey), nil
	}
	return nil, fmt.Errorf("unsupported OCR provider: %s", cfg.OCRProvider)
}

// NewLLMGateway builds the LLM transport selected by LLM_PROVIDER.
func NewLLMGateway(cfg *config.Config) (llm.Gateway, error) {
	switch cfg.LLMProvider {
	case LLMAnthropic:
		return llm.NewAnthropicClient(cfg.AnthropicAPIKey, cfg.AnthropicModel, cfg.AnthropicMaxTokens, cfg.GatewayTimeout), nil
	case LLMProxy:
		return llm.NewProxyClient(cfg.LLMProxyURL, cfg.AnthropicModel, cfg.AnthropicMaxTokens, cfg.GatewayTimeout), nil
	}
	return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
}
