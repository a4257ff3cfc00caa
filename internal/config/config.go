package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// ConfigFileEnv names an optional TOML file whose keys fill in any setting
// the environment leaves unset. Keys match the env names, case-insensitive.
const ConfigFileEnv = "BUDGIE_CONFIG"

type Config struct {
	// HTTP Server
	Port               string
	LogLevel           string
	RateLimitPerMinute int
	TrustedProxies     []string

	// Backend selection
	DataBackend  string
	SQLiteDBPath string
	DatabaseURL  string

	// AMQP
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// OCR gateway
	OCRProvider        string
	GoogleVisionAPIKey string
	VisionEndpoint     string
	OCRProxyURL        string
	AzureVisionURL     string
	AzureVisionKey     string

	// LLM gateway
	LLMProvider        string
	AnthropicAPIKey    string
	AnthropicModel     string
	AnthropicMaxTokens int
	LLMProxyURL        string

	// Pipeline
	OnUnmatchedCategory string
	DownscaleImages     bool
	GatewayTimeout      time.Duration
	ScanDedupTTL        time.Duration

	// Auth
	JWTSecret string
	JWTTTL    time.Duration

	// Worker
	AlertCheckInterval time.Duration

	// ConfigFile is the TOML overlay that was read, if any.
	ConfigFile string
	fileErr    error
}

type source struct {
	file map[string]string
}

func Load() *Config {
	src, path, err := loadFile(os.Getenv(ConfigFileEnv))

	cfg := &Config{
		Port:               src.getEnv("PORT", "8081"),
		LogLevel:           src.getEnv("LOG_LEVEL", "info"),
		RateLimitPerMinute: src.getEnvInt("RATE_LIMIT_PER_MINUTE", 60),
		TrustedProxies:     splitList(src.getEnv("TRUSTED_PROXIES", "")),

		DataBackend:  src.getEnv("DATA_BACKEND", "memory"),
		SQLiteDBPath: src.getEnv("SQLITE_DB_PATH", "./data/budgie.db"),
		DatabaseURL:  src.getEnv("DATABASE_URL", ""),

		AMQPURL:      src.getEnv("AMQP_URL", ""),
		AMQPExchange: src.getEnv("AMQP_EXCHANGE", "budgie"),
		AMQPQueue:    src.getEnv("AMQP_QUEUE", "ledger_events"),

		OCRProvider:        src.getEnv("OCR_PROVIDER", "vision"),
		GoogleVisionAPIKey: src.getEnv("GOOGLE_VISION_API_KEY", ""),
		VisionEndpoint:     src.getEnv("VISION_ENDPOINT", ""),
		OCRProxyURL:        src.getEnv("OCR_PROXY_URL", ""),
		AzureVisionURL:     src.getEnv("AZURE_VISION_ENDPOINT", ""),
		AzureVisionKey:     src.getEnv("AZURE_VISION_KEY", ""),

		LLMProvider:        src.getEnv("LLM_PROVIDER", "anthropic"),
		AnthropicAPIKey:    src.getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:     src.getEnv("ANTHROPIC_MODEL", "claude-3-haiku-20240307"),
		AnthropicMaxTokens: src.getEnvInt("ANTHROPIC_MAX_TOKENS", 2048),
		LLMProxyURL:        src.getEnv("LLM_PROXY_URL", ""),

		OnUnmatchedCategory: strings.ToLower(src.getEnv("ON_UNMATCHED_CATEGORY", "skip")),
		DownscaleImages:     src.getEnvBool("DOWNSCALE_IMAGES", true),
		GatewayTimeout:      src.getEnvDuration("GATEWAY_TIMEOUT", 30*time.Second),
		ScanDedupTTL:        src.getEnvDuration("SCAN_DEDUP_TTL", 10*time.Minute),

		JWTSecret: src.getEnv("JWT_SECRET", ""),
		JWTTTL:    src.getEnvDuration("JWT_TTL", 24*time.Hour),

		AlertCheckInterval: src.getEnvDuration("ALERT_CHECK_INTERVAL", 5*time.Minute),

		ConfigFile: path,
		fileErr:    err,
	}

	return cfg
}

// loadFile reads the TOML overlay. A missing path yields an empty source.
func loadFile(path string) (source, string, error) {
	src := source{file: map[string]string{}}
	if path == "" {
		return src, "", nil
	}

	var raw map[string]any
	if _, err := toml.DecodeFile(path, &raw); err != nil {
		return src, path, fmt.Errorf("read config file %s: %w", path, err)
	}
	for k, v := range raw {
		src.file[strings.ToUpper(k)] = fmt.Sprint(v)
	}
	return src, path, nil
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if c.fileErr != nil {
		errors = append(errors, c.fileErr.Error())
	}

	// Validate port
	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if c.RateLimitPerMinute < 1 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %d: must be at least 1 request per minute", c.RateLimitPerMinute))
	}

	// Validate data backend
	validBackends := []string{"memory", "sqlite", "postgres"}
	if !oneOf(c.DataBackend, validBackends) {
		errors = append(errors, fmt.Sprintf("invalid data backend '%s': must be one of %v", c.DataBackend, validBackends))
	}

	if c.DataBackend == "sqlite" {
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else {
			dir := filepath.Dir(c.SQLiteDBPath)
			if dir != "." && dir != "" {
				if _, err := os.Stat(dir); os.IsNotExist(err) {
					if err := os.MkdirAll(dir, 0755); err != nil {
						errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
					}
				}
			}
		}
	}

	if c.DataBackend == "postgres" {
		if c.DatabaseURL == "" {
			errors = append(errors, "DATABASE_URL is required when using postgres backend")
		} else if u, err := url.Parse(c.DatabaseURL); err != nil || (u.Scheme != "postgres" && u.Scheme != "postgresql") {
			errors = append(errors, "invalid DATABASE_URL: scheme must be 'postgres' or 'postgresql'")
		}
	}

	// Validate AMQP URL if provided
	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	// Validate OCR provider
	validOCR := []string{"vision", "proxy", "azure"}
	switch c.OCRProvider {
	case "vision":
		if c.GoogleVisionAPIKey == "" {
			errors = append(errors, "GOOGLE_VISION_API_KEY is required when OCR_PROVIDER is vision")
		}
	case "proxy":
		if err := checkHTTPURL(c.OCRProxyURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid OCR_PROXY_URL: %v", err))
		}
	case "azure":
		if err := checkHTTPURL(c.AzureVisionURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AZURE_VISION_ENDPOINT: %v", err))
		}
		if c.AzureVisionKey == "" {
			errors = append(errors, "AZURE_VISION_KEY is required when OCR_PROVIDER is azure")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid OCR provider '%s': must be one of %v", c.OCRProvider, validOCR))
	}

	// Validate LLM provider
	validLLM := []string{"anthropic", "proxy"}
	switch c.LLMProvider {
	case "anthropic":
		if c.AnthropicAPIKey == "" {
			errors = append(errors, "ANTHROPIC_API_KEY is required when LLM_PROVIDER is anthropic")
		}
	case "proxy":
		if err := checkHTTPURL(c.LLMProxyURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid LLM_PROXY_URL: %v", err))
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid LLM provider '%s': must be one of %v", c.LLMProvider, validLLM))
	}
	if c.AnthropicMaxTokens < 1 || c.AnthropicMaxTokens > 8192 {
		errors = append(errors, fmt.Sprintf("invalid max tokens %d: must be between 1 and 8192", c.AnthropicMaxTokens))
	}

	// Validate pipeline settings
	validPolicies := []string{"skip", "abort"}
	if !oneOf(c.OnUnmatchedCategory, validPolicies) {
		errors = append(errors, fmt.Sprintf("invalid unmatched category policy '%s': must be one of %v", c.OnUnmatchedCategory, validPolicies))
	}
	if c.GatewayTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid gateway timeout %v: must be at least 1 second", c.GatewayTimeout))
	} else if c.GatewayTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid gateway timeout %v: must be at most 5 minutes", c.GatewayTimeout))
	}
	if c.ScanDedupTTL < 0 {
		errors = append(errors, fmt.Sprintf("invalid scan dedup ttl %v: must not be negative", c.ScanDedupTTL))
	}

	// Validate auth
	if len(c.JWTSecret) < 16 {
		errors = append(errors, "JWT_SECRET must be at least 16 characters")
	}
	if c.JWTTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid JWT ttl %v: must be at least 1 minute", c.JWTTTL))
	}

	// Validate worker configuration
	if c.AlertCheckInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid alert check interval %v: must be at least 1 second", c.AlertCheckInterval))
	} else if c.AlertCheckInterval > 24*time.Hour {
		errors = append(errors, fmt.Sprintf("invalid alert check interval %v: must be at most 24 hours", c.AlertCheckInterval))
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// splitList parses a comma separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func oneOf(v string, allowed []string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func checkHTTPURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("must not be empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme '%s' must be 'http' or 'https'", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func (s source) getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	if value, ok := s.file[key]; ok && value != "" {
		return value
	}
	return defaultValue
}

func (s source) getEnvInt(key string, defaultValue int) int {
	if value := s.getEnv(key, ""); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func (s source) getEnvBool(key string, defaultValue bool) bool {
	if value := s.getEnv(key, ""); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func (s source) getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := s.getEnv(key, ""); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
