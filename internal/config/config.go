package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// SyncMode selects how store writes reach the remote database
type SyncMode string

const (
	// SyncModeDirect writes straight to the database from the API process
	SyncModeDirect SyncMode = "direct"
	// SyncModeQueue publishes writes to RabbitMQ for the worker to apply
	SyncModeQueue SyncMode = "queue"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	FrontendURL      string
	AIProvider       string
	AIModel          string
	AIBaseURL        string
	OpenAIKey        string
	GeminiKey        string
	RedisURL         string
	AIRateLimit      string
	RabbitMQURL      string
	RabbitMQPrefetch int
	SyncMode         SyncMode
	ProfileSyncDelay time.Duration
	ProfileSavingMin time.Duration
	OIDCIssuer       string
	OIDCJWKSURL      string
	AuthDisabled     bool
	EnableHSTS       bool
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// LocalOnly reports whether no remote database is configured.
// It is decided once at startup and never changes while the process runs.
func (c *Config) LocalOnly() bool {
	return c.DatabaseURL == ""
}

// AIKey returns the API key for the configured provider
func (c *Config) AIKey() string {
	if c.AIProvider == "openai" {
		return c.OpenAIKey
	}
	return c.GeminiKey
}

// Load loads configuration from environment variables, reading a .env file first when present
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return load(os.Getenv)
}

// LoadCLI loads configuration for the local command line client. The CLI acts as
// the development user and always writes to the database directly, so the
// authentication and queue settings of the server are ignored.
func LoadCLI() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return load(cliEnvironment(os.Getenv))
}

func cliEnvironment(getenv func(string) string) func(string) string {
	return func(key string) string {
		switch key {
		case "AUTH_DISABLED":
			return "true"
		case "SYNC_MODE":
			return string(SyncModeDirect)
		}
		return getenv(key)
	}
}

func load(getenv func(string) string) (*Config, error) {
	env := environment(getenv)
	cfg := &Config{
		DatabaseURL:      env.get("DATABASE_URL", ""),
		ServerPort:       env.get("SERVER_PORT", "8080"),
		FrontendURL:      env.get("FRONTEND_URL", "http://localhost:3000"),
		AIProvider:       strings.ToLower(env.get("AI_PROVIDER", "gemini")),
		AIModel:          env.get("AI_MODEL", ""),
		AIBaseURL:        env.get("AI_BASE_URL", ""),
		OpenAIKey:        env.get("OPENAI_API_KEY", ""),
		GeminiKey:        env.get("GEMINI_API_KEY", ""),
		RedisURL:         env.get("REDIS_URL", ""),
		AIRateLimit:      env.get("AI_RATE_LIMIT", "30-M"),
		RabbitMQURL:      env.get("RABBITMQ_URL", ""),
		RabbitMQPrefetch: env.getInt("RABBITMQ_PREFETCH", 1),
		SyncMode:         SyncMode(strings.ToLower(env.get("SYNC_MODE", string(SyncModeDirect)))),
		ProfileSyncDelay: env.getDuration("PROFILE_SYNC_DELAY", 2*time.Second),
		ProfileSavingMin: env.getDuration("PROFILE_SAVING_MIN", time.Second),
		OIDCIssuer:       env.get("OIDC_ISSUER", ""),
		OIDCJWKSURL:      env.get("OIDC_JWKS_URL", ""),
		AuthDisabled:     env.getBool("AUTH_DISABLED", false),
		EnableHSTS:       env.getBool("ENABLE_HSTS", false),
		WorkerDebugMode:  env.getBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  env.getBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      env.getBool("OTEL_ENABLED", false),
		OTELEndpoint:     env.get("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	switch cfg.SyncMode {
	case SyncModeDirect:
	case SyncModeQueue:
		if cfg.RabbitMQURL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL is required when SYNC_MODE=queue")
		}
		if cfg.LocalOnly() {
			return nil, fmt.Errorf("DATABASE_URL is required when SYNC_MODE=queue")
		}
	default:
		return nil, fmt.Errorf("SYNC_MODE must be %q or %q, got %q", SyncModeDirect, SyncModeQueue, cfg.SyncMode)
	}

	if cfg.RabbitMQPrefetch < 1 {
		return nil, fmt.Errorf("RABBITMQ_PREFETCH must be at least 1")
	}

	if !cfg.AuthDisabled && cfg.OIDCJWKSURL == "" && cfg.OIDCIssuer == "" {
		return nil, fmt.Errorf("OIDC_ISSUER or OIDC_JWKS_URL is required unless AUTH_DISABLED=true")
	}

	return cfg, nil
}

// ValidateWorker checks the settings the sync worker cannot run without
func (c *Config) ValidateWorker() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required")
	}
	return nil
}

type environment func(string) string

func (e environment) get(key, defaultValue string) string {
	if value := e(key); value != "" {
		return value
	}
	return defaultValue
}

func (e environment) getBool(key string, defaultValue bool) bool {
	if value := e(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func (e environment) getInt(key string, defaultValue int) int {
	if value := e(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func (e environment) getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := e(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d >= 0 {
			return d
		}
	}
	return defaultValue
}
