package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DatabaseURL        string
	RedisURL           string
	JWTSecret          string
	CORSAllowedOrigins []string

	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	CatalogCacheTTL     time.Duration
	CatalogDefaultLimit int
	CatalogMaxLimit     int

	NutritionBaseURL  string
	NutritionAPIKey   string
	NutritionCacheTTL time.Duration

	DirectionsBaseURL string
	DirectionsAPIKey  string

	ReceiptParserURL    string
	ReceiptParserAPIKey string

	IdempotencyTTL       time.Duration
	PriceSubmitWindow    time.Duration
	PriceSubmitMax       int
	GlobalRateLimit      string
	ReceiptLockTTL       time.Duration
	WorkerConcurrency    int
	MigrationsRunOnStart bool
}

// Load reads configuration from environment variables and an optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DatabaseURL:        k.String("DATABASE_URL"),
		RedisURL:           k.String("REDIS_URL"),
		JWTSecret:          k.String("JWT_SECRET"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),

		AccessTokenTTL:  parseDuration(k.String("ACCESS_TOKEN_TTL"), "15m"),
		RefreshTokenTTL: parseDuration(k.String("REFRESH_TOKEN_TTL"), "720h"),

		CatalogCacheTTL:     parseDuration(k.String("CATALOG_CACHE_TTL"), "5m"),
		CatalogDefaultLimit: intOrDefault(k.Int("CATALOG_DEFAULT_LIMIT"), 20),
		CatalogMaxLimit:     intOrDefault(k.Int("CATALOG_MAX_LIMIT"), 100),

		NutritionBaseURL:  valueOrDefault(k.String("NUTRITION_BASE_URL"), "https://api.nal.usda.gov/fdc"),
		NutritionAPIKey:   k.String("NUTRITION_API_KEY"),
		NutritionCacheTTL: parseDuration(k.String("NUTRITION_CACHE_TTL"), "24h"),

		DirectionsBaseURL: valueOrDefault(k.String("DIRECTIONS_BASE_URL"), "https://maps.googleapis.com/maps/api/directions"),
		DirectionsAPIKey:  k.String("DIRECTIONS_API_KEY"),

		ReceiptParserURL:    k.String("RECEIPT_PARSER_URL"),
		ReceiptParserAPIKey: k.String("RECEIPT_PARSER_API_KEY"),

		IdempotencyTTL:       parseDuration(k.String("IDEMPOTENCY_TTL"), "24h"),
		PriceSubmitWindow:    parseDuration(k.String("PRICE_SUBMIT_WINDOW"), "1m"),
		PriceSubmitMax:       intOrDefault(k.Int("PRICE_SUBMIT_MAX"), 30),
		GlobalRateLimit:      valueOrDefault(k.String("GLOBAL_RATE_LIMIT"), "300-M"),
		ReceiptLockTTL:       parseDuration(k.String("RECEIPT_LOCK_TTL"), "30s"),
		WorkerConcurrency:    intOrDefault(k.Int("WORKER_CONCURRENCY"), 4),
		MigrationsRunOnStart: parseBool(valueOrDefault(k.String("MIGRATIONS_RUN_ON_START"), "true")),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL is required")
	}
	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}
	if cfg.CatalogDefaultLimit > cfg.CatalogMaxLimit {
		cfg.CatalogDefaultLimit = cfg.CatalogMaxLimit
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func intOrDefault(value, fallback int) int {
	if value > 0 {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "t", "true", "yes", "on":
		return true
	default:
		return false
	}
}
