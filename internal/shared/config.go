package shared

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig general application configurations
type AppConfig struct {
	// Rate Limiting
	RateLimitEnabled bool
	RateLimitConfigs map[string]RateLimitConfig

	// Response Cache
	CacheEnabled bool
	CacheStore   string // "memory" or "redis"
	RedisURL     string
	CacheConfigs map[string]ResponseCacheConfig

	// HTTPS Enforcement
	EnforceHTTPS bool

	// Database
	DatabaseAdapter string // "sqlite" or "postgres"
	DatabasePath    string
	DatabaseURL     string

	// Environment
	Environment string
}

// RateLimitConfig configuration for rate limiting
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// GetDefaultConfig returns default configuration
func GetDefaultConfig() *AppConfig {
	return &AppConfig{
		RateLimitEnabled: true,
		RateLimitConfigs: map[string]RateLimitConfig{
			"/todos": {
				Requests: 100,
				Window:   time.Minute,
			},
			"/admin": {
				Requests: 30,
				Window:   time.Minute,
			},
		},
		CacheEnabled: true,
		CacheStore:   "memory",
		CacheConfigs: map[string]ResponseCacheConfig{
			"/todos": {
				TTL:     3 * time.Second,
				Enabled: true,
			},
			"/todos/stats": {
				TTL:     10 * time.Second,
				Enabled: true,
			},
		},
		EnforceHTTPS:    false,
		DatabaseAdapter: "sqlite",
		DatabasePath:    "db/todoweb.db",
		Environment:     "development",
	}
}

// LoadConfig reads .env when present and overlays environment
// variables on top of the defaults.
func LoadConfig() *AppConfig {
	godotenv.Load()

	config := GetDefaultConfig()

	if env := os.Getenv("APP_ENV"); env != "" {
		config.Environment = env
	}

	if adapter := os.Getenv("DATABASE_ADAPTER"); adapter != "" {
		config.DatabaseAdapter = adapter
	}

	if path := os.Getenv("DATABASE_PATH"); path != "" {
		config.DatabasePath = path
	}

	if url := os.Getenv("DATABASE_URL"); url != "" {
		config.DatabaseURL = url
	}

	if store := os.Getenv("CACHE_STORE"); store != "" {
		config.CacheStore = store
	}

	if url := os.Getenv("REDIS_URL"); url != "" {
		config.RedisURL = url
	}

	if enabled, err := strconv.ParseBool(os.Getenv("RATE_LIMIT_ENABLED")); err == nil {
		config.RateLimitEnabled = enabled
	}

	if enabled, err := strconv.ParseBool(os.Getenv("CACHE_ENABLED")); err == nil {
		config.CacheEnabled = enabled
	}

	if enforce, err := strconv.ParseBool(os.Getenv("ENFORCE_HTTPS")); err == nil {
		config.EnforceHTTPS = enforce
	}

	return config
}
