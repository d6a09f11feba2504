package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/maresidence/pkg/mrsdk"
)

// Provider environments selectable through MR_ENV.
const (
	EnvProduction = "production"
	EnvSandbox    = "sandbox"
	EnvCustom     = "custom"
)

// Storage backends selectable through MR_STORAGE.
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

type Config struct {
	Provider     string // Provider environment (production, sandbox, custom) (default: production)
	ClientID     string // Required: client id provided by ma-residence
	ClientSecret string // Required: client secret provided by ma-residence
	Username     string // Required: API user
	Password     string // Required: API user password

	Endpoint      string        // Optional: overrides the environment's API base URL
	TokenURL      string        // Optional: overrides the environment's token URL
	TokenStoreKey string        // Optional: overrides the environment's token store key
	CacheTTL      time.Duration // Optional: response cache TTL (default: 300s)
	ExpiryMargin  time.Duration // Optional: refresh tokens this long before expiry
	HTTPTimeout   time.Duration // Optional: outbound request timeout (default: 10s)

	Storage       string // Token and cache backend (memory, redis, sqlite) (default: memory)
	RedisAddr     string // Redis address (default: localhost:6379)
	RedisPassword string // Optional: Redis password
	RedisDB       int    // Redis database number (default: 0)
	SQLiteFile    string // SQLite database file (default: ./mrclient.db)

	Env       string // Environment (dev, staging, prod) (default: dev)
	LogLevel  string // Log level (debug, info, warn, error) (default: info)
	LogFormat string // Log format (json, text) (default: text)
}

// LoadDotEnv loads variables from the given files into the process
// environment without overriding variables already set. Missing files are
// skipped.
func LoadDotEnv(paths ...string) error {
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("failed to load %s: %w", path, err)
		}
	}
	return nil
}

func LoadConfig() Config {
	return Config{
		Provider:     strings.ToLower(getEnvOrDefault("MR_ENV", EnvProduction)),
		ClientID:     os.Getenv("MR_CLIENT_ID"),
		ClientSecret: os.Getenv("MR_CLIENT_SECRET"),
		Username:     os.Getenv("MR_USERNAME"),
		Password:     os.Getenv("MR_PASSWORD"),

		Endpoint:      os.Getenv("MR_ENDPOINT"),
		TokenURL:      os.Getenv("MR_TOKEN_URL"),
		TokenStoreKey: os.Getenv("MR_TOKEN_STORE_KEY"),
		CacheTTL:      getEnvDurationOrDefault("MR_CACHE_TTL", mrsdk.DefaultCacheTTL),
		ExpiryMargin:  getEnvDurationOrDefault("MR_EXPIRY_MARGIN", 0),
		HTTPTimeout:   getEnvDurationOrDefault("MR_HTTP_TIMEOUT", mrsdk.DefaultTimeout),

		Storage:       strings.ToLower(getEnvOrDefault("MR_STORAGE", StorageMemory)),
		RedisAddr:     getEnvOrDefault("MR_REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("MR_REDIS_PASSWORD"),
		RedisDB:       getEnvIntOrDefault("MR_REDIS_DB", 0),
		SQLiteFile:    getEnvOrDefault("MR_SQLITE_FILE", "mrclient.db"),

		Env:       getEnvOrDefault("ENV", "dev"),
		LogLevel:  getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvOrDefault("LOG_FORMAT", "text"),
	}
}

// SDKConfig starts from the provider environment's preset and applies the
// explicit overrides.
func (c Config) SDKConfig() (mrsdk.Config, error) {
	var cfg mrsdk.Config

	switch c.Provider {
	case EnvProduction, "prod", "":
		cfg = mrsdk.Production(c.ClientID, c.ClientSecret, c.Username, c.Password)
	case EnvSandbox, "preprod":
		cfg = mrsdk.Sandbox(c.ClientID, c.ClientSecret, c.Username, c.Password)
	case EnvCustom:
		cfg = mrsdk.Config{
			ClientID:     c.ClientID,
			ClientSecret: c.ClientSecret,
			Username:     c.Username,
			Password:     c.Password,
		}
	default:
		return mrsdk.Config{}, fmt.Errorf("unknown MR_ENV %q (want production, sandbox or custom)", c.Provider)
	}

	if c.Endpoint != "" {
		cfg.Endpoint = c.Endpoint
	}
	if c.TokenURL != "" {
		cfg.TokenURL = c.TokenURL
	}
	if c.TokenStoreKey != "" {
		cfg.TokenStoreKey = c.TokenStoreKey
	}
	if c.ExpiryMargin > 0 {
		cfg.ExpiryMargin = c.ExpiryMargin
	}
	cfg.CacheTTL = c.CacheTTL

	if err := cfg.Validate(); err != nil {
		return mrsdk.Config{}, err
	}
	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "5m", "30s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds, like the provider's expires_in
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
