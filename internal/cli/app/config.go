package app

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/aussiebroadwan/gotrue-go/pkg/httpx"
	"github.com/aussiebroadwan/gotrue-go/pkg/session"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreFile   = "file"
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
)

type Config struct {
	URL    string `yaml:"url"`     // Required: auth service base URL, e.g. https://proj.example.co/auth/v1
	APIKey string `yaml:"api_key"` // Optional: project API key sent as apikey

	Store      string `yaml:"store"`      // Optional: memory, file, sqlite, redis (default: file)
	StorePath  string `yaml:"store_path"` // Optional: directory (file) or database file (sqlite) (default: ~/.gotrue)
	Passphrase string `yaml:"passphrase"` // Optional: seals stored sessions with a key derived from it

	RedisAddr     string `yaml:"redis_addr"`     // Optional: redis address (default: localhost:6379)
	RedisPassword string `yaml:"redis_password"` // Optional
	RedisDB       int    `yaml:"redis_db"`       // Optional (default: 0)
	RedisPrefix   string `yaml:"redis_prefix"`   // Optional: key namespace (default: gotrue:)

	Flow        string        `yaml:"flow"`         // Optional: implicit or pkce (default: implicit)
	StorageKey  string        `yaml:"storage_key"`  // Optional (default: supabase.session)
	RefreshSkew time.Duration `yaml:"refresh_skew"` // Optional (default: 60s)
	HTTPTimeout time.Duration `yaml:"http_timeout"` // Optional (default: 10s)

	KeepAliveInterval time.Duration `yaml:"keepalive_interval"` // Optional: watch refresh check interval (default: 30s)

	Env       string `yaml:"env"`        // Environment (dev, prod) (default: prod)
	LogLevel  string `yaml:"log_level"`  // Log level (debug, info, warn, error) (default: warn)
	LogFormat string `yaml:"log_format"` // Log format (json, text) (default: text)

	RateLimit httpx.RateLimitConfig `yaml:"-"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	storePath := ".gotrue"
	if home, err := os.UserHomeDir(); err == nil {
		storePath = home + string(os.PathSeparator) + ".gotrue"
	}

	return Config{
		Store:             StoreFile,
		StorePath:         storePath,
		RedisAddr:         "localhost:6379",
		RedisPrefix:       "gotrue:",
		Flow:              "implicit",
		StorageKey:        session.DefaultStorageKey,
		RefreshSkew:       session.DefaultRefreshSkew,
		HTTPTimeout:       10 * time.Second,
		KeepAliveInterval: 30 * time.Second,
		Env:               "prod",
		LogLevel:          "warn",
		LogFormat:         "text",
		RateLimit:         httpx.DefaultLimit,
	}
}

// LoadConfig builds the configuration from defaults, then the YAML file
// named by GOTRUE_CONFIG (if any), then environment variables.
func LoadConfig() (Config, error) {
	cfg := Default()

	if path := os.Getenv("GOTRUE_CONFIG"); path != "" {
		if err := loadFromYAML(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	cfg.URL = getEnvOrDefault("GOTRUE_URL", cfg.URL)
	cfg.APIKey = getEnvOrDefault("GOTRUE_API_KEY", cfg.APIKey)
	cfg.Store = getEnvOrDefault("GOTRUE_STORE", cfg.Store)
	cfg.StorePath = getEnvOrDefault("GOTRUE_STORE_PATH", cfg.StorePath)
	cfg.Passphrase = getEnvOrDefault("GOTRUE_PASSPHRASE", cfg.Passphrase)
	cfg.RedisAddr = getEnvOrDefault("GOTRUE_REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisPassword = getEnvOrDefault("GOTRUE_REDIS_PASSWORD", cfg.RedisPassword)
	cfg.RedisDB = getEnvIntOrDefault("GOTRUE_REDIS_DB", cfg.RedisDB)
	cfg.RedisPrefix = getEnvOrDefault("GOTRUE_REDIS_PREFIX", cfg.RedisPrefix)
	cfg.Flow = getEnvOrDefault("GOTRUE_FLOW", cfg.Flow)
	cfg.StorageKey = getEnvOrDefault("GOTRUE_STORAGE_KEY", cfg.StorageKey)
	cfg.RefreshSkew = getEnvDurationOrDefault("GOTRUE_REFRESH_SKEW", cfg.RefreshSkew)
	cfg.HTTPTimeout = getEnvDurationOrDefault("GOTRUE_HTTP_TIMEOUT", cfg.HTTPTimeout)
	cfg.KeepAliveInterval = getEnvDurationOrDefault("GOTRUE_KEEPALIVE_INTERVAL", cfg.KeepAliveInterval)
	cfg.Env = getEnvOrDefault("ENV", cfg.Env)
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", cfg.LogLevel)
	cfg.LogFormat = getEnvOrDefault("LOG_FORMAT", cfg.LogFormat)
	cfg.RateLimit = httpx.ParseRateLimitFromEnv("GOTRUE", cfg.RateLimit)

	return cfg, cfg.Validate()
}

// Validate reports the first problem with cfg.
func (c Config) Validate() error {
	if c.URL == "" {
		return errors.New("config: GOTRUE_URL is required")
	}
	if u, err := url.Parse(c.URL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("config: invalid GOTRUE_URL %q", c.URL)
	}

	switch c.Store {
	case StoreMemory, StoreFile, StoreSQLite, StoreRedis:
	default:
		return fmt.Errorf("config: unknown store %q", c.Store)
	}

	switch c.Flow {
	case "implicit", "pkce":
	default:
		return fmt.Errorf("config: unknown flow %q", c.Flow)
	}

	return nil
}

func loadFromYAML(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("unmarshal config yaml: %w", err)
	}

	return nil
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

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Plain integers are seconds
	if seconds, err := strconv.Atoi(value); err == nil {
		return time.Duration(seconds) * time.Second
	}

	return defaultValue
}
