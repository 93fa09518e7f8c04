package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	t.Setenv("GOTRUE_CONFIG", "")
	t.Setenv("GOTRUE_URL", "https://proj.example.co/auth/v1")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, StoreFile, cfg.Store)
	require.Equal(t, "implicit", cfg.Flow)
	require.Equal(t, "supabase.session", cfg.StorageKey)
	require.Equal(t, 60*time.Second, cfg.RefreshSkew)
	require.Equal(t, 10*time.Second, cfg.HTTPTimeout)
	require.Equal(t, 30, cfg.RateLimit.RequestsPerWindow)
}

func TestLoadConfig_Env(t *testing.T) {
	t.Setenv("GOTRUE_CONFIG", "")
	t.Setenv("GOTRUE_URL", "https://proj.example.co/auth/v1")
	t.Setenv("GOTRUE_STORE", "redis")
	t.Setenv("GOTRUE_REDIS_DB", "3")
	t.Setenv("GOTRUE_REFRESH_SKEW", "90")
	t.Setenv("GOTRUE_HTTP_TIMEOUT", "2s")
	t.Setenv("GOTRUE_RATELIMIT_REQUESTS", "0")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, StoreRedis, cfg.Store)
	require.Equal(t, 3, cfg.RedisDB)
	require.Equal(t, 90*time.Second, cfg.RefreshSkew)
	require.Equal(t, 2*time.Second, cfg.HTTPTimeout)
	require.False(t, cfg.RateLimit.Enabled())
}

func TestLoadConfig_YAMLThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gotrue.yaml")
	yaml := `
url: https://file.example.co/auth/v1
store: sqlite
store_path: /tmp/creds.db
flow: pkce
refresh_skew: 2m
log_level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	t.Setenv("GOTRUE_CONFIG", path)
	t.Setenv("GOTRUE_URL", "")
	t.Setenv("LOG_LEVEL", "error")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	require.Equal(t, "https://file.example.co/auth/v1", cfg.URL)
	require.Equal(t, StoreSQLite, cfg.Store)
	require.Equal(t, "/tmp/creds.db", cfg.StorePath)
	require.Equal(t, "pkce", cfg.Flow)
	require.Equal(t, 2*time.Minute, cfg.RefreshSkew)
	require.Equal(t, "error", cfg.LogLevel, "environment overrides the file")
}

func TestLoadConfig_MissingFile(t *testing.T) {
	t.Setenv("GOTRUE_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	valid := Default()
	valid.URL = "https://proj.example.co/auth/v1"
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing url", func(c *Config) { c.URL = "" }},
		{"relative url", func(c *Config) { c.URL = "/auth/v1" }},
		{"unknown store", func(c *Config) { c.Store = "etcd" }},
		{"unknown flow", func(c *Config) { c.Flow = "device" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
