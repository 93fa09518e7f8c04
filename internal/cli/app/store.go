package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aussiebroadwan/gotrue-go/pkg/credstore"
	"github.com/redis/go-redis/v9"
)

// openStore builds the configured credential store. The returned closer
// releases its connections and is never nil.
func openStore(ctx context.Context, cfg Config, logger *slog.Logger) (credstore.Store, func() error, error) {
	noop := func() error { return nil }

	var (
		store  credstore.Store
		closer = noop
	)

	switch cfg.Store {
	case StoreMemory:
		store = credstore.NewMemoryStore()

	case StoreFile:
		fs, err := credstore.NewFileStore(cfg.StorePath)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open file store: %w", err)
		}
		store = fs

	case StoreSQLite:
		path := cfg.StorePath
		if !strings.HasSuffix(path, ".db") {
			if err := os.MkdirAll(path, 0o700); err != nil {
				return nil, noop, fmt.Errorf("failed to create store directory: %w", err)
			}
			path = filepath.Join(path, "credentials.db")
		}

		db, err := credstore.OpenSQLite(path)
		if err != nil {
			return nil, noop, fmt.Errorf("failed to open sqlite store: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return nil, noop, fmt.Errorf("failed to apply database migrations: %w", err)
		}
		logger.Debug("sqlite store ready", "path", path)
		store, closer = db, db.Close

	case StoreRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		rs := credstore.NewRedisStore(client, credstore.WithKeyPrefix(cfg.RedisPrefix))
		if err := rs.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, noop, fmt.Errorf("failed to reach redis at %s: %w", cfg.RedisAddr, err)
		}
		store, closer = rs, client.Close

	default:
		return nil, noop, fmt.Errorf("unknown store %q", cfg.Store)
	}

	if cfg.Passphrase != "" {
		sealed, err := credstore.NewSealedStoreFromPassphrase(store, cfg.Passphrase, nil)
		if err != nil {
			_ = closer()
			return nil, noop, fmt.Errorf("failed to derive store key: %w", err)
		}
		store = sealed
	}

	logger.Debug("credential store opened", "driver", cfg.Store, "sealed", cfg.Passphrase != "")
	return store, closer, nil
}
