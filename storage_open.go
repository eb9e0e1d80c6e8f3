package sikad

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/sikad/storage"
)

// OpenStorage builds the backend named by cfg. A redis backend is pinged before it
// is returned so a bad address fails at start-up rather than on first login.
func OpenStorage(ctx context.Context, cfg StorageConfig) (storage.Storage, error) {
	switch cfg.Backend {
	case StorageMemory, "":
		return storage.NewMemory(), nil
	case StorageFile:
		return storage.NewFile(storage.FileOptions{
			Path: cfg.FilePath,
			Seal: storage.SealConfig{Passphrase: cfg.Passphrase},
		})
	case StorageRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		return storage.NewRedis(client, cfg.RedisPrefix, cfg.RedisTTL), nil
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
