package objectstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"blendpredict/internal/config"
	"blendpredict/internal/core/domain"
)

// RedisStore keeps artifacts as plain string values without expiry. The
// content type is not stored; every artifact is served as CSV.
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore connects and pings the server.
func NewRedisStore(cfg *config.RedisConfig) (*RedisStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address cannot be empty")
	}
	if cfg.DB < 0 {
		return nil, errors.New("redis database number must be >= 0")
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return &RedisStore{client: client, prefix: cfg.KeyPrefix}, nil
}

// Put writes the artifact once; SETNX refuses to overwrite an existing key.
func (r *RedisStore) Put(ctx context.Context, key string, data []byte, _ string) error {
	ok, err := r.client.SetNX(ctx, r.prefix+key, data, 0).Result()
	if err != nil {
		return fmt.Errorf("%w: redis set %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrArtifactExists, key)
	}
	return nil
}

func (r *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", domain.ErrArtifactNotFound, key)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: redis get %s: %v", domain.ErrStoreUnavailable, key, err)
	}
	return data, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
