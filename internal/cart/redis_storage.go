package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/angelmondragon/storefront-cart/pkg/redis"
)

type redisKV interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	CartStateKey(storageKey string) string
}

// RedisStorage keeps cart state in Redis. Each save refreshes the TTL.
type RedisStorage struct {
	client redisKV
	ttl    time.Duration
}

// NewRedisStorage binds cart storage to the redis client.
func NewRedisStorage(client redisKV, ttl time.Duration) (*RedisStorage, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &RedisStorage{client: client, ttl: ttl}, nil
}

// Load returns the saved payload or ErrStateNotFound.
func (s *RedisStorage) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.client.CartStateKey(key))
	if errors.Is(err, redis.ErrNotFound) {
		return nil, ErrStateNotFound
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// Save overwrites the payload under key.
func (s *RedisStorage) Save(ctx context.Context, key string, payload []byte) error {
	return s.client.Set(ctx, s.client.CartStateKey(key), payload, s.ttl)
}
