package geocache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "geosearch:"

type RedisStore struct {
	rdb *redis.Client
}

var _ Store = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// NewRedisStoreFromURL parses a redis:// URL and pings the server.
func NewRedisStoreFromURL(ctx context.Context, rawURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisStore{rdb: rdb}, nil
}

func (s *RedisStore) Load(ctx context.Context, key string) ([]byte, time.Duration, bool, error) {
	pipe := s.rdb.Pipeline()
	get := pipe.Get(ctx, redisKeyPrefix+key)
	pttl := pipe.PTTL(ctx, redisKeyPrefix+key)

	_, err := pipe.Exec(ctx)
	if errors.Is(err, redis.Nil) {
		return nil, 0, false, nil
	}
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	payload, err := get.Bytes()
	if err != nil {
		return nil, 0, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	return payload, pttl.Val(), true, nil
}

func (s *RedisStore) Save(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	if err := s.rdb.Set(ctx, redisKeyPrefix+key, payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}

	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
