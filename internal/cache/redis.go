package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// RedisStore is a Store shared between instances. Values are JSON encoded.
// A Redis failure is logged and treated as a miss.
type RedisStore[T any] struct {
	rdb    *redis.Client
	prefix string
	logger *logrus.Logger
}

// NewRedisClient parses a redis:// URL and verifies the server answers
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return rdb, nil
}

// NewRedisStore creates a store writing keys under prefix
func NewRedisStore[T any](rdb *redis.Client, prefix string, logger *logrus.Logger) *RedisStore[T] {
	return &RedisStore[T]{rdb: rdb, prefix: prefix, logger: logger}
}

func (s *RedisStore[T]) key(k string) string {
	return s.prefix + k
}

func (s *RedisStore[T]) Get(ctx context.Context, key string) (T, bool) {
	var zero T
	data, err := s.rdb.Get(ctx, s.key(key)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.WithError(err).WithField("key", key).Warn("Redis cache read failed")
		}
		return zero, false
	}
	var value T
	if err := json.Unmarshal(data, &value); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Discarding undecodable cache entry")
		return zero, false
	}
	return value, true
}

func (s *RedisStore[T]) Set(ctx context.Context, key string, value T, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	data, err := json.Marshal(value)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Failed to encode cache entry")
		return
	}
	if err := s.rdb.Set(ctx, s.key(key), data, ttl).Err(); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("Redis cache write failed")
	}
}
