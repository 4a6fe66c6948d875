package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// DefaultLoginFailurePrefix namespaces failure counters away from login counts
const DefaultLoginFailurePrefix = "warden:login_failures:"

// RedisLoginFailureStore counts failed logins in Redis. The key expires one
// window after the first failure.
type RedisLoginFailureStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisLoginFailureStore(client redis.Cmdable, prefix string) *RedisLoginFailureStore {
	return &RedisLoginFailureStore{client: client, prefix: prefix}
}

func (s *RedisLoginFailureStore) key(login string) string {
	return s.prefix + login
}

func (s *RedisLoginFailureStore) RecordFailure(ctx context.Context, login string, window time.Duration) (int, error) {
	key := s.key(login)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, window)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis login failure record: %w", err)
	}

	count, err := incr.Result()
	if err != nil {
		return 0, fmt.Errorf("redis login failure record: %w", err)
	}
	return int(count), nil
}

func (s *RedisLoginFailureStore) Failures(ctx context.Context, login string, _ time.Duration) (int, error) {
	count, err := s.client.Get(ctx, s.key(login)).Int()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis login failure read: %w", err)
	}
	return count, nil
}

func (s *RedisLoginFailureStore) Reset(ctx context.Context, login string) error {
	if err := s.client.Del(ctx, s.key(login)).Err(); err != nil {
		return fmt.Errorf("redis login failure reset: %w", err)
	}
	return nil
}
