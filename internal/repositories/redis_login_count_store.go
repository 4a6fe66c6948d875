package repositories

import (
	"context"
	"errors"
	"fmt"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/redis/go-redis/v9"
)

// RedisLoginCountStore keeps counters in Redis so several instances share them
type RedisLoginCountStore struct {
	client redis.Cmdable
	prefix string
}

func NewRedisLoginCountStore(client redis.Cmdable, prefix string) *RedisLoginCountStore {
	return &RedisLoginCountStore{client: client, prefix: prefix}
}

func (s *RedisLoginCountStore) key(accountID string) string {
	return s.prefix + accountID
}

// Increment seeds the counter at models.InitialLoginCount if absent and
// increments it in one MULTI/EXEC transaction
func (s *RedisLoginCountStore) Increment(ctx context.Context, accountID string) (uint64, error) {
	key := s.key(accountID)

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SetNX(ctx, key, models.InitialLoginCount, 0)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis login count increment: %w", err)
	}

	count, err := incr.Result()
	if err != nil {
		return 0, fmt.Errorf("redis login count increment: %w", err)
	}
	return uint64(count), nil
}

func (s *RedisLoginCountStore) Get(ctx context.Context, accountID string) (uint64, error) {
	count, err := s.client.Get(ctx, s.key(accountID)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return models.InitialLoginCount, nil
		}
		return 0, fmt.Errorf("redis login count read: %w", err)
	}
	return count, nil
}
