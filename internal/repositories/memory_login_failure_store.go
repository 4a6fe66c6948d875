package repositories

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
)

// MemoryLoginFailureStore counts failed logins in process memory. Each
// entry expires one window after the first failure.
type MemoryLoginFailureStore struct {
	failures *cache.Cache
}

func NewMemoryLoginFailureStore() *MemoryLoginFailureStore {
	return &MemoryLoginFailureStore{
		failures: cache.New(cache.NoExpiration, 10*time.Minute),
	}
}

func (s *MemoryLoginFailureStore) RecordFailure(ctx context.Context, login string, window time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if err := s.failures.Add(login, 1, window); err == nil {
		return 1, nil
	}

	count, err := s.failures.IncrementInt(login, 1)
	if err != nil {
		// expired between Add and IncrementInt
		s.failures.Set(login, 1, window)
		return 1, nil
	}
	return count, nil
}

func (s *MemoryLoginFailureStore) Failures(ctx context.Context, login string, _ time.Duration) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	if v, ok := s.failures.Get(login); ok {
		if count, ok := v.(int); ok {
			return count, nil
		}
	}
	return 0, nil
}

func (s *MemoryLoginFailureStore) Reset(_ context.Context, login string) error {
	s.failures.Delete(login)
	return nil
}
