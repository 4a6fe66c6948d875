package repositories

import (
	"context"
	"sync"

	"github.com/BradenHooton/warden/internal/models"
)

// MemoryLoginCountStore keeps counters in process memory. Counters start at
// models.InitialLoginCount on first use.
type MemoryLoginCountStore struct {
	counts sync.Map // accountID -> *models.LoginCount
}

func NewMemoryLoginCountStore() *MemoryLoginCountStore {
	return &MemoryLoginCountStore{}
}

func (s *MemoryLoginCountStore) counter(accountID string) *models.LoginCount {
	if c, ok := s.counts.Load(accountID); ok {
		return c.(*models.LoginCount)
	}
	c, _ := s.counts.LoadOrStore(accountID, models.NewLoginCount(accountID))
	return c.(*models.LoginCount)
}

func (s *MemoryLoginCountStore) Increment(ctx context.Context, accountID string) (uint64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	return s.counter(accountID).Increment(), nil
}

func (s *MemoryLoginCountStore) Get(ctx context.Context, accountID string) (uint64, error) {
	if c, ok := s.counts.Load(accountID); ok {
		return c.(*models.LoginCount).Count(), nil
	}
	return models.InitialLoginCount, nil
}
