package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/models"
)

// LoginCountStore persists login counters. Increment must be atomic per
// account: it creates the counter at models.InitialLoginCount when absent,
// adds one, and returns the post-increment value. Get reports
// models.InitialLoginCount for accounts never counted.
type LoginCountStore interface {
	Increment(ctx context.Context, accountID string) (uint64, error)
	Get(ctx context.Context, accountID string) (uint64, error)
}

// defaultCounterTimeout bounds a counter update once it is detached from
// the caller's context
const defaultCounterTimeout = 5 * time.Second

// LoginCounter tracks successful logins per account
type LoginCounter struct {
	store   LoginCountStore
	logger  *slog.Logger
	timeout time.Duration
}

// NewLoginCounter creates a new LoginCounter
func NewLoginCounter(store LoginCountStore, logger *slog.Logger) *LoginCounter {
	return &LoginCounter{
		store:   store,
		logger:  logger,
		timeout: defaultCounterTimeout,
	}
}

// TrackLogin increments the account's counter and returns the new value.
// The update is detached from ctx cancellation: once a login has been
// granted its count is recorded even if the caller goes away. Errors wrap
// models.ErrCounterUpdateFailed.
func (c *LoginCounter) TrackLogin(ctx context.Context, accountID string) (uint64, error) {
	if accountID == "" {
		metrics.LoginCounterUpdatesTotal.WithLabelValues("error").Inc()
		return 0, fmt.Errorf("%w: empty account id", models.ErrCounterUpdateFailed)
	}

	updateCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.timeout)
	defer cancel()

	start := time.Now()
	count, err := c.store.Increment(updateCtx, accountID)
	metrics.LoginCounterUpdateSeconds.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.LoginCounterUpdatesTotal.WithLabelValues("error").Inc()
		c.logger.Error("failed to update login counter",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return 0, fmt.Errorf("%w: %w", models.ErrCounterUpdateFailed, err)
	}

	metrics.LoginCounterUpdatesTotal.WithLabelValues("ok").Inc()
	c.logger.Debug("login counted",
		slog.String("account_id", accountID),
		slog.Uint64("login_count", count))

	return count, nil
}

// Count returns the account's current login count without changing it
func (c *LoginCounter) Count(ctx context.Context, accountID string) (uint64, error) {
	if accountID == "" {
		return 0, fmt.Errorf("%w: empty account id", models.ErrNotFound)
	}

	readCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	count, err := c.store.Get(readCtx, accountID)
	if err != nil {
		return 0, fmt.Errorf("failed to read login count: %w", err)
	}
	return count, nil
}
