package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/models"
)

// LoginFailureStore counts failed attempts per login inside a fixed window
// that starts at the first failure. RecordFailure returns the count after
// recording.
type LoginFailureStore interface {
	RecordFailure(ctx context.Context, login string, window time.Duration) (int, error)
	Failures(ctx context.Context, login string, window time.Duration) (int, error)
	Reset(ctx context.Context, login string) error
}

// AccountLocker sets a temporary lock on an account
type AccountLocker interface {
	Lock(ctx context.Context, accountID string, until time.Time) error
}

// AttemptLimiterConfig holds the per-login failure budget
type AttemptLimiterConfig struct {
	MaxFailures     int           // failures allowed inside Window
	Window          time.Duration // counted from the first failure
	LockoutDuration time.Duration // account lock once step-up codes are exhausted
}

// DefaultAttemptLimiterConfig returns 5 failures per 15 minutes
func DefaultAttemptLimiterConfig() AttemptLimiterConfig {
	return AttemptLimiterConfig{
		MaxFailures:     5,
		Window:          15 * time.Minute,
		LockoutDuration: 15 * time.Minute,
	}
}

// AttemptLimiter throttles credentialed attempts per login regardless of
// the client IP. A nil *AttemptLimiter allows everything.
type AttemptLimiter struct {
	store  LoginFailureStore
	locker AccountLocker
	config AttemptLimiterConfig
	logger *slog.Logger
	now    func() time.Time
}

// NewAttemptLimiter creates a new AttemptLimiter. locker may be nil.
func NewAttemptLimiter(store LoginFailureStore, locker AccountLocker, config AttemptLimiterConfig, logger *slog.Logger) *AttemptLimiter {
	return &AttemptLimiter{
		store:  store,
		locker: locker,
		config: config,
		logger: logger,
		now:    time.Now,
	}
}

// Check returns models.ErrTooManyAttempts once login has used up its
// failure budget. Store errors fail open: an unavailable store must not
// block every login.
func (l *AttemptLimiter) Check(ctx context.Context, login string) error {
	if l == nil || login == "" {
		return nil
	}

	failures, err := l.store.Failures(ctx, login, l.config.Window)
	if err != nil {
		l.logger.Error("failed to read login failures", slog.Any("error", err))
		return nil
	}

	if failures >= l.config.MaxFailures {
		metrics.LoginFailuresThrottledTotal.Inc()
		l.logger.Warn("login throttled",
			slog.Int("failures", failures),
			slog.Duration("window", l.config.Window))
		return models.ErrTooManyAttempts
	}

	return nil
}

// RecordFailure counts a failed attempt. accountID is set once the password
// matched; exhausting the budget then also locks the account.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, login, accountID string) {
	if l == nil || login == "" {
		return
	}

	failures, err := l.store.RecordFailure(ctx, login, l.config.Window)
	if err != nil {
		l.logger.Error("failed to record login failure", slog.Any("error", err))
		return
	}

	if failures < l.config.MaxFailures || accountID == "" || l.locker == nil {
		return
	}

	until := l.now().Add(l.config.LockoutDuration)
	if err := l.locker.Lock(ctx, accountID, until); err != nil {
		l.logger.Error("failed to lock account",
			slog.String("account_id", accountID),
			slog.Any("error", err))
		return
	}

	metrics.AccountLockoutsTotal.Inc()
	l.logger.Warn("account locked after repeated failures",
		slog.String("account_id", accountID),
		slog.Int("failures", failures),
		slog.Time("locked_until", until))
}

// Reset clears the failure count after a successful login
func (l *AttemptLimiter) Reset(ctx context.Context, login string) {
	if l == nil || login == "" {
		return
	}

	if err := l.store.Reset(ctx, login); err != nil {
		l.logger.Warn("failed to reset login failures", slog.Any("error", err))
	}
}
