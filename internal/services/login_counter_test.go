package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoginCounter_TrackLogin_ReturnsStoreValue(t *testing.T) {
	store := &MockLoginCountStore{
		IncrementFunc: func(ctx context.Context, accountID string) (uint64, error) {
			assert.Equal(t, "acct-1", accountID)
			return 42, nil
		},
	}
	counter := NewLoginCounter(store, NewTestLogger())

	count, err := counter.TrackLogin(context.Background(), "acct-1")

	require.NoError(t, err)
	assert.Equal(t, uint64(42), count)
}

func TestLoginCounter_TrackLogin_WrapsStoreError(t *testing.T) {
	storeErr := errors.New("redis: connection refused")
	store := &MockLoginCountStore{
		IncrementFunc: func(ctx context.Context, accountID string) (uint64, error) {
			return 0, storeErr
		},
	}
	counter := NewLoginCounter(store, NewTestLogger())

	_, err := counter.TrackLogin(context.Background(), "acct-1")

	assert.ErrorIs(t, err, models.ErrCounterUpdateFailed)
	assert.ErrorIs(t, err, storeErr)
}

func TestLoginCounter_TrackLogin_EmptyAccount(t *testing.T) {
	called := false
	store := &MockLoginCountStore{
		IncrementFunc: func(ctx context.Context, accountID string) (uint64, error) {
			called = true
			return 0, nil
		},
	}
	counter := NewLoginCounter(store, NewTestLogger())

	_, err := counter.TrackLogin(context.Background(), "")

	assert.ErrorIs(t, err, models.ErrCounterUpdateFailed)
	assert.False(t, called)
}

func TestLoginCounter_TrackLogin_DetachedFromCallerCancel(t *testing.T) {
	store := &MockLoginCountStore{
		IncrementFunc: func(ctx context.Context, accountID string) (uint64, error) {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
			_, hasDeadline := ctx.Deadline()
			assert.True(t, hasDeadline, "update runs under its own timeout")
			return 2, nil
		},
	}
	counter := NewLoginCounter(store, NewTestLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	count, err := counter.TrackLogin(ctx, "acct-1")

	require.NoError(t, err)
	assert.Equal(t, uint64(2), count)
}

func TestLoginCounter_TrackLogin_Timeout(t *testing.T) {
	store := &MockLoginCountStore{
		IncrementFunc: func(ctx context.Context, accountID string) (uint64, error) {
			<-ctx.Done()
			return 0, ctx.Err()
		},
	}
	counter := NewLoginCounter(store, NewTestLogger())
	counter.timeout = 10 * time.Millisecond

	_, err := counter.TrackLogin(context.Background(), "acct-1")

	assert.ErrorIs(t, err, models.ErrCounterUpdateFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLoginCounter_Count(t *testing.T) {
	store := &MockLoginCountStore{
		GetFunc: func(ctx context.Context, accountID string) (uint64, error) {
			assert.Equal(t, "acct-1", accountID)
			return 7, nil
		},
	}
	counter := NewLoginCounter(store, NewTestLogger())

	count, err := counter.Count(context.Background(), "acct-1")

	require.NoError(t, err)
	assert.Equal(t, uint64(7), count)
}

func TestLoginCounter_Count_Errors(t *testing.T) {
	storeErr := errors.New("connection reset")
	counter := NewLoginCounter(&MockLoginCountStore{
		GetFunc: func(ctx context.Context, accountID string) (uint64, error) { return 0, storeErr },
	}, NewTestLogger())

	_, err := counter.Count(context.Background(), "acct-1")
	assert.ErrorIs(t, err, storeErr)

	_, err = counter.Count(context.Background(), "")
	assert.ErrorIs(t, err, models.ErrNotFound)
}
