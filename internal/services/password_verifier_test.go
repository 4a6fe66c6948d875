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

func repoWith(account *models.Account) *MockAccountRepository {
	return &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			if email == account.Email {
				return account, nil
			}
			return nil, models.ErrNotFound
		},
	}
}

func TestAccountPasswordVerifier_Success(t *testing.T) {
	account := NewTestAccountWithPassword("acct-1", "user@example.com", "correct horse")
	v := NewAccountPasswordVerifier(repoWith(account), NewTestLogger())

	principal, err := v.Verify(context.Background(), "  User@Example.com ", "correct horse")

	require.NoError(t, err)
	assert.Equal(t, "acct-1", principal.AccountID)
	assert.Equal(t, "user@example.com", principal.Email)
	assert.False(t, principal.Federated)
}

func TestAccountPasswordVerifier_Failures(t *testing.T) {
	active := NewTestAccountWithPassword("acct-1", "user@example.com", "correct horse")

	disabled := NewTestAccountWithPassword("acct-2", "disabled@example.com", "correct horse")
	disabled.Status = models.AccountStatusDisabled

	lockedUntil := time.Now().Add(time.Hour)
	locked := NewTestAccountWithPassword("acct-3", "locked@example.com", "correct horse")
	locked.LockedUntil = &lockedUntil

	federatedOnly := NewTestAccount("acct-4", "fed@example.com")

	tests := []struct {
		name     string
		account  *models.Account
		login    string
		password string
	}{
		{"wrong password", active, "user@example.com", "wrong"},
		{"unknown account", active, "nobody@example.com", "correct horse"},
		{"empty password", active, "user@example.com", ""},
		{"empty login", active, "", "correct horse"},
		{"disabled account", disabled, "disabled@example.com", "correct horse"},
		{"locked account", locked, "locked@example.com", "correct horse"},
		{"no local password", federatedOnly, "fed@example.com", "anything"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := NewAccountPasswordVerifier(repoWith(tt.account), NewTestLogger())

			principal, err := v.Verify(context.Background(), tt.login, tt.password)

			assert.Nil(t, principal)
			assert.ErrorIs(t, err, models.ErrInvalidCredentials)
		})
	}
}

func TestAccountPasswordVerifier_ExpiredLockAllowsLogin(t *testing.T) {
	past := time.Now().Add(-time.Minute)
	account := NewTestAccountWithPassword("acct-1", "user@example.com", "correct horse")
	account.LockedUntil = &past
	v := NewAccountPasswordVerifier(repoWith(account), NewTestLogger())

	principal, err := v.Verify(context.Background(), "user@example.com", "correct horse")

	require.NoError(t, err)
	assert.Equal(t, "acct-1", principal.AccountID)
}

func TestAccountPasswordVerifier_StorageError(t *testing.T) {
	repo := &MockAccountRepository{
		GetByEmailFunc: func(ctx context.Context, email string) (*models.Account, error) {
			return nil, errors.New("connection reset")
		},
	}
	v := NewAccountPasswordVerifier(repo, NewTestLogger())

	_, err := v.Verify(context.Background(), "user@example.com", "pw")

	require.Error(t, err)
	assert.NotErrorIs(t, err, models.ErrInvalidCredentials)
}
