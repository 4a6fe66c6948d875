package models

import (
	"time"
)

// Account status values
const (
	AccountStatusActive    = "active"
	AccountStatusSuspended = "suspended"
	AccountStatusDisabled  = "disabled"
)

// Account is the tenant-scoped identity a login attempt resolves to.
type Account struct {
	ID           string
	Email        string
	PasswordHash string // empty for federated-only accounts
	Status       string
	LockedUntil  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal is the authenticated identity produced by a successful attempt.
type Principal struct {
	AccountID        string
	Email            string
	Federated        bool
	IdentityProvider string // set for federated principals; empty means the default provider
}

// IsLocked reports whether a temporary lock is still in force.
func (a *Account) IsLocked() bool {
	return a.LockedUntil != nil && time.Now().Before(*a.LockedUntil)
}
