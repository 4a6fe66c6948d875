package models

import "sync/atomic"

// InitialLoginCount is the value a counter holds when it is first created:
// the account exists but no tracked login has been confirmed yet.
const InitialLoginCount uint64 = 1

// LoginCount tracks successful logins for one account. The count can only
// be changed through Increment, which is safe for concurrent use.
type LoginCount struct {
	AccountID string
	count     atomic.Uint64
}

// NewLoginCount creates a counter holding InitialLoginCount
func NewLoginCount(accountID string) *LoginCount {
	lc := &LoginCount{AccountID: accountID}
	lc.count.Store(InitialLoginCount)
	return lc
}

// Count returns the current value
func (lc *LoginCount) Count() uint64 {
	return lc.count.Load()
}

// Increment adds one and returns the post-increment value. Concurrent
// callers each observe a distinct value.
func (lc *LoginCount) Increment() uint64 {
	for {
		current := lc.count.Load()
		next := current + 1
		if lc.count.CompareAndSwap(current, next) {
			return next
		}
	}
}
