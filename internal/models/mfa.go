package models

import (
	"time"
)

// MFAPolicy describes which step-up factors are active for an account.
// TOTPSecret holds the base32-decoded shared secret.
type MFAPolicy struct {
	AccountID   string
	TOTPEnabled bool
	SMSEnabled  bool
	TOTPSecret  []byte
}

// RequiresStepUp reports whether any one-time-code factor is enabled
func (p *MFAPolicy) RequiresStepUp() bool {
	return p != nil && (p.TOTPEnabled || p.SMSEnabled)
}

// Validate enforces that an enabled factor always has a secret to verify against
func (p *MFAPolicy) Validate() error {
	if p.RequiresStepUp() && len(p.TOTPSecret) == 0 {
		return ErrMFAPolicyInvalid
	}
	return nil
}

// MFAPolicyRecord is the stored form of an MFAPolicy. The secret is the
// base32 string encrypted with AES-256-GCM.
type MFAPolicyRecord struct {
	AccountID           string
	TOTPEnabled         bool
	SMSEnabled          bool
	TOTPSecretEncrypted []byte
	TOTPSecretNonce     []byte
	UpdatedAt           time.Time
}
