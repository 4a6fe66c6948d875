package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Account state errors
	ErrAccountDisabled  = errors.New("account is disabled")
	ErrAccountSuspended = errors.New("account is suspended")
	ErrAccountLocked    = errors.New("account is temporarily locked")
)

// Authentication decision errors. These are distinguished internally for
// logging and metrics; the caller-facing boundary collapses the security
// relevant ones into ErrUnauthorized.
var (
	ErrInvalidCredentials       = errors.New("invalid credentials")
	ErrMissingVerificationCode  = errors.New("verification code required")
	ErrInvalidVerificationCode  = errors.New("invalid verification code")
	ErrMFAPolicyInvalid         = errors.New("mfa policy enabled without a shared secret")
	ErrCounterUpdateFailed      = errors.New("login counter update failed")
	ErrVerificationUnresolvable = errors.New("no public key for identity provider")
	ErrSignatureInvalid         = errors.New("federated request signature invalid")
	ErrTooManyAttempts          = errors.New("too many failed attempts")
)

// IsSecurityFailure reports whether err is one of the authentication
// failures that must not be disclosed to the caller.
func IsSecurityFailure(err error) bool {
	return errors.Is(err, ErrInvalidCredentials) ||
		errors.Is(err, ErrMissingVerificationCode) ||
		errors.Is(err, ErrInvalidVerificationCode) ||
		errors.Is(err, ErrMFAPolicyInvalid) ||
		errors.Is(err, ErrVerificationUnresolvable) ||
		errors.Is(err, ErrSignatureInvalid) ||
		errors.Is(err, ErrTooManyAttempts)
}

// FailureReason returns a stable label for an authentication error, used in
// audit logs and metrics.
func FailureReason(err error) string {
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrTooManyAttempts):
		return "too_many_attempts"
	case errors.Is(err, ErrInvalidCredentials):
		return "invalid_credentials"
	case errors.Is(err, ErrMissingVerificationCode):
		return "missing_verification_code"
	case errors.Is(err, ErrInvalidVerificationCode):
		return "invalid_verification_code"
	case errors.Is(err, ErrMFAPolicyInvalid):
		return "mfa_policy_invalid"
	case errors.Is(err, ErrVerificationUnresolvable):
		return "verification_unresolvable"
	case errors.Is(err, ErrSignatureInvalid):
		return "signature_invalid"
	case errors.Is(err, ErrCounterUpdateFailed):
		return "counter_update_failed"
	default:
		return "internal"
	}
}
