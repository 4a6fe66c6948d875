package models

// Attempt is an inbound login attempt. It is either PreAuthenticated, for
// identities already asserted by a verified federated request, or
// Credentialed, for password logins with an optional step-up code.
type Attempt interface {
	attempt()
}

// PreAuthenticated carries a principal whose authenticity was established
// upstream. Password and one-time-code checks are skipped for it.
type PreAuthenticated struct {
	Principal Principal
}

// Credentialed is a password login. Code is nil unless the step-up flow
// supplied a verification code.
type Credentialed struct {
	AccountID string
	Password  string
	Code      *string
}

func (PreAuthenticated) attempt() {}
func (Credentialed) attempt()     {}

// SuppliedCode returns the verification code, or "" when none was supplied
func (c Credentialed) SuppliedCode() string {
	if c.Code == nil {
		return ""
	}
	return *c.Code
}

// FederatedAuthenticationRequest is a signed login request issued by an
// identity provider. Extra holds provider-specific fields that take no part
// in verification.
type FederatedAuthenticationRequest struct {
	RequestID           string            `json:"request_id,omitempty"`
	ClaimedEmail        string            `json:"email"`
	IdentityProviderURL string            `json:"idp_url,omitempty"`
	Signature           string            `json:"signature"`
	Extra               map[string]string `json:"extra,omitempty"`
}
