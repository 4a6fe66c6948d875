package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// Authenticator decides credentialed login attempts
type Authenticator interface {
	Authenticate(ctx context.Context, attempt models.Attempt) (*services.AuthenticationResult, error)
}

// FederatedLogin handles signed identity-provider requests
type FederatedLogin interface {
	Login(ctx context.Context, req *models.FederatedAuthenticationRequest) (*services.AuthenticationResult, error)
}

// TokenIssuer mints access tokens for granted principals
type TokenIssuer interface {
	GenerateAccessToken(principal *models.Principal) (string, error)
	AccessTokenExpiry() time.Duration
}

// AuthHandler serves the login endpoints
type AuthHandler struct {
	authenticator Authenticator
	federation    FederatedLogin
	tokens        TokenIssuer
	timing        *auth.TimingDelay
	ipConfig      *pkghttp.IPConfig
	logger        *slog.Logger
}

// NewAuthHandler creates a new AuthHandler. timing and ipConfig may be nil.
func NewAuthHandler(
	authenticator Authenticator,
	federation FederatedLogin,
	tokens TokenIssuer,
	timing *auth.TimingDelay,
	ipConfig *pkghttp.IPConfig,
	logger *slog.Logger,
) *AuthHandler {
	return &AuthHandler{
		authenticator: authenticator,
		federation:    federation,
		tokens:        tokens,
		timing:        timing,
		ipConfig:      ipConfig,
		logger:        logger,
	}
}

// LoginRequest is the body of POST /auth/login
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,max=72"`
	Code     string `json:"code,omitempty" validate:"max=16"`
}

// FederatedLoginRequest is the body of POST /auth/federated
type FederatedLoginRequest struct {
	RequestID           string            `json:"request_id,omitempty" validate:"max=128"`
	Email               string            `json:"email" validate:"required,email,max=254"`
	IdentityProviderURL string            `json:"idp_url,omitempty" validate:"omitempty,url,max=2048"`
	Signature           string            `json:"signature" validate:"required,max=4096"`
	Extra               map[string]string `json:"extra,omitempty"`
}

// LoginResponse is returned for every granted login. LoginCount is omitted
// when the counter could not be updated.
type LoginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	AccountID   string `json:"account_id"`
	LoginCount  uint64 `json:"login_count,omitempty"`
	Federated   bool   `json:"federated,omitempty"`
}

// Login handles password logins with an optional step-up code
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req LoginRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "validation_error", "Invalid request", err.Error())
		return
	}

	attempt := models.Credentialed{
		AccountID: req.Email,
		Password:  req.Password,
	}
	if code := strings.TrimSpace(req.Code); code != "" {
		attempt.Code = &code
	}

	result, err := h.authenticator.Authenticate(r.Context(), attempt)
	h.respond(w, r, start, result, err)
}

// Federated handles signed login requests from identity providers
// @Router /auth/federated [post]
func (h *AuthHandler) Federated(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req FederatedLoginRequest
	if err := pkghttp.DecodeJSON(w, r, &req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteErrorWithDetails(w, http.StatusBadRequest, "validation_error", "Invalid request", err.Error())
		return
	}

	// Fields are passed through verbatim: the signature covers the exact
	// e-mail and provider URL the identity provider sent.
	result, err := h.federation.Login(r.Context(), &models.FederatedAuthenticationRequest{
		RequestID:           req.RequestID,
		ClaimedEmail:        req.Email,
		IdentityProviderURL: req.IdentityProviderURL,
		Signature:           req.Signature,
		Extra:               req.Extra,
	})
	h.respond(w, r, start, result, err)
}

// respond writes the outcome of an authentication decision. Every security
// failure gets the same 401 body after the same padded delay.
func (h *AuthHandler) respond(w http.ResponseWriter, r *http.Request, start time.Time, result *services.AuthenticationResult, err error) {
	if err != nil {
		h.timing.WaitFrom(r.Context(), start, false)

		switch {
		case errors.Is(services.PublicError(err), models.ErrUnauthorized):
			h.logger.Info("authentication rejected",
				slog.String("ip", pkghttp.ExtractClientIP(r, h.ipConfig)),
				slog.String("reason", models.FailureReason(err)))
			pkghttp.WriteInvalidCredentials(w)
		default:
			h.logger.Error("authentication error",
				slog.String("ip", pkghttp.ExtractClientIP(r, h.ipConfig)),
				slog.Any("error", err))
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	token, err := h.tokens.GenerateAccessToken(result.Principal)
	if err != nil {
		h.logger.Error("failed to issue access token",
			slog.String("account_id", result.Principal.AccountID),
			slog.Any("error", err))
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	h.timing.WaitFrom(r.Context(), start, true)

	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(h.tokens.AccessTokenExpiry().Seconds()),
		AccountID:   result.Principal.AccountID,
		LoginCount:  result.LoginCount,
		Federated:   result.Principal.Federated,
	})
}
