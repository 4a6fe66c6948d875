package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// PasswordVerifier checks primary credentials. It returns
// models.ErrInvalidCredentials on mismatch.
type PasswordVerifier interface {
	Verify(ctx context.Context, accountID, password string) (*models.Principal, error)
}

// PolicyLoader returns the MFA policy of an account. models.ErrNotFound
// means the account has no step-up factors configured.
type PolicyLoader interface {
	LoadPolicy(ctx context.Context, accountID string) (*models.MFAPolicy, error)
}

// CodeVerifier checks a one-time code against a secret for the interval
// bucket containing now
type CodeVerifier interface {
	Verify(secret []byte, interval time.Duration, code string, now time.Time) bool
}

// LoginTracker records a successful login and returns the new count
type LoginTracker interface {
	TrackLogin(ctx context.Context, accountID string) (uint64, error)
}

// AuthenticatorConfig holds the step-up window lengths
type AuthenticatorConfig struct {
	AppInterval time.Duration // authenticator-app codes
	SMSInterval time.Duration // codes delivered by SMS
}

// DefaultAuthenticatorConfig returns the standard 30s app / 300s SMS windows
func DefaultAuthenticatorConfig() AuthenticatorConfig {
	return AuthenticatorConfig{
		AppInterval: auth.AppTOTPInterval,
		SMSInterval: auth.SMSTOTPInterval,
	}
}

// AuthenticationResult is a granted authentication decision. CounterErr is
// set when the login could not be counted; access is still granted.
type AuthenticationResult struct {
	Principal  *models.Principal
	LoginCount uint64
	CounterErr error
}

// CredentialAuthenticator decides a single login attempt
type CredentialAuthenticator struct {
	passwords   PasswordVerifier
	policies    PolicyLoader
	codes       CodeVerifier
	tracker     LoginTracker
	limiter     *AttemptLimiter
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	config      AuthenticatorConfig
	now         func() time.Time
}

// NewCredentialAuthenticator creates a new CredentialAuthenticator. limiter
// may be nil to disable per-login throttling.
func NewCredentialAuthenticator(
	passwords PasswordVerifier,
	policies PolicyLoader,
	codes CodeVerifier,
	tracker LoginTracker,
	limiter *AttemptLimiter,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
	config AuthenticatorConfig,
) *CredentialAuthenticator {
	return &CredentialAuthenticator{
		passwords:   passwords,
		policies:    policies,
		codes:       codes,
		tracker:     tracker,
		limiter:     limiter,
		logger:      logger,
		auditLogger: auditLogger,
		config:      config,
		now:         time.Now,
	}
}

// Authenticate runs the decision for one attempt. Security failures are
// returned as errors wrapping the models.Err* kinds; use PublicError
// before showing them to a caller.
func (a *CredentialAuthenticator) Authenticate(ctx context.Context, attempt models.Attempt) (*AuthenticationResult, error) {
	switch at := attempt.(type) {
	case models.PreAuthenticated:
		return a.authenticatePreAuthenticated(ctx, at)
	case *models.PreAuthenticated:
		if at == nil {
			return nil, fmt.Errorf("%w: nil attempt", models.ErrInvalidCredentials)
		}
		return a.authenticatePreAuthenticated(ctx, *at)
	case models.Credentialed:
		return a.authenticateCredentialed(ctx, at)
	case *models.Credentialed:
		if at == nil {
			return nil, fmt.Errorf("%w: nil attempt", models.ErrInvalidCredentials)
		}
		return a.authenticateCredentialed(ctx, *at)
	default:
		return nil, fmt.Errorf("%w: unsupported attempt type %T", models.ErrInvalidCredentials, attempt)
	}
}

// authenticatePreAuthenticated passes a federated principal through
// unchanged. Its authenticity was established by request verification.
func (a *CredentialAuthenticator) authenticatePreAuthenticated(ctx context.Context, attempt models.PreAuthenticated) (*AuthenticationResult, error) {
	principal := attempt.Principal
	if principal.AccountID == "" {
		a.fail(ctx, "pre_authenticated", "", models.ErrInvalidCredentials)
		return nil, fmt.Errorf("%w: pre-authenticated principal has no account", models.ErrInvalidCredentials)
	}

	return a.grant(ctx, "pre_authenticated", &principal), nil
}

func (a *CredentialAuthenticator) authenticateCredentialed(ctx context.Context, attempt models.Credentialed) (*AuthenticationResult, error) {
	const kind = "credentialed"
	login := normalizeLogin(attempt.AccountID)

	// A throttled login is refused before any password or code is evaluated
	if err := a.limiter.Check(ctx, login); err != nil {
		err = fmt.Errorf("%w: %w", models.ErrInvalidCredentials, err)
		a.fail(ctx, kind, "", err)
		return nil, err
	}

	principal, err := a.passwords.Verify(ctx, attempt.AccountID, attempt.Password)
	if err != nil {
		if errors.Is(err, models.ErrInvalidCredentials) {
			a.limiter.RecordFailure(ctx, login, "")
			a.fail(ctx, kind, "", err)
			return nil, err
		}
		a.logger.Error("password verification failed", slog.Any("error", err))
		return nil, fmt.Errorf("password verification: %w", err)
	}

	policy, err := a.policies.LoadPolicy(ctx, principal.AccountID)
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			a.logger.Error("failed to load mfa policy",
				slog.String("account_id", principal.AccountID),
				slog.Any("error", err))
			return nil, fmt.Errorf("load mfa policy: %w", err)
		}
		policy = &models.MFAPolicy{AccountID: principal.AccountID}
	}

	if policy.RequiresStepUp() {
		if err := a.stepUp(policy, attempt); err != nil {
			if errors.Is(err, models.ErrInvalidVerificationCode) {
				a.limiter.RecordFailure(ctx, login, principal.AccountID)
			}
			a.fail(ctx, kind, principal.AccountID, err)
			return nil, err
		}
	}

	a.limiter.Reset(ctx, login)
	return a.grant(ctx, kind, principal), nil
}

// stepUp verifies the supplied one-time code against the account policy
func (a *CredentialAuthenticator) stepUp(policy *models.MFAPolicy, attempt models.Credentialed) error {
	if err := policy.Validate(); err != nil {
		a.logger.Error("mfa policy enabled without secret", slog.String("account_id", policy.AccountID))
		return err
	}

	code := attempt.SuppliedCode()
	if code == "" {
		return models.ErrMissingVerificationCode
	}

	factor, interval := a.selectInterval(policy)
	if !a.codes.Verify(policy.TOTPSecret, interval, code, a.now()) {
		metrics.StepUpVerificationsTotal.WithLabelValues(factor, "invalid").Inc()
		return models.ErrInvalidVerificationCode
	}

	metrics.StepUpVerificationsTotal.WithLabelValues(factor, "valid").Inc()
	return nil
}

// selectInterval picks the longer SMS window whenever the SMS factor is on
func (a *CredentialAuthenticator) selectInterval(policy *models.MFAPolicy) (string, time.Duration) {
	if policy.SMSEnabled {
		return "sms", a.config.SMSInterval
	}
	return "app", a.config.AppInterval
}

// grant counts the login and builds the result. A counter failure is
// reported alongside the granted principal, never instead of it.
func (a *CredentialAuthenticator) grant(ctx context.Context, kind string, principal *models.Principal) *AuthenticationResult {
	result := &AuthenticationResult{Principal: principal}

	count, err := a.tracker.TrackLogin(ctx, principal.AccountID)
	if err != nil {
		result.CounterErr = err
		a.logger.Warn("login granted but not counted",
			slog.String("account_id", principal.AccountID),
			slog.Any("error", err))
	} else {
		result.LoginCount = count
	}

	metrics.AuthDecisionsTotal.WithLabelValues(kind, "success").Inc()
	a.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:        "login_success",
		AccountID:        principal.AccountID,
		IdentityProvider: principal.IdentityProvider,
		Success:          true,
		LoginCount:       result.LoginCount,
	})

	return result
}

func (a *CredentialAuthenticator) fail(ctx context.Context, kind, accountID string, err error) {
	reason := models.FailureReason(err)
	metrics.AuthDecisionsTotal.WithLabelValues(kind, reason).Inc()
	a.logger.Info("login failed", slog.String("reason", reason))
	a.auditLogger.LogAuthAttempt(ctx, pkglogger.AuditEvent{
		EventType:     "login_failed",
		AccountID:     accountID,
		FailureReason: reason,
		Success:       false,
	})
}

// PublicError maps an authentication error to what may be shown to the
// caller. Every security failure becomes models.ErrUnauthorized so the
// response never reveals which check failed.
func PublicError(err error) error {
	switch {
	case err == nil:
		return nil
	case models.IsSecurityFailure(err):
		return models.ErrUnauthorized
	default:
		return models.ErrInternalServer
	}
}
