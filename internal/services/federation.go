package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
)

// RequestVerifier checks the signature on a federated request. A nil
// error means verified.
type RequestVerifier interface {
	VerifyRequest(req *models.FederatedAuthenticationRequest) error
}

// Authenticator decides a login attempt
type Authenticator interface {
	Authenticate(ctx context.Context, attempt models.Attempt) (*AuthenticationResult, error)
}

// FederatedLoginService turns a verified federated request into a
// pre-authenticated attempt for the claimed account
type FederatedLoginService struct {
	verifier      RequestVerifier
	accounts      AccountRepository
	authenticator Authenticator
	logger        *slog.Logger
	auditLogger   *pkglogger.AuditLogger
}

// NewFederatedLoginService creates a new FederatedLoginService
func NewFederatedLoginService(
	verifier RequestVerifier,
	accounts AccountRepository,
	authenticator Authenticator,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *FederatedLoginService {
	return &FederatedLoginService{
		verifier:      verifier,
		accounts:      accounts,
		authenticator: authenticator,
		logger:        logger,
		auditLogger:   auditLogger,
	}
}

// Login verifies req and, only if the signature holds, authenticates the
// account registered under the claimed e-mail without password or OTP
// checks
func (s *FederatedLoginService) Login(ctx context.Context, req *models.FederatedAuthenticationRequest) (*AuthenticationResult, error) {
	if req == nil {
		return nil, models.ErrSignatureInvalid
	}

	if err := s.verifier.VerifyRequest(req); err != nil {
		reason := models.FailureReason(err)
		if !errors.Is(err, models.ErrVerificationUnresolvable) {
			err = fmt.Errorf("%w: %w", models.ErrSignatureInvalid, err)
			reason = models.FailureReason(models.ErrSignatureInvalid)
		}
		metrics.FederatedVerificationsTotal.WithLabelValues(reason).Inc()
		s.logger.Info("federated request rejected",
			slog.String("request_id", req.RequestID),
			slog.String("reason", reason))
		s.auditLogger.LogFederatedAttempt(ctx, pkglogger.AuditEvent{
			EventType:        "federated_login_failed",
			Email:            req.ClaimedEmail,
			IdentityProvider: req.IdentityProviderURL,
			FailureReason:    reason,
		})
		return nil, err
	}
	metrics.FederatedVerificationsTotal.WithLabelValues("verified").Inc()

	email := strings.ToLower(strings.TrimSpace(req.ClaimedEmail))
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			s.auditLogger.LogFederatedAttempt(ctx, pkglogger.AuditEvent{
				EventType:        "federated_login_failed",
				Email:            req.ClaimedEmail,
				IdentityProvider: req.IdentityProviderURL,
				FailureReason:    "unknown_account",
			})
			return nil, fmt.Errorf("%w: no account for federated identity", models.ErrInvalidCredentials)
		}
		s.logger.Error("failed to load federated account", slog.Any("error", err))
		return nil, fmt.Errorf("load federated account: %w", err)
	}

	if err := validateAccountState(account); err != nil {
		s.logger.Info("federated login blocked due to account state",
			slog.String("account_id", account.ID),
			slog.Any("reason", err))
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidCredentials, err)
	}

	result, err := s.authenticator.Authenticate(ctx, models.PreAuthenticated{
		Principal: models.Principal{
			AccountID:        account.ID,
			Email:            account.Email,
			Federated:        true,
			IdentityProvider: req.IdentityProviderURL,
		},
	})
	if err != nil {
		return nil, err
	}

	s.auditLogger.LogFederatedAttempt(ctx, pkglogger.AuditEvent{
		EventType:        "federated_login",
		AccountID:        account.ID,
		IdentityProvider: req.IdentityProviderURL,
		Success:          true,
		LoginCount:       result.LoginCount,
	})

	return result, nil
}
