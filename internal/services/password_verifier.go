package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
)

// AccountRepository defines the account lookups the core needs
type AccountRepository interface {
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
}

// AccountPasswordVerifier checks a password against the account's bcrypt hash
type AccountPasswordVerifier struct {
	repo   AccountRepository
	logger *slog.Logger
}

// NewAccountPasswordVerifier creates a new AccountPasswordVerifier
func NewAccountPasswordVerifier(repo AccountRepository, logger *slog.Logger) *AccountPasswordVerifier {
	return &AccountPasswordVerifier{repo: repo, logger: logger}
}

// Verify resolves accountID (the login e-mail) and compares the password.
// Unknown accounts, blocked accounts and wrong passwords all return
// models.ErrInvalidCredentials; only storage failures return anything else.
func (v *AccountPasswordVerifier) Verify(ctx context.Context, accountID, password string) (*models.Principal, error) {
	login := normalizeLogin(accountID)
	if login == "" || password == "" {
		return nil, models.ErrInvalidCredentials
	}

	account, err := v.repo.GetByEmail(ctx, login)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			pkgauth.CompareDummy(password)
			return nil, models.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to load account: %w", err)
	}

	if err := validateAccountState(account); err != nil {
		v.logger.Info("login blocked due to account state",
			slog.String("account_id", account.ID),
			slog.String("status", account.Status),
			slog.Any("reason", err))
		return nil, fmt.Errorf("%w: %w", models.ErrInvalidCredentials, err)
	}

	if account.PasswordHash == "" {
		// Federated-only accounts have no local password
		pkgauth.CompareDummy(password)
		return nil, models.ErrInvalidCredentials
	}

	if err := pkgauth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, models.ErrInvalidCredentials
	}

	return &models.Principal{
		AccountID: account.ID,
		Email:     account.Email,
	}, nil
}

// validateAccountState checks if the account is in a state that may log in
func validateAccountState(account *models.Account) error {
	switch account.Status {
	case models.AccountStatusDisabled:
		return models.ErrAccountDisabled
	case models.AccountStatusSuspended:
		return models.ErrAccountSuspended
	case models.AccountStatusActive:
	default:
		return fmt.Errorf("unknown account status: %s", account.Status)
	}

	if account.IsLocked() {
		return models.ErrAccountLocked
	}

	return nil
}

// normalizeLogin is the form login e-mails are stored and throttled under
func normalizeLogin(login string) string {
	return strings.ToLower(strings.TrimSpace(login))
}
