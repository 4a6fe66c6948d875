package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
)

// AdminAccountStore is the account storage used at startup
type AdminAccountStore interface {
	GetByEmail(ctx context.Context, email string) (*models.Account, error)
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
}

// PolicySaver creates or replaces an account's MFA policy
type PolicySaver interface {
	SavePolicy(ctx context.Context, policy *models.MFAPolicy) error
}

// AdminBootstrap describes the first account. TOTPSecret, when set, enrolls
// the account for app-based step-up.
type AdminBootstrap struct {
	Email      string
	Password   string
	TOTPSecret []byte
}

// EnsureAdminAccount creates the admin account if it does not exist yet and
// keeps its TOTP enrollment in sync with the configured secret
func EnsureAdminAccount(ctx context.Context, accounts AdminAccountStore, policies PolicySaver, admin AdminBootstrap, logger *slog.Logger) error {
	if admin.Email == "" || admin.Password == "" {
		logger.Info("no ADMIN_EMAIL or ADMIN_PASSWORD set, skipping admin account creation")
		return nil
	}

	account, err := accounts.GetByEmail(ctx, admin.Email)
	switch {
	case err == nil:
		logger.Info("admin account already exists")

	case errors.Is(err, models.ErrNotFound):
		hashedPassword, err := pkgauth.HashPassword(admin.Password)
		if err != nil {
			return fmt.Errorf("failed to hash admin password: %w", err)
		}

		account, err = accounts.Create(ctx, &models.Account{
			Email:        admin.Email,
			PasswordHash: hashedPassword,
			Status:       models.AccountStatusActive,
		})
		if err != nil {
			return fmt.Errorf("failed to create admin account: %w", err)
		}
		logger.Info("admin account created", slog.String("account_id", account.ID))

	default:
		return fmt.Errorf("failed to check if admin exists: %w", err)
	}

	if len(admin.TOTPSecret) == 0 {
		return nil
	}

	err = policies.SavePolicy(ctx, &models.MFAPolicy{
		AccountID:   account.ID,
		TOTPEnabled: true,
		TOTPSecret:  admin.TOTPSecret,
	})
	if err != nil {
		return fmt.Errorf("failed to enroll admin totp: %w", err)
	}

	logger.Info("admin totp enrolled", slog.String("account_id", account.ID))
	return nil
}
