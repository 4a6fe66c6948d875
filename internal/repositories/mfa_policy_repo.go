package repositories

import (
	"context"
	"encoding/base32"
	"fmt"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// MFAPolicyRepository stores step-up policies. Shared secrets are kept as
// their base32 enrollment string sealed with AES-256-GCM.
type MFAPolicyRepository struct {
	pool   *pgxpool.Pool
	cipher *auth.SecretCipher
}

func NewMFAPolicyRepository(db *database.DB, cipher *auth.SecretCipher) *MFAPolicyRepository {
	return &MFAPolicyRepository{pool: db.Pool, cipher: cipher}
}

// LoadPolicy returns the decrypted policy, or models.ErrNotFound when the
// account has none
func (r *MFAPolicyRepository) LoadPolicy(ctx context.Context, accountID string) (*models.MFAPolicy, error) {
	query := `
		SELECT account_id, totp_enabled, sms_enabled, totp_secret_encrypted, totp_secret_nonce, updated_at
		FROM mfa_policies WHERE account_id = $1
	`

	var record models.MFAPolicyRecord
	err := r.pool.QueryRow(ctx, query, accountID).Scan(
		&record.AccountID, &record.TOTPEnabled, &record.SMSEnabled,
		&record.TOTPSecretEncrypted, &record.TOTPSecretNonce, &record.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return r.decode(&record)
}

// decode turns a stored record into a policy. A record with factors enabled
// but no secret is returned as-is so the authenticator can reject it.
func (r *MFAPolicyRepository) decode(record *models.MFAPolicyRecord) (*models.MFAPolicy, error) {
	policy := &models.MFAPolicy{
		AccountID:   record.AccountID,
		TOTPEnabled: record.TOTPEnabled,
		SMSEnabled:  record.SMSEnabled,
	}

	if len(record.TOTPSecretEncrypted) == 0 {
		return policy, nil
	}

	encoded, err := r.cipher.Decrypt(record.TOTPSecretEncrypted, record.TOTPSecretNonce)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt totp secret: %w", err)
	}

	secret, err := auth.DecodeSecret(string(encoded))
	if err != nil {
		return nil, err
	}
	policy.TOTPSecret = secret

	return policy, nil
}

// encode seals the policy's secret for storage
func (r *MFAPolicyRepository) encode(policy *models.MFAPolicy) (*models.MFAPolicyRecord, error) {
	record := &models.MFAPolicyRecord{
		AccountID:   policy.AccountID,
		TOTPEnabled: policy.TOTPEnabled,
		SMSEnabled:  policy.SMSEnabled,
		UpdatedAt:   time.Now(),
	}

	if len(policy.TOTPSecret) == 0 {
		return record, nil
	}

	encoded := base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(policy.TOTPSecret)
	ciphertext, nonce, err := r.cipher.Encrypt([]byte(encoded))
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt totp secret: %w", err)
	}
	record.TOTPSecretEncrypted = ciphertext
	record.TOTPSecretNonce = nonce

	return record, nil
}

// SavePolicy creates or replaces the account's policy
func (r *MFAPolicyRepository) SavePolicy(ctx context.Context, policy *models.MFAPolicy) error {
	if err := policy.Validate(); err != nil {
		return err
	}

	record, err := r.encode(policy)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO mfa_policies (account_id, totp_enabled, sms_enabled, totp_secret_encrypted, totp_secret_nonce, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO UPDATE SET
			totp_enabled = EXCLUDED.totp_enabled,
			sms_enabled = EXCLUDED.sms_enabled,
			totp_secret_encrypted = EXCLUDED.totp_secret_encrypted,
			totp_secret_nonce = EXCLUDED.totp_secret_nonce,
			updated_at = EXCLUDED.updated_at
	`

	_, err = r.pool.Exec(ctx, query,
		record.AccountID, record.TOTPEnabled, record.SMSEnabled,
		record.TOTPSecretEncrypted, record.TOTPSecretNonce, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save mfa policy: %w", database.MapPostgresError(err))
	}
	return nil
}
