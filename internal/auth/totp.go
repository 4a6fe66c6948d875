package auth

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
)

// Step-up intervals. SMS codes get a longer window to absorb delivery latency.
const (
	AppTOTPInterval = 30 * time.Second
	SMSTOTPInterval = 300 * time.Second
)

// TOTPVerifier checks one-time codes. It holds no mutable state.
type TOTPVerifier struct{}

// NewTOTPVerifier creates a TOTP verifier
func NewTOTPVerifier() *TOTPVerifier {
	return &TOTPVerifier{}
}

// Verify reports whether code is the RFC-6238 code for secret in the
// interval bucket containing now
func (v *TOTPVerifier) Verify(secret []byte, interval time.Duration, code string, now time.Time) bool {
	return VerifyTOTP(secret, interval, code, now)
}

// validateOpts builds exact-window options: HMAC-SHA1, six digits and no
// skew, so only the bucket containing now is accepted.
func validateOpts(interval time.Duration) (totp.ValidateOpts, bool) {
	period := uint(interval / time.Second)
	if period == 0 {
		return totp.ValidateOpts{}, false
	}
	return totp.ValidateOpts{
		Period:    period,
		Skew:      0,
		Digits:    otp.DigitsSix,
		Algorithm: otp.AlgorithmSHA1,
	}, true
}

// encodeSecret converts raw secret bytes into the base32 form pquerna/otp expects
func encodeSecret(secret []byte) string {
	return base32.StdEncoding.EncodeToString(secret)
}

// VerifyTOTP validates code against secret for the interval bucket of now.
// Empty, malformed or non-numeric codes fail without error.
func VerifyTOTP(secret []byte, interval time.Duration, code string, now time.Time) bool {
	if len(secret) == 0 || len(code) != otp.DigitsSix.Length() {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}

	opts, ok := validateOpts(interval)
	if !ok {
		return false
	}

	valid, err := totp.ValidateCustom(code, encodeSecret(secret), now, opts)
	if err != nil {
		return false
	}
	return valid
}

// GenerateTOTP returns the code for secret in the interval bucket of now.
// Used by the SMS flow to produce the code it sends.
func GenerateTOTP(secret []byte, interval time.Duration, now time.Time) (string, error) {
	if len(secret) == 0 {
		return "", fmt.Errorf("totp secret cannot be empty")
	}
	opts, ok := validateOpts(interval)
	if !ok {
		return "", fmt.Errorf("totp interval must be at least one second, got %s", interval)
	}

	code, err := totp.GenerateCodeCustom(encodeSecret(secret), now, opts)
	if err != nil {
		return "", fmt.Errorf("failed to generate TOTP code: %w", err)
	}
	return code, nil
}

// DecodeSecret decodes a base32 shared secret as stored at enrollment.
// Padding and case are normalised first.
func DecodeSecret(encoded string) ([]byte, error) {
	encoded = strings.ToUpper(strings.TrimSpace(encoded))
	encoded = strings.TrimRight(encoded, "=")
	secret, err := base32.StdEncoding.WithPadding(base32.NoPadding).DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("failed to decode TOTP secret: %w", err)
	}
	return secret, nil
}

// SecretCipher encrypts and decrypts stored TOTP secrets with AES-256-GCM
type SecretCipher struct {
	encryptionKey []byte // 32-byte AES-256 key
}

// NewSecretCipher creates a cipher. encryptionKey must be exactly 32 bytes.
func NewSecretCipher(encryptionKey []byte) (*SecretCipher, error) {
	if len(encryptionKey) != 32 {
		return nil, fmt.Errorf("encryption key must be exactly 32 bytes, got %d", len(encryptionKey))
	}

	return &SecretCipher{encryptionKey: encryptionKey}, nil
}

func (sc *SecretCipher) gcm() (cipher.AEAD, error) {
	block, err := aes.NewCipher(sc.encryptionKey)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}
	return gcm, nil
}

// Encrypt seals a secret and returns (ciphertext, nonce)
func (sc *SecretCipher) Encrypt(plaintext []byte) ([]byte, []byte, error) {
	gcm, err := sc.gcm()
	if err != nil {
		return nil, nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return gcm.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Decrypt opens a sealed secret
func (sc *SecretCipher) Decrypt(ciphertext, nonce []byte) ([]byte, error) {
	gcm, err := sc.gcm()
	if err != nil {
		return nil, err
	}
	if len(nonce) != gcm.NonceSize() {
		return nil, fmt.Errorf("failed to decrypt secret: nonce must be %d bytes, got %d", gcm.NonceSize(), len(nonce))
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt secret: %w", err)
	}

	return plaintext, nil
}
