package config

import (
	"strings"
	"testing"
	"time"
)

const testEncryptionKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("JWT_SECRET", "test-secret-32-characters-long!")
	t.Setenv("DB_PASSWORD", "test")
	t.Setenv("TOTP_ENCRYPTION_KEY", testEncryptionKey)
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	durations := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"WriteTimeout", cfg.Server.WriteTimeout, 15 * time.Second},
		{"IdleTimeout", cfg.Server.IdleTimeout, 60 * time.Second},
		{"AppInterval", cfg.MFA.AppInterval, 30 * time.Second},
		{"SMSInterval", cfg.MFA.SMSInterval, 300 * time.Second},
		{"AccessTokenExpiry", cfg.Auth.AccessTokenExpiry, 15 * time.Minute},
		{"FailureWindow", cfg.Auth.FailureWindow, 15 * time.Minute},
		{"LockoutDuration", cfg.Auth.LockoutDuration, 15 * time.Minute},
	}

	for _, tt := range durations {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}

	if cfg.Auth.MaxFailedAttempts != 5 {
		t.Errorf("MaxFailedAttempts = %d, want 5", cfg.Auth.MaxFailedAttempts)
	}
	if cfg.Counter.Backend != CounterBackendPostgres {
		t.Errorf("Counter.Backend = %q, want %q", cfg.Counter.Backend, CounterBackendPostgres)
	}
	if cfg.Federation.SignatureAlgorithm != "SHA1withRSA" {
		t.Errorf("SignatureAlgorithm = %q, want SHA1withRSA", cfg.Federation.SignatureAlgorithm)
	}
	if len(cfg.MFA.EncryptionKey) != 32 {
		t.Errorf("EncryptionKey length = %d, want 32", len(cfg.MFA.EncryptionKey))
	}
	if len(cfg.Federation.ProviderKeyFiles) != 0 {
		t.Errorf("ProviderKeyFiles = %v, want empty", cfg.Federation.ProviderKeyFiles)
	}
}

func TestLoad_CustomValues(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_READ_TIMEOUT", "30s")
	t.Setenv("TOTP_SMS_INTERVAL", "600s")
	t.Setenv("LOGIN_COUNTER_BACKEND", "Redis")
	t.Setenv("REDIS_ADDR", "redis:6379")
	t.Setenv("FEDERATION_PROVIDER_KEYS", "https://idp.example/saml?x=1=/keys/idp.pem, https://other.example=/keys/other.pem")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Server.ReadTimeout != 30*time.Second {
		t.Errorf("ReadTimeout = %v, want 30s", cfg.Server.ReadTimeout)
	}
	if cfg.MFA.SMSInterval != 600*time.Second {
		t.Errorf("SMSInterval = %v, want 600s", cfg.MFA.SMSInterval)
	}
	if cfg.Counter.Backend != CounterBackendRedis {
		t.Errorf("Counter.Backend = %q, want redis", cfg.Counter.Backend)
	}
	if cfg.Counter.RedisAddr != "redis:6379" {
		t.Errorf("RedisAddr = %q", cfg.Counter.RedisAddr)
	}

	want := map[string]string{
		"https://idp.example/saml?x=1": "/keys/idp.pem",
		"https://other.example":        "/keys/other.pem",
	}
	for url, path := range want {
		if got := cfg.Federation.ProviderKeyFiles[url]; got != path {
			t.Errorf("ProviderKeyFiles[%q] = %q, want %q", url, got, path)
		}
	}
}

func TestLoad_Validation(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"missing jwt secret", map[string]string{"JWT_SECRET": ""}, "JWT_SECRET is required"},
		{"weak jwt secret", map[string]string{"JWT_SECRET": "short"}, "at least 16"},
		{"missing db password", map[string]string{"DB_PASSWORD": ""}, "DB_PASSWORD"},
		{"missing encryption key", map[string]string{"TOTP_ENCRYPTION_KEY": ""}, "TOTP_ENCRYPTION_KEY is required"},
		{"short encryption key", map[string]string{"TOTP_ENCRYPTION_KEY": "abcd"}, "32 bytes"},
		{"non-hex encryption key", map[string]string{"TOTP_ENCRYPTION_KEY": strings.Repeat("z", 64)}, "hex"},
		{"unknown counter backend", map[string]string{"LOGIN_COUNTER_BACKEND": "etcd"}, "LOGIN_COUNTER_BACKEND"},
		{"admin email without password", map[string]string{"ADMIN_EMAIL": "root@example.com"}, "ADMIN_EMAIL"},
		{"malformed provider keys", map[string]string{"FEDERATION_PROVIDER_KEYS": "nokey"}, "url=path"},
		{"zero interval", map[string]string{"TOTP_APP_INTERVAL": "0s"}, "at least one second"},
		{"zero failure budget", map[string]string{"MAX_FAILED_ATTEMPTS": "0"}, "MAX_FAILED_ATTEMPTS"},
		{"negative lockout", map[string]string{"ACCOUNT_LOCKOUT_DURATION": "-1m"}, "ACCOUNT_LOCKOUT_DURATION"},
		{"admin totp without admin", map[string]string{"ADMIN_TOTP_SECRET": "GEZDGNBV"}, "ADMIN_TOTP_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			if err == nil {
				t.Fatalf("Load() = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Load() error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLoad_ProductionRequiresLongSecret(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "twenty-chars-secret!")

	if _, err := Load(); err == nil {
		t.Fatal("Load() = nil, want error for short production secret")
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Name: "warden", SSLMode: "require"}

	want := "host=db port=5433 user=u password=p dbname=warden sslmode=require"
	if got := cfg.DSN(); got != want {
		t.Errorf("DSN() = %q, want %q", got, want)
	}
}
