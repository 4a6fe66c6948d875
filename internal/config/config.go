package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Login counter backends
const (
	CounterBackendMemory   = "memory"
	CounterBackendPostgres = "postgres"
	CounterBackendRedis    = "redis"
)

type Config struct {
	Database   DatabaseConfig
	Server     ServerConfig
	Auth       AuthConfig
	MFA        MFAConfig
	Federation FederationConfig
	Counter    CounterConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	AutoMigrate       bool
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	LoginRateLimit int // requests per minute per IP on the login routes
	TrustedProxies []string
}

type AuthConfig struct {
	JWTSecret         string
	AccessTokenExpiry time.Duration
	TimingBaseDelay   time.Duration
	TimingRandomDelay time.Duration
	AdminEmail        string
	AdminPassword     string
	AdminTOTPSecret   string // base32, enrolls the admin for app step-up

	// Per-login failure budget
	MaxFailedAttempts int
	FailureWindow     time.Duration
	LockoutDuration   time.Duration
}

type MFAConfig struct {
	EncryptionKey []byte // AES-256 key for TOTP secrets at rest
	AppInterval   time.Duration
	SMSInterval   time.Duration
}

type FederationConfig struct {
	DefaultKeyFile     string
	ProviderKeyFiles   map[string]string // identity provider URL -> PEM file
	SignatureAlgorithm string
	KeyReloadInterval  time.Duration // zero disables reloading
}

type CounterConfig struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	jwtSecret := getEnv("JWT_SECRET", "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	env := getEnv("ENV", "development")

	providerKeys, err := parseProviderKeys(getEnv("FEDERATION_PROVIDER_KEYS", ""))
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:              getEnv("DB_HOST", "localhost"),
			Port:              getEnvAsInt("DB_PORT", 5432),
			User:              getEnv("DB_USER", "postgres"),
			Password:          getEnv("DB_PASSWORD", ""),
			Name:              getEnv("DB_NAME", "warden"),
			SSLMode:           getEnv("DB_SSLMODE", "disable"),
			MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 25)),
			MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 5)),
			MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
			HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
			AutoMigrate:       getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			LoginRateLimit: getEnvAsInt("LOGIN_RATE_LIMIT", 10),
			TrustedProxies: splitList(getEnv("TRUSTED_PROXIES", "")),
		},
		Auth: AuthConfig{
			JWTSecret:         jwtSecret,
			AccessTokenExpiry: getEnvAsDuration("ACCESS_TOKEN_EXPIRY", 15*time.Minute),
			TimingBaseDelay:   getEnvAsDuration("AUTH_TIMING_BASE_DELAY", 500*time.Millisecond),
			TimingRandomDelay: getEnvAsDuration("AUTH_TIMING_RANDOM_DELAY", 100*time.Millisecond),
			AdminEmail:        getEnv("ADMIN_EMAIL", ""),
			AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
			AdminTOTPSecret:   getEnv("ADMIN_TOTP_SECRET", ""),
			MaxFailedAttempts: getEnvAsInt("MAX_FAILED_ATTEMPTS", 5),
			FailureWindow:     getEnvAsDuration("FAILED_ATTEMPT_WINDOW", 15*time.Minute),
			LockoutDuration:   getEnvAsDuration("ACCOUNT_LOCKOUT_DURATION", 15*time.Minute),
		},
		MFA: MFAConfig{
			AppInterval: getEnvAsDuration("TOTP_APP_INTERVAL", 30*time.Second),
			SMSInterval: getEnvAsDuration("TOTP_SMS_INTERVAL", 300*time.Second),
		},
		Federation: FederationConfig{
			DefaultKeyFile:     getEnv("FEDERATION_DEFAULT_KEY_FILE", ""),
			ProviderKeyFiles:   providerKeys,
			SignatureAlgorithm: getEnv("FEDERATION_SIGNATURE_ALGORITHM", "SHA1withRSA"),
			KeyReloadInterval:  getEnvAsDuration("FEDERATION_KEY_RELOAD_INTERVAL", 0),
		},
		Counter: CounterConfig{
			Backend:       strings.ToLower(getEnv("LOGIN_COUNTER_BACKEND", CounterBackendPostgres)),
			RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
			RedisPassword: getEnv("REDIS_PASSWORD", ""),
			RedisDB:       getEnvAsInt("REDIS_DB", 0),
			RedisPrefix:   getEnv("REDIS_KEY_PREFIX", "warden:login_count:"),
		},
	}

	if cfg.Database.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}

	if err := validateJWTSecret(jwtSecret, env); err != nil {
		return nil, err
	}

	key, err := parseEncryptionKey(getEnv("TOTP_ENCRYPTION_KEY", ""))
	if err != nil {
		return nil, err
	}
	cfg.MFA.EncryptionKey = key

	if cfg.MFA.AppInterval < time.Second || cfg.MFA.SMSInterval < time.Second {
		return nil, fmt.Errorf("TOTP intervals must be at least one second")
	}

	switch cfg.Counter.Backend {
	case CounterBackendMemory, CounterBackendPostgres, CounterBackendRedis:
	default:
		return nil, fmt.Errorf("LOGIN_COUNTER_BACKEND must be one of memory, postgres, redis (got %q)", cfg.Counter.Backend)
	}

	if (cfg.Auth.AdminEmail == "") != (cfg.Auth.AdminPassword == "") {
		return nil, fmt.Errorf("ADMIN_EMAIL and ADMIN_PASSWORD must be set together")
	}

	if cfg.Auth.AdminTOTPSecret != "" && cfg.Auth.AdminEmail == "" {
		return nil, fmt.Errorf("ADMIN_TOTP_SECRET requires ADMIN_EMAIL and ADMIN_PASSWORD")
	}

	if cfg.Auth.MaxFailedAttempts < 1 {
		return nil, fmt.Errorf("MAX_FAILED_ATTEMPTS must be at least 1")
	}
	if cfg.Auth.FailureWindow <= 0 || cfg.Auth.LockoutDuration <= 0 {
		return nil, fmt.Errorf("FAILED_ATTEMPT_WINDOW and ACCOUNT_LOCKOUT_DURATION must be positive")
	}

	return cfg, nil
}

// validateJWTSecret enforces minimum security standards for JWT secret
func validateJWTSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32
	}

	if len(secret) < minLength {
		return fmt.Errorf("JWT_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak {
			return fmt.Errorf("JWT_SECRET cannot be a common weak value")
		}
	}

	return nil
}

// parseEncryptionKey accepts the key as 64 hex characters
func parseEncryptionKey(value string) ([]byte, error) {
	if value == "" {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY is required")
	}
	key, err := hex.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY must be hex encoded: %w", err)
	}
	if len(key) != 32 {
		return nil, fmt.Errorf("TOTP_ENCRYPTION_KEY must decode to 32 bytes (got %d)", len(key))
	}
	return key, nil
}

// parseProviderKeys parses "url=path,url=path". The URL may itself
// contain '=' so the split is on the last one.
func parseProviderKeys(value string) (map[string]string, error) {
	keys := make(map[string]string)
	if strings.TrimSpace(value) == "" {
		return keys, nil
	}

	for _, entry := range strings.Split(value, ",") {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		idx := strings.LastIndex(entry, "=")
		if idx <= 0 || idx == len(entry)-1 {
			return nil, fmt.Errorf("FEDERATION_PROVIDER_KEYS entry %q must be url=path", entry)
		}
		keys[strings.TrimSpace(entry[:idx])] = strings.TrimSpace(entry[idx+1:])
	}
	return keys, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

func getEnvAsBool(key string, defaultVal bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultVal
}

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultVal
}
