package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/background"
	"github.com/BradenHooton/warden/internal/config"
	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/handlers"
	middlewareCustom "github.com/BradenHooton/warden/internal/middleware"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/internal/routes"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", slog.Any("error", err))
		os.Exit(1)
	}

	logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLogLevel(cfg.Server.LogLevel)}))
	slog.SetDefault(logger)
	logger.Info("configuration loaded",
		slog.String("env", cfg.Server.Env),
		slog.String("counter_backend", cfg.Counter.Backend))

	if err := run(cfg, logger); err != nil {
		logger.Error("server exited with error", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info("server stopped gracefully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize database
	db, err := database.NewConnection(&cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx); err != nil {
			return err
		}
	}

	cipher, err := auth.NewSecretCipher(cfg.MFA.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to initialize secret cipher: %w", err)
	}

	// Initialize repositories
	accountRepo := repositories.NewAccountRepository(db)
	policyRepo := repositories.NewMFAPolicyRepository(db, cipher)

	healthChecks := map[string]handlers.HealthCheck{
		"database": db.HealthCheck,
	}

	stores, closeStores, err := newAttemptStores(ctx, cfg, db, healthChecks)
	if err != nil {
		return err
	}
	defer closeStores()

	auditLogger := pkglogger.NewAuditLogger(logger)

	// Core decision
	loginCounter := services.NewLoginCounter(stores.counts, logger)
	passwordVerifier := services.NewAccountPasswordVerifier(accountRepo, logger)
	limiter := services.NewAttemptLimiter(stores.failures, accountRepo, services.AttemptLimiterConfig{
		MaxFailures:     cfg.Auth.MaxFailedAttempts,
		Window:          cfg.Auth.FailureWindow,
		LockoutDuration: cfg.Auth.LockoutDuration,
	}, logger)
	authenticator := services.NewCredentialAuthenticator(
		passwordVerifier,
		policyRepo,
		auth.NewTOTPVerifier(),
		loginCounter,
		limiter,
		logger,
		auditLogger,
		services.AuthenticatorConfig{
			AppInterval: cfg.MFA.AppInterval,
			SMSInterval: cfg.MFA.SMSInterval,
		},
	)

	// Federation
	loadKeys := func() (*auth.PublicKeyRegistry, error) {
		return auth.LoadPublicKeyRegistry(cfg.Federation.DefaultKeyFile, cfg.Federation.ProviderKeyFiles)
	}
	registry, err := loadKeys()
	if err != nil {
		return fmt.Errorf("failed to load federation keys: %w", err)
	}
	keyResolver := auth.NewSwappableKeyResolver(registry)

	algorithm, err := auth.ParseSignatureAlgorithm(cfg.Federation.SignatureAlgorithm)
	if err != nil {
		return err
	}
	federation := services.NewFederatedLoginService(
		auth.NewSAMLRequestVerifierWithAlgorithm(keyResolver, algorithm),
		accountRepo,
		authenticator,
		logger,
		auditLogger,
	)

	// HTTP surface
	tokenManager := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.AccessTokenExpiry)
	timingDelay := auth.NewTimingDelay(auth.TimingConfig{
		BaseDelay:   cfg.Auth.TimingBaseDelay,
		RandomDelay: cfg.Auth.TimingRandomDelay,
	})

	ipConfig, err := pkghttp.NewIPConfig(cfg.Server.TrustedProxies)
	if err != nil {
		return fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}

	authHandler := handlers.NewAuthHandler(authenticator, federation, tokenManager, timingDelay, ipConfig, logger)
	sessionHandler := handlers.NewSessionHandler(loginCounter, logger)
	healthHandler := handlers.NewHealthHandler(healthChecks, logger)

	// Bootstrap first account if configured
	admin := services.AdminBootstrap{Email: cfg.Auth.AdminEmail, Password: cfg.Auth.AdminPassword}
	if cfg.Auth.AdminTOTPSecret != "" {
		admin.TOTPSecret, err = auth.DecodeSecret(cfg.Auth.AdminTOTPSecret)
		if err != nil {
			return fmt.Errorf("invalid ADMIN_TOTP_SECRET: %w", err)
		}
	}
	bootstrapCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	if err := services.EnsureAdminAccount(bootstrapCtx, accountRepo, policyRepo, admin, logger); err != nil {
		logger.Error("failed to ensure admin account", slog.Any("error", err))
	}
	cancel()

	// Setup router
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middlewareCustom.SecurityHeaders(middlewareCustom.SecurityHeadersConfig{Env: cfg.Server.Env}))
	router.Use(middlewareCustom.SecureLogger(logger, ipConfig))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	routes.RegisterRoutes(router, authHandler, sessionHandler, healthHandler, tokenManager, accountRepo, middlewareCustom.RateLimitConfig{
		RequestsPerMinute: cfg.Server.LoginRateLimit,
		IPConfig:          ipConfig,
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Federation.KeyReloadInterval > 0 {
		reloader := background.NewKeyReloader(keyResolver, loadKeys, logger, cfg.Federation.KeyReloadInterval)
		g.Go(func() error {
			reloader.Start(gctx)
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			reloader.Stop()
			return nil
		})
	}

	g.Go(func() error {
		logger.Info("starting server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		return nil
	})

	return g.Wait()
}

// attemptStores holds the login counter and failure budget backends
type attemptStores struct {
	counts   services.LoginCountStore
	failures services.LoginFailureStore
}

// newAttemptStores builds the configured backend for login counts and
// failure budgets. The returned close func is always safe to call.
func newAttemptStores(ctx context.Context, cfg *config.Config, db *database.DB, checks map[string]handlers.HealthCheck) (attemptStores, func(), error) {
	switch cfg.Counter.Backend {
	case config.CounterBackendMemory:
		return attemptStores{
			counts:   repositories.NewMemoryLoginCountStore(),
			failures: repositories.NewMemoryLoginFailureStore(),
		}, func() {}, nil

	case config.CounterBackendRedis:
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Counter.RedisAddr,
			Password: cfg.Counter.RedisPassword,
			DB:       cfg.Counter.RedisDB,
		})

		pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := client.Ping(pingCtx).Err(); err != nil {
			_ = client.Close()
			return attemptStores{}, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}

		checks["redis"] = func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		}
		return attemptStores{
			counts:   repositories.NewRedisLoginCountStore(client, cfg.Counter.RedisPrefix),
			failures: repositories.NewRedisLoginFailureStore(client, repositories.DefaultLoginFailurePrefix),
		}, func() { _ = client.Close() }, nil

	default:
		return attemptStores{
			counts:   repositories.NewLoginCountRepository(db),
			failures: repositories.NewLoginFailureRepository(db),
		}, func() {}, nil
	}
}

func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
