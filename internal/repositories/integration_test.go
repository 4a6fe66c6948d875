//go:build integration

package repositories

import (
	"context"
	"log/slog"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"
)

// setupTestDatabase starts a Postgres container and applies migrations
func setupTestDatabase(t *testing.T) *database.DB {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("warden"),
		postgres.WithUsername("postgres"),
		postgres.WithPassword("postgres"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	db := database.NewDB(pool, slog.New(slog.NewTextHandler(os.Stderr, nil)))
	require.NoError(t, db.Migrate(ctx))

	return db
}

func TestIntegration_Repositories(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	accounts := NewAccountRepository(db)
	policies := NewMFAPolicyRepository(db, newTestCipher(t))
	counts := NewLoginCountRepository(db)
	failures := NewLoginFailureRepository(db)

	hash, err := pkgauth.HashPasswordWithCost("correct horse", bcrypt.MinCost)
	require.NoError(t, err)

	account, err := accounts.Create(ctx, &models.Account{Email: "Post.Malone@gmail.com", PasswordHash: hash})
	require.NoError(t, err)

	t.Run("account lookups", func(t *testing.T) {
		byEmail, err := accounts.GetByEmail(ctx, "post.malone@gmail.com")
		require.NoError(t, err)
		assert.Equal(t, account.ID, byEmail.ID)
		assert.Equal(t, models.AccountStatusActive, byEmail.Status)

		byID, err := accounts.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, hash, byID.PasswordHash)

		_, err = accounts.GetByEmail(ctx, "nobody@example.com")
		assert.ErrorIs(t, err, models.ErrNotFound)

		_, err = accounts.Create(ctx, &models.Account{Email: "post.malone@gmail.com"})
		assert.ErrorIs(t, err, models.ErrConflict)
	})

	t.Run("account lock", func(t *testing.T) {
		require.NoError(t, accounts.Lock(ctx, account.ID, time.Now().Add(time.Hour)))

		got, err := accounts.GetByID(ctx, account.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LockedUntil)
		assert.True(t, got.IsLocked())

		require.NoError(t, accounts.Lock(ctx, account.ID, time.Now().Add(-time.Minute)))

		got, err = accounts.GetByID(ctx, account.ID)
		require.NoError(t, err)
		assert.False(t, got.IsLocked())

		err = accounts.Lock(ctx, "00000000-0000-0000-0000-000000000000", time.Now())
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("mfa policy round trip", func(t *testing.T) {
		_, err := policies.LoadPolicy(ctx, account.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)

		secret := []byte("12345678901234567890")
		require.NoError(t, policies.SavePolicy(ctx, &models.MFAPolicy{
			AccountID:   account.ID,
			TOTPEnabled: true,
			SMSEnabled:  true,
			TOTPSecret:  secret,
		}))

		policy, err := policies.LoadPolicy(ctx, account.ID)
		require.NoError(t, err)
		assert.True(t, policy.TOTPEnabled)
		assert.True(t, policy.SMSEnabled)
		assert.Equal(t, secret, policy.TOTPSecret)

		err = policies.SavePolicy(ctx, &models.MFAPolicy{AccountID: account.ID, TOTPEnabled: true})
		assert.ErrorIs(t, err, models.ErrMFAPolicyInvalid)
	})

	t.Run("login counter concurrent increments", func(t *testing.T) {
		const n = 50

		initial, err := counts.Get(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, models.InitialLoginCount, initial)

		var mu sync.Mutex
		seen := make([]uint64, 0, n)

		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				count, err := counts.Increment(ctx, account.ID)
				if err != nil {
					return err
				}
				mu.Lock()
				seen = append(seen, count)
				mu.Unlock()
				return nil
			})
		}
		require.NoError(t, g.Wait())

		sort.Slice(seen, func(i, j int) bool { return seen[i] < seen[j] })
		for i, v := range seen {
			assert.Equal(t, uint64(i+2), v)
		}

		final, err := counts.Get(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, uint64(n+1), final)
	})

	t.Run("login failures window", func(t *testing.T) {
		const login = "post.malone@gmail.com"

		got, err := failures.Failures(ctx, login, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 0, got)

		for want := 1; want <= 3; want++ {
			n, err := failures.RecordFailure(ctx, login, time.Minute)
			require.NoError(t, err)
			assert.Equal(t, want, n)
		}

		// move the clock past the window
		failures.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

		got, err = failures.Failures(ctx, login, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 0, got)

		n, err := failures.RecordFailure(ctx, login, time.Minute)
		require.NoError(t, err)
		assert.Equal(t, 1, n, "a lapsed window restarts")

		require.NoError(t, failures.Reset(ctx, login))
		got, err = failures.Failures(ctx, login, time.Hour)
		require.NoError(t, err)
		assert.Equal(t, 0, got)
	})

	t.Run("login failures concurrent", func(t *testing.T) {
		const n = 50
		failures.now = time.Now

		var g errgroup.Group
		for i := 0; i < n; i++ {
			g.Go(func() error {
				_, err := failures.RecordFailure(ctx, "concurrent@example.com", time.Minute)
				return err
			})
		}
		require.NoError(t, g.Wait())

		got, err := failures.Failures(ctx, "concurrent@example.com", time.Minute)
		require.NoError(t, err)
		assert.Equal(t, n, got)
	})
}
