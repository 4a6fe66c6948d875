package services

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	pkglogger "github.com/BradenHooton/warden/pkg/logger"
	"golang.org/x/crypto/bcrypt"
)

// MockAccountRepository implements AccountRepository for testing
type MockAccountRepository struct {
	GetByIDFunc    func(ctx context.Context, id string) (*models.Account, error)
	GetByEmailFunc func(ctx context.Context, email string) (*models.Account, error)
}

func (m *MockAccountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, models.ErrNotFound
}

func (m *MockAccountRepository) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

// MockAdminAccountStore implements AdminAccountStore for testing
type MockAdminAccountStore struct {
	GetByEmailFunc func(ctx context.Context, email string) (*models.Account, error)
	CreateFunc     func(ctx context.Context, account *models.Account) (*models.Account, error)
}

func (m *MockAdminAccountStore) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, models.ErrNotFound
}

func (m *MockAdminAccountStore) Create(ctx context.Context, account *models.Account) (*models.Account, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, account)
	}
	created := *account
	created.ID = "admin-1"
	return &created, nil
}

// MockPolicySaver implements PolicySaver for testing
type MockPolicySaver struct {
	SavePolicyFunc func(ctx context.Context, policy *models.MFAPolicy) error
	Saved          []*models.MFAPolicy
}

func (m *MockPolicySaver) SavePolicy(ctx context.Context, policy *models.MFAPolicy) error {
	m.Saved = append(m.Saved, policy)
	if m.SavePolicyFunc != nil {
		return m.SavePolicyFunc(ctx, policy)
	}
	return nil
}

// MockPasswordVerifier implements PasswordVerifier for testing
type MockPasswordVerifier struct {
	VerifyFunc func(ctx context.Context, accountID, password string) (*models.Principal, error)
	Calls      atomic.Int32
}

func (m *MockPasswordVerifier) Verify(ctx context.Context, accountID, password string) (*models.Principal, error) {
	m.Calls.Add(1)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, accountID, password)
	}
	return nil, models.ErrInvalidCredentials
}

// MockPolicyLoader implements PolicyLoader for testing
type MockPolicyLoader struct {
	LoadPolicyFunc func(ctx context.Context, accountID string) (*models.MFAPolicy, error)
	Calls          atomic.Int32
}

func (m *MockPolicyLoader) LoadPolicy(ctx context.Context, accountID string) (*models.MFAPolicy, error) {
	m.Calls.Add(1)
	if m.LoadPolicyFunc != nil {
		return m.LoadPolicyFunc(ctx, accountID)
	}
	return nil, models.ErrNotFound
}

// MockCodeVerifier implements CodeVerifier for testing
type MockCodeVerifier struct {
	VerifyFunc   func(secret []byte, interval time.Duration, code string, now time.Time) bool
	Calls        atomic.Int32
	LastInterval time.Duration
}

func (m *MockCodeVerifier) Verify(secret []byte, interval time.Duration, code string, now time.Time) bool {
	m.Calls.Add(1)
	m.LastInterval = interval
	if m.VerifyFunc != nil {
		return m.VerifyFunc(secret, interval, code, now)
	}
	return false
}

// MockLoginTracker implements LoginTracker for testing
type MockLoginTracker struct {
	TrackLoginFunc func(ctx context.Context, accountID string) (uint64, error)
	Calls          atomic.Int32
}

func (m *MockLoginTracker) TrackLogin(ctx context.Context, accountID string) (uint64, error) {
	n := m.Calls.Add(1)
	if m.TrackLoginFunc != nil {
		return m.TrackLoginFunc(ctx, accountID)
	}
	return uint64(n) + models.InitialLoginCount, nil
}

// MockLoginCountStore implements LoginCountStore for testing
type MockLoginCountStore struct {
	IncrementFunc func(ctx context.Context, accountID string) (uint64, error)
	GetFunc       func(ctx context.Context, accountID string) (uint64, error)
}

func (m *MockLoginCountStore) Increment(ctx context.Context, accountID string) (uint64, error) {
	if m.IncrementFunc != nil {
		return m.IncrementFunc(ctx, accountID)
	}
	return models.InitialLoginCount + 1, nil
}

func (m *MockLoginCountStore) Get(ctx context.Context, accountID string) (uint64, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, accountID)
	}
	return models.InitialLoginCount, nil
}

// MockLoginFailureStore is an in-memory LoginFailureStore. Err, when set,
// is returned by every call.
type MockLoginFailureStore struct {
	mu       sync.Mutex
	failures map[string]int
	Err      error
}

func NewMockLoginFailureStore() *MockLoginFailureStore {
	return &MockLoginFailureStore{failures: make(map[string]int)}
}

func (m *MockLoginFailureStore) RecordFailure(ctx context.Context, login string, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	m.failures[login]++
	return m.failures[login], nil
}

func (m *MockLoginFailureStore) Failures(ctx context.Context, login string, window time.Duration) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return 0, m.Err
	}
	return m.failures[login], nil
}

func (m *MockLoginFailureStore) Reset(ctx context.Context, login string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	delete(m.failures, login)
	return nil
}

// MockAccountLocker implements AccountLocker for testing
type MockAccountLocker struct {
	LockFunc     func(ctx context.Context, accountID string, until time.Time) error
	Calls        atomic.Int32
	LastAccount  string
	LastDeadline time.Time
}

func (m *MockAccountLocker) Lock(ctx context.Context, accountID string, until time.Time) error {
	m.Calls.Add(1)
	m.LastAccount = accountID
	m.LastDeadline = until
	if m.LockFunc != nil {
		return m.LockFunc(ctx, accountID, until)
	}
	return nil
}

// MockRequestVerifier implements RequestVerifier for testing
type MockRequestVerifier struct {
	VerifyRequestFunc func(req *models.FederatedAuthenticationRequest) error
}

func (m *MockRequestVerifier) VerifyRequest(req *models.FederatedAuthenticationRequest) error {
	if m.VerifyRequestFunc != nil {
		return m.VerifyRequestFunc(req)
	}
	return models.ErrSignatureInvalid
}

// NewTestLogger returns a logger that discards output
func NewTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestAuditLogger returns an audit logger that discards output
func NewTestAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(NewTestLogger())
}

// NewTestAccount creates an active account
func NewTestAccount(id, email string) *models.Account {
	now := time.Now()
	return &models.Account{
		ID:        id,
		Email:     email,
		Status:    models.AccountStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// NewTestAccountWithPassword creates an active account with a low-cost bcrypt hash
func NewTestAccountWithPassword(id, email, password string) *models.Account {
	account := NewTestAccount(id, email)
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	account.PasswordHash = string(hash)
	return account
}

// StringPtr returns a pointer to s
func StringPtr(s string) *string {
	return &s
}
