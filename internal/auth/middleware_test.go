package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAccounts struct {
	account *models.Account
	err     error
}

func (s *stubAccounts) GetByID(ctx context.Context, id string) (*models.Account, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.account, nil
}

func claimsEcho(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := GetClaimsFromContext(r)
		require.NotNil(t, claims)
		w.Header().Set("X-Account", claims.AccountID)
		w.WriteHeader(http.StatusOK)
	})
}

// ============================================================================
// AuthMiddleware
// ============================================================================

func TestAuthMiddleware_ValidToken(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Minute)
	token, err := tm.GenerateAccessToken(&models.Principal{AccountID: "acct-1", Email: "user@example.com"})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()

	AuthMiddleware(tm)(claimsEcho(t)).ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "acct-1", w.Header().Get("X-Account"))
}

func TestAuthMiddleware_Rejects(t *testing.T) {
	tm := NewTokenManager("test-secret-32-characters-long!", time.Minute)
	other := NewTokenManager("another-secret-32-characters-lng", time.Minute)
	foreign, err := other.GenerateAccessToken(&models.Principal{AccountID: "acct-1"})
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
		{"empty token", "Bearer "},
		{"garbage token", "Bearer not.a.jwt"},
		{"foreign signature", "Bearer " + foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()
			called := false

			AuthMiddleware(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})).ServeHTTP(w, req)

			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Header().Get("Content-Type"), "application/json")
			assert.False(t, called)
		})
	}
}

// ============================================================================
// RequireActiveAccount
// ============================================================================

func TestRequireActiveAccount(t *testing.T) {
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name     string
		accounts *stubAccounts
		want     int
	}{
		{"active", &stubAccounts{account: &models.Account{ID: "acct-1", Status: models.AccountStatusActive}}, http.StatusOK},
		{"disabled", &stubAccounts{account: &models.Account{ID: "acct-1", Status: models.AccountStatusDisabled}}, http.StatusUnauthorized},
		{"locked", &stubAccounts{account: &models.Account{ID: "acct-1", Status: models.AccountStatusActive, LockedUntil: &future}}, http.StatusUnauthorized},
		{"deleted", &stubAccounts{err: models.ErrNotFound}, http.StatusUnauthorized},
		{"store failure", &stubAccounts{err: errors.New("connection reset")}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
			ctx := context.WithValue(req.Context(), ClaimsContextKey, &models.TokenClaims{AccountID: "acct-1"})
			w := httptest.NewRecorder()

			RequireActiveAccount(tt.accounts)(claimsEcho(t)).ServeHTTP(w, req.WithContext(ctx))

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestRequireActiveAccount_WithoutClaims(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	w := httptest.NewRecorder()

	RequireActiveAccount(&stubAccounts{})(http.NotFoundHandler()).ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGetClaimsFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, GetClaimsFromContext(req))
}
