package handlers_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sessionSecret = "test-secret-32-characters-long!"

func sessionRequest(t *testing.T, tm *auth.TokenManager, principal *models.Principal) *http.Request {
	t.Helper()
	token, err := tm.GenerateAccessToken(principal)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}

func TestSession_ReturnsTokenIdentity(t *testing.T) {
	tm := auth.NewTokenManager(sessionSecret, 15*time.Minute)
	counts := &handlers.MockLoginCountReader{
		CountFunc: func(ctx context.Context, accountID string) (uint64, error) {
			assert.Equal(t, "acct-9", accountID)
			return 7, nil
		},
	}
	handler := handlers.NewSessionHandler(counts, testLogger())

	req := sessionRequest(t, tm, &models.Principal{
		AccountID: "acct-9",
		Email:     "user@example.com",
		Federated: true,
	})
	w := httptest.NewRecorder()
	auth.AuthMiddleware(tm)(http.HandlerFunc(handler.Session)).ServeHTTP(w, req)

	var resp handlers.SessionResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "acct-9", resp.AccountID)
	assert.Equal(t, "user@example.com", resp.Email)
	assert.True(t, resp.Federated)
	assert.Equal(t, uint64(7), resp.LoginCount)
	assert.WithinDuration(t, resp.IssuedAt.Add(15*time.Minute), resp.ExpiresAt, time.Second)
}

func TestSession_CountFailureOmitsCount(t *testing.T) {
	tm := auth.NewTokenManager(sessionSecret, 15*time.Minute)
	counts := &handlers.MockLoginCountReader{
		CountFunc: func(ctx context.Context, accountID string) (uint64, error) {
			return 0, errors.New("redis: connection refused")
		},
	}
	handler := handlers.NewSessionHandler(counts, testLogger())

	w := httptest.NewRecorder()
	auth.AuthMiddleware(tm)(http.HandlerFunc(handler.Session)).
		ServeHTTP(w, sessionRequest(t, tm, &models.Principal{AccountID: "acct-9"}))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), "login_count")

	var resp handlers.SessionResponse
	handlers.AssertJSONResponse(t, w, http.StatusOK, &resp)
	assert.Equal(t, "acct-9", resp.AccountID)
}

func TestSession_WithoutClaims(t *testing.T) {
	handler := handlers.NewSessionHandler(&handlers.MockLoginCountReader{}, testLogger())

	w := httptest.NewRecorder()
	handler.Session(w, httptest.NewRequest(http.MethodGet, "/auth/session", nil))

	handlers.AssertErrorResponse(t, w, http.StatusUnauthorized, "unauthorized")
}
