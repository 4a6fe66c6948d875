package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/services"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
	return resp
}

// MockAuthenticator implements Authenticator for testing
type MockAuthenticator struct {
	AuthenticateFunc func(ctx context.Context, attempt models.Attempt) (*services.AuthenticationResult, error)
	LastAttempt      models.Attempt
}

func (m *MockAuthenticator) Authenticate(ctx context.Context, attempt models.Attempt) (*services.AuthenticationResult, error) {
	m.LastAttempt = attempt
	if m.AuthenticateFunc == nil {
		return nil, models.ErrInvalidCredentials
	}
	return m.AuthenticateFunc(ctx, attempt)
}

// MockFederatedLogin implements FederatedLogin for testing
type MockFederatedLogin struct {
	LoginFunc   func(ctx context.Context, req *models.FederatedAuthenticationRequest) (*services.AuthenticationResult, error)
	LastRequest *models.FederatedAuthenticationRequest
}

func (m *MockFederatedLogin) Login(ctx context.Context, req *models.FederatedAuthenticationRequest) (*services.AuthenticationResult, error) {
	m.LastRequest = req
	if m.LoginFunc == nil {
		return nil, models.ErrSignatureInvalid
	}
	return m.LoginFunc(ctx, req)
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	GenerateAccessTokenFunc func(principal *models.Principal) (string, error)
}

func (m *MockTokenIssuer) GenerateAccessToken(principal *models.Principal) (string, error) {
	if m.GenerateAccessTokenFunc == nil {
		return "access_token_123", nil
	}
	return m.GenerateAccessTokenFunc(principal)
}

func (m *MockTokenIssuer) AccessTokenExpiry() time.Duration {
	return 15 * time.Minute
}

// MockLoginCountReader implements LoginCountReader for testing
type MockLoginCountReader struct {
	CountFunc func(ctx context.Context, accountID string) (uint64, error)
}

func (m *MockLoginCountReader) Count(ctx context.Context, accountID string) (uint64, error) {
	if m.CountFunc != nil {
		return m.CountFunc(ctx, accountID)
	}
	return models.InitialLoginCount, nil
}
