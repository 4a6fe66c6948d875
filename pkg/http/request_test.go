package http_test

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewIPConfig_InvalidRange(t *testing.T) {
	_, err := pkghttp.NewIPConfig([]string{"10.0.0.0/8", "not-a-cidr"})
	assert.Error(t, err)
}

func TestExtractClientIP(t *testing.T) {
	cfg, err := pkghttp.NewIPConfig([]string{"10.0.0.0/8", "127.0.0.1/32"})
	require.NoError(t, err)

	tests := []struct {
		name       string
		remoteAddr string
		xff        string
		xri        string
		config     *pkghttp.IPConfig
		want       string
	}{
		{"direct client ignores spoofed headers", "203.0.113.10:54321", "1.2.3.4", "5.6.7.8", cfg, "203.0.113.10"},
		{"trusted proxy uses first valid forwarded ip", "10.0.0.5:443", "garbage, 198.51.100.7, 10.0.0.1", "", cfg, "198.51.100.7"},
		{"trusted proxy falls back to x-real-ip", "127.0.0.1:80", "", "198.51.100.8", cfg, "198.51.100.8"},
		{"trusted proxy without headers", "10.1.2.3:80", "", "", cfg, "10.1.2.3"},
		{"nil config", "10.0.0.5:443", "198.51.100.7", "", nil, "10.0.0.5"},
		{"remote addr without port", "198.51.100.9", "", "", cfg, "198.51.100.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/auth/login", nil)
			req.RemoteAddr = tt.remoteAddr
			if tt.xff != "" {
				req.Header.Set("X-Forwarded-For", tt.xff)
			}
			if tt.xri != "" {
				req.Header.Set("X-Real-IP", tt.xri)
			}

			assert.Equal(t, tt.want, pkghttp.ExtractClientIP(req, tt.config))
		})
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Email string `json:"email"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"valid", `{"email":"a@b.c"}`, ""},
		{"empty", ``, "empty"},
		{"unknown field", `{"email":"a@b.c","admin":true}`, "invalid request body"},
		{"trailing object", `{"email":"a@b.c"}{"email":"d@e.f"}`, "single JSON object"},
		{"too large", `{"email":"` + strings.Repeat("a", pkghttp.MaxRequestBodyBytes) + `"}`, "too large"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/auth/login", strings.NewReader(tt.body))
			w := httptest.NewRecorder()

			var p payload
			err := pkghttp.DecodeJSON(w, req, &p)

			if tt.wantErr == "" {
				require.NoError(t, err)
				assert.Equal(t, "a@b.c", p.Email)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
