package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// LoginCountReader reads an account's login count without changing it
type LoginCountReader interface {
	Count(ctx context.Context, accountID string) (uint64, error)
}

type SessionHandler struct {
	counts LoginCountReader
	logger *slog.Logger
}

func NewSessionHandler(counts LoginCountReader, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{counts: counts, logger: logger}
}

// SessionResponse describes the caller's current access token
type SessionResponse struct {
	AccountID  string    `json:"account_id"`
	Email      string    `json:"email,omitempty"`
	Federated  bool      `json:"federated,omitempty"`
	LoginCount uint64    `json:"login_count,omitempty"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}

// Session returns the identity bound to the presented access token and the
// account's current login count. The count is omitted if it cannot be read.
// @Router /auth/session [get]
func (h *SessionHandler) Session(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetClaimsFromContext(r)
	if claims == nil {
		pkghttp.WriteError(w, http.StatusUnauthorized, "unauthorized", "unauthorized")
		return
	}

	resp := SessionResponse{
		AccountID: claims.AccountID,
		Email:     claims.Email,
		Federated: claims.Federated,
	}
	if claims.IssuedAt != nil {
		resp.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		resp.ExpiresAt = claims.ExpiresAt.Time
	}

	count, err := h.counts.Count(r.Context(), claims.AccountID)
	if err != nil {
		h.logger.Warn("failed to read login count",
			slog.String("account_id", claims.AccountID),
			slog.Any("error", err))
	} else {
		resp.LoginCount = count
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}
