package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
)

// KeyLoader builds a fresh registry, usually from PEM files on disk
type KeyLoader func() (*auth.PublicKeyRegistry, error)

// KeyReloader periodically reloads federation public keys so rotated
// provider keys take effect without a restart
type KeyReloader struct {
	resolver *auth.SwappableKeyResolver
	load     KeyLoader
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewKeyReloader creates a new key reloader
func NewKeyReloader(
	resolver *auth.SwappableKeyResolver,
	load KeyLoader,
	logger *slog.Logger,
	interval time.Duration,
) *KeyReloader {
	return &KeyReloader{
		resolver: resolver,
		load:     load,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the reload loop until Stop is called or ctx is done
func (kr *KeyReloader) Start(ctx context.Context) {
	ticker := time.NewTicker(kr.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			kr.reload()
		case <-kr.stopCh:
			kr.logger.Info("key reloader stopped")
			return
		case <-ctx.Done():
			kr.logger.Info("key reloader context cancelled")
			return
		}
	}
}

// reload swaps in a new registry. On failure the previous keys stay in
// service.
func (kr *KeyReloader) reload() {
	registry, err := kr.load()
	if err != nil {
		kr.logger.Error("failed to reload federation keys, keeping previous keys", slog.Any("error", err))
		return
	}

	kr.resolver.Swap(registry)
	kr.logger.Info("federation keys reloaded", slog.Int("providers", registry.Len()))
}

// Stop signals the reloader to stop
func (kr *KeyReloader) Stop() {
	close(kr.stopCh)
}
