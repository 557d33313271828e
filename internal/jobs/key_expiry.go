// key_expiry.go implements the KeyExpirySweeper background job, which
// periodically scans for API keys approaching expiry, logs them, and updates
// the api_keys_expiring_soon gauge so operators can alert before a tenant's
// integration goes dark. Expiry itself is enforced at verification time; the
// sweeper never writes anything back.
package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/cloud-companion/cloud-companion/internal/config"
	"github.com/cloud-companion/cloud-companion/internal/repositories"
	"github.com/cloud-companion/cloud-companion/internal/telemetry"
)

// KeyExpirySweeper periodically surfaces keys that are about to expire.
type KeyExpirySweeper struct {
	apiKeyRepo *repositories.APIKeyRepository
	cfg        *config.JobsConfig
	interval   time.Duration
	window     time.Duration
	stopChan   chan struct{}
}

// NewKeyExpirySweeper creates a new KeyExpirySweeper using the configured
// check interval (default 24h) and warning window (default 7 days).
func NewKeyExpirySweeper(apiKeyRepo *repositories.APIKeyRepository, cfg *config.JobsConfig) *KeyExpirySweeper {
	hours := cfg.KeyExpiryCheckIntervalHr
	if hours <= 0 {
		hours = 24
	}
	days := cfg.KeyExpiryWarningDays
	if days <= 0 {
		days = 7
	}
	return &KeyExpirySweeper{
		apiKeyRepo: apiKeyRepo,
		cfg:        cfg,
		interval:   time.Duration(hours) * time.Hour,
		window:     time.Duration(days) * 24 * time.Hour,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the sweep loop. It runs once immediately, then repeats on the
// configured interval until ctx is cancelled or Stop is called.
func (s *KeyExpirySweeper) Start(ctx context.Context) {
	if !s.cfg.KeyExpirySweepEnabled {
		slog.Info("Key expiry sweeper disabled")
		return
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Key expiry sweeper started",
		"check_interval", s.interval,
		"warning_window", s.window)

	s.runSweep(ctx)

	for {
		select {
		case <-ticker.C:
			s.runSweep(ctx)
		case <-s.stopChan:
			slog.Info("Key expiry sweeper stopped")
			return
		case <-ctx.Done():
			slog.Info("Key expiry sweeper context cancelled")
			return
		}
	}
}

// Stop signals the sweep loop to exit.
func (s *KeyExpirySweeper) Stop() {
	close(s.stopChan)
}

func (s *KeyExpirySweeper) runSweep(ctx context.Context) {
	keys, err := s.apiKeyRepo.FindExpiringSoon(ctx, s.window)
	if err != nil {
		slog.Error("Key expiry sweep failed", "error", err)
		return
	}

	telemetry.APIKeysExpiringSoon.Set(float64(len(keys)))

	for _, key := range keys {
		slog.Warn("API key approaching expiry",
			"api_key_id", key.ID,
			"name", key.Name,
			"expires_at", key.ExpiresAt)
	}
}
