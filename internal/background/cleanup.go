package background

import (
	"context"
	"log/slog"
	"time"

	"github.com/icpac-net/booking-api/internal/services"
)

// CleanupManager periodically purges expired challenges and elapsed
// lockout state from the store.
type CleanupManager struct {
	challenges services.ChallengeStore
	lockouts   services.LockoutStore
	logger     *slog.Logger
	interval   time.Duration
	stopCh     chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(
	challenges services.ChallengeStore,
	lockouts services.LockoutStore,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		challenges: challenges,
		lockouts:   lockouts,
		logger:     logger,
		interval:   interval,
		stopCh:     make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup removes expired verification state from the store
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	challenges, err := cm.challenges.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired challenges", slog.Any("error", err))
	}

	lockouts, err := cm.lockouts.CleanupElapsed(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup elapsed lockouts", slog.Any("error", err))
	}

	if challenges > 0 || lockouts > 0 {
		cm.logger.Info("verification state cleanup completed",
			slog.Int64("challenges_removed", challenges),
			slog.Int64("lockouts_removed", lockouts))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	close(cm.stopCh)
}
