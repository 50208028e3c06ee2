package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/icpac-net/booking-api/internal/models"
	pkglogger "github.com/icpac-net/booking-api/pkg/logger"
)

// LockoutStore defines the interface for lockout state persistence
type LockoutStore interface {
	Get(ctx context.Context, identity string) (*models.LockoutState, error)
	Fail(ctx context.Context, identity string, threshold int, cooldown time.Duration) (*models.LockoutState, error)
	Reset(ctx context.Context, identity string) error
	CleanupElapsed(ctx context.Context) (int64, error)
}

// LockoutConfig holds the repeated-failure protection knobs
type LockoutConfig struct {
	Threshold int
	Cooldown  time.Duration
}

// LockoutService tracks consecutive failed verification attempts per
// identity and denies further attempts once the threshold is reached,
// until the cooldown elapses.
type LockoutService struct {
	store  LockoutStore
	config LockoutConfig
	logger *slog.Logger
}

// NewLockoutService creates a new LockoutService
func NewLockoutService(store LockoutStore, config LockoutConfig, logger *slog.Logger) *LockoutService {
	return &LockoutService{
		store:  store,
		config: config,
		logger: logger,
	}
}

// CanAttempt reports whether the identity may attempt verification.
// Identities with no recorded state may always attempt.
func (s *LockoutService) CanAttempt(ctx context.Context, identity string) (bool, error) {
	state, err := s.store.Get(ctx, identity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return true, nil
		}
		return false, err
	}

	return !state.IsLocked(), nil
}

// RecordFailure increments the failure counter; reaching the threshold
// locks the identity for the cooldown window. Returns the new state.
func (s *LockoutService) RecordFailure(ctx context.Context, identity string) (*models.LockoutState, error) {
	state, err := s.store.Fail(ctx, identity, s.config.Threshold, s.config.Cooldown)
	if err != nil {
		return nil, err
	}

	if state.IsLocked() {
		s.logger.Warn("identity locked out after repeated failures",
			slog.String("identity", pkglogger.SanitizedEmail(identity)),
			slog.Int("failure_count", state.FailureCount),
			slog.Time("locked_until", *state.LockedUntil))
	}

	return state, nil
}

// RecordSuccess resets the failure counter and clears any lock
func (s *LockoutService) RecordSuccess(ctx context.Context, identity string) error {
	return s.store.Reset(ctx, identity)
}

// AttemptsRemaining converts a failure count into the number of attempts
// left before lockout. Never negative.
func (s *LockoutService) AttemptsRemaining(failureCount int) int {
	remaining := s.config.Threshold - failureCount
	if remaining < 0 {
		return 0
	}
	return remaining
}
