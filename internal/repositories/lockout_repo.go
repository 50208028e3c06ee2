package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/icpac-net/booking-api/internal/database"
	"github.com/icpac-net/booking-api/internal/models"
)

// LockoutRepository handles failed-attempt state per identity
type LockoutRepository struct {
	db *database.DB
}

// NewLockoutRepository creates a new LockoutRepository
func NewLockoutRepository(db *database.DB) *LockoutRepository {
	return &LockoutRepository{db: db}
}

// Get retrieves the lockout state for an identity
func (r *LockoutRepository) Get(ctx context.Context, identity string) (*models.LockoutState, error) {
	query := `
		SELECT identity, failure_count, locked_until, updated_at
		FROM lockout_states
		WHERE identity = $1
	`

	var s models.LockoutState
	err := r.db.Pool.QueryRow(ctx, query, identity).Scan(
		&s.Identity, &s.FailureCount, &s.LockedUntil, &s.UpdatedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &s, nil
}

// Fail atomically increments the failure counter and, when the counter
// reaches the threshold, sets the lock expiry in the same statement so
// concurrent submissions can never lose an update. A counter left over
// from an elapsed lock restarts at 1 so a served cooldown grants the
// full threshold again.
func (r *LockoutRepository) Fail(ctx context.Context, identity string, threshold int, cooldown time.Duration) (*models.LockoutState, error) {
	query := `
		INSERT INTO lockout_states (identity, failure_count, locked_until, updated_at)
		VALUES ($1, 1, NULL, NOW())
		ON CONFLICT (identity) DO UPDATE
		SET failure_count = CASE
		        WHEN lockout_states.locked_until IS NOT NULL AND lockout_states.locked_until < NOW()
		        THEN 1
		        ELSE lockout_states.failure_count + 1
		    END,
		    locked_until = CASE
		        WHEN lockout_states.locked_until IS NOT NULL AND lockout_states.locked_until < NOW()
		        THEN CASE WHEN 1 >= $2 THEN NOW() + make_interval(secs => $3) ELSE NULL END
		        WHEN lockout_states.failure_count + 1 >= $2
		        THEN NOW() + make_interval(secs => $3)
		        ELSE lockout_states.locked_until
		    END,
		    updated_at = NOW()
		RETURNING identity, failure_count, locked_until, updated_at
	`

	var s models.LockoutState
	err := r.db.Pool.QueryRow(ctx, query, identity, threshold, cooldown.Seconds()).Scan(
		&s.Identity, &s.FailureCount, &s.LockedUntil, &s.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to record verification failure: %w", err)
	}

	return &s, nil
}

// Reset clears the failure counter and any lock after a successful
// verification.
func (r *LockoutRepository) Reset(ctx context.Context, identity string) error {
	query := `DELETE FROM lockout_states WHERE identity = $1`

	_, err := r.db.Pool.Exec(ctx, query, identity)
	if err != nil {
		return fmt.Errorf("failed to reset lockout state: %w", err)
	}

	return nil
}

// CleanupElapsed removes lockout rows whose cooldown has passed and stale
// counters that never reached the threshold.
func (r *LockoutRepository) CleanupElapsed(ctx context.Context) (int64, error) {
	query := `
		DELETE FROM lockout_states
		WHERE (locked_until IS NOT NULL AND locked_until < NOW())
		   OR (locked_until IS NULL AND updated_at < NOW() - INTERVAL '1 day')
	`

	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup lockout states: %w", err)
	}

	return result.RowsAffected(), nil
}
