package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/icpac-net/booking-api/internal/database"
	"github.com/icpac-net/booking-api/internal/models"
)

// ChallengeRepository handles OTP challenge data access
type ChallengeRepository struct {
	db *database.DB
}

// NewChallengeRepository creates a new ChallengeRepository
func NewChallengeRepository(db *database.DB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// scanChallengeRow populates an OTPChallenge model from a database row
func scanChallengeRow(row rowScanner) (*models.OTPChallenge, error) {
	var c models.OTPChallenge

	err := row.Scan(
		&c.ID, &c.Identity, &c.CodeHash,
		&c.IssuedAt, &c.ExpiresAt, &c.AttemptCount,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &c, nil
}

// Replace atomically inserts a fresh challenge for an identity, overwriting
// any prior row. The unique constraint on identity guarantees at most one
// active challenge per identity.
func (r *ChallengeRepository) Replace(ctx context.Context, identity, codeHash string, issuedAt, expiresAt time.Time) (*models.OTPChallenge, error) {
	query := `
		INSERT INTO otp_challenges (identity, code_hash, issued_at, expires_at, attempt_count)
		VALUES ($1, $2, $3, $4, 0)
		ON CONFLICT (identity) DO UPDATE
		SET code_hash = EXCLUDED.code_hash,
		    issued_at = EXCLUDED.issued_at,
		    expires_at = EXCLUDED.expires_at,
		    attempt_count = 0
		RETURNING id, identity, code_hash, issued_at, expires_at, attempt_count
	`

	challenge, err := scanChallengeRow(r.db.Pool.QueryRow(ctx, query, identity, codeHash, issuedAt, expiresAt))
	if err != nil {
		return nil, fmt.Errorf("failed to replace otp challenge: %w", err)
	}

	return challenge, nil
}

// GetByIdentity retrieves the outstanding challenge for an identity
func (r *ChallengeRepository) GetByIdentity(ctx context.Context, identity string) (*models.OTPChallenge, error) {
	query := `
		SELECT id, identity, code_hash, issued_at, expires_at, attempt_count
		FROM otp_challenges
		WHERE identity = $1
	`

	return scanChallengeRow(r.db.Pool.QueryRow(ctx, query, identity))
}

// IncrementAttempts bumps the failed-attempt counter on the challenge row
// and returns the new count.
func (r *ChallengeRepository) IncrementAttempts(ctx context.Context, identity string) (int, error) {
	query := `
		UPDATE otp_challenges
		SET attempt_count = attempt_count + 1
		WHERE identity = $1
		RETURNING attempt_count
	`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query, identity).Scan(&count); err != nil {
		return 0, database.MapPostgresError(err)
	}

	return count, nil
}

// Delete removes the outstanding challenge for an identity. Used to consume
// a challenge on success or clear it explicitly.
func (r *ChallengeRepository) Delete(ctx context.Context, identity string) error {
	query := `DELETE FROM otp_challenges WHERE identity = $1`

	_, err := r.db.Pool.Exec(ctx, query, identity)
	if err != nil {
		return fmt.Errorf("failed to delete otp challenge: %w", err)
	}

	return nil
}

// CleanupExpired deletes challenges past their validity window
func (r *ChallengeRepository) CleanupExpired(ctx context.Context) (int64, error) {
	query := `DELETE FROM otp_challenges WHERE expires_at < NOW()`

	result, err := r.db.Pool.Exec(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup expired challenges: %w", err)
	}

	return result.RowsAffected(), nil
}
