package repositories

import (
	"context"
	"fmt"

	"github.com/icpac-net/booking-api/internal/database"
	"github.com/icpac-net/booking-api/internal/models"
)

// TOTPCredentialRepository handles encrypted TOTP secrets per identity
type TOTPCredentialRepository struct {
	db *database.DB
}

// NewTOTPCredentialRepository creates a new TOTPCredentialRepository
func NewTOTPCredentialRepository(db *database.DB) *TOTPCredentialRepository {
	return &TOTPCredentialRepository{db: db}
}

// Upsert stores a freshly provisioned, unconfirmed credential, replacing
// any prior unconfirmed one for the identity. A confirmed credential is
// never overwritten; re-enrollment requires removing it first.
func (r *TOTPCredentialRepository) Upsert(ctx context.Context, cred *models.TOTPCredential) error {
	query := `
		INSERT INTO totp_credentials (identity, encrypted_secret, nonce, confirmed, created_at)
		VALUES ($1, $2, $3, FALSE, NOW())
		ON CONFLICT (identity) DO UPDATE
		SET encrypted_secret = EXCLUDED.encrypted_secret,
		    nonce = EXCLUDED.nonce,
		    created_at = NOW(),
		    last_used_at = NULL
		WHERE totp_credentials.confirmed = FALSE
	`

	result, err := r.db.Pool.Exec(ctx, query, cred.Identity, cred.EncryptedSecret, cred.Nonce)
	if err != nil {
		return fmt.Errorf("failed to store totp credential: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrConflict
	}

	return nil
}

// GetCredential retrieves the credential for an identity
func (r *TOTPCredentialRepository) GetCredential(ctx context.Context, identity string) (*models.TOTPCredential, error) {
	query := `
		SELECT identity, encrypted_secret, nonce, confirmed, created_at, last_used_at
		FROM totp_credentials
		WHERE identity = $1
	`

	var c models.TOTPCredential
	err := r.db.Pool.QueryRow(ctx, query, identity).Scan(
		&c.Identity, &c.EncryptedSecret, &c.Nonce, &c.Confirmed, &c.CreatedAt, &c.LastUsedAt,
	)
	if err != nil {
		return nil, database.MapPostgresError(err)
	}

	return &c, nil
}

// Confirm marks the credential as confirmed and records first use
func (r *TOTPCredentialRepository) Confirm(ctx context.Context, identity string) error {
	query := `
		UPDATE totp_credentials
		SET confirmed = TRUE, last_used_at = NOW()
		WHERE identity = $1
	`

	result, err := r.db.Pool.Exec(ctx, query, identity)
	if err != nil {
		return fmt.Errorf("failed to confirm totp credential: %w", err)
	}

	if result.RowsAffected() == 0 {
		return models.ErrNotFound
	}

	return nil
}
