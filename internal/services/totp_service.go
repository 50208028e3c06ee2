package services

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/icpac-net/booking-api/internal/auth"
	"github.com/icpac-net/booking-api/internal/models"
	pkglogger "github.com/icpac-net/booking-api/pkg/logger"
)

// TOTPStore defines the interface for TOTP credential persistence
type TOTPStore interface {
	Upsert(ctx context.Context, cred *models.TOTPCredential) error
	GetCredential(ctx context.Context, identity string) (*models.TOTPCredential, error)
	Confirm(ctx context.Context, identity string) error
}

// TOTPSetupResult carries what the admin needs to enroll an authenticator
type TOTPSetupResult struct {
	QRCodeDataURL string
}

// TOTPService handles authenticator enrollment and second-factor checks for
// admin accounts. Secrets are stored encrypted; a credential only counts
// once its first code has been confirmed.
type TOTPService struct {
	store   TOTPStore
	manager *auth.TOTPManager
	logger  *slog.Logger
}

// NewTOTPService creates a new TOTPService
func NewTOTPService(store TOTPStore, manager *auth.TOTPManager, logger *slog.Logger) *TOTPService {
	return &TOTPService{
		store:   store,
		manager: manager,
		logger:  logger,
	}
}

// Setup provisions a fresh secret for the identity, replacing any prior
// unconfirmed enrollment. A confirmed enrollment is left untouched and
// the call fails with ErrConflict.
func (s *TOTPService) Setup(ctx context.Context, identity string) (*TOTPSetupResult, error) {
	identity = normalizeEmail(identity)

	encrypted, nonce, qrDataURL, err := s.manager.GenerateSecretWithQR(identity)
	if err != nil {
		s.logger.Error("failed to provision TOTP secret", slog.Any("error", err))
		return nil, models.ErrInternalServer
	}

	cred := &models.TOTPCredential{
		Identity:        identity,
		EncryptedSecret: encrypted,
		Nonce:           nonce,
		CreatedAt:       time.Now(),
	}

	if err := s.store.Upsert(ctx, cred); err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.logger.Warn("TOTP enrollment refused, credential already confirmed",
				slog.String("identity", pkglogger.SanitizedEmail(identity)))
			return nil, models.ErrConflict
		}
		s.logger.Error("failed to store TOTP credential", slog.Any("error", err))
		return nil, err
	}

	s.logger.Info("TOTP enrollment started",
		slog.String("identity", pkglogger.SanitizedEmail(identity)))

	return &TOTPSetupResult{QRCodeDataURL: qrDataURL}, nil
}

// Verify checks a code against the identity's credential. The first valid
// code confirms the enrollment.
func (s *TOTPService) Verify(ctx context.Context, identity, code string) error {
	identity = normalizeEmail(identity)

	cred, err := s.store.GetCredential(ctx, identity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return models.ErrNoPendingChallenge
		}
		return err
	}

	secret, err := s.manager.DecryptSecret(cred.EncryptedSecret, cred.Nonce)
	if err != nil {
		s.logger.Error("failed to decrypt TOTP secret", slog.Any("error", err))
		return models.ErrInternalServer
	}

	valid, err := s.manager.ValidateTOTP(secret, code, cred.LastUsedAt)
	if err != nil || !valid {
		return models.ErrInvalidCode
	}

	if err := s.store.Confirm(ctx, identity); err != nil {
		return err
	}

	s.logger.Info("TOTP code verified",
		slog.String("identity", pkglogger.SanitizedEmail(identity)),
		slog.Bool("first_confirmation", !cred.Confirmed))

	return nil
}
