package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/icpac-net/booking-api/internal/allowlist"
	"github.com/icpac-net/booking-api/internal/models"
	"github.com/icpac-net/booking-api/internal/otp"
	pkglogger "github.com/icpac-net/booking-api/pkg/logger"
)

// ChallengeStore defines the interface for challenge persistence
type ChallengeStore interface {
	Replace(ctx context.Context, identity, codeHash string, issuedAt, expiresAt time.Time) (*models.OTPChallenge, error)
	GetByIdentity(ctx context.Context, identity string) (*models.OTPChallenge, error)
	IncrementAttempts(ctx context.Context, identity string) (int, error)
	Delete(ctx context.Context, identity string) error
	CleanupExpired(ctx context.Context) (int64, error)
}

// TokenIssuer defines the interface for minting proof-of-verification tokens
type TokenIssuer interface {
	IssueVerifiedToken(email string) (string, error)
}

// RequestCodeResult is returned after a code has been issued and delivered
type RequestCodeResult struct {
	ExpiresAt time.Time
}

// SubmitCodeResult is returned from a code submission. Token is set on
// success; AttemptsRemaining accompanies ErrInvalidCode.
type SubmitCodeResult struct {
	Token             string
	AttemptsRemaining int
}

// VerificationService orchestrates the email verification flow: issuing
// one-time codes to allowlisted addresses and checking submissions against
// the outstanding challenge, with lockout enforcement on the way in.
type VerificationService struct {
	challenges      ChallengeStore
	lockouts        *LockoutService
	guard           *allowlist.Guard
	generator       *otp.Generator
	email           EmailService
	tokens          TokenIssuer
	locks           *identityLocks
	deliveryTimeout time.Duration
	logger          *slog.Logger
}

// NewVerificationService creates a new VerificationService
func NewVerificationService(
	challenges ChallengeStore,
	lockouts *LockoutService,
	guard *allowlist.Guard,
	generator *otp.Generator,
	email EmailService,
	tokens TokenIssuer,
	deliveryTimeout time.Duration,
	logger *slog.Logger,
) *VerificationService {
	return &VerificationService{
		challenges:      challenges,
		lockouts:        lockouts,
		guard:           guard,
		generator:       generator,
		email:           email,
		tokens:          tokens,
		locks:           newIdentityLocks(),
		deliveryTimeout: deliveryTimeout,
		logger:          logger,
	}
}

// RequestCode issues a fresh one-time code for the address and delivers it
// by email. Any outstanding challenge for the address is replaced, which
// invalidates its code. Addresses outside the allowed domains are rejected
// before any state is written.
func (s *VerificationService) RequestCode(ctx context.Context, email string) (*RequestCodeResult, error) {
	identity := normalizeEmail(email)

	if !s.guard.IsAllowed(identity) {
		s.logger.Warn("code requested for disallowed domain",
			slog.String("domain", allowlist.Domain(identity)))
		return nil, models.ErrDomainNotAllowed
	}

	code, expiresAt, err := s.generator.Generate()
	if err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	release := s.locks.acquire(identity)
	challenge, err := s.challenges.Replace(ctx, identity, string(hash), time.Now(), expiresAt)
	release()
	if err != nil {
		return nil, err
	}

	// Delivery happens outside the identity lock so a slow mail provider
	// cannot stall submissions.
	sendCtx, cancel := context.WithTimeout(ctx, s.deliveryTimeout)
	defer cancel()

	if err := s.email.SendVerificationCode(sendCtx, identity, code, challenge.ExpiresAt); err != nil {
		s.logger.Error("code delivery failed",
			slog.String("email", pkglogger.SanitizedEmail(identity)),
			slog.Any("error", err))
		return nil, models.ErrDeliveryFailed
	}

	s.logger.Info("verification code issued",
		slog.String("email", pkglogger.SanitizedEmail(identity)),
		slog.Time("expires_at", challenge.ExpiresAt))

	return &RequestCodeResult{ExpiresAt: challenge.ExpiresAt}, nil
}

// SubmitCode checks a submitted code against the outstanding challenge for
// the address. The lockout gate runs before anything else, so a locked
// identity learns nothing about its challenge. Expiry is checked before the
// code comparison: a correct code on an expired challenge still fails, and
// expired submissions do not count toward lockout. A successful match
// consumes the challenge, clears the failure counter, and returns a signed
// verification token.
func (s *VerificationService) SubmitCode(ctx context.Context, email, code string) (*SubmitCodeResult, error) {
	identity := normalizeEmail(email)

	release := s.locks.acquire(identity)
	defer release()

	canAttempt, err := s.lockouts.CanAttempt(ctx, identity)
	if err != nil {
		return nil, err
	}
	if !canAttempt {
		s.logger.Warn("submission rejected for locked identity",
			slog.String("email", pkglogger.SanitizedEmail(identity)))
		return nil, models.ErrAccountLocked
	}

	challenge, err := s.challenges.GetByIdentity(ctx, identity)
	if err != nil {
		if errors.Is(err, models.ErrNotFound) {
			return nil, models.ErrNoPendingChallenge
		}
		return nil, err
	}

	if challenge.IsExpired() {
		if err := s.challenges.Delete(ctx, identity); err != nil {
			s.logger.Error("failed to remove expired challenge", slog.Any("error", err))
		}
		return nil, models.ErrCodeExpired
	}

	if bcrypt.CompareHashAndPassword([]byte(challenge.CodeHash), []byte(code)) != nil {
		if _, err := s.challenges.IncrementAttempts(ctx, identity); err != nil && !errors.Is(err, models.ErrNotFound) {
			return nil, err
		}

		state, err := s.lockouts.RecordFailure(ctx, identity)
		if err != nil {
			return nil, err
		}

		return &SubmitCodeResult{
			AttemptsRemaining: s.lockouts.AttemptsRemaining(state.FailureCount),
		}, models.ErrInvalidCode
	}

	if err := s.challenges.Delete(ctx, identity); err != nil {
		return nil, err
	}
	if err := s.lockouts.RecordSuccess(ctx, identity); err != nil {
		return nil, err
	}

	token, err := s.tokens.IssueVerifiedToken(identity)
	if err != nil {
		return nil, err
	}

	s.logger.Info("identity verified",
		slog.String("email", pkglogger.SanitizedEmail(identity)))

	return &SubmitCodeResult{Token: token}, nil
}

// ClearChallenge cancels any outstanding challenge for the address
func (s *VerificationService) ClearChallenge(ctx context.Context, email string) error {
	identity := normalizeEmail(email)

	release := s.locks.acquire(identity)
	defer release()

	return s.challenges.Delete(ctx, identity)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
