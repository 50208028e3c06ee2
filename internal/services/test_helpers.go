package services

import (
	"context"
	"sync"
	"time"

	"github.com/icpac-net/booking-api/internal/models"
)

// MockChallengeStore implements ChallengeStore for testing
type MockChallengeStore struct {
	ReplaceFunc           func(ctx context.Context, identity, codeHash string, issuedAt, expiresAt time.Time) (*models.OTPChallenge, error)
	GetByIdentityFunc     func(ctx context.Context, identity string) (*models.OTPChallenge, error)
	IncrementAttemptsFunc func(ctx context.Context, identity string) (int, error)
	DeleteFunc            func(ctx context.Context, identity string) error
	CleanupExpiredFunc    func(ctx context.Context) (int64, error)
}

func (m *MockChallengeStore) Replace(ctx context.Context, identity, codeHash string, issuedAt, expiresAt time.Time) (*models.OTPChallenge, error) {
	if m.ReplaceFunc != nil {
		return m.ReplaceFunc(ctx, identity, codeHash, issuedAt, expiresAt)
	}
	return &models.OTPChallenge{
		ID:        "challenge_123",
		Identity:  identity,
		CodeHash:  codeHash,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}, nil
}

func (m *MockChallengeStore) GetByIdentity(ctx context.Context, identity string) (*models.OTPChallenge, error) {
	if m.GetByIdentityFunc != nil {
		return m.GetByIdentityFunc(ctx, identity)
	}
	return nil, models.ErrNotFound
}

func (m *MockChallengeStore) IncrementAttempts(ctx context.Context, identity string) (int, error) {
	if m.IncrementAttemptsFunc != nil {
		return m.IncrementAttemptsFunc(ctx, identity)
	}
	return 1, nil
}

func (m *MockChallengeStore) Delete(ctx context.Context, identity string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, identity)
	}
	return nil
}

func (m *MockChallengeStore) CleanupExpired(ctx context.Context) (int64, error) {
	if m.CleanupExpiredFunc != nil {
		return m.CleanupExpiredFunc(ctx)
	}
	return 0, nil
}

// MockLockoutStore implements LockoutStore for testing
type MockLockoutStore struct {
	GetFunc            func(ctx context.Context, identity string) (*models.LockoutState, error)
	FailFunc           func(ctx context.Context, identity string, threshold int, cooldown time.Duration) (*models.LockoutState, error)
	ResetFunc          func(ctx context.Context, identity string) error
	CleanupElapsedFunc func(ctx context.Context) (int64, error)
}

func (m *MockLockoutStore) Get(ctx context.Context, identity string) (*models.LockoutState, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, identity)
	}
	return nil, models.ErrNotFound
}

func (m *MockLockoutStore) Fail(ctx context.Context, identity string, threshold int, cooldown time.Duration) (*models.LockoutState, error) {
	if m.FailFunc != nil {
		return m.FailFunc(ctx, identity, threshold, cooldown)
	}
	return &models.LockoutState{Identity: identity, FailureCount: 1, UpdatedAt: time.Now()}, nil
}

func (m *MockLockoutStore) Reset(ctx context.Context, identity string) error {
	if m.ResetFunc != nil {
		return m.ResetFunc(ctx, identity)
	}
	return nil
}

func (m *MockLockoutStore) CleanupElapsed(ctx context.Context) (int64, error) {
	if m.CleanupElapsedFunc != nil {
		return m.CleanupElapsedFunc(ctx)
	}
	return 0, nil
}

// MockEmailService implements EmailService for testing
type MockEmailService struct {
	SendVerificationCodeFunc func(ctx context.Context, email, code string, expiresAt time.Time) error
}

func (m *MockEmailService) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	if m.SendVerificationCodeFunc != nil {
		return m.SendVerificationCodeFunc(ctx, email, code, expiresAt)
	}
	return nil
}

// RecordingEmailService captures every code it is asked to deliver
type RecordingEmailService struct {
	mu    sync.Mutex
	Sent  []string
	Codes []string
}

func (r *RecordingEmailService) SendVerificationCode(ctx context.Context, email, code string, expiresAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Sent = append(r.Sent, email)
	r.Codes = append(r.Codes, code)
	return nil
}

// LastCode returns the most recently delivered code, or ""
func (r *RecordingEmailService) LastCode() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.Codes) == 0 {
		return ""
	}
	return r.Codes[len(r.Codes)-1]
}

// MockTokenIssuer implements TokenIssuer for testing
type MockTokenIssuer struct {
	IssueVerifiedTokenFunc func(email string) (string, error)
}

func (m *MockTokenIssuer) IssueVerifiedToken(email string) (string, error) {
	if m.IssueVerifiedTokenFunc != nil {
		return m.IssueVerifiedTokenFunc(email)
	}
	return "token_abc", nil
}

// MockTOTPStore implements TOTPStore for testing
type MockTOTPStore struct {
	UpsertFunc        func(ctx context.Context, cred *models.TOTPCredential) error
	GetCredentialFunc func(ctx context.Context, identity string) (*models.TOTPCredential, error)
	ConfirmFunc       func(ctx context.Context, identity string) error
}

func (m *MockTOTPStore) Upsert(ctx context.Context, cred *models.TOTPCredential) error {
	if m.UpsertFunc != nil {
		return m.UpsertFunc(ctx, cred)
	}
	return nil
}

func (m *MockTOTPStore) GetCredential(ctx context.Context, identity string) (*models.TOTPCredential, error) {
	if m.GetCredentialFunc != nil {
		return m.GetCredentialFunc(ctx, identity)
	}
	return nil, models.ErrNotFound
}

func (m *MockTOTPStore) Confirm(ctx context.Context, identity string) error {
	if m.ConfirmFunc != nil {
		return m.ConfirmFunc(ctx, identity)
	}
	return nil
}

func timePtr(t time.Time) *time.Time {
	return &t
}
