package repositories

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/icpac-net/booking-api/internal/models"
)

// MemoryStore keeps all verification state in process memory. It backs the
// development mode (STORE_BACKEND=memory) and the concurrency tests; the
// contract is identical to the Postgres repositories.
type MemoryStore struct {
	challenges map[string]*models.OTPChallenge
	lockouts   map[string]*models.LockoutState
	totp       map[string]*models.TOTPCredential

	challengeMu sync.Mutex
	lockoutMu   sync.Mutex
	totpMu      sync.Mutex
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		challenges: make(map[string]*models.OTPChallenge),
		lockouts:   make(map[string]*models.LockoutState),
		totp:       make(map[string]*models.TOTPCredential),
	}
}

// Replace inserts a fresh challenge, overwriting any prior one
func (m *MemoryStore) Replace(ctx context.Context, identity, codeHash string, issuedAt, expiresAt time.Time) (*models.OTPChallenge, error) {
	m.challengeMu.Lock()
	defer m.challengeMu.Unlock()

	c := &models.OTPChallenge{
		ID:        uuid.New().String(),
		Identity:  identity,
		CodeHash:  codeHash,
		IssuedAt:  issuedAt,
		ExpiresAt: expiresAt,
	}
	m.challenges[identity] = c

	out := *c
	return &out, nil
}

// GetByIdentity retrieves the outstanding challenge for an identity
func (m *MemoryStore) GetByIdentity(ctx context.Context, identity string) (*models.OTPChallenge, error) {
	m.challengeMu.Lock()
	defer m.challengeMu.Unlock()

	c, ok := m.challenges[identity]
	if !ok {
		return nil, models.ErrNotFound
	}

	out := *c
	return &out, nil
}

// IncrementAttempts bumps the failed-attempt counter on the challenge
func (m *MemoryStore) IncrementAttempts(ctx context.Context, identity string) (int, error) {
	m.challengeMu.Lock()
	defer m.challengeMu.Unlock()

	c, ok := m.challenges[identity]
	if !ok {
		return 0, models.ErrNotFound
	}

	c.AttemptCount++
	return c.AttemptCount, nil
}

// Delete removes the outstanding challenge for an identity
func (m *MemoryStore) Delete(ctx context.Context, identity string) error {
	m.challengeMu.Lock()
	defer m.challengeMu.Unlock()

	delete(m.challenges, identity)
	return nil
}

// CleanupExpired deletes challenges past their validity window
func (m *MemoryStore) CleanupExpired(ctx context.Context) (int64, error) {
	m.challengeMu.Lock()
	defer m.challengeMu.Unlock()

	var removed int64
	now := time.Now()
	for identity, c := range m.challenges {
		if now.After(c.ExpiresAt) {
			delete(m.challenges, identity)
			removed++
		}
	}

	return removed, nil
}

// Get retrieves the lockout state for an identity
func (m *MemoryStore) Get(ctx context.Context, identity string) (*models.LockoutState, error) {
	m.lockoutMu.Lock()
	defer m.lockoutMu.Unlock()

	s, ok := m.lockouts[identity]
	if !ok {
		return nil, models.ErrNotFound
	}

	out := *s
	return &out, nil
}

// Fail increments the failure counter under the store lock, setting the
// lock expiry when the counter reaches the threshold. Matches the single
// atomic upsert the Postgres repository performs.
func (m *MemoryStore) Fail(ctx context.Context, identity string, threshold int, cooldown time.Duration) (*models.LockoutState, error) {
	m.lockoutMu.Lock()
	defer m.lockoutMu.Unlock()

	s, ok := m.lockouts[identity]
	if !ok {
		s = &models.LockoutState{Identity: identity}
		m.lockouts[identity] = s
	}

	// A counter left over from an elapsed lock restarts so a served
	// cooldown grants the full threshold again
	if s.LockedUntil != nil && time.Now().After(*s.LockedUntil) {
		s.FailureCount = 0
		s.LockedUntil = nil
	}

	s.FailureCount++
	s.UpdatedAt = time.Now()
	if s.FailureCount >= threshold {
		until := time.Now().Add(cooldown)
		s.LockedUntil = &until
	}

	out := *s
	return &out, nil
}

// Reset clears the lockout state for an identity
func (m *MemoryStore) Reset(ctx context.Context, identity string) error {
	m.lockoutMu.Lock()
	defer m.lockoutMu.Unlock()

	delete(m.lockouts, identity)
	return nil
}

// CleanupElapsed removes lockout entries whose cooldown has passed and
// stale counters that never reached the threshold.
func (m *MemoryStore) CleanupElapsed(ctx context.Context) (int64, error) {
	m.lockoutMu.Lock()
	defer m.lockoutMu.Unlock()

	var removed int64
	now := time.Now()
	for identity, s := range m.lockouts {
		elapsedLock := s.LockedUntil != nil && now.After(*s.LockedUntil)
		staleCounter := s.LockedUntil == nil && now.Sub(s.UpdatedAt) > 24*time.Hour
		if elapsedLock || staleCounter {
			delete(m.lockouts, identity)
			removed++
		}
	}

	return removed, nil
}

// Upsert stores a freshly provisioned, unconfirmed TOTP credential.
// A confirmed credential is never overwritten.
func (m *MemoryStore) Upsert(ctx context.Context, cred *models.TOTPCredential) error {
	m.totpMu.Lock()
	defer m.totpMu.Unlock()

	if existing, ok := m.totp[cred.Identity]; ok && existing.Confirmed {
		return models.ErrConflict
	}

	stored := *cred
	stored.Confirmed = false
	stored.CreatedAt = time.Now()
	stored.LastUsedAt = nil
	m.totp[cred.Identity] = &stored
	return nil
}

// GetCredential retrieves the TOTP credential for an identity
func (m *MemoryStore) GetCredential(ctx context.Context, identity string) (*models.TOTPCredential, error) {
	m.totpMu.Lock()
	defer m.totpMu.Unlock()

	c, ok := m.totp[identity]
	if !ok {
		return nil, models.ErrNotFound
	}

	out := *c
	return &out, nil
}

// Confirm marks the TOTP credential as confirmed
func (m *MemoryStore) Confirm(ctx context.Context, identity string) error {
	m.totpMu.Lock()
	defer m.totpMu.Unlock()

	c, ok := m.totp[identity]
	if !ok {
		return models.ErrNotFound
	}

	now := time.Now()
	c.Confirmed = true
	c.LastUsedAt = &now
	return nil
}
