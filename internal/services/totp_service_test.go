package services

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icpac-net/booking-api/internal/auth"
	"github.com/icpac-net/booking-api/internal/models"
	"github.com/icpac-net/booking-api/internal/repositories"
)

func newTOTPFixture(t *testing.T) (*TOTPService, *repositories.MemoryStore, *auth.TOTPManager) {
	t.Helper()

	key := []byte("0123456789abcdef0123456789abcdef")
	manager, err := auth.NewTOTPManager(key, "ICPAC Booking System")
	require.NoError(t, err)

	store := repositories.NewMemoryStore()
	return NewTOTPService(store, manager, slog.Default()), store, manager
}

func TestTOTPService_Setup(t *testing.T) {
	svc, store, _ := newTOTPFixture(t)

	result, err := svc.Setup(context.Background(), "Admin@ICPAC.net")

	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.QRCodeDataURL, "data:image/png;base64,"))

	cred, err := store.GetCredential(context.Background(), "admin@icpac.net")
	require.NoError(t, err)
	assert.False(t, cred.Confirmed)
	assert.NotEmpty(t, cred.EncryptedSecret)
}

func TestTOTPService_Setup_ReplacesUnconfirmedEnrollment(t *testing.T) {
	svc, store, _ := newTOTPFixture(t)
	ctx := context.Background()

	_, err := svc.Setup(ctx, "admin@icpac.net")
	require.NoError(t, err)
	first, err := store.GetCredential(ctx, "admin@icpac.net")
	require.NoError(t, err)

	_, err = svc.Setup(ctx, "admin@icpac.net")
	require.NoError(t, err)
	second, err := store.GetCredential(ctx, "admin@icpac.net")
	require.NoError(t, err)

	assert.NotEqual(t, first.EncryptedSecret, second.EncryptedSecret)
}

func TestTOTPService_Setup_RefusesConfirmedEnrollment(t *testing.T) {
	svc, store, manager := newTOTPFixture(t)
	ctx := context.Background()

	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	encrypted, nonce, err := manager.EncryptSecret([]byte(secret))
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, &models.TOTPCredential{
		Identity:        "admin@icpac.net",
		EncryptedSecret: encrypted,
		Nonce:           nonce,
	}))
	require.NoError(t, store.Confirm(ctx, "admin@icpac.net"))

	_, err = svc.Setup(ctx, "admin@icpac.net")
	assert.ErrorIs(t, err, models.ErrConflict)

	cred, err := store.GetCredential(ctx, "admin@icpac.net")
	require.NoError(t, err)
	assert.Equal(t, encrypted, cred.EncryptedSecret, "a confirmed authenticator must not be replaced")
}

func TestTOTPService_Verify_ConfirmsEnrollment(t *testing.T) {
	svc, store, manager := newTOTPFixture(t)
	ctx := context.Background()

	// Seed a credential with a known secret so the test can mint codes
	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	encrypted, nonce, err := manager.EncryptSecret([]byte(secret))
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, &models.TOTPCredential{
		Identity:        "admin@icpac.net",
		EncryptedSecret: encrypted,
		Nonce:           nonce,
	}))

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	err = svc.Verify(ctx, "admin@icpac.net", code)
	require.NoError(t, err)

	cred, err := store.GetCredential(ctx, "admin@icpac.net")
	require.NoError(t, err)
	assert.True(t, cred.Confirmed)
	assert.NotNil(t, cred.LastUsedAt)
}

func TestTOTPService_Verify_WrongCode(t *testing.T) {
	svc, store, manager := newTOTPFixture(t)
	ctx := context.Background()

	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	encrypted, nonce, err := manager.EncryptSecret([]byte(secret))
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, &models.TOTPCredential{
		Identity:        "admin@icpac.net",
		EncryptedSecret: encrypted,
		Nonce:           nonce,
	}))

	err = svc.Verify(ctx, "admin@icpac.net", "000000")
	assert.ErrorIs(t, err, models.ErrInvalidCode)

	cred, err := store.GetCredential(ctx, "admin@icpac.net")
	require.NoError(t, err)
	assert.False(t, cred.Confirmed)
}

func TestTOTPService_Verify_NoEnrollment(t *testing.T) {
	svc, _, _ := newTOTPFixture(t)

	err := svc.Verify(context.Background(), "admin@icpac.net", "123456")

	assert.ErrorIs(t, err, models.ErrNoPendingChallenge)
}

func TestTOTPService_Verify_ReplayRejected(t *testing.T) {
	svc, store, manager := newTOTPFixture(t)
	ctx := context.Background()

	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	encrypted, nonce, err := manager.EncryptSecret([]byte(secret))
	require.NoError(t, err)
	require.NoError(t, store.Upsert(ctx, &models.TOTPCredential{
		Identity:        "admin@icpac.net",
		EncryptedSecret: encrypted,
		Nonce:           nonce,
	}))

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	require.NoError(t, svc.Verify(ctx, "admin@icpac.net", code))

	err = svc.Verify(ctx, "admin@icpac.net", code)
	assert.ErrorIs(t, err, models.ErrInvalidCode, "a code must not be accepted twice within its window")
}
