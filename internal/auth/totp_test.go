package auth

import (
	"crypto/rand"
	"strings"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTOTPManager(t *testing.T) *TOTPManager {
	t.Helper()

	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)

	tm, err := NewTOTPManager(key, "ICPAC Booking System")
	require.NoError(t, err)
	return tm
}

func TestTOTPManager_NewTOTPManager_InvalidKeyLength(t *testing.T) {
	tests := []int{0, 16, 24, 31, 33, 64}
	for _, length := range tests {
		key := make([]byte, length)
		tm, err := NewTOTPManager(key, "ICPAC Booking System")
		assert.Error(t, err)
		assert.Nil(t, tm)
		assert.Contains(t, err.Error(), "must be exactly 32 bytes")
	}
}

func TestTOTPManager_GenerateSecretWithQR(t *testing.T) {
	tm := newTestTOTPManager(t)

	encrypted, nonce, qrDataURL, err := tm.GenerateSecretWithQR("admin@icpac.net")

	require.NoError(t, err)
	assert.NotEmpty(t, encrypted)
	assert.Len(t, nonce, 12)
	assert.True(t, strings.HasPrefix(qrDataURL, "data:image/png;base64,"))
}

func TestTOTPManager_EncryptDecrypt_RoundTrip(t *testing.T) {
	tm := newTestTOTPManager(t)

	secret := []byte("JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP")
	encrypted, nonce, err := tm.EncryptSecret(secret)
	require.NoError(t, err)
	assert.NotEqual(t, secret, encrypted)

	decrypted, err := tm.DecryptSecret(encrypted, nonce)
	require.NoError(t, err)
	assert.Equal(t, secret, decrypted)
}

func TestTOTPManager_DecryptSecret_WrongKey(t *testing.T) {
	tm := newTestTOTPManager(t)
	other := newTestTOTPManager(t)

	encrypted, nonce, err := tm.EncryptSecret([]byte("JBSWY3DPEHPK3PXP"))
	require.NoError(t, err)

	_, err = other.DecryptSecret(encrypted, nonce)
	assert.Error(t, err)
}

func TestTOTPManager_ValidateTOTP_ValidCode(t *testing.T) {
	tm := newTestTOTPManager(t)

	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	valid, err := tm.ValidateTOTP([]byte(secret), code, nil)
	require.NoError(t, err)
	assert.True(t, valid)
}

func TestTOTPManager_ValidateTOTP_WrongCode(t *testing.T) {
	tm := newTestTOTPManager(t)

	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	valid, err := tm.ValidateTOTP([]byte(secret), "000000", nil)

	require.NoError(t, err)
	assert.False(t, valid)
}

func TestTOTPManager_ValidateTOTP_ReplayWithinWindow(t *testing.T) {
	tm := newTestTOTPManager(t)

	secret := "JBSWY3DPEHPK3PXPJBSWY3DPEHPK3PXP"
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)

	lastUsed := time.Now().Add(-10 * time.Second)
	valid, err := tm.ValidateTOTP([]byte(secret), code, &lastUsed)

	assert.Error(t, err)
	assert.False(t, valid)
}
