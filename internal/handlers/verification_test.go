package handlers_test

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/icpac-net/booking-api/internal/handlers"
	"github.com/icpac-net/booking-api/internal/models"
	"github.com/icpac-net/booking-api/internal/services"
)

func TestRequestCode_Success(t *testing.T) {
	expiresAt := time.Now().Add(10 * time.Minute)
	mockSvc := &handlers.MockVerificationService{
		RequestCodeFunc: func(ctx context.Context, email string) (*services.RequestCodeResult, error) {
			return &services.RequestCodeResult{ExpiresAt: expiresAt}, nil
		},
	}

	handler := handlers.NewVerificationHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/request-code", handlers.RequestCodeRequest{
		Email: "alice@icpac.net",
	})

	w := httptest.NewRecorder()
	handler.RequestCode(w, req)

	var resp handlers.RequestCodeResponse
	handlers.AssertJSONResponse(t, w, 202, &resp)
	assert.Equal(t, "sent", resp.Status)
	assert.WithinDuration(t, expiresAt, resp.ExpiresAt, time.Second)
}

func TestRequestCode_DomainNotAllowed(t *testing.T) {
	mockSvc := &handlers.MockVerificationService{
		RequestCodeFunc: func(ctx context.Context, email string) (*services.RequestCodeResult, error) {
			return nil, models.ErrDomainNotAllowed
		},
	}

	handler := handlers.NewVerificationHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/request-code", handlers.RequestCodeRequest{
		Email: "bob@gmail.com",
	})

	w := httptest.NewRecorder()
	handler.RequestCode(w, req)

	handlers.AssertErrorResponse(t, w, 403, "forbidden")
}

func TestRequestCode_DeliveryFailed(t *testing.T) {
	mockSvc := &handlers.MockVerificationService{
		RequestCodeFunc: func(ctx context.Context, email string) (*services.RequestCodeResult, error) {
			return nil, models.ErrDeliveryFailed
		},
	}

	handler := handlers.NewVerificationHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/request-code", handlers.RequestCodeRequest{
		Email: "alice@icpac.net",
	})

	w := httptest.NewRecorder()
	handler.RequestCode(w, req)

	handlers.AssertErrorResponse(t, w, 502, "delivery_failed")
}

func TestRequestCode_InvalidEmail(t *testing.T) {
	handler := handlers.NewVerificationHandler(&handlers.MockVerificationService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/request-code", handlers.RequestCodeRequest{
		Email: "not-an-email",
	})

	w := httptest.NewRecorder()
	handler.RequestCode(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestVerifyCode_Success(t *testing.T) {
	mockSvc := &handlers.MockVerificationService{
		SubmitCodeFunc: func(ctx context.Context, email, code string) (*services.SubmitCodeResult, error) {
			return &services.SubmitCodeResult{Token: "token_123"}, nil
		},
	}

	handler := handlers.NewVerificationHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/verify-code", handlers.VerifyCodeRequest{
		Email: "alice@icpac.net",
		Code:  "123456",
	})

	w := httptest.NewRecorder()
	handler.VerifyCode(w, req)

	var resp handlers.VerifyCodeResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "verified", resp.Status)
	assert.Equal(t, "token_123", resp.Token)
}

func TestVerifyCode_InvalidCode(t *testing.T) {
	mockSvc := &handlers.MockVerificationService{
		SubmitCodeFunc: func(ctx context.Context, email, code string) (*services.SubmitCodeResult, error) {
			return &services.SubmitCodeResult{AttemptsRemaining: 3}, models.ErrInvalidCode
		},
	}

	handler := handlers.NewVerificationHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/verify-code", handlers.VerifyCodeRequest{
		Email: "alice@icpac.net",
		Code:  "654321",
	})

	w := httptest.NewRecorder()
	handler.VerifyCode(w, req)

	var resp handlers.InvalidCodeResponse
	handlers.AssertJSONResponse(t, w, 401, &resp)
	assert.Equal(t, "invalid_code", resp.Error)
	assert.Equal(t, 3, resp.AttemptsRemaining)
}

func TestVerifyCode_Expired(t *testing.T) {
	mockSvc := &handlers.MockVerificationService{
		SubmitCodeFunc: func(ctx context.Context, email, code string) (*services.SubmitCodeResult, error) {
			return nil, models.ErrCodeExpired
		},
	}

	handler := handlers.NewVerificationHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/verify-code", handlers.VerifyCodeRequest{
		Email: "alice@icpac.net",
		Code:  "123456",
	})

	w := httptest.NewRecorder()
	handler.VerifyCode(w, req)

	handlers.AssertErrorResponse(t, w, 410, "code_expired")
}

func TestVerifyCode_AccountLocked(t *testing.T) {
	mockSvc := &handlers.MockVerificationService{
		SubmitCodeFunc: func(ctx context.Context, email, code string) (*services.SubmitCodeResult, error) {
			return nil, models.ErrAccountLocked
		},
	}

	handler := handlers.NewVerificationHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/verify-code", handlers.VerifyCodeRequest{
		Email: "alice@icpac.net",
		Code:  "123456",
	})

	w := httptest.NewRecorder()
	handler.VerifyCode(w, req)

	handlers.AssertErrorResponse(t, w, 429, "account_locked")
}

func TestVerifyCode_NoPendingChallenge(t *testing.T) {
	mockSvc := &handlers.MockVerificationService{
		SubmitCodeFunc: func(ctx context.Context, email, code string) (*services.SubmitCodeResult, error) {
			return nil, models.ErrNoPendingChallenge
		},
	}

	handler := handlers.NewVerificationHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/verify-code", handlers.VerifyCodeRequest{
		Email: "alice@icpac.net",
		Code:  "123456",
	})

	w := httptest.NewRecorder()
	handler.VerifyCode(w, req)

	handlers.AssertErrorResponse(t, w, 404, "not_found")
}

func TestVerifyCode_MalformedCode(t *testing.T) {
	handler := handlers.NewVerificationHandler(&handlers.MockVerificationService{})
	req := handlers.NewTestRequest(t, "POST", "/auth/verify-code", handlers.VerifyCodeRequest{
		Email: "alice@icpac.net",
		Code:  "12ab56",
	})

	w := httptest.NewRecorder()
	handler.VerifyCode(w, req)

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestVerifyCode_NonDefaultCodeLength(t *testing.T) {
	var submitted string
	mockSvc := &handlers.MockVerificationService{
		SubmitCodeFunc: func(ctx context.Context, email, code string) (*services.SubmitCodeResult, error) {
			submitted = code
			return &services.SubmitCodeResult{Token: "token_123"}, nil
		},
	}

	handler := handlers.NewVerificationHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/verify-code", handlers.VerifyCodeRequest{
		Email: "alice@icpac.net",
		Code:  "12345678",
	})

	w := httptest.NewRecorder()
	handler.VerifyCode(w, req)

	var resp handlers.VerifyCodeResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "12345678", submitted, "an eight-digit code must reach the service")
}

func TestTOTPVerify_Success(t *testing.T) {
	mockSvc := &handlers.MockTOTPService{
		VerifyFunc: func(ctx context.Context, identity, code string) error {
			return nil
		},
	}

	handler := handlers.NewTOTPHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/totp/verify", handlers.TOTPVerifyRequest{
		Code: "123456",
	})
	req = handlers.WithVerifiedClaims(req, "admin@icpac.net")

	w := httptest.NewRecorder()
	handler.Verify(w, req)

	var resp handlers.TOTPVerifyResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "confirmed", resp.Status)
}

func TestTOTPVerify_NoClaims(t *testing.T) {
	handler := handlers.NewTOTPHandler(&handlers.MockTOTPService{
		VerifyFunc: func(ctx context.Context, identity, code string) error {
			t.Fatal("service must not be called without claims")
			return nil
		},
	})
	req := handlers.NewTestRequest(t, "POST", "/auth/totp/verify", handlers.TOTPVerifyRequest{
		Code: "123456",
	})

	w := httptest.NewRecorder()
	handler.Verify(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestTOTPSetup_Success(t *testing.T) {
	var identitySeen string
	mockSvc := &handlers.MockTOTPService{
		SetupFunc: func(ctx context.Context, identity string) (*services.TOTPSetupResult, error) {
			identitySeen = identity
			return &services.TOTPSetupResult{QRCodeDataURL: "data:image/png;base64,abc"}, nil
		},
	}

	handler := handlers.NewTOTPHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/totp/setup", nil)
	req = handlers.WithVerifiedClaims(req, "admin@icpac.net")

	w := httptest.NewRecorder()
	handler.Setup(w, req)

	var resp handlers.TOTPSetupResponse
	handlers.AssertJSONResponse(t, w, 200, &resp)
	assert.Equal(t, "data:image/png;base64,abc", resp.QRCode)
	assert.Equal(t, "admin@icpac.net", identitySeen, "identity must come from the token claims")
}

func TestTOTPSetup_NoClaims(t *testing.T) {
	handler := handlers.NewTOTPHandler(&handlers.MockTOTPService{
		SetupFunc: func(ctx context.Context, identity string) (*services.TOTPSetupResult, error) {
			t.Fatal("service must not be called without claims")
			return nil, nil
		},
	})
	req := handlers.NewTestRequest(t, "POST", "/auth/totp/setup", nil)

	w := httptest.NewRecorder()
	handler.Setup(w, req)

	handlers.AssertErrorResponse(t, w, 401, "unauthorized")
}

func TestTOTPSetup_AlreadyConfirmed(t *testing.T) {
	mockSvc := &handlers.MockTOTPService{
		SetupFunc: func(ctx context.Context, identity string) (*services.TOTPSetupResult, error) {
			return nil, models.ErrConflict
		},
	}

	handler := handlers.NewTOTPHandler(mockSvc)
	req := handlers.NewTestRequest(t, "POST", "/auth/totp/setup", nil)
	req = handlers.WithVerifiedClaims(req, "admin@icpac.net")

	w := httptest.NewRecorder()
	handler.Setup(w, req)

	handlers.AssertErrorResponse(t, w, 409, "conflict")
}
