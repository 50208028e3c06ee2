package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icpac-net/booking-api/internal/auth"
	"github.com/icpac-net/booking-api/internal/handlers"
	"github.com/icpac-net/booking-api/internal/routes"
	"github.com/icpac-net/booking-api/internal/services"
)

func newTestRouter(t *testing.T, totpSvc *handlers.MockTOTPService) (chi.Router, *auth.TokenManager) {
	t.Helper()

	tm := auth.NewTokenManager("test-secret-32-characters-long!!", 1*time.Hour)
	router := chi.NewRouter()
	routes.RegisterRoutes(
		router,
		handlers.NewVerificationHandler(&handlers.MockVerificationService{}),
		handlers.NewTOTPHandler(totpSvc),
		tm,
	)
	return router, tm
}

func TestTOTPRoutes_RequireBearerToken(t *testing.T) {
	totpSvc := &handlers.MockTOTPService{
		SetupFunc: func(ctx context.Context, identity string) (*services.TOTPSetupResult, error) {
			t.Fatal("enrollment must not start without a token")
			return nil, nil
		},
	}
	router, _ := newTestRouter(t, totpSvc)

	req := httptest.NewRequest("POST", "/api/auth/totp/setup", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestTOTPRoutes_AcceptVerifiedToken(t *testing.T) {
	var identitySeen string
	totpSvc := &handlers.MockTOTPService{
		SetupFunc: func(ctx context.Context, identity string) (*services.TOTPSetupResult, error) {
			identitySeen = identity
			return &services.TOTPSetupResult{QRCodeDataURL: "data:image/png;base64,abc"}, nil
		},
	}
	router, tm := newTestRouter(t, totpSvc)

	token, err := tm.IssueVerifiedToken("admin@icpac.net")
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/auth/totp/setup", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin@icpac.net", identitySeen, "identity must come from the token, not the caller")
}

func TestTOTPRoutes_RejectForgedToken(t *testing.T) {
	router, _ := newTestRouter(t, &handlers.MockTOTPService{})

	forger := auth.NewTokenManager("another-secret-32-characters-ok!", 1*time.Hour)
	token, err := forger.IssueVerifiedToken("victim@icpac.net")
	require.NoError(t, err)

	req := httptest.NewRequest("POST", "/api/auth/totp/setup", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
