package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/icpac-net/booking-api/internal/auth"
	"github.com/icpac-net/booking-api/internal/models"
	"github.com/icpac-net/booking-api/internal/services"
	pkghttp "github.com/icpac-net/booking-api/pkg/http"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// WithVerifiedClaims attaches verification-token claims to the request, as
// the auth middleware does after validating a Bearer token
func WithVerifiedClaims(req *http.Request, email string) *http.Request {
	claims := &models.VerificationClaims{Email: email}
	ctx := context.WithValue(req.Context(), auth.ClaimsContextKey, claims)
	return req.WithContext(ctx)
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockVerificationService implements VerificationServiceInterface for testing
type MockVerificationService struct {
	RequestCodeFunc func(ctx context.Context, email string) (*services.RequestCodeResult, error)
	SubmitCodeFunc  func(ctx context.Context, email, code string) (*services.SubmitCodeResult, error)
}

func (m *MockVerificationService) RequestCode(ctx context.Context, email string) (*services.RequestCodeResult, error) {
	if m.RequestCodeFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.RequestCodeFunc(ctx, email)
}

func (m *MockVerificationService) SubmitCode(ctx context.Context, email, code string) (*services.SubmitCodeResult, error) {
	if m.SubmitCodeFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.SubmitCodeFunc(ctx, email, code)
}

// MockTOTPService implements TOTPServiceInterface for testing
type MockTOTPService struct {
	SetupFunc  func(ctx context.Context, identity string) (*services.TOTPSetupResult, error)
	VerifyFunc func(ctx context.Context, identity, code string) error
}

func (m *MockTOTPService) Setup(ctx context.Context, identity string) (*services.TOTPSetupResult, error) {
	if m.SetupFunc == nil {
		return nil, models.ErrInternalServer
	}
	return m.SetupFunc(ctx, identity)
}

func (m *MockTOTPService) Verify(ctx context.Context, identity, code string) error {
	if m.VerifyFunc == nil {
		return models.ErrInternalServer
	}
	return m.VerifyFunc(ctx, identity, code)
}
