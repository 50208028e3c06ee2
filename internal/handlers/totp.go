package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/icpac-net/booking-api/internal/auth"
	"github.com/icpac-net/booking-api/internal/models"
	"github.com/icpac-net/booking-api/internal/services"
	pkghttp "github.com/icpac-net/booking-api/pkg/http"
)

// TOTPServiceInterface defines the interface for authenticator enrollment
type TOTPServiceInterface interface {
	Setup(ctx context.Context, identity string) (*services.TOTPSetupResult, error)
	Verify(ctx context.Context, identity, code string) error
}

// TOTPHandler handles authenticator enrollment HTTP requests. The identity
// comes from the verification-token claims injected by the auth middleware,
// never from the request body.
type TOTPHandler struct {
	service TOTPServiceInterface
}

// NewTOTPHandler creates a new TOTPHandler
func NewTOTPHandler(service TOTPServiceInterface) *TOTPHandler {
	return &TOTPHandler{service: service}
}

// TOTPSetupResponse carries the QR code for the authenticator app
type TOTPSetupResponse struct {
	QRCode string `json:"qr_code"`
}

// TOTPVerifyRequest represents the request body for verifying a TOTP code
type TOTPVerifyRequest struct {
	Code string `json:"code" validate:"required,len=6,numeric"`
}

// TOTPVerifyResponse confirms a successful second-factor check
type TOTPVerifyResponse struct {
	Status string `json:"status"`
}

// Setup starts authenticator enrollment for the verified identity
func (h *TOTPHandler) Setup(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Verification token required")
		return
	}

	result, err := h.service.Setup(r.Context(), claims.Email)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			pkghttp.WriteConflict(w, "An authenticator is already enrolled for this account")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, TOTPSetupResponse{QRCode: result.QRCodeDataURL})
}

// Verify checks a TOTP code against the verified identity's authenticator
func (h *TOTPHandler) Verify(w http.ResponseWriter, r *http.Request) {
	claims := auth.ClaimsFromContext(r.Context())
	if claims == nil {
		pkghttp.WriteUnauthorized(w, "Verification token required")
		return
	}

	var req TOTPVerifyRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	if err := h.service.Verify(r.Context(), claims.Email, req.Code); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCode):
			pkghttp.WriteUnauthorized(w, "The code is incorrect")
		case errors.Is(err, models.ErrNoPendingChallenge):
			pkghttp.WriteNotFound(w, "No authenticator is enrolled for this account")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, TOTPVerifyResponse{Status: "confirmed"})
}
