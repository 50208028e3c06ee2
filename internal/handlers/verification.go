package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/icpac-net/booking-api/internal/models"
	"github.com/icpac-net/booking-api/internal/services"
	pkghttp "github.com/icpac-net/booking-api/pkg/http"
)

// VerificationServiceInterface defines the interface for the verification flow
type VerificationServiceInterface interface {
	RequestCode(ctx context.Context, email string) (*services.RequestCodeResult, error)
	SubmitCode(ctx context.Context, email, code string) (*services.SubmitCodeResult, error)
}

// VerificationHandler handles verification-related HTTP requests
type VerificationHandler struct {
	service VerificationServiceInterface
}

// NewVerificationHandler creates a new VerificationHandler
func NewVerificationHandler(service VerificationServiceInterface) *VerificationHandler {
	return &VerificationHandler{service: service}
}

// Request DTOs

// RequestCodeRequest represents the request body for requesting a code
type RequestCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
}

// VerifyCodeRequest represents the request body for submitting a code.
// The code length is configurable, so only digits are checked here; a
// wrong-length code simply fails the comparison downstream.
type VerifyCodeRequest struct {
	Email string `json:"email" validate:"required,email"`
	Code  string `json:"code" validate:"required,numeric,max=12"`
}

// Response DTOs

// RequestCodeResponse confirms a code was issued and delivered
type RequestCodeResponse struct {
	Status    string    `json:"status"`
	ExpiresAt time.Time `json:"expires_at"`
}

// VerifyCodeResponse carries the verification token on success
type VerifyCodeResponse struct {
	Status string `json:"status"`
	Token  string `json:"token"`
}

// InvalidCodeResponse tells the caller how many attempts remain
type InvalidCodeResponse struct {
	Error             string `json:"error"`
	Message           string `json:"message"`
	AttemptsRemaining int    `json:"attempts_remaining"`
}

// RequestCode handles a request for a new verification code
// @Summary Request a verification code by email
// @Accept json
// @Param request body RequestCodeRequest true "Request code request"
// @Produce json
// @Success 202 {object} RequestCodeResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 502 {object} pkghttp.ErrorResponse
// @Router /auth/request-code [post]
func (h *VerificationHandler) RequestCode(w http.ResponseWriter, r *http.Request) {
	var req RequestCodeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.RequestCode(r.Context(), req.Email)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrDomainNotAllowed):
			pkghttp.WriteForbidden(w, "Email domain is not allowed")
		case errors.Is(err, models.ErrDeliveryFailed):
			pkghttp.WriteBadGateway(w, "delivery_failed", "Could not deliver the verification code. Please try again.")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, RequestCodeResponse{
		Status:    "sent",
		ExpiresAt: result.ExpiresAt,
	})
}

// VerifyCode handles a code submission
// @Summary Verify a one-time code
// @Accept json
// @Param request body VerifyCodeRequest true "Verify code request"
// @Produce json
// @Success 200 {object} VerifyCodeResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} InvalidCodeResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 410 {object} pkghttp.ErrorResponse
// @Failure 429 {object} pkghttp.ErrorResponse
// @Router /auth/verify-code [post]
func (h *VerificationHandler) VerifyCode(w http.ResponseWriter, r *http.Request) {
	var req VerifyCodeRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	result, err := h.service.SubmitCode(r.Context(), req.Email, req.Code)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidCode):
			remaining := 0
			if result != nil {
				remaining = result.AttemptsRemaining
			}
			pkghttp.WriteJSON(w, http.StatusUnauthorized, InvalidCodeResponse{
				Error:             "invalid_code",
				Message:           "The code is incorrect",
				AttemptsRemaining: remaining,
			})
		case errors.Is(err, models.ErrCodeExpired):
			pkghttp.WriteGone(w, "code_expired", "The code has expired. Request a new one.")
		case errors.Is(err, models.ErrAccountLocked):
			pkghttp.WriteError(w, http.StatusTooManyRequests, "account_locked",
				"Too many failed attempts. Please try again later.")
		case errors.Is(err, models.ErrNoPendingChallenge):
			pkghttp.WriteNotFound(w, "No verification code is pending for this address")
		default:
			pkghttp.WriteInternalError(w, "Internal server error")
		}
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, VerifyCodeResponse{
		Status: "verified",
		Token:  result.Token,
	})
}
