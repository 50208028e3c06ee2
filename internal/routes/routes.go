package routes

import (
	"github.com/go-chi/chi/v5"

	"github.com/icpac-net/booking-api/internal/auth"
	"github.com/icpac-net/booking-api/internal/handlers"
	"github.com/icpac-net/booking-api/internal/middleware"
)

// RegisterRoutes registers all application routes
func RegisterRoutes(
	router chi.Router,
	verificationHandler *handlers.VerificationHandler,
	totpHandler *handlers.TOTPHandler,
	tokenManager *auth.TokenManager,
) {
	rateLimitConfig := middleware.DefaultVerificationRateLimit()

	router.Route("/api/auth", func(r chi.Router) {
		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/request-code", verificationHandler.RequestCode)
		r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/verify-code", verificationHandler.VerifyCode)

		// Enrollment is only reachable with a fresh verification token
		r.Route("/totp", func(r chi.Router) {
			r.Use(auth.RequireVerifiedToken(tokenManager))
			r.Post("/setup", totpHandler.Setup)
			r.With(middleware.RateLimitByIP(rateLimitConfig)).Post("/verify", totpHandler.Verify)
		})
	})
}
