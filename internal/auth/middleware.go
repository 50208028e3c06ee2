package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/icpac-net/booking-api/internal/models"
)

// contextKey is a custom type for context keys
type contextKey string

const (
	// ClaimsContextKey is the key for storing verified-token claims in context
	ClaimsContextKey contextKey = "claims"
)

// RequireVerifiedToken validates the Bearer verification token and injects
// its claims into the request context
func RequireVerifiedToken(tm *TokenManager) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				http.Error(w, "missing authorization header", http.StatusUnauthorized)
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || parts[0] != "Bearer" {
				http.Error(w, "invalid authorization header format", http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(parts[1])
			if err != nil {
				http.Error(w, "invalid or expired token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClaimsFromContext returns the claims stored by RequireVerifiedToken,
// or nil when the request did not pass through it
func ClaimsFromContext(ctx context.Context) *models.VerificationClaims {
	claims, ok := ctx.Value(ClaimsContextKey).(*models.VerificationClaims)
	if !ok {
		return nil
	}
	return claims
}
