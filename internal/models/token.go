package models

import "github.com/golang-jwt/jwt/v5"

// VerificationClaims are the JWT claims issued after a successful
// email verification. The token proves control of the email address only;
// it is not a session.
type VerificationClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}
