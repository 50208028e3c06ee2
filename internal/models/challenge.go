package models

import (
	"time"
)

// OTPChallenge represents one outstanding verification challenge for an
// identity. At most one active challenge exists per identity; issuing a new
// code replaces any prior row.
type OTPChallenge struct {
	ID           string    `json:"id"`
	Identity     string    `json:"identity"`
	CodeHash     string    `json:"-"` // Never expose code hash
	IssuedAt     time.Time `json:"issued_at"`
	ExpiresAt    time.Time `json:"expires_at"`
	AttemptCount int       `json:"attempt_count"`
}

// IsExpired checks if the challenge has passed its validity window
func (c *OTPChallenge) IsExpired() bool {
	return time.Now().After(c.ExpiresAt)
}
