package models

import "time"

// LockoutState tracks consecutive failed verification attempts per identity
type LockoutState struct {
	Identity     string     `json:"identity"`
	FailureCount int        `json:"failure_count"`
	LockedUntil  *time.Time `json:"locked_until,omitempty"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsLocked reports whether the identity is currently in its cooldown window
func (s *LockoutState) IsLocked() bool {
	return s.LockedUntil != nil && time.Now().Before(*s.LockedUntil)
}
