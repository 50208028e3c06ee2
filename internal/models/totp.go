package models

import "time"

// TOTPCredential stores an encrypted TOTP secret for a verified identity.
// The secret is AES-256-GCM encrypted; the nonce is stored alongside it.
type TOTPCredential struct {
	Identity        string     `json:"identity"`
	EncryptedSecret []byte     `json:"-"`
	Nonce           []byte     `json:"-"`
	Confirmed       bool       `json:"confirmed"`
	CreatedAt       time.Time  `json:"created_at"`
	LastUsedAt      *time.Time `json:"last_used_at,omitempty"`
}
