// File: internal/domain/models/auth.go
package models

import (
	"time"
)

// SRPCredentials is the per-user credential record. Verifier is the
// decimal-encoded big integer g^x mod N; the raw password is never stored.
type SRPCredentials struct {
	UserID   string
	Salt     string // hex encoded random salt
	Verifier string // decimal encoded
}

// SRPSession is the ephemeral state of one login attempt, created by
// InitAuthSession and consumed exactly once by Login. Big integers are hex
// encoded so the session survives a round trip through the cache as JSON.
type SRPSession struct {
	UserID       string `json:"userId"`
	Email        string `json:"email"`
	Salt         string `json:"salt"`
	Verifier     string `json:"verifier"` // decimal encoded
	ServerSecret string `json:"b"`        // hex encoded private scalar b
	ServerPublic string `json:"B"`        // hex encoded public value B
	MFAKey       string `json:"mfaKey,omitempty"`
	MFAConfirmed bool   `json:"mfaConfirmed"`
}

// GenerationRecord is one row of the per-(user,device) generation history.
// Exactly one row per pair is current: not blacklisted with no expiry set.
type GenerationRecord struct {
	UserID       string
	DeviceID     string
	GenerationID string
	CreatedAt    time.Time
	ExpiresAt    *time.Time
	Blacklisted  bool
}

// Current reports whether the record is the pair's live generation.
func (r GenerationRecord) Current() bool {
	return !r.Blacklisted && r.ExpiresAt == nil
}

// AccessRevocation is the per-user "everything issued before RevokedAt is
// dead" mark used for instantaneous global logout.
type AccessRevocation struct {
	UserID    string
	RevokedAt time.Time
	ExpiresAt time.Time
}
