package models

import "time"

// RecoveryKind tags what a RecoverySecret holds.
type RecoveryKind string

const (
	// RecoveryNone means no recovery is in progress.
	RecoveryNone RecoveryKind = ""
	// RecoveryCode holds the hash of an emailed verification code.
	RecoveryCode RecoveryKind = "code"
	// RecoveryToken holds the hash of a reset token handed out after code verification.
	RecoveryToken RecoveryKind = "token"
)

// RecoverySecret is stored as the recovery_kind, recovery_hash and recovery_expires_at columns.
// Only SHA-256 hashes of codes and tokens are persisted.
type RecoverySecret struct {
	Kind      RecoveryKind `gorm:"size:10"`
	Hash      string       `gorm:"size:64;index"`
	ExpiresAt *time.Time
}

// NoRecovery returns the empty secret.
func NoRecovery() RecoverySecret {
	return RecoverySecret{Kind: RecoveryNone}
}

// CodeSecret returns a code secret.
func CodeSecret(hash string, expiresAt time.Time) RecoverySecret {
	return RecoverySecret{Kind: RecoveryCode, Hash: hash, ExpiresAt: &expiresAt}
}

// TokenSecret returns a reset token secret.
func TokenSecret(hash string, expiresAt time.Time) RecoverySecret {
	return RecoverySecret{Kind: RecoveryToken, Hash: hash, ExpiresAt: &expiresAt}
}

// IsNone reports whether no recovery is in progress.
func (r RecoverySecret) IsNone() bool {
	return r.Kind == RecoveryNone || r.Hash == "" || r.ExpiresAt == nil
}
