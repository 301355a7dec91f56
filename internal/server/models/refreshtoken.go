package models

import "time"

// RefreshToken is a persisted, single-use session credential.
type RefreshToken struct {
	ID        int64
	AccountID string
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
	RevokedAt *time.Time
}

// Expired reports whether the token is no longer valid at now.
func (t *RefreshToken) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Revoked reports whether the token was explicitly revoked.
func (t *RefreshToken) Revoked() bool {
	return t.RevokedAt != nil
}
