// Package models defines server-side data models persisted in the database.
package models

import "time"

// AccountState is the lifecycle state derived from the activation pair.
type AccountState int

const (
	StateActive AccountState = iota
	StateDeactivated
	// StateCorrupt means IsActive and DeactivatedAt disagree. It is handled
	// as a deactivation with an unknown timestamp and is never restorable.
	StateCorrupt
)

func (s AccountState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateDeactivated:
		return "deactivated"
	default:
		return "corrupt"
	}
}

// Account is a community member. IsActive == false iff DeactivatedAt != nil.
type Account struct {
	ID              string
	Email           string
	Nickname        string
	PasswordHash    string
	ProfileImageURL string
	IsActive        bool
	DeactivatedAt   *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// State classifies the activation pair.
func (a *Account) State() AccountState {
	switch {
	case a.IsActive && a.DeactivatedAt == nil:
		return StateActive
	case !a.IsActive && a.DeactivatedAt != nil:
		return StateDeactivated
	default:
		return StateCorrupt
	}
}

// RecoveryDeadline is the last instant at which a deactivated account can
// be restored. ok is false unless the account is cleanly deactivated.
func (a *Account) RecoveryDeadline(grace time.Duration) (deadline time.Time, ok bool) {
	if a.State() != StateDeactivated {
		return time.Time{}, false
	}
	return a.DeactivatedAt.Add(grace), true
}

// Restorable reports whether the account can be reactivated at now.
func (a *Account) Restorable(now time.Time, grace time.Duration) bool {
	deadline, ok := a.RecoveryDeadline(grace)
	return ok && !now.After(deadline)
}

// PurgeableBefore reports whether the account is deactivated and its
// deactivation predates cutoff.
func (a *Account) PurgeableBefore(cutoff time.Time) bool {
	return a.State() == StateDeactivated && a.DeactivatedAt.Before(cutoff)
}

// Deactivate marks the account inactive as of at.
func (a *Account) Deactivate(at time.Time) {
	a.IsActive = false
	a.DeactivatedAt = &at
}

// Activate clears a deactivation.
func (a *Account) Activate() {
	a.IsActive = true
	a.DeactivatedAt = nil
}
