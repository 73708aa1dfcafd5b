package mute

import (
	"errors"
	"time"
)

var (
	ErrValidation = errors.New("validation error")
	ErrNotMuted   = errors.New("user has no active mute")

	errMuteNotFound = errors.New("mute not found")
)

// Mute is a time-bounded posting restriction on a user. At most one mute per
// user is active at any time; expiry is evaluated lazily against the
// muted-until timestamp, never by a background timer.
type Mute struct {
	ID         string `json:"id"`
	UserID     string `json:"userId"`
	MutedUntil int64  `json:"mutedUntil"`
	Reason     string `json:"reason"`
	Active     bool   `json:"active"`
	UnmutedAt  *int64 `json:"unmutedAt,omitempty"`
	CreatedBy  string `json:"createdBy"`
	CreatedAt  int64  `json:"createdAt"`
}

// IsActive reports whether the mute is in force at the given instant.
func (m *Mute) IsActive(now time.Time) bool {
	return m.Active && now.Unix() < m.MutedUntil
}

type MuteRepository interface {
	Create(m *Mute) error
	// GetActiveByUserID returns the record whose active flag is set, or nil
	// when the user has none. The flag alone does not imply the mute is still
	// in force; callers must check IsActive.
	GetActiveByUserID(userID string) (*Mute, error)
	ListByUserID(userID string) ([]*Mute, error)
	Deactivate(id string, unmutedAt int64) error
	// DeleteInactiveOlderThan purges deactivated records created before the
	// cutoff and returns how many were removed.
	DeleteInactiveOlderThan(cutoff int64) (int64, error)
}
