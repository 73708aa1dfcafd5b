package mute

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

type MuteService struct {
	repo MuteRepository
}

func NewMuteService(repo MuteRepository) *MuteService {
	return &MuteService{repo: repo}
}

// MuteUser creates an active mute for the user. An existing active record is
// deactivated first, so the one-active-mute invariant holds.
func (ms *MuteService) MuteUser(userID, reason string, duration time.Duration, mutedBy string) (*Mute, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	if duration <= 0 {
		return nil, fmt.Errorf("%w: mute duration must be positive", ErrValidation)
	}

	now := time.Now()

	existing, err := ms.repo.GetActiveByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active mute: %w", err)
	}
	if existing != nil {
		if err := ms.repo.Deactivate(existing.ID, now.Unix()); err != nil {
			return nil, fmt.Errorf("failed to supersede active mute: %w", err)
		}
	}

	m := &Mute{
		ID:         uuid.NewString(),
		UserID:     userID,
		MutedUntil: now.Add(duration).Unix(),
		Reason:     reason,
		Active:     true,
		CreatedBy:  mutedBy,
		CreatedAt:  now.Unix(),
	}
	if err := ms.repo.Create(m); err != nil {
		return nil, fmt.Errorf("failed to create mute: %w", err)
	}

	log.Info().Str("userId", userID).Int64("mutedUntil", m.MutedUntil).Msg("User muted")
	return m, nil
}

// Unmute deactivates the user's active mute, recording the unmute time.
func (ms *MuteService) Unmute(userID string) error {
	existing, err := ms.repo.GetActiveByUserID(userID)
	if err != nil {
		return fmt.Errorf("failed to look up active mute: %w", err)
	}
	if existing == nil {
		return ErrNotMuted
	}

	if err := ms.repo.Deactivate(existing.ID, time.Now().Unix()); err != nil {
		return fmt.Errorf("failed to unmute: %w", err)
	}

	log.Info().Str("userId", userID).Msg("User unmuted")
	return nil
}

// IsMuted reports whether the user is muted at the given instant. Expired
// records still flagged active evaluate as not muted.
func (ms *MuteService) IsMuted(userID string, now time.Time) (bool, error) {
	m, err := ms.repo.GetActiveByUserID(userID)
	if err != nil {
		return false, fmt.Errorf("failed to look up active mute: %w", err)
	}
	return m != nil && m.IsActive(now), nil
}

// ActiveMute returns the mute currently in force for the user, or ErrNotMuted.
func (ms *MuteService) ActiveMute(userID string, now time.Time) (*Mute, error) {
	m, err := ms.repo.GetActiveByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to look up active mute: %w", err)
	}
	if m == nil || !m.IsActive(now) {
		return nil, ErrNotMuted
	}
	return m, nil
}

// History returns every mute ever recorded for the user, newest first,
// including superseded and expired records.
func (ms *MuteService) History(userID string) ([]*Mute, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", ErrValidation)
	}
	mutes, err := ms.repo.ListByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list mutes: %w", err)
	}
	return mutes, nil
}

// PurgeInactive deletes deactivated mute records older than the retention
// window. Used by the maintenance scheduler.
func (ms *MuteService) PurgeInactive(retentionDays int) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -retentionDays).Unix()
	return ms.repo.DeleteInactiveOlderThan(cutoff)
}
