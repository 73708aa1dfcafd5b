package mute

import "sort"

type MemoryRepository struct {
	mutes map[string]*Mute
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{mutes: make(map[string]*Mute)}
}

func (r *MemoryRepository) Create(m *Mute) error {
	clone := *m
	r.mutes[m.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetActiveByUserID(userID string) (*Mute, error) {
	for _, m := range r.mutes {
		if m.UserID == userID && m.Active {
			clone := *m
			return &clone, nil
		}
	}
	return nil, nil
}

func (r *MemoryRepository) ListByUserID(userID string) ([]*Mute, error) {
	var mutes []*Mute
	for _, m := range r.mutes {
		if m.UserID == userID {
			clone := *m
			mutes = append(mutes, &clone)
		}
	}
	sort.Slice(mutes, func(i, j int) bool {
		return mutes[i].CreatedAt > mutes[j].CreatedAt
	})
	return mutes, nil
}

func (r *MemoryRepository) Deactivate(id string, unmutedAt int64) error {
	m, exists := r.mutes[id]
	if !exists {
		return errMuteNotFound
	}
	m.Active = false
	m.UnmutedAt = &unmutedAt
	return nil
}

func (r *MemoryRepository) DeleteInactiveOlderThan(cutoff int64) (int64, error) {
	var deleted int64
	for id, m := range r.mutes {
		if !m.Active && m.CreatedAt < cutoff {
			delete(r.mutes, id)
			deleted++
		}
	}
	return deleted, nil
}
