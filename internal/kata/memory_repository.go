package kata

import (
	"fmt"
	"sort"
	"time"
)

type MemoryRepository struct {
	katas  map[int64]*Kata
	nextID int64
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		katas:  make(map[int64]*Kata),
		nextID: 1,
	}
}

func (r *MemoryRepository) List() ([]*Kata, error) {
	katas := make([]*Kata, 0, len(r.katas))
	for _, k := range r.katas {
		clone := *k
		katas = append(katas, &clone)
	}
	sort.Slice(katas, func(i, j int) bool {
		return katas[i].SortOrder < katas[j].SortOrder
	})
	return katas, nil
}

func (r *MemoryRepository) GetByID(id int64) (*Kata, error) {
	k, exists := r.katas[id]
	if !exists {
		return nil, fmt.Errorf("kata not found")
	}
	clone := *k
	return &clone, nil
}

func (r *MemoryRepository) Create(k *Kata) error {
	k.ID = r.nextID
	r.nextID++

	clone := *k
	r.katas[k.ID] = &clone
	return nil
}

func (r *MemoryRepository) UpdateFields(id int64, name, description, style string, videoURLs []string) error {
	k, exists := r.katas[id]
	if !exists {
		return fmt.Errorf("kata not found")
	}
	k.Name = name
	k.Description = description
	k.Style = style
	k.VideoURLs = append([]string(nil), videoURLs...)
	k.UpdatedAt = time.Now().Unix()
	return nil
}

func (r *MemoryRepository) UpdateImageRefs(id int64, refs []string) error {
	k, exists := r.katas[id]
	if !exists {
		return fmt.Errorf("kata not found")
	}
	k.ImageRefs = append([]string(nil), refs...)
	k.UpdatedAt = time.Now().Unix()
	return nil
}

func (r *MemoryRepository) UpdateOrders(orders map[int64]int) error {
	for id := range orders {
		if _, exists := r.katas[id]; !exists {
			return fmt.Errorf("kata not found")
		}
	}
	for id, order := range orders {
		r.katas[id].SortOrder = order
	}
	return nil
}

func (r *MemoryRepository) Delete(id int64) error {
	if _, exists := r.katas[id]; !exists {
		return fmt.Errorf("kata not found")
	}
	delete(r.katas, id)
	return nil
}
