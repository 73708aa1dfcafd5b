package post

import (
	"fmt"
	"sort"
)

type MemoryRepository struct {
	posts map[string]*Post

	// FailCreate makes Create fail, for exercising the rollback path.
	FailCreate bool
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{posts: make(map[string]*Post)}
}

func (r *MemoryRepository) List() ([]*Post, error) {
	posts := make([]*Post, 0, len(r.posts))
	for _, p := range r.posts {
		clone := *p
		posts = append(posts, &clone)
	}
	sort.Slice(posts, func(i, j int) bool {
		return posts[i].CreatedAt > posts[j].CreatedAt
	})
	return posts, nil
}

func (r *MemoryRepository) GetByID(id string) (*Post, error) {
	p, exists := r.posts[id]
	if !exists {
		return nil, fmt.Errorf("post not found")
	}
	clone := *p
	return &clone, nil
}

func (r *MemoryRepository) Create(p *Post) error {
	if r.FailCreate {
		return fmt.Errorf("simulated create failure")
	}
	clone := *p
	r.posts[p.ID] = &clone
	return nil
}

func (r *MemoryRepository) Update(id string, title, body string, updatedAt int64) error {
	p, exists := r.posts[id]
	if !exists {
		return fmt.Errorf("post not found")
	}
	p.Title = title
	p.Body = body
	p.UpdatedAt = updatedAt
	return nil
}

func (r *MemoryRepository) Delete(id string) error {
	if _, exists := r.posts[id]; !exists {
		return fmt.Errorf("post not found")
	}
	delete(r.posts, id)
	return nil
}
