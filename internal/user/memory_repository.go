package user

import (
	"fmt"
	"sort"
)

type MemoryRepository struct {
	users map[string]*User
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{users: make(map[string]*User)}
}

func (r *MemoryRepository) CreateUser(u *User) error {
	if _, exists := r.users[u.ID]; exists {
		return fmt.Errorf("user already exists")
	}
	clone := *u
	r.users[u.ID] = &clone
	return nil
}

func (r *MemoryRepository) GetUserByID(id string) (*User, error) {
	u, exists := r.users[id]
	if !exists {
		return nil, fmt.Errorf("user not found")
	}
	clone := *u
	return &clone, nil
}

func (r *MemoryRepository) GetUserByEmail(email string) (*User, error) {
	for _, u := range r.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (r *MemoryRepository) GetUserByUsername(username string) (*User, error) {
	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, fmt.Errorf("user not found")
}

func (r *MemoryRepository) ListUsers() ([]*User, error) {
	users := make([]*User, 0, len(r.users))
	for _, u := range r.users {
		clone := *u
		users = append(users, &clone)
	}
	sort.Slice(users, func(i, j int) bool {
		return users[i].CreatedAt < users[j].CreatedAt
	})
	return users, nil
}

func (r *MemoryRepository) UpdateUserRole(id string, role string) error {
	u, exists := r.users[id]
	if !exists {
		return fmt.Errorf("user not found")
	}
	u.Role = role
	return nil
}

func (r *MemoryRepository) CountUsers() (int, error) {
	return len(r.users), nil
}
