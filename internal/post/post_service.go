package post

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kataclub/kataclub_server/internal/store"
	"github.com/kataclub/kataclub_server/internal/user"
)

// Service orchestrates forum-post mutations. Creation is two-phase against
// the snapshot: the post enters as a tentative entry, then is promoted once
// the repository confirms it or rolled back if it does not.
type Service struct {
	repo  PostRepository
	mutes MuteChecker
	store *store.Store[*Post]
}

func NewService(repo PostRepository, mutes MuteChecker) *Service {
	return &Service{
		repo:  repo,
		mutes: mutes,
		store: store.New(KeyOf, Matches, nil),
	}
}

func (s *Service) Store() *store.Store[*Post] {
	return s.store
}

func (s *Service) Refresh(ctx context.Context) error {
	s.store.SetLoading(true)

	posts, err := s.repo.List()
	if ctx.Err() != nil {
		s.store.SetLoading(false)
		return ctx.Err()
	}
	if err != nil {
		s.store.SetError(err.Error())
		return err
	}

	s.store.SetAll(posts)
	return nil
}

func (s *Service) Search(query string) []*Post {
	s.store.ApplyQuery(query)
	return s.store.Visible()
}

// Create validates, enforces the author's mute, and runs the optimistic
// two-phase insert.
func (s *Service) Create(ctx context.Context, author *user.User, title, body string) (*Post, error) {
	now := time.Now()

	muted, err := s.mutes.IsMuted(author.ID, now)
	if err != nil {
		return nil, fmt.Errorf("failed to check mute: %w", err)
	}
	if muted {
		return nil, ErrMuted
	}

	p := &Post{
		ID:         uuid.NewString(),
		AuthorID:   author.ID,
		AuthorName: author.Username,
		Title:      title,
		Body:       body,
		CreatedAt:  now.Unix(),
		UpdatedAt:  now.Unix(),
	}
	if err := Validate(p); err != nil {
		return nil, err
	}

	s.store.UpsertPending(p)
	if err := s.repo.Create(p); err != nil {
		s.store.RollbackPending(p.ID)
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to create post: %w", err)
	}
	s.store.Promote(p.ID)
	s.store.ClearError()
	return p, nil
}

// Update edits a post. Only the author or a moderator may edit.
func (s *Service) Update(ctx context.Context, actor *user.User, id, title, body string) (*Post, error) {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if existing.AuthorID != actor.ID && !user.RoleAtLeast(actor.Role, user.RoleModerator) {
		return nil, ErrForbidden
	}

	updated := *existing
	updated.Title = title
	updated.Body = body
	updated.UpdatedAt = time.Now().Unix()
	if err := Validate(&updated); err != nil {
		return nil, err
	}

	if err := s.repo.Update(id, title, body, updated.UpdatedAt); err != nil {
		s.store.SetError(err.Error())
		return nil, fmt.Errorf("failed to update post: %w", err)
	}

	s.store.UpsertOne(&updated)
	s.store.ClearError()
	return &updated, nil
}

// Delete removes a post. Only the author or a moderator may delete.
func (s *Service) Delete(ctx context.Context, actor *user.User, id string) error {
	existing, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if existing.AuthorID != actor.ID && !user.RoleAtLeast(actor.Role, user.RoleModerator) {
		return ErrForbidden
	}

	if err := s.repo.Delete(id); err != nil {
		s.store.SetError(err.Error())
		return fmt.Errorf("failed to delete post: %w", err)
	}

	s.store.RemoveOne(id)
	s.store.ClearError()
	return nil
}
