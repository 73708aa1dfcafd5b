package post

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kataclub/kataclub_server/internal/mute"
	"github.com/kataclub/kataclub_server/internal/user"
)

func testUser(id, username, role string) *user.User {
	return &user.User{
		ID:        id,
		Username:  username,
		Role:      role,
		CreatedAt: time.Now().Unix(),
	}
}

func newTestService(repo *MemoryRepository) (*Service, *mute.MuteService) {
	mutes := mute.NewMuteService(mute.NewMemoryRepository())
	return NewService(repo, mutes), mutes
}

func TestCreate_ShouldPromoteConfirmedPost(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	service, _ := newTestService(repo)
	author := testUser("user-1", "kenta", user.RoleUser)

	// when
	p, err := service.Create(context.Background(), author, "Belt exam", "Good luck everyone")

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if service.Store().IsPending(p.ID) {
		t.Fatalf("confirmed post must not stay tentative")
	}
	if stored, _ := repo.GetByID(p.ID); stored.AuthorName != "kenta" {
		t.Fatalf("expected author name persisted, got %q", stored.AuthorName)
	}
}

func TestCreate_ShouldRollBackWhenRepositoryRejects(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	repo.FailCreate = true
	service, _ := newTestService(repo)
	author := testUser("user-1", "kenta", user.RoleUser)

	// when
	_, err := service.Create(context.Background(), author, "Belt exam", "Good luck everyone")

	// then
	if err == nil {
		t.Fatalf("expected create to fail")
	}
	if service.Store().Len() != 0 {
		t.Fatalf("tentative post must be rolled back, %d items remain", service.Store().Len())
	}
	if service.Store().Err() == "" {
		t.Fatalf("failed create must flag the snapshot error")
	}
}

func TestCreate_ShouldRejectMutedAuthor(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	service, mutes := newTestService(repo)
	author := testUser("user-1", "kenta", user.RoleUser)
	mutes.MuteUser(author.ID, "spam", time.Hour, "mod-1")

	// when
	_, err := service.Create(context.Background(), author, "Belt exam", "Good luck everyone")

	// then
	if !errors.Is(err, ErrMuted) {
		t.Fatalf("expected ErrMuted, got %v", err)
	}
	if service.Store().Len() != 0 {
		t.Fatalf("muted author's post must never enter the snapshot")
	}
}

func TestCreate_ShouldAllowAuthorAfterMuteExpires(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	muteRepo := mute.NewMemoryRepository()
	mutes := mute.NewMuteService(muteRepo)
	service := NewService(repo, mutes)
	author := testUser("user-1", "kenta", user.RoleUser)
	expired := &mute.Mute{
		ID:         "m-1",
		UserID:     author.ID,
		MutedUntil: time.Now().Add(-time.Minute).Unix(),
		Active:     true,
		CreatedAt:  time.Now().Add(-time.Hour).Unix(),
	}
	muteRepo.Create(expired)

	// when
	_, err := service.Create(context.Background(), author, "Belt exam", "Good luck everyone")

	// then
	if err != nil {
		t.Fatalf("expired mute must not block posting: %v", err)
	}
}

func TestCreate_ShouldRejectBlankTitle(t *testing.T) {
	// given
	service, _ := newTestService(NewMemoryRepository())
	author := testUser("user-1", "kenta", user.RoleUser)

	// when
	_, err := service.Create(context.Background(), author, "   ", "body")

	// then
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdate_ShouldAllowAuthor(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	service, _ := newTestService(repo)
	author := testUser("user-1", "kenta", user.RoleUser)
	p, _ := service.Create(context.Background(), author, "Belt exam", "Good luck")

	// when
	updated, err := service.Update(context.Background(), author, p.ID, "Belt exam", "Results are in")

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Body != "Results are in" {
		t.Fatalf("expected body updated, got %q", updated.Body)
	}
}

func TestUpdate_ShouldRejectStranger(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	service, _ := newTestService(repo)
	author := testUser("user-1", "kenta", user.RoleUser)
	stranger := testUser("user-2", "aiko", user.RoleUser)
	p, _ := service.Create(context.Background(), author, "Belt exam", "Good luck")

	// when
	_, err := service.Update(context.Background(), stranger, p.ID, "Hijacked", "Hijacked")

	// then
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestUpdate_ShouldAllowModerator(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	service, _ := newTestService(repo)
	author := testUser("user-1", "kenta", user.RoleUser)
	moderator := testUser("user-2", "aiko", user.RoleModerator)
	p, _ := service.Create(context.Background(), author, "Belt exam", "Good luck")

	// when
	_, err := service.Update(context.Background(), moderator, p.ID, "Belt exam", "Edited by a moderator")

	// then
	if err != nil {
		t.Fatalf("moderators may edit any post: %v", err)
	}
}

func TestDelete_ShouldAllowModeratorAndRemoveFromSnapshot(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	service, _ := newTestService(repo)
	author := testUser("user-1", "kenta", user.RoleUser)
	moderator := testUser("user-2", "aiko", user.RoleModerator)
	p, _ := service.Create(context.Background(), author, "Belt exam", "Good luck")

	// when
	err := service.Delete(context.Background(), moderator, p.ID)

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if service.Store().Len() != 0 {
		t.Fatalf("deleted post must leave the snapshot")
	}
	if _, err := repo.GetByID(p.ID); err == nil {
		t.Fatalf("deleted post must leave the repository")
	}
}

func TestDelete_ShouldRejectStranger(t *testing.T) {
	// given
	repo := NewMemoryRepository()
	service, _ := newTestService(repo)
	author := testUser("user-1", "kenta", user.RoleUser)
	stranger := testUser("user-2", "aiko", user.RoleUser)
	p, _ := service.Create(context.Background(), author, "Belt exam", "Good luck")

	// when
	err := service.Delete(context.Background(), stranger, p.ID)

	// then
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestSearch_ShouldMatchTitleAndBody(t *testing.T) {
	// given
	service, _ := newTestService(NewMemoryRepository())
	author := testUser("user-1", "kenta", user.RoleUser)
	ctx := context.Background()
	service.Create(ctx, author, "Belt exam schedule", "Saturday morning")
	service.Create(ctx, author, "New mats", "The dojo got new tatami")

	// when
	byTitle := service.Search("belt")
	byBody := service.Search("tatami")

	// then
	if len(byTitle) != 1 || byTitle[0].Title != "Belt exam schedule" {
		t.Fatalf("expected title match, got %v", byTitle)
	}
	if len(byBody) != 1 || byBody[0].Title != "New mats" {
		t.Fatalf("expected body match, got %v", byBody)
	}
}
