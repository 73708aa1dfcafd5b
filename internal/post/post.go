package post

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrValidation = errors.New("validation error")
	ErrMuted      = errors.New("user is muted")
	ErrForbidden  = errors.New("not allowed to modify this post")
)

// Post is a community forum entry.
type Post struct {
	ID         string `json:"id"`
	AuthorID   string `json:"authorId"`
	AuthorName string `json:"authorName"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	CreatedAt  int64  `json:"createdAt"`
	UpdatedAt  int64  `json:"updatedAt"`
}

func Validate(p *Post) error {
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: post title is required", ErrValidation)
	}
	if strings.TrimSpace(p.Body) == "" {
		return fmt.Errorf("%w: post body is required", ErrValidation)
	}
	return nil
}

func KeyOf(p *Post) string {
	return p.ID
}

// Matches reports whether the post's title or body contains the query,
// case-insensitively.
func Matches(p *Post, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Body), q)
}

type PostRepository interface {
	List() ([]*Post, error)
	GetByID(id string) (*Post, error)
	Create(p *Post) error
	Update(id string, title, body string, updatedAt int64) error
	Delete(id string) error
}

// MuteChecker is the slice of the mute service the forum needs.
type MuteChecker interface {
	IsMuted(userID string, now time.Time) (bool, error)
}
