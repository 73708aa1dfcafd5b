package kata

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var ErrValidation = errors.New("validation error")

// Kata is a catalog record for a single exercise: descriptive fields, an
// ordered list of image references (storage ids), an ordered list of video
// URLs, and a sort-order integer determining the display sequence.
type Kata struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Style       string   `json:"style"`
	ImageRefs   []string `json:"imageRefs"`
	VideoURLs   []string `json:"videoUrls"`
	SortOrder   int      `json:"sortOrder"`
	CreatedBy   string   `json:"createdBy"`
	CreatedAt   int64    `json:"createdAt"`
	UpdatedAt   int64    `json:"updatedAt"`
}

func Validate(k *Kata) error {
	if strings.TrimSpace(k.Name) == "" {
		return fmt.Errorf("%w: kata name is required", ErrValidation)
	}
	for _, u := range k.VideoURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("%w: video url must be http(s): %s", ErrValidation, u)
		}
	}
	return nil
}

// KeyOf returns the store key for a kata.
func KeyOf(k *Kata) string {
	return strconv.FormatInt(k.ID, 10)
}

// Matches reports whether the kata's name, description, or style contains the
// query, case-insensitively.
func Matches(k *Kata, query string) bool {
	q := strings.ToLower(query)
	return strings.Contains(strings.ToLower(k.Name), q) ||
		strings.Contains(strings.ToLower(k.Description), q) ||
		strings.Contains(strings.ToLower(k.Style), q)
}

// Renumber returns a copy of the kata with its sort order set to position.
func Renumber(k *Kata, position int) *Kata {
	clone := *k
	clone.SortOrder = position
	return &clone
}

type KataRepository interface {
	List() ([]*Kata, error)
	GetByID(id int64) (*Kata, error)
	// Create persists the kata and assigns its ID.
	Create(k *Kata) error
	UpdateFields(id int64, name, description, style string, videoURLs []string) error
	UpdateImageRefs(id int64, refs []string) error
	// UpdateOrders persists the full id -> sort-order mapping atomically.
	UpdateOrders(orders map[int64]int) error
	Delete(id int64) error
}
