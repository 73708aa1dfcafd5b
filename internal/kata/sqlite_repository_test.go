package kata

import (
	"database/sql"
	"testing"

	_ "github.com/mattn/go-sqlite3"
)

const createKatasTableSQL = `
CREATE TABLE katas (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    name TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    style TEXT NOT NULL DEFAULT '',
    image_refs TEXT NOT NULL DEFAULT '[]',
    video_urls TEXT NOT NULL DEFAULT '[]',
    sort_order INTEGER NOT NULL DEFAULT 0,
    created_by TEXT NOT NULL DEFAULT '',
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);
`

func newTestSQLRepository(t *testing.T) KataRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := db.Exec(createKatasTableSQL); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return NewSQLRepository(db)
}

func TestSQLRepository_ShouldRoundTripKata(t *testing.T) {
	// given
	repo := newTestSQLRepository(t)
	k := &Kata{
		Name:      "Heian Shodan",
		Style:     "Shotokan",
		ImageRefs: []string{"img-1", "img-2"},
		VideoURLs: []string{"https://example.com/v"},
		CreatedBy: "user-1",
		CreatedAt: 100,
		UpdatedAt: 100,
	}

	// when
	if err := repo.Create(k); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// then
	stored, err := repo.GetByID(k.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Name != k.Name || len(stored.ImageRefs) != 2 || stored.ImageRefs[1] != "img-2" {
		t.Fatalf("stored kata differs: %+v", stored)
	}
}

func TestSQLRepository_UpdateImageRefsShouldBumpUpdatedAt(t *testing.T) {
	// given: a record last touched well in the past
	repo := newTestSQLRepository(t)
	k := &Kata{Name: "Heian Shodan", CreatedAt: 100, UpdatedAt: 100}
	if err := repo.Create(k); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// when
	if err := repo.UpdateImageRefs(k.ID, []string{"img-9"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// then
	stored, err := repo.GetByID(k.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.UpdatedAt <= 100 {
		t.Fatalf("an image-only edit must refresh updated_at, still %d", stored.UpdatedAt)
	}
	if len(stored.ImageRefs) != 1 || stored.ImageRefs[0] != "img-9" {
		t.Fatalf("expected refs replaced, got %v", stored.ImageRefs)
	}
}

func TestSQLRepository_UpdateOrdersShouldPersistMapping(t *testing.T) {
	// given
	repo := newTestSQLRepository(t)
	first := &Kata{Name: "Heian Shodan", SortOrder: 0, CreatedAt: 1, UpdatedAt: 1}
	second := &Kata{Name: "Heian Nidan", SortOrder: 1, CreatedAt: 1, UpdatedAt: 1}
	repo.Create(first)
	repo.Create(second)

	// when
	err := repo.UpdateOrders(map[int64]int{first.ID: 1, second.ID: 0})

	// then
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	katas, _ := repo.List()
	if katas[0].Name != "Heian Nidan" || katas[1].Name != "Heian Shodan" {
		t.Fatalf("expected swapped order, got %v", kataNames(katas))
	}
}
