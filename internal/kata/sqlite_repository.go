package kata

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/goccy/go-json"
)

type sqlRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) KataRepository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) List() ([]*Kata, error) {
	rows, err := r.db.Query(
		`SELECT id, name, description, style, image_refs, video_urls, sort_order, created_by, created_at, updated_at
		 FROM katas ORDER BY sort_order`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list katas: %w", err)
	}
	defer rows.Close()

	var katas []*Kata
	for rows.Next() {
		k, err := scanKata(rows.Scan)
		if err != nil {
			return nil, err
		}
		katas = append(katas, k)
	}
	return katas, rows.Err()
}

func (r *sqlRepository) GetByID(id int64) (*Kata, error) {
	row := r.db.QueryRow(
		`SELECT id, name, description, style, image_refs, video_urls, sort_order, created_by, created_at, updated_at
		 FROM katas WHERE id = $1`,
		id,
	)
	k, err := scanKata(row.Scan)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("kata not found")
	}
	return k, err
}

func (r *sqlRepository) Create(k *Kata) error {
	imageRefs, err := json.Marshal(k.ImageRefs)
	if err != nil {
		return fmt.Errorf("failed to marshal image refs: %w", err)
	}
	videoURLs, err := json.Marshal(k.VideoURLs)
	if err != nil {
		return fmt.Errorf("failed to marshal video urls: %w", err)
	}

	result, err := r.db.Exec(
		`INSERT INTO katas (name, description, style, image_refs, video_urls, sort_order, created_by, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		k.Name, k.Description, k.Style, string(imageRefs), string(videoURLs), k.SortOrder, k.CreatedBy, k.CreatedAt, k.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create kata: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read assigned kata id: %w", err)
	}
	k.ID = id
	return nil
}

func (r *sqlRepository) UpdateFields(id int64, name, description, style string, videoURLs []string) error {
	urls, err := json.Marshal(videoURLs)
	if err != nil {
		return fmt.Errorf("failed to marshal video urls: %w", err)
	}

	result, err := r.db.Exec(
		`UPDATE katas SET name = $1, description = $2, style = $3, video_urls = $4, updated_at = $5
		 WHERE id = $6`,
		name, description, style, string(urls), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update kata: %w", err)
	}
	return requireRow(result, "kata")
}

func (r *sqlRepository) UpdateImageRefs(id int64, refs []string) error {
	encoded, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("failed to marshal image refs: %w", err)
	}

	result, err := r.db.Exec(
		`UPDATE katas SET image_refs = $1, updated_at = $2 WHERE id = $3`,
		string(encoded), time.Now().Unix(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update kata image refs: %w", err)
	}
	return requireRow(result, "kata")
}

func (r *sqlRepository) UpdateOrders(orders map[int64]int) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin order update: %w", err)
	}

	for id, order := range orders {
		if _, err := tx.Exec(`UPDATE katas SET sort_order = $1 WHERE id = $2`, order, id); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to update kata order: %w", err)
		}
	}
	return tx.Commit()
}

func (r *sqlRepository) Delete(id int64) error {
	result, err := r.db.Exec(`DELETE FROM katas WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete kata: %w", err)
	}
	return requireRow(result, "kata")
}

func scanKata(scan func(...interface{}) error) (*Kata, error) {
	k := &Kata{}
	var imageRefs, videoURLs string
	err := scan(&k.ID, &k.Name, &k.Description, &k.Style, &imageRefs, &videoURLs, &k.SortOrder, &k.CreatedBy, &k.CreatedAt, &k.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if imageRefs != "" {
		if err := json.Unmarshal([]byte(imageRefs), &k.ImageRefs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal image refs: %w", err)
		}
	}
	if videoURLs != "" {
		if err := json.Unmarshal([]byte(videoURLs), &k.VideoURLs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal video urls: %w", err)
		}
	}
	return k, nil
}

func requireRow(result sql.Result, entity string) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("%s not found", entity)
	}
	return nil
}
