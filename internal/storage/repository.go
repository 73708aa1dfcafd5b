package storage

import (
	"database/sql"
	"fmt"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(o *Object) error {
	_, err := r.db.Exec(
		`INSERT INTO storage (id, uploader_id, filename, content_type, size_bytes, storage_path, thumbnail_path, width, height, checksum, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		o.ID, o.UploaderID, o.Filename, o.ContentType, o.SizeBytes, o.StoragePath, o.ThumbnailPath, o.Width, o.Height, o.Checksum, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create storage record: %w", err)
	}
	return nil
}

func (r *Repository) GetByID(id string) (*Object, error) {
	o := &Object{}
	var thumbnailPath sql.NullString
	var width, height sql.NullInt64

	err := r.db.QueryRow(
		`SELECT id, uploader_id, filename, content_type, size_bytes, storage_path, thumbnail_path, width, height, checksum, created_at
		 FROM storage WHERE id = $1`,
		id,
	).Scan(&o.ID, &o.UploaderID, &o.Filename, &o.ContentType, &o.SizeBytes, &o.StoragePath, &thumbnailPath, &width, &height, &o.Checksum, &o.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("storage record not found")
		}
		return nil, fmt.Errorf("failed to get storage record: %w", err)
	}

	if thumbnailPath.Valid {
		o.ThumbnailPath = thumbnailPath.String
	}
	if width.Valid {
		w := int(width.Int64)
		o.Width = &w
	}
	if height.Valid {
		h := int(height.Int64)
		o.Height = &h
	}
	return o, nil
}

func (r *Repository) ListIDs() ([]string, error) {
	rows, err := r.db.Query(`SELECT id FROM storage ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage records: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListPaths returns every blob key a record references, main files and
// thumbnails both.
func (r *Repository) ListPaths() ([]string, error) {
	rows, err := r.db.Query(`SELECT storage_path, thumbnail_path FROM storage`)
	if err != nil {
		return nil, fmt.Errorf("failed to list storage paths: %w", err)
	}
	defer rows.Close()

	var paths []string
	for rows.Next() {
		var path string
		var thumbnailPath sql.NullString
		if err := rows.Scan(&path, &thumbnailPath); err != nil {
			return nil, err
		}
		paths = append(paths, path)
		if thumbnailPath.Valid && thumbnailPath.String != "" {
			paths = append(paths, thumbnailPath.String)
		}
	}
	return paths, rows.Err()
}

func (r *Repository) UpdateThumbnail(id, thumbnailPath string) error {
	_, err := r.db.Exec(`UPDATE storage SET thumbnail_path = $1 WHERE id = $2`, thumbnailPath, id)
	return err
}

func (r *Repository) UpdateDimensions(id string, width, height int) error {
	_, err := r.db.Exec(`UPDATE storage SET width = $1, height = $2 WHERE id = $3`, width, height, id)
	return err
}

func (r *Repository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM storage WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete storage record: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("storage record not found")
	}
	return nil
}
