package post

import (
	"database/sql"
	"fmt"
)

type sqlRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) PostRepository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) List() ([]*Post, error) {
	rows, err := r.db.Query(
		`SELECT id, author_id, author_name, title, body, created_at, updated_at
		 FROM posts ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*Post
	for rows.Next() {
		p := &Post{}
		if err := rows.Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}

func (r *sqlRepository) GetByID(id string) (*Post, error) {
	p := &Post{}
	err := r.db.QueryRow(
		`SELECT id, author_id, author_name, title, body, created_at, updated_at FROM posts WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.AuthorID, &p.AuthorName, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("post not found")
		}
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return p, nil
}

func (r *sqlRepository) Create(p *Post) error {
	_, err := r.db.Exec(
		`INSERT INTO posts (id, author_id, author_name, title, body, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		p.ID, p.AuthorID, p.AuthorName, p.Title, p.Body, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create post: %w", err)
	}
	return nil
}

func (r *sqlRepository) Update(id string, title, body string, updatedAt int64) error {
	result, err := r.db.Exec(
		`UPDATE posts SET title = $1, body = $2, updated_at = $3 WHERE id = $4`,
		title, body, updatedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update post: %w", err)
	}
	return requireRow(result)
}

func (r *sqlRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM posts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return requireRow(result)
}

func requireRow(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("post not found")
	}
	return nil
}
