package user

import (
	"database/sql"
	"fmt"
)

type sqlUserRepository struct {
	db *sql.DB
}

func NewSQLUserRepository(db *sql.DB) UserRepository {
	return &sqlUserRepository{db: db}
}

func (r *sqlUserRepository) CreateUser(u *User) error {
	_, err := r.db.Exec(
		`INSERT INTO users (id, email, username, role, password_hash, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
		u.ID, u.Email, u.Username, u.Role, u.PasswordHash, u.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *sqlUserRepository) GetUserByID(id string) (*User, error) {
	return r.getBy(`SELECT id, email, username, role, password_hash, created_at FROM users WHERE id = $1`, id)
}

func (r *sqlUserRepository) GetUserByEmail(email string) (*User, error) {
	return r.getBy(`SELECT id, email, username, role, password_hash, created_at FROM users WHERE email = $1`, email)
}

func (r *sqlUserRepository) GetUserByUsername(username string) (*User, error) {
	return r.getBy(`SELECT id, email, username, role, password_hash, created_at FROM users WHERE username = $1`, username)
}

func (r *sqlUserRepository) getBy(query string, arg interface{}) (*User, error) {
	var u User
	err := r.db.QueryRow(query, arg).Scan(&u.ID, &u.Email, &u.Username, &u.Role, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("user not found")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (r *sqlUserRepository) ListUsers() ([]*User, error) {
	rows, err := r.db.Query(`SELECT id, email, username, role, password_hash, created_at FROM users ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Email, &u.Username, &u.Role, &u.PasswordHash, &u.CreatedAt); err != nil {
			return nil, err
		}
		users = append(users, &u)
	}
	return users, rows.Err()
}

func (r *sqlUserRepository) UpdateUserRole(id string, role string) error {
	result, err := r.db.Exec(`UPDATE users SET role = $1 WHERE id = $2`, role, id)
	if err != nil {
		return fmt.Errorf("failed to update user role: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("user not found")
	}
	return nil
}

func (r *sqlUserRepository) CountUsers() (int, error) {
	var count int
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return count, nil
}
