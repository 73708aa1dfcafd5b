package mute

import (
	"database/sql"
	"fmt"
)

type sqlRepository struct {
	db *sql.DB
}

func NewSQLRepository(db *sql.DB) MuteRepository {
	return &sqlRepository{db: db}
}

func (r *sqlRepository) Create(m *Mute) error {
	_, err := r.db.Exec(
		`INSERT INTO mutes (id, user_id, muted_until, reason, active, unmuted_at, created_by, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		m.ID, m.UserID, m.MutedUntil, m.Reason, m.Active, m.UnmutedAt, m.CreatedBy, m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create mute: %w", err)
	}
	return nil
}

func (r *sqlRepository) GetActiveByUserID(userID string) (*Mute, error) {
	row := r.db.QueryRow(
		`SELECT id, user_id, muted_until, reason, active, unmuted_at, created_by, created_at
		 FROM mutes WHERE user_id = $1 AND active = $2`,
		userID, true,
	)

	m, err := scanMute(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get active mute: %w", err)
	}
	return m, nil
}

func (r *sqlRepository) ListByUserID(userID string) ([]*Mute, error) {
	rows, err := r.db.Query(
		`SELECT id, user_id, muted_until, reason, active, unmuted_at, created_by, created_at
		 FROM mutes WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list mutes: %w", err)
	}
	defer rows.Close()

	var mutes []*Mute
	for rows.Next() {
		m, err := scanMute(rows.Scan)
		if err != nil {
			return nil, err
		}
		mutes = append(mutes, m)
	}
	return mutes, rows.Err()
}

func (r *sqlRepository) Deactivate(id string, unmutedAt int64) error {
	result, err := r.db.Exec(
		`UPDATE mutes SET active = $1, unmuted_at = $2 WHERE id = $3`,
		false, unmutedAt, id,
	)
	if err != nil {
		return fmt.Errorf("failed to deactivate mute: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return fmt.Errorf("mute not found")
	}
	return nil
}

func (r *sqlRepository) DeleteInactiveOlderThan(cutoff int64) (int64, error) {
	result, err := r.db.Exec(
		`DELETE FROM mutes WHERE active = $1 AND created_at < $2`,
		false, cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to purge mutes: %w", err)
	}
	return result.RowsAffected()
}

func scanMute(scan func(...interface{}) error) (*Mute, error) {
	m := &Mute{}
	var unmutedAt sql.NullInt64
	err := scan(&m.ID, &m.UserID, &m.MutedUntil, &m.Reason, &m.Active, &unmutedAt, &m.CreatedBy, &m.CreatedAt)
	if err != nil {
		return nil, err
	}
	if unmutedAt.Valid {
		m.UnmutedAt = &unmutedAt.Int64
	}
	return m, nil
}
