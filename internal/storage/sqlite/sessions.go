package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/peachbot/peachbot/internal/core"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// Create inserts a session. An empty id gets a generated UUID.
func (r *SessionRepo) Create(ctx context.Context, userID, title, id string) (core.Session, error) {
	if id == "" {
		id = uuid.NewString()
	}
	query := `INSERT INTO sessions (id, user_id, title) VALUES (?, ?, ?)`
	if _, err := r.db.ExecContext(ctx, query, id, userID, title); err != nil {
		return core.Session{}, fmt.Errorf("failed to create session: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *SessionRepo) Get(ctx context.Context, id string) (core.Session, error) {
	var session core.Session
	query := `SELECT id, user_id, title, message_count, created_at, updated_at FROM sessions WHERE id = ?`
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID, &session.UserID, &session.Title,
		&session.MessageCount, &session.CreatedAt, &session.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Session{}, ErrNotFound
	}
	if err != nil {
		return core.Session{}, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}

func (r *SessionRepo) SetMessageCount(ctx context.Context, id string, count int) error {
	query := `UPDATE sessions SET message_count = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	res, err := r.db.ExecContext(ctx, query, count, id)
	if err != nil {
		return fmt.Errorf("failed to update session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SessionRepo) ListByUser(ctx context.Context, userID string) ([]core.Session, error) {
	query := `SELECT id, user_id, title, message_count, created_at, updated_at FROM sessions WHERE user_id = ? ORDER BY updated_at DESC`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer rows.Close()

	var sessions []core.Session
	for rows.Next() {
		var session core.Session
		if err := rows.Scan(
			&session.ID, &session.UserID, &session.Title,
			&session.MessageCount, &session.CreatedAt, &session.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, session)
	}
	return sessions, rows.Err()
}
