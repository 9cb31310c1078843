package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/peachbot/peachbot/internal/core"
)

var ErrNotFound = errors.New("not found")

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

// GetOrCreate returns the existing user or inserts a new row. The username is
// refreshed on every call so renames propagate.
func (r *UserRepo) GetOrCreate(ctx context.Context, id, username string) (core.User, error) {
	query := `
		INSERT INTO users (id, username) VALUES (?, ?)
		ON CONFLICT(id) DO UPDATE SET username = excluded.username
	`
	if _, err := r.db.ExecContext(ctx, query, id, username); err != nil {
		return core.User{}, fmt.Errorf("failed to upsert user: %w", err)
	}
	return r.Get(ctx, id)
}

func (r *UserRepo) Get(ctx context.Context, id string) (core.User, error) {
	var user core.User
	query := `SELECT id, username, created_at FROM users WHERE id = ?`
	err := r.db.QueryRowContext(ctx, query, id).Scan(&user.ID, &user.Username, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return core.User{}, ErrNotFound
	}
	if err != nil {
		return core.User{}, fmt.Errorf("failed to get user: %w", err)
	}
	return user, nil
}
