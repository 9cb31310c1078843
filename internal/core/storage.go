package core

import (
	"context"
	"strings"
	"time"
)

// SessionKey isolates memory spaces per user, session and optionally persona.
type SessionKey struct {
	UserID    string
	SessionID string
	RoleID    string
}

// Collection renders the key as a stable store namespace.
func (k SessionKey) Collection() string {
	parts := []string{k.UserID, k.SessionID}
	if k.RoleID != "" {
		parts = append(parts, k.RoleID)
	}
	parts = append(parts, "memories")
	return strings.Join(parts, "_")
}

// MemoryHit is a stored fragment returned by similarity search together with
// its raw distance (lower is closer).
type MemoryHit struct {
	Fragment Fragment
	Distance float64
}

type MemoryStore interface {
	Store(ctx context.Context, key SessionKey, fragments []Fragment) ([]string, error)
	Query(ctx context.Context, key SessionKey, query string, limit int) ([]MemoryHit, error)
	Count(ctx context.Context, key SessionKey) (int, error)
	Delete(ctx context.Context, key SessionKey) error
	List(ctx context.Context, key SessionKey, limit int) ([]Fragment, error)
}

type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

type Session struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type UserRepository interface {
	GetOrCreate(ctx context.Context, id, username string) (User, error)
	Get(ctx context.Context, id string) (User, error)
}

type SessionRepository interface {
	Create(ctx context.Context, userID, title, id string) (Session, error)
	Get(ctx context.Context, id string) (Session, error)
	SetMessageCount(ctx context.Context, id string, count int) error
	ListByUser(ctx context.Context, userID string) ([]Session, error)
}
