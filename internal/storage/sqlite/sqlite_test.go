package sqlite

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := NewDB(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestUserRepo_GetOrCreate(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db)
	ctx := context.Background()

	user, err := repo.GetOrCreate(ctx, "u1", "小桃")
	require.NoError(t, err)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, "小桃", user.Username)
	assert.False(t, user.CreatedAt.IsZero())

	// Second call updates the username but keeps the row.
	again, err := repo.GetOrCreate(ctx, "u1", "小桃桃")
	require.NoError(t, err)
	assert.Equal(t, "小桃桃", again.Username)
	assert.Equal(t, user.CreatedAt.Unix(), again.CreatedAt.Unix())
}

func TestUserRepo_GetMissing(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepo(db)

	_, err := repo.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSessionRepo_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepo(db)
	sessions := NewSessionRepo(db)
	ctx := context.Background()

	_, err := users.GetOrCreate(ctx, "u1", "小桃")
	require.NoError(t, err)

	session, err := sessions.Create(ctx, "u1", "第一次聊天", "")
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID)
	assert.Equal(t, "u1", session.UserID)
	assert.Equal(t, 0, session.MessageCount)

	got, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.ID, got.ID)
	assert.Equal(t, "第一次聊天", got.Title)
}

func TestSessionRepo_SetMessageCount(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepo(db)
	sessions := NewSessionRepo(db)
	ctx := context.Background()

	_, err := users.GetOrCreate(ctx, "u1", "小桃")
	require.NoError(t, err)
	session, err := sessions.Create(ctx, "u1", "", "fixed-id")
	require.NoError(t, err)

	require.NoError(t, sessions.SetMessageCount(ctx, session.ID, 8))
	got, err := sessions.Get(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, got.MessageCount)

	assert.ErrorIs(t, sessions.SetMessageCount(ctx, "missing", 1), ErrNotFound)
}

func TestSessionRepo_ListByUser(t *testing.T) {
	db := newTestDB(t)
	users := NewUserRepo(db)
	sessions := NewSessionRepo(db)
	ctx := context.Background()

	_, err := users.GetOrCreate(ctx, "u1", "小桃")
	require.NoError(t, err)
	_, err = users.GetOrCreate(ctx, "u2", "阿明")
	require.NoError(t, err)

	_, err = sessions.Create(ctx, "u1", "a", "")
	require.NoError(t, err)
	_, err = sessions.Create(ctx, "u1", "b", "")
	require.NoError(t, err)
	_, err = sessions.Create(ctx, "u2", "c", "")
	require.NoError(t, err)

	list, err := sessions.ListByUser(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, list, 2)
}
