package gormdb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/UkralStul/yatube-api/internal/domain"
	"github.com/UkralStul/yatube-api/internal/storage"
	"github.com/UkralStul/yatube-api/internal/storage/storagetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, now func() time.Time) *Store {
	t.Helper()
	store, err := OpenSQLite(filepath.Join(t.TempDir(), "yatube.db"), Options{Now: now})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStore_Conformance(t *testing.T) {
	storagetest.Run(t, func(t *testing.T, now func() time.Time) storage.Storage {
		return newTestStore(t, now)
	})
}

func TestStore_MigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t, nil)
	require.NoError(t, Migrate(store.db))
	assert.True(t, store.db.Migrator().HasIndex(&domain.Follow{}, "unique_follows"))
}

// Уникальность пары подписки держит сама БД, даже если обойти проверку в CreateFollow.
func TestStore_UniqueFollowsIndex(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()

	leo, err := store.CreateUser(ctx, &domain.User{Username: "leo"})
	require.NoError(t, err)
	anna, err := store.CreateUser(ctx, &domain.User{Username: "anna"})
	require.NoError(t, err)

	require.NoError(t, store.db.Create(&domain.Follow{ID: "f1", UserID: leo.ID, AuthorID: anna.ID}).Error)
	err = store.db.Create(&domain.Follow{ID: "f2", UserID: leo.ID, AuthorID: anna.ID}).Error
	assert.Error(t, err)
}

// ON DELETE CASCADE срабатывает и при удалении в обход Store.
func TestStore_CascadeIsEnforcedBySchema(t *testing.T) {
	store := newTestStore(t, nil)
	ctx := context.Background()

	leo, err := store.CreateUser(ctx, &domain.User{Username: "leo"})
	require.NoError(t, err)
	post, err := store.CreatePost(ctx, &domain.Post{Text: "пост", AuthorID: leo.ID})
	require.NoError(t, err)
	_, err = store.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: leo.ID, Text: "комментарий"})
	require.NoError(t, err)

	require.NoError(t, store.db.Exec("DELETE FROM users WHERE id = ?", leo.ID).Error)

	var posts, comments int64
	require.NoError(t, store.db.Model(&domain.Post{}).Count(&posts).Error)
	require.NoError(t, store.db.Model(&domain.Comment{}).Count(&comments).Error)
	assert.Zero(t, posts)
	assert.Zero(t, comments)
}

func TestLikePattern(t *testing.T) {
	assert.Equal(t, `%cat%`, likePattern("CAT"))
	assert.Equal(t, `%100\%\_off%`, likePattern("100%_off"))
}
