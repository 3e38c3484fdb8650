package dataloader

import (
	"context"
	"sync"
	"testing"

	"github.com/UkralStul/yatube-api/internal/domain"
	"github.com/UkralStul/yatube-api/internal/storage"
	"github.com/UkralStul/yatube-api/internal/storage/inmemory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore считает батч-запросы пользователей.
type countingStore struct {
	storage.Storage
	mu      sync.Mutex
	batches [][]string
}

func (s *countingStore) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	s.mu.Lock()
	s.batches = append(s.batches, ids)
	s.mu.Unlock()
	return s.Storage.GetUsersByIDs(ctx, ids)
}

func TestLoaders_BatchUsers(t *testing.T) {
	ctx := context.Background()
	mem := inmemory.New()
	names := []string{"leo", "anna", "ivan"}
	ids := make([]string, len(names))
	for i, name := range names {
		u, err := mem.CreateUser(ctx, &domain.User{Username: name})
		require.NoError(t, err)
		ids[i] = u.ID
	}
	store := &countingStore{Storage: mem}

	ctx = Attach(ctx, store)
	loaders := For(ctx)
	require.NotNil(t, loaders)

	thunks := make([]func() (*domain.User, error), 0, len(ids)+1)
	for _, id := range ids {
		thunks = append(thunks, loaders.LoadUser(ctx, id))
	}
	thunks = append(thunks, loaders.LoadUser(ctx, ids[0])) // повтор берется из кэша

	for i, th := range thunks {
		u, err := th()
		require.NoError(t, err)
		assert.Equal(t, names[i%len(names)], u.Username)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.Len(t, store.batches, 1)
	assert.ElementsMatch(t, ids, store.batches[0])
}

func TestLoaders_MissingKey(t *testing.T) {
	ctx := Attach(context.Background(), inmemory.New())

	_, err := For(ctx).LoadGroup(ctx, "missing")()
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestLoaders_Post(t *testing.T) {
	ctx := context.Background()
	mem := inmemory.New()
	u, err := mem.CreateUser(ctx, &domain.User{Username: "leo"})
	require.NoError(t, err)
	p, err := mem.CreatePost(ctx, &domain.Post{Text: "пост", AuthorID: u.ID})
	require.NoError(t, err)

	ctx = Attach(ctx, mem)
	got, err := For(ctx).LoadPost(ctx, p.ID)()
	require.NoError(t, err)
	assert.Equal(t, "пост", got.Text)
}

func TestFor_WithoutAttach(t *testing.T) {
	assert.Nil(t, For(context.Background()))
}
