package dataloader

import (
	"context"
	"fmt"
	"time"

	"github.com/UkralStul/yatube-api/internal/domain"
	"github.com/UkralStul/yatube-api/internal/storage"
	"github.com/graph-gophers/dataloader"
)

type contextKey string

const key = contextKey("dataloaders")

// Loaders содержит все дата-лоадеры приложения.
type Loaders struct {
	UserByID  *dataloader.Loader
	GroupByID *dataloader.Loader
	PostByID  *dataloader.Loader
}

// Attach кладет в контекст свежий набор лоадеров. Лоадеры кэшируют результаты,
// поэтому набор создается на одну операцию (например, на один список в админке).
func Attach(ctx context.Context, store storage.Storage) context.Context {
	loaders := Loaders{
		UserByID:  newLoader(store.GetUsersByIDs),
		GroupByID: newLoader(store.GetGroupsByIDs),
		PostByID:  newLoader(store.GetPostsByIDs),
	}
	return context.WithValue(ctx, key, &loaders)
}

// For извлекает лоадеры из контекста. Возвращает nil, если Attach не вызывался.
func For(ctx context.Context) *Loaders {
	loaders, _ := ctx.Value(key).(*Loaders)
	return loaders
}

// LoadUser возвращает функцию-результат: запрос уходит пачкой вместе с соседними.
func (l *Loaders) LoadUser(ctx context.Context, id string) func() (*domain.User, error) {
	return thunk[*domain.User](l.UserByID.Load(ctx, dataloader.StringKey(id)))
}

func (l *Loaders) LoadGroup(ctx context.Context, id string) func() (*domain.Group, error) {
	return thunk[*domain.Group](l.GroupByID.Load(ctx, dataloader.StringKey(id)))
}

func (l *Loaders) LoadPost(ctx context.Context, id string) func() (*domain.Post, error) {
	return thunk[*domain.Post](l.PostByID.Load(ctx, dataloader.StringKey(id)))
}

func thunk[T any](th dataloader.Thunk) func() (T, error) {
	return func() (T, error) {
		var zero T
		v, err := th()
		if err != nil {
			return zero, err
		}
		return v.(T), nil
	}
}

// newLoader строит батч-лоадер поверх метода хранилища, который делает ОДИН запрос.
func newLoader[T any](fetch func(ctx context.Context, ids []string) (map[string]T, error)) *dataloader.Loader {
	batchFn := func(ctx context.Context, keys dataloader.Keys) []*dataloader.Result {
		ids := keys.Keys()

		byID, err := fetch(ctx, ids)
		results := make([]*dataloader.Result, len(keys))
		if err != nil {
			// В случае ошибки, возвращаем ее для всех ключей
			for i := range results {
				results[i] = &dataloader.Result{Error: err}
			}
			return results
		}

		// Формируем результат в том же порядке, что и ключи
		for i, id := range ids {
			v, ok := byID[id]
			if !ok {
				results[i] = &dataloader.Result{Error: fmt.Errorf("%s: %w", id, storage.ErrNotFound)}
				continue
			}
			results[i] = &dataloader.Result{Data: v}
		}
		return results
	}
	return dataloader.NewBatchedLoader(batchFn, dataloader.WithWait(time.Millisecond))
}
