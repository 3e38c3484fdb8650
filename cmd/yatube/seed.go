package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/UkralStul/yatube-api/internal/domain"
	"github.com/UkralStul/yatube-api/internal/storage"
	"github.com/sirupsen/logrus"
)

// seedMarker - по этому пользователю видно, что демо-данные уже есть.
const seedMarker = "leo"

// seed заполняет хранилище демо-данными. Повторный запуск ничего не меняет.
func seed(ctx context.Context, s storage.Storage, log logrus.FieldLogger) error {
	_, err := s.GetUserByUsername(ctx, seedMarker)
	switch {
	case err == nil:
		log.Info("seed: demo data already present")
		return nil
	case !errors.Is(err, storage.ErrNotFound):
		return err
	}

	// 1. Авторы
	leo, err := s.CreateUser(ctx, &domain.User{Username: seedMarker})
	if err != nil {
		return fmt.Errorf("seed: create user: %w", err)
	}
	anna, err := s.CreateUser(ctx, &domain.User{Username: "anna"})
	if err != nil {
		return fmt.Errorf("seed: create user: %w", err)
	}

	// 2. Группа, slug получится из названия
	cats, err := s.CreateGroup(ctx, &domain.Group{
		Title:       "Котики",
		Description: "Всё о котиках и их повадках.",
	})
	if err != nil {
		return fmt.Errorf("seed: create group: %w", err)
	}

	// 3. Пост в группе и пост без группы
	inGroup, err := s.CreatePost(ctx, &domain.Post{
		Text:     "Кот снова уснул на клавиатуре. Это уже традиция.",
		AuthorID: leo.ID,
		GroupID:  &cats.ID,
	})
	if err != nil {
		return fmt.Errorf("seed: create post: %w", err)
	}
	_, err = s.CreatePost(ctx, &domain.Post{
		Text:     "Первый пост без группы.",
		AuthorID: anna.ID,
	})
	if err != nil {
		return fmt.Errorf("seed: create post: %w", err)
	}

	// 4. Комментарий и подписка
	if _, err := s.CreateComment(ctx, &domain.Comment{
		PostID:   inGroup.ID,
		AuthorID: anna.ID,
		Text:     "Узнаю своего кота!",
	}); err != nil {
		return fmt.Errorf("seed: create comment: %w", err)
	}
	if _, err := s.CreateFollow(ctx, &domain.Follow{UserID: anna.ID, AuthorID: leo.ID}); err != nil {
		return fmt.Errorf("seed: create follow: %w", err)
	}

	log.WithFields(logrus.Fields{"group": cats.Slug, "post": inGroup.ID}).Info("seed: demo data created")
	return nil
}
