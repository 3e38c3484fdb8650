package admin

import (
	"context"
	"fmt"
	"slices"

	"github.com/sirupsen/logrus"
)

// Edit меняет одно поле из list_editable у записи pk.
// Для поля group пустое значение убирает пост из группы.
func (s *Site) Edit(ctx context.Context, model Model, pk, field, value string) error {
	ma, err := s.lookup(model)
	if err != nil {
		return err
	}
	if !slices.Contains(ma.ListEditable, field) {
		return fmt.Errorf("%s.%s: %w", model, field, ErrNotEditable)
	}

	switch model {
	case ModelPost:
		err = s.editPost(ctx, pk, field, value)
	case ModelGroup:
		err = s.editGroup(ctx, pk, field, value)
	case ModelComment:
		err = s.editComment(ctx, pk, value)
	default:
		err = fmt.Errorf("%s.%s: %w", model, field, ErrNotEditable)
	}
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"model": model,
		"pk":    pk,
		"field": field,
	}).Info("admin: changed")
	return nil
}

func (s *Site) editPost(ctx context.Context, pk, field, value string) error {
	post, err := s.store.GetPostByID(ctx, pk)
	if err != nil {
		return err
	}
	switch field {
	case "text":
		post.Text = value
	case "group":
		post.GroupID = optional(value)
	case "image":
		post.Image = optional(value)
	}
	_, err = s.store.UpdatePost(ctx, post)
	return err
}

func (s *Site) editGroup(ctx context.Context, pk, field, value string) error {
	group, err := s.store.GetGroupByID(ctx, pk)
	if err != nil {
		return err
	}
	switch field {
	case "title":
		group.Title = value
	case "slug":
		group.Slug = value
	case "description":
		group.Description = value
	}
	_, err = s.store.UpdateGroup(ctx, group)
	return err
}

func (s *Site) editComment(ctx context.Context, pk, value string) error {
	comment, err := s.store.GetCommentByID(ctx, pk)
	if err != nil {
		return err
	}
	comment.Text = value
	_, err = s.store.UpdateComment(ctx, comment)
	return err
}

// Delete удаляет запись. Связанные записи удаляются или отвязываются по правилам хранилища.
func (s *Site) Delete(ctx context.Context, model Model, pk string) error {
	if _, err := s.lookup(model); err != nil {
		return err
	}

	var err error
	switch model {
	case ModelPost:
		err = s.store.DeletePost(ctx, pk)
	case ModelGroup:
		err = s.store.DeleteGroup(ctx, pk)
	case ModelComment:
		err = s.store.DeleteComment(ctx, pk)
	case ModelFollow:
		err = s.store.DeleteFollow(ctx, pk)
	}
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{"model": model, "pk": pk}).Info("admin: deleted")
	return nil
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
