package gormdb

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/UkralStul/yatube-api/internal/domain"
	"github.com/UkralStul/yatube-api/internal/storage"
	"github.com/google/uuid"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store реализует интерфейс Storage поверх gorm. Каскадное удаление,
// SET NULL и уникальность пары подписки обеспечиваются схемой БД.
type Store struct {
	db      *gorm.DB
	now     func() time.Time
	closers []func() error
}

var _ storage.Storage = (*Store)(nil)

// New оборачивает готовое подключение и выполняет миграцию схемы.
func New(db *gorm.DB, opts Options) (*Store, error) {
	if err := Migrate(db); err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Store{db: db, now: now}, nil
}

// Migrate создает или обновляет таблицы, индексы и внешние ключи.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&domain.User{},
		&domain.Group{},
		&domain.Post{},
		&domain.Comment{},
		&domain.Follow{},
	); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}
	return nil
}

// Close закрывает соединения с БД.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	for _, c := range s.closers {
		if cerr := c(); cerr != nil && err == nil {
			err = cerr
		}
	}
	return err
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := domain.Validate(user); err != nil {
		return nil, err
	}
	u := &domain.User{ID: uuid.NewString(), Username: user.Username, DateJoined: s.now()}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &domain.User{}, "username = ?", u.Username); err == nil {
			return fmt.Errorf("username %q: %w", u.Username, storage.ErrAlreadyExists)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		return tx.Create(u).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return u, nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("user %s: %w", id, translate(err))
	}
	return &u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	var u domain.User
	if err := s.db.WithContext(ctx).First(&u, "username = ?", username).Error; err != nil {
		return nil, fmt.Errorf("user %q: %w", username, translate(err))
	}
	return &u, nil
}

// DeleteUser удаляет пользователя; посты, комментарии и подписки удаляет БД (ON DELETE CASCADE).
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	return deleteByID(s.db.WithContext(ctx), &domain.User{}, "user", id)
}

// === Group Methods ===

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	g := *group
	g.ID = uuid.NewString()
	if g.Slug == "" {
		g.Slug = domain.SlugFromTitle(g.Title)
	}
	if err := domain.Validate(&g); err != nil {
		return nil, err
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkSlug(tx, g.Slug, ""); err != nil {
			return err
		}
		return tx.Create(&g).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

func (s *Store) GetGroupByID(ctx context.Context, id string) (*domain.Group, error) {
	var g domain.Group
	if err := s.db.WithContext(ctx).First(&g, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("group %s: %w", id, translate(err))
	}
	return &g, nil
}

func (s *Store) GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	var g domain.Group
	if err := s.db.WithContext(ctx).First(&g, "slug = ?", slug).Error; err != nil {
		return nil, fmt.Errorf("group %q: %w", slug, translate(err))
	}
	return &g, nil
}

func (s *Store) GetGroups(ctx context.Context, filter storage.GroupFilter) ([]*domain.Group, error) {
	query := s.db.WithContext(ctx).Order("title DESC")
	if filter.Search != "" {
		query = query.Where("LOWER(title) LIKE ? ESCAPE '\\'", likePattern(filter.Search))
	}

	var groups []*domain.Group
	err := paginate(query, filter.Page).Find(&groups).Error
	return groups, translate(err)
}

func (s *Store) UpdateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	if err := domain.Validate(group); err != nil {
		return nil, err
	}

	var g domain.Group
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&g, "id = ?", group.ID).Error; err != nil {
			return fmt.Errorf("group %s: %w", group.ID, translate(err))
		}
		if err := checkSlug(tx, group.Slug, group.ID); err != nil {
			return err
		}
		g.Title, g.Slug, g.Description = group.Title, group.Slug, group.Description
		return tx.Model(&g).Select("title", "slug", "description").Updates(&g).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &g, nil
}

// DeleteGroup удаляет группу; у постов группы БД обнуляет group_id (ON DELETE SET NULL).
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	return deleteByID(s.db.WithContext(ctx), &domain.Group{}, "group", id)
}

func checkSlug(tx *gorm.DB, slug, selfID string) error {
	query := tx.Model(&domain.Group{}).Where("slug = ?", slug)
	if selfID != "" {
		query = query.Where("id <> ?", selfID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("group slug %q: %w", slug, storage.ErrAlreadyExists)
	}
	return nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := domain.Validate(post); err != nil {
		return nil, err
	}
	p := &domain.Post{
		ID:       uuid.NewString(),
		Text:     post.Text,
		PubDate:  s.now(),
		AuthorID: post.AuthorID,
		GroupID:  post.GroupID,
		Image:    post.Image,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkPostRefs(tx, p); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(p).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return p, nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	var p domain.Post
	if err := s.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("post %s: %w", id, translate(err))
	}
	return &p, nil
}

func (s *Store) GetPosts(ctx context.Context, filter storage.PostFilter) ([]*domain.Post, error) {
	query := s.db.WithContext(ctx).Order("pub_date DESC")
	if filter.AuthorID != "" {
		query = query.Where("author_id = ?", filter.AuthorID)
	}
	if filter.GroupID != "" {
		query = query.Where("group_id = ?", filter.GroupID)
	}
	if filter.WithoutGroup {
		query = query.Where("group_id IS NULL")
	}
	if !filter.Since.IsZero() {
		query = query.Where("pub_date >= ?", filter.Since)
	}
	if filter.Search != "" {
		query = query.Where("LOWER(text) LIKE ? ESCAPE '\\'", likePattern(filter.Search))
	}

	var posts []*domain.Post
	err := paginate(query, filter.Page).Find(&posts).Error
	return posts, translate(err)
}

// UpdatePost обновляет текст, автора, группу и картинку. pub_date не трогаем.
func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := domain.Validate(post); err != nil {
		return nil, err
	}

	var p domain.Post
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&p, "id = ?", post.ID).Error; err != nil {
			return fmt.Errorf("post %s: %w", post.ID, translate(err))
		}
		if err := checkPostRefs(tx, post); err != nil {
			return err
		}
		p.Text, p.AuthorID, p.GroupID, p.Image = post.Text, post.AuthorID, post.GroupID, post.Image
		return tx.Model(&p).Select("text", "author_id", "group_id", "image").Updates(&p).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// DeletePost удаляет пост вместе с комментариями (ON DELETE CASCADE).
func (s *Store) DeletePost(ctx context.Context, id string) error {
	return deleteByID(s.db.WithContext(ctx), &domain.Post{}, "post", id)
}

func checkPostRefs(tx *gorm.DB, p *domain.Post) error {
	if err := exists(tx, &domain.User{}, "id = ?", p.AuthorID); err != nil {
		return fmt.Errorf("author %s: %w", p.AuthorID, asReference(err))
	}
	if p.GroupID != nil {
		if err := exists(tx, &domain.Group{}, "id = ?", *p.GroupID); err != nil {
			return fmt.Errorf("group %s: %w", *p.GroupID, asReference(err))
		}
	}
	return nil
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := domain.Validate(comment); err != nil {
		return nil, err
	}
	c := &domain.Comment{
		ID:       uuid.NewString(),
		PostID:   comment.PostID,
		AuthorID: comment.AuthorID,
		Text:     comment.Text,
		Created:  s.now(),
	}

	// Проверяем существование поста и автора в одной транзакции с вставкой
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &domain.Post{}, "id = ?", c.PostID); err != nil {
			return fmt.Errorf("post %s: %w", c.PostID, asReference(err))
		}
		if err := exists(tx, &domain.User{}, "id = ?", c.AuthorID); err != nil {
			return fmt.Errorf("author %s: %w", c.AuthorID, asReference(err))
		}
		return tx.Omit(clause.Associations).Create(c).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return c, nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	var c domain.Comment
	if err := s.db.WithContext(ctx).First(&c, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("comment %s: %w", id, translate(err))
	}
	return &c, nil
}

func (s *Store) GetComments(ctx context.Context, filter storage.CommentFilter) ([]*domain.Comment, error) {
	query := s.db.WithContext(ctx).Order("created DESC")
	if filter.PostID != "" {
		query = query.Where("post_id = ?", filter.PostID)
	}
	if filter.AuthorID != "" {
		query = query.Where("author_id = ?", filter.AuthorID)
	}

	var comments []*domain.Comment
	err := paginate(query, filter.Page).Find(&comments).Error
	return comments, translate(err)
}

// UpdateComment меняет только текст комментария.
func (s *Store) UpdateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	var c domain.Comment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&c, "id = ?", comment.ID).Error; err != nil {
			return fmt.Errorf("comment %s: %w", comment.ID, translate(err))
		}
		c.Text = comment.Text
		if err := domain.Validate(&c); err != nil {
			return err
		}
		return tx.Model(&c).Select("text").Updates(&c).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	return deleteByID(s.db.WithContext(ctx), &domain.Comment{}, "comment", id)
}

// === Follow Methods ===

func (s *Store) CreateFollow(ctx context.Context, follow *domain.Follow) (*domain.Follow, error) {
	if err := domain.Validate(follow); err != nil {
		return nil, err
	}
	f := &domain.Follow{ID: uuid.NewString(), UserID: follow.UserID, AuthorID: follow.AuthorID}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := exists(tx, &domain.User{}, "id = ?", f.UserID); err != nil {
			return fmt.Errorf("user %s: %w", f.UserID, asReference(err))
		}
		if err := exists(tx, &domain.User{}, "id = ?", f.AuthorID); err != nil {
			return fmt.Errorf("author %s: %w", f.AuthorID, asReference(err))
		}
		// unique_follows отловит гонку, но понятную ошибку даем заранее
		if err := exists(tx, &domain.Follow{}, "user_id = ? AND author_id = ?", f.UserID, f.AuthorID); err == nil {
			return fmt.Errorf("follow %s -> %s: %w", f.UserID, f.AuthorID, storage.ErrAlreadyExists)
		} else if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(f).Error; err != nil {
			return err
		}
		return tx.Preload("User").Preload("Author").First(f, "id = ?", f.ID).Error
	})
	if err != nil {
		return nil, translate(err)
	}
	return f, nil
}

func (s *Store) GetFollows(ctx context.Context, filter storage.FollowFilter) ([]*domain.Follow, error) {
	query := s.db.WithContext(ctx).
		Preload("User").
		Preload("Author").
		Order("follows.user_id DESC")
	if filter.UserID != "" {
		query = query.Where("follows.user_id = ?", filter.UserID)
	}
	if filter.AuthorID != "" {
		query = query.Where("follows.author_id = ?", filter.AuthorID)
	}
	if filter.Search != "" {
		query = query.
			Joins("JOIN users AS followed ON followed.id = follows.author_id").
			Where("LOWER(followed.username) LIKE ? ESCAPE '\\'", likePattern(filter.Search))
	}

	var follows []*domain.Follow
	err := paginate(query.Select("follows.*"), filter.Page).Find(&follows).Error
	return follows, translate(err)
}

func (s *Store) DeleteFollow(ctx context.Context, id string) error {
	return deleteByID(s.db.WithContext(ctx), &domain.Follow{}, "follow", id)
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	var users []*domain.User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, translate(err)
	}
	result := make(map[string]*domain.User, len(users))
	for _, u := range users {
		result[u.ID] = u
	}
	return result, nil
}

func (s *Store) GetGroupsByIDs(ctx context.Context, ids []string) (map[string]*domain.Group, error) {
	var groups []*domain.Group
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&groups).Error; err != nil {
		return nil, translate(err)
	}
	result := make(map[string]*domain.Group, len(groups))
	for _, g := range groups {
		result[g.ID] = g
	}
	return result, nil
}

func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) (map[string]*domain.Post, error) {
	var posts []*domain.Post
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&posts).Error; err != nil {
		return nil, translate(err)
	}
	result := make(map[string]*domain.Post, len(posts))
	for _, p := range posts {
		result[p.ID] = p
	}
	return result, nil
}

// === helpers ===

// translate переводит ошибки gorm в ошибки пакета storage.
func translate(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, storage.ErrIntegrity):
		return err
	case errors.Is(err, gorm.ErrRecordNotFound):
		return storage.ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return fmt.Errorf("%w: %v", storage.ErrAlreadyExists, err)
	case errors.Is(err, gorm.ErrForeignKeyViolated):
		return fmt.Errorf("%w: %v", storage.ErrInvalidReference, err)
	}
	return err
}

// asReference превращает "не найдено" в нарушение внешнего ключа.
func asReference(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return storage.ErrInvalidReference
	}
	return err
}

// exists возвращает storage.ErrNotFound, если записи нет.
func exists(tx *gorm.DB, model any, query string, args ...any) error {
	var count int64
	if err := tx.Model(model).Where(query, args...).Count(&count).Error; err != nil {
		return err
	}
	if count == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func deleteByID(db *gorm.DB, model any, kind, id string) error {
	res := db.Delete(model, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete %s %s: %w", kind, id, translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, storage.ErrNotFound)
	}
	return nil
}

func paginate(query *gorm.DB, page storage.Page) *gorm.DB {
	if page.Offset > 0 {
		query = query.Offset(page.Offset)
	}
	if page.Limit > 0 {
		query = query.Limit(page.Limit)
	}
	return query
}

func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + strings.ToLower(r.Replace(s)) + "%"
}
