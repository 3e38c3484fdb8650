package inmemory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/UkralStul/yatube-api/internal/domain"
	"github.com/UkralStul/yatube-api/internal/storage"
	"github.com/google/uuid"
)

// Store реализует интерфейс Storage в памяти. Ограничения целостности
// (каскадное удаление, обнуление группы, уникальность) проверяются здесь же.
type Store struct {
	mu       sync.RWMutex
	now      func() time.Time
	seq      uint64
	order    map[string]uint64 // map[ID]порядковый номер вставки
	users    map[string]*domain.User
	groups   map[string]*domain.Group
	posts    map[string]*domain.Post
	comments map[string]*domain.Comment
	follows  map[string]*domain.Follow
}

// Option настраивает Store.
type Option func(*Store)

// WithClock подменяет источник времени для pub_date и created.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New создает новый экземпляр in-memory хранилища.
func New(opts ...Option) *Store {
	s := &Store{
		now:      func() time.Time { return time.Now().UTC() },
		order:    make(map[string]uint64),
		users:    make(map[string]*domain.User),
		groups:   make(map[string]*domain.Group),
		posts:    make(map[string]*domain.Post),
		comments: make(map[string]*domain.Comment),
		follows:  make(map[string]*domain.Follow),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ storage.Storage = (*Store)(nil)

// newID выдает ID и запоминает порядок вставки. Вызывается под s.mu.
func (s *Store) newID() string {
	id := uuid.NewString()
	s.seq++
	s.order[id] = s.seq
	return id
}

// === User Methods ===

func (s *Store) CreateUser(ctx context.Context, user *domain.User) (*domain.User, error) {
	if err := domain.Validate(user); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return nil, fmt.Errorf("username %q: %w", user.Username, storage.ErrAlreadyExists)
		}
	}

	stored := &domain.User{ID: s.newID(), Username: user.Username, DateJoined: s.now()}
	s.users[stored.ID] = stored
	return cloneUser(stored), nil
}

func (s *Store) GetUserByID(ctx context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}
	return cloneUser(u), nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Username == username {
			return cloneUser(u), nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, storage.ErrNotFound)
}

// DeleteUser удаляет пользователя вместе с его постами (и комментариями к ним),
// комментариями и подписками в обе стороны.
func (s *Store) DeleteUser(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return fmt.Errorf("user %s: %w", id, storage.ErrNotFound)
	}

	for pID, p := range s.posts {
		if p.AuthorID == id {
			s.deletePostLocked(pID)
		}
	}
	for cID, c := range s.comments {
		if c.AuthorID == id {
			s.forget(cID)
			delete(s.comments, cID)
		}
	}
	for fID, f := range s.follows {
		if f.UserID == id || f.AuthorID == id {
			s.forget(fID)
			delete(s.follows, fID)
		}
	}
	s.forget(id)
	delete(s.users, id)
	return nil
}

// === Group Methods ===

func (s *Store) CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	stored := *group
	if stored.Slug == "" {
		stored.Slug = domain.SlugFromTitle(stored.Title)
	}
	if err := domain.Validate(&stored); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkSlugLocked(stored.Slug, ""); err != nil {
		return nil, err
	}
	stored.ID = s.newID()
	s.groups[stored.ID] = &stored
	return cloneGroup(&stored), nil
}

func (s *Store) GetGroupByID(ctx context.Context, id string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[id]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", id, storage.ErrNotFound)
	}
	return cloneGroup(g), nil
}

func (s *Store) GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, g := range s.groups {
		if g.Slug == slug {
			return cloneGroup(g), nil
		}
	}
	return nil, fmt.Errorf("group %q: %w", slug, storage.ErrNotFound)
}

func (s *Store) GetGroups(ctx context.Context, filter storage.GroupFilter) ([]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]*domain.Group, 0, len(s.groups))
	for _, g := range s.groups {
		if filter.Search != "" && !containsFold(g.Title, filter.Search) {
			continue
		}
		groups = append(groups, cloneGroup(g))
	}
	sort.Slice(groups, func(i, j int) bool {
		if groups[i].Title != groups[j].Title {
			return groups[i].Title > groups[j].Title
		}
		return s.order[groups[i].ID] < s.order[groups[j].ID]
	})

	start, end := filter.Window(len(groups))
	return groups[start:end], nil
}

func (s *Store) UpdateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error) {
	if err := domain.Validate(group); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.groups[group.ID]
	if !ok {
		return nil, fmt.Errorf("group %s: %w", group.ID, storage.ErrNotFound)
	}
	if err := s.checkSlugLocked(group.Slug, group.ID); err != nil {
		return nil, err
	}
	stored.Title = group.Title
	stored.Slug = group.Slug
	stored.Description = group.Description
	return cloneGroup(stored), nil
}

// DeleteGroup удаляет группу; посты группы остаются, но без группы.
func (s *Store) DeleteGroup(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.groups[id]; !ok {
		return fmt.Errorf("group %s: %w", id, storage.ErrNotFound)
	}
	for _, p := range s.posts {
		if p.GroupID != nil && *p.GroupID == id {
			p.GroupID = nil
		}
	}
	s.forget(id)
	delete(s.groups, id)
	return nil
}

func (s *Store) checkSlugLocked(slug, selfID string) error {
	for _, g := range s.groups {
		if g.Slug == slug && g.ID != selfID {
			return fmt.Errorf("group slug %q: %w", slug, storage.ErrAlreadyExists)
		}
	}
	return nil
}

// === Post Methods ===

func (s *Store) CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := domain.Validate(post); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.checkPostRefsLocked(post); err != nil {
		return nil, err
	}
	stored := clonePost(post)
	stored.ID = s.newID()
	stored.PubDate = s.now()
	s.posts[stored.ID] = stored
	return clonePost(stored), nil
}

func (s *Store) GetPostByID(ctx context.Context, id string) (*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.posts[id]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	return clonePost(p), nil
}

func (s *Store) GetPosts(ctx context.Context, filter storage.PostFilter) ([]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]*domain.Post, 0, len(s.posts))
	for _, p := range s.posts {
		if !matchPost(p, filter) {
			continue
		}
		posts = append(posts, clonePost(p))
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].PubDate.Equal(posts[j].PubDate) {
			return posts[i].PubDate.After(posts[j].PubDate)
		}
		return s.order[posts[i].ID] > s.order[posts[j].ID]
	})

	start, end := filter.Window(len(posts))
	return posts[start:end], nil
}

// UpdatePost обновляет текст, автора, группу и картинку. Дата публикации не меняется.
func (s *Store) UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error) {
	if err := domain.Validate(post); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.posts[post.ID]
	if !ok {
		return nil, fmt.Errorf("post %s: %w", post.ID, storage.ErrNotFound)
	}
	if err := s.checkPostRefsLocked(post); err != nil {
		return nil, err
	}
	updated := clonePost(post)
	updated.PubDate = stored.PubDate
	s.posts[post.ID] = updated
	return clonePost(updated), nil
}

func (s *Store) DeletePost(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return fmt.Errorf("post %s: %w", id, storage.ErrNotFound)
	}
	s.deletePostLocked(id)
	return nil
}

func (s *Store) deletePostLocked(id string) {
	for cID, c := range s.comments {
		if c.PostID == id {
			s.forget(cID)
			delete(s.comments, cID)
		}
	}
	s.forget(id)
	delete(s.posts, id)
}

func (s *Store) checkPostRefsLocked(post *domain.Post) error {
	if _, ok := s.users[post.AuthorID]; !ok {
		return fmt.Errorf("author %s: %w", post.AuthorID, storage.ErrInvalidReference)
	}
	if post.GroupID != nil {
		if _, ok := s.groups[*post.GroupID]; !ok {
			return fmt.Errorf("group %s: %w", *post.GroupID, storage.ErrInvalidReference)
		}
	}
	return nil
}

func matchPost(p *domain.Post, f storage.PostFilter) bool {
	switch {
	case f.AuthorID != "" && p.AuthorID != f.AuthorID:
		return false
	case f.GroupID != "" && (p.GroupID == nil || *p.GroupID != f.GroupID):
		return false
	case f.WithoutGroup && p.GroupID != nil:
		return false
	case !f.Since.IsZero() && p.PubDate.Before(f.Since):
		return false
	case f.Search != "" && !containsFold(p.Text, f.Search):
		return false
	}
	return true
}

// === Comment Methods ===

func (s *Store) CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	if err := domain.Validate(comment); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Проверка поста и автора
	if _, ok := s.posts[comment.PostID]; !ok {
		return nil, fmt.Errorf("post %s: %w", comment.PostID, storage.ErrInvalidReference)
	}
	if _, ok := s.users[comment.AuthorID]; !ok {
		return nil, fmt.Errorf("author %s: %w", comment.AuthorID, storage.ErrInvalidReference)
	}

	stored := &domain.Comment{
		ID:       s.newID(),
		PostID:   comment.PostID,
		AuthorID: comment.AuthorID,
		Text:     comment.Text,
		Created:  s.now(),
	}
	s.comments[stored.ID] = stored
	return cloneComment(stored), nil
}

func (s *Store) GetCommentByID(ctx context.Context, id string) (*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.comments[id]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", id, storage.ErrNotFound)
	}
	return cloneComment(c), nil
}

func (s *Store) GetComments(ctx context.Context, filter storage.CommentFilter) ([]*domain.Comment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	comments := make([]*domain.Comment, 0)
	for _, c := range s.comments {
		if filter.PostID != "" && c.PostID != filter.PostID {
			continue
		}
		if filter.AuthorID != "" && c.AuthorID != filter.AuthorID {
			continue
		}
		comments = append(comments, cloneComment(c))
	}
	sort.Slice(comments, func(i, j int) bool {
		if !comments[i].Created.Equal(comments[j].Created) {
			return comments[i].Created.After(comments[j].Created)
		}
		return s.order[comments[i].ID] > s.order[comments[j].ID]
	})

	start, end := filter.Window(len(comments))
	return comments[start:end], nil
}

// UpdateComment меняет только текст комментария.
func (s *Store) UpdateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.comments[comment.ID]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", comment.ID, storage.ErrNotFound)
	}
	updated := cloneComment(stored)
	updated.Text = comment.Text
	if err := domain.Validate(updated); err != nil {
		return nil, err
	}
	s.comments[comment.ID] = updated
	return cloneComment(updated), nil
}

func (s *Store) DeleteComment(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.comments[id]; !ok {
		return fmt.Errorf("comment %s: %w", id, storage.ErrNotFound)
	}
	s.forget(id)
	delete(s.comments, id)
	return nil
}

// === Follow Methods ===

func (s *Store) CreateFollow(ctx context.Context, follow *domain.Follow) (*domain.Follow, error) {
	if err := domain.Validate(follow); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[follow.UserID]; !ok {
		return nil, fmt.Errorf("user %s: %w", follow.UserID, storage.ErrInvalidReference)
	}
	if _, ok := s.users[follow.AuthorID]; !ok {
		return nil, fmt.Errorf("author %s: %w", follow.AuthorID, storage.ErrInvalidReference)
	}
	for _, f := range s.follows {
		if f.UserID == follow.UserID && f.AuthorID == follow.AuthorID {
			return nil, fmt.Errorf("follow %s -> %s: %w", follow.UserID, follow.AuthorID, storage.ErrAlreadyExists)
		}
	}

	stored := &domain.Follow{ID: s.newID(), UserID: follow.UserID, AuthorID: follow.AuthorID}
	s.follows[stored.ID] = stored
	return s.withUsersLocked(stored), nil
}

func (s *Store) GetFollows(ctx context.Context, filter storage.FollowFilter) ([]*domain.Follow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	follows := make([]*domain.Follow, 0)
	for _, f := range s.follows {
		if filter.UserID != "" && f.UserID != filter.UserID {
			continue
		}
		if filter.AuthorID != "" && f.AuthorID != filter.AuthorID {
			continue
		}
		if filter.Search != "" && !containsFold(s.users[f.AuthorID].Username, filter.Search) {
			continue
		}
		follows = append(follows, s.withUsersLocked(f))
	}
	sort.Slice(follows, func(i, j int) bool {
		if follows[i].UserID != follows[j].UserID {
			return follows[i].UserID > follows[j].UserID
		}
		return s.order[follows[i].ID] < s.order[follows[j].ID]
	})

	start, end := filter.Window(len(follows))
	return follows[start:end], nil
}

func (s *Store) DeleteFollow(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.follows[id]; !ok {
		return fmt.Errorf("follow %s: %w", id, storage.ErrNotFound)
	}
	s.forget(id)
	delete(s.follows, id)
	return nil
}

// withUsersLocked возвращает копию подписки с загруженными пользователями.
func (s *Store) withUsersLocked(f *domain.Follow) *domain.Follow {
	c := *f
	c.User = cloneUser(s.users[f.UserID])
	c.Author = cloneUser(s.users[f.AuthorID])
	return &c
}

// === Dataloader Methods ===

func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.User, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			result[id] = cloneUser(u)
		}
	}
	return result, nil
}

func (s *Store) GetGroupsByIDs(ctx context.Context, ids []string) (map[string]*domain.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.Group, len(ids))
	for _, id := range ids {
		if g, ok := s.groups[id]; ok {
			result[id] = cloneGroup(g)
		}
	}
	return result, nil
}

func (s *Store) GetPostsByIDs(ctx context.Context, ids []string) (map[string]*domain.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]*domain.Post, len(ids))
	for _, id := range ids {
		if p, ok := s.posts[id]; ok {
			result[id] = clonePost(p)
		}
	}
	return result, nil
}

// === helpers ===

func (s *Store) forget(id string) { delete(s.order, id) }

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func cloneUser(u *domain.User) *domain.User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

func cloneGroup(g *domain.Group) *domain.Group {
	c := *g
	return &c
}

func clonePost(p *domain.Post) *domain.Post {
	c := *p
	c.Author, c.Group = nil, nil
	if p.GroupID != nil {
		id := *p.GroupID
		c.GroupID = &id
	}
	if p.Image != nil {
		img := *p.Image
		c.Image = &img
	}
	return &c
}

func cloneComment(c *domain.Comment) *domain.Comment {
	cc := *c
	cc.Post, cc.Author = nil, nil
	return &cc
}
