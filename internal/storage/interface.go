package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/UkralStul/yatube-api/internal/domain"
)

var (
	// ErrNotFound - запись не найдена.
	ErrNotFound = errors.New("record not found")
	// ErrIntegrity - нарушено ограничение целостности хранилища.
	ErrIntegrity = errors.New("integrity error")
	// ErrAlreadyExists - нарушено ограничение уникальности.
	ErrAlreadyExists = fmt.Errorf("%w: record already exists", ErrIntegrity)
	// ErrInvalidReference - внешний ключ ссылается на несуществующую запись.
	ErrInvalidReference = fmt.Errorf("%w: referenced record does not exist", ErrIntegrity)
)

// Page - аргументы для пагинации. Нулевой Limit означает "без ограничения".
type Page struct {
	Limit  int
	Offset int
}

// PostFilter - фильтры для списка постов.
type PostFilter struct {
	Page
	AuthorID     string
	GroupID      string
	WithoutGroup bool
	Since        time.Time // pub_date >= Since
	Search       string    // подстрока текста без учета регистра
}

// GroupFilter - фильтры для списка групп.
type GroupFilter struct {
	Page
	Search string // подстрока названия без учета регистра
}

// CommentFilter - фильтры для списка комментариев.
type CommentFilter struct {
	Page
	PostID   string
	AuthorID string
}

// FollowFilter - фильтры для списка подписок.
type FollowFilter struct {
	Page
	UserID   string
	AuthorID string
	Search   string // подстрока имени автора без учета регистра
}

// Storage определяет контракт для хранилищ.
// Списки всегда возвращаются в порядке модели по умолчанию:
// посты и комментарии - новые сверху, группы - по названию в обратном порядке,
// подписки - по убыванию ID подписчика.
type Storage interface {
	CreateUser(ctx context.Context, user *domain.User) (*domain.User, error)
	GetUserByID(ctx context.Context, id string) (*domain.User, error)
	GetUserByUsername(ctx context.Context, username string) (*domain.User, error)
	DeleteUser(ctx context.Context, id string) error

	CreateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error)
	GetGroupByID(ctx context.Context, id string) (*domain.Group, error)
	GetGroupBySlug(ctx context.Context, slug string) (*domain.Group, error)
	GetGroups(ctx context.Context, filter GroupFilter) ([]*domain.Group, error)
	UpdateGroup(ctx context.Context, group *domain.Group) (*domain.Group, error)
	DeleteGroup(ctx context.Context, id string) error

	CreatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	GetPostByID(ctx context.Context, id string) (*domain.Post, error)
	GetPosts(ctx context.Context, filter PostFilter) ([]*domain.Post, error)
	UpdatePost(ctx context.Context, post *domain.Post) (*domain.Post, error)
	DeletePost(ctx context.Context, id string) error

	CreateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	GetCommentByID(ctx context.Context, id string) (*domain.Comment, error)
	GetComments(ctx context.Context, filter CommentFilter) ([]*domain.Comment, error)
	UpdateComment(ctx context.Context, comment *domain.Comment) (*domain.Comment, error)
	DeleteComment(ctx context.Context, id string) error

	CreateFollow(ctx context.Context, follow *domain.Follow) (*domain.Follow, error)
	GetFollows(ctx context.Context, filter FollowFilter) ([]*domain.Follow, error)
	DeleteFollow(ctx context.Context, id string) error

	// Методы для Dataloader'ов
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*domain.User, error)
	GetGroupsByIDs(ctx context.Context, ids []string) (map[string]*domain.Group, error)
	GetPostsByIDs(ctx context.Context, ids []string) (map[string]*domain.Post, error)
}

// Window возвращает границы среза [start:end) длины n для страницы p.
func (p Page) Window(n int) (start, end int) {
	start = p.Offset
	if start < 0 {
		start = 0
	}
	if start > n {
		start = n
	}
	end = n
	if p.Limit > 0 && start+p.Limit < n {
		end = start + p.Limit
	}
	return start, end
}
