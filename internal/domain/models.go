package domain

import (
	"fmt"
	"time"
)

// Длины полей, которые проверяются при валидации.
const (
	UsernameMaxLen     = 150
	GroupTitleMaxLen   = 200
	GroupSlugMaxLen    = 50
	CommentTextMaxLen  = 300
	PostImageMaxLen    = 100
	displayTextPreview = 15
)

// User - автор постов и комментариев. Пользователями владеет слой авторизации,
// здесь хранится только то, на что ссылаются остальные модели.
type User struct {
	ID         string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Username   string    `json:"username" gorm:"type:varchar(150);uniqueIndex;not null" validate:"required,max=150"`
	DateJoined time.Time `json:"date_joined" gorm:"not null;<-:create"`
}

func (u *User) String() string { return u.Username }

// Post - статья. Автор обязателен, группа - нет.
type Post struct {
	ID       string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Text     string    `json:"text" gorm:"type:text;not null" validate:"required"`
	PubDate  time.Time `json:"pub_date" gorm:"not null;index;<-:create"` // ставится один раз при создании
	AuthorID string    `json:"author" gorm:"type:varchar(36);not null;index" validate:"required"`
	Author   *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"` // gorm only
	GroupID  *string   `json:"group" gorm:"type:varchar(36);index"`
	Group    *Group    `json:"-" gorm:"constraint:OnDelete:SET NULL"` // gorm only
	Image    *string   `json:"image,omitempty" gorm:"type:varchar(100)" validate:"omitempty,max=100,startswith=posts/"`
}

func (p *Post) String() string { return preview(p.Text) }

// Group - тематическая группа постов.
type Group struct {
	ID          string `json:"id" gorm:"type:varchar(36);primaryKey"`
	Title       string `json:"title" gorm:"type:varchar(200);not null" validate:"required,max=200"`
	Slug        string `json:"slug" gorm:"type:varchar(50);uniqueIndex;not null" validate:"required,max=50,slug"`
	Description string `json:"description" gorm:"type:text;not null" validate:"required"`
}

func (g *Group) String() string { return g.Title }

// Comment - комментарий к посту.
type Comment struct {
	ID       string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	PostID   string    `json:"post" gorm:"type:varchar(36);not null;index" validate:"required"`
	Post     *Post     `json:"-" gorm:"constraint:OnDelete:CASCADE"` // gorm only
	AuthorID string    `json:"author" gorm:"type:varchar(36);not null;index" validate:"required"`
	Author   *User     `json:"-" gorm:"constraint:OnDelete:CASCADE"` // gorm only
	Text     string    `json:"text" gorm:"type:text;not null" validate:"required,max=300"`
	Created  time.Time `json:"created" gorm:"not null;index;<-:create"`
}

func (c *Comment) String() string { return preview(c.Text) }

// Follow - подписка пользователя UserID на автора AuthorID.
// Пара (UserID, AuthorID) уникальна.
type Follow struct {
	ID       string `json:"id" gorm:"type:varchar(36);primaryKey"`
	UserID   string `json:"user" gorm:"type:varchar(36);not null;uniqueIndex:unique_follows,priority:1" validate:"required"`
	User     *User  `json:"-" gorm:"constraint:OnDelete:CASCADE"` // gorm only
	AuthorID string `json:"author" gorm:"type:varchar(36);not null;uniqueIndex:unique_follows,priority:2;index" validate:"required"`
	Author   *User  `json:"-" gorm:"constraint:OnDelete:CASCADE"` // gorm only
}

// String использует имена пользователей, если связи загружены, иначе их ID.
func (f *Follow) String() string {
	user, author := f.UserID, f.AuthorID
	if f.User != nil {
		user = f.User.Username
	}
	if f.Author != nil {
		author = f.Author.Username
	}
	return fmt.Sprintf("%s подписан на %s", user, author)
}

// preview обрезает текст до первых displayTextPreview символов.
func preview(text string) string {
	r := []rune(text)
	if len(r) <= displayTextPreview {
		return text
	}
	return string(r[:displayTextPreview])
}
