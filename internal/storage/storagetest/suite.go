// Package storagetest содержит общий набор тестов для реализаций storage.Storage.
package storagetest

import (
	"context"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/UkralStul/yatube-api/internal/domain"
	"github.com/UkralStul/yatube-api/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory создает пустое хранилище, которое берет время из now.
type Factory func(t *testing.T, now func() time.Time) storage.Storage

// Clock - часы, которые сдвигаются на минуту при каждом вызове.
type Clock struct {
	mu  sync.Mutex
	cur time.Time
}

// NewClock запускает часы с фиксированного момента.
func NewClock() *Clock {
	return &Clock{cur: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Minute)
	return c.cur
}

// Run запускает все тесты набора для хранилища из factory.
func Run(t *testing.T, factory Factory) {
	tests := map[string]func(t *testing.T, s storage.Storage){
		"FollowPairIsUnique":           testFollowPairIsUnique,
		"FollowReferencesMustExist":    testFollowReferencesMustExist,
		"DeleteGroupNullifiesPosts":    testDeleteGroupNullifiesPosts,
		"DeleteUserCascades":           testDeleteUserCascades,
		"DeletePostCascadesComments":   testDeletePostCascadesComments,
		"CommentTextMaxLength":         testCommentTextMaxLength,
		"GroupTitleMaxLength":          testGroupTitleMaxLength,
		"GroupSlugIsUnique":            testGroupSlugIsUnique,
		"GroupSlugFromTitle":           testGroupSlugFromTitle,
		"UsernameIsUnique":             testUsernameIsUnique,
		"PostsNewestFirst":             testPostsNewestFirst,
		"PostFilters":                  testPostFilters,
		"PostPubDateImmutable":         testPostPubDateImmutable,
		"PostReferencesMustExist":      testPostReferencesMustExist,
		"CommentsNewestFirst":          testCommentsNewestFirst,
		"UpdateCommentKeepsCreated":    testUpdateCommentKeepsCreated,
		"GroupsReverseAlphabetical":    testGroupsReverseAlphabetical,
		"FollowsByFollowerDescending":  testFollowsByFollowerDescending,
		"FollowSearchByAuthorUsername": testFollowSearchByAuthorUsername,
		"BatchLookups":                 testBatchLookups,
		"NotFound":                     testNotFound,
	}

	names := make([]string, 0, len(tests))
	for name := range tests {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		test := tests[name]
		t.Run(name, func(t *testing.T) {
			clock := NewClock()
			test(t, factory(t, clock.Now))
		})
	}
}

func mustUser(t *testing.T, s storage.Storage, username string) *domain.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), &domain.User{Username: username})
	require.NoError(t, err)
	return u
}

func mustGroup(t *testing.T, s storage.Storage, title, slug string) *domain.Group {
	t.Helper()
	g, err := s.CreateGroup(context.Background(), &domain.Group{Title: title, Slug: slug, Description: "описание"})
	require.NoError(t, err)
	return g
}

func mustPost(t *testing.T, s storage.Storage, author *domain.User, group *domain.Group, text string) *domain.Post {
	t.Helper()
	p := &domain.Post{Text: text, AuthorID: author.ID}
	if group != nil {
		p.GroupID = &group.ID
	}
	created, err := s.CreatePost(context.Background(), p)
	require.NoError(t, err)
	return created
}

func mustComment(t *testing.T, s storage.Storage, author *domain.User, post *domain.Post, text string) *domain.Comment {
	t.Helper()
	c, err := s.CreateComment(context.Background(), &domain.Comment{PostID: post.ID, AuthorID: author.ID, Text: text})
	require.NoError(t, err)
	return c
}

func mustFollow(t *testing.T, s storage.Storage, user, author *domain.User) *domain.Follow {
	t.Helper()
	f, err := s.CreateFollow(context.Background(), &domain.Follow{UserID: user.ID, AuthorID: author.ID})
	require.NoError(t, err)
	return f
}

func testFollowPairIsUnique(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo, anna := mustUser(t, s, "leo"), mustUser(t, s, "anna")

	f := mustFollow(t, s, leo, anna)
	assert.Equal(t, "leo подписан на anna", f.String())

	_, err := s.CreateFollow(ctx, &domain.Follow{UserID: leo.ID, AuthorID: anna.ID})
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)
	assert.ErrorIs(t, err, storage.ErrIntegrity)

	// Обратное направление - это другая подписка
	mustFollow(t, s, anna, leo)

	follows, err := s.GetFollows(ctx, storage.FollowFilter{UserID: leo.ID})
	require.NoError(t, err)
	assert.Len(t, follows, 1)
}

func testFollowReferencesMustExist(t *testing.T, s storage.Storage) {
	leo := mustUser(t, s, "leo")

	_, err := s.CreateFollow(context.Background(), &domain.Follow{UserID: leo.ID, AuthorID: "missing"})
	assert.ErrorIs(t, err, storage.ErrInvalidReference)

	var ve *domain.ValidationError
	_, err = s.CreateFollow(context.Background(), &domain.Follow{UserID: leo.ID})
	assert.ErrorAs(t, err, &ve)
}

func testDeleteGroupNullifiesPosts(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo := mustUser(t, s, "leo")
	cats := mustGroup(t, s, "Котики", "cats")
	dogs := mustGroup(t, s, "Собаки", "dogs")
	inCats := mustPost(t, s, leo, cats, "пост про котиков")
	inDogs := mustPost(t, s, leo, dogs, "пост про собак")

	require.NoError(t, s.DeleteGroup(ctx, cats.ID))

	got, err := s.GetPostByID(ctx, inCats.ID)
	require.NoError(t, err)
	assert.Nil(t, got.GroupID)
	assert.Equal(t, "пост про котиков", got.Text)

	got, err = s.GetPostByID(ctx, inDogs.ID)
	require.NoError(t, err)
	require.NotNil(t, got.GroupID)
	assert.Equal(t, dogs.ID, *got.GroupID)

	_, err = s.GetGroupByID(ctx, cats.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testDeleteUserCascades(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo, anna, ivan := mustUser(t, s, "leo"), mustUser(t, s, "anna"), mustUser(t, s, "ivan")

	leoPost := mustPost(t, s, leo, nil, "пост leo")
	annaPost := mustPost(t, s, anna, nil, "пост anna")
	onLeoPost := mustComment(t, s, ivan, leoPost, "ivan у leo")
	leoComment := mustComment(t, s, leo, annaPost, "leo у anna")
	ivanComment := mustComment(t, s, ivan, annaPost, "ivan у anna")
	mustFollow(t, s, leo, anna)
	mustFollow(t, s, anna, leo)
	ivanFollow := mustFollow(t, s, ivan, anna)

	require.NoError(t, s.DeleteUser(ctx, leo.ID))

	_, err := s.GetPostByID(ctx, leoPost.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetCommentByID(ctx, onLeoPost.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound, "comments on a deleted post are deleted too")
	_, err = s.GetCommentByID(ctx, leoComment.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = s.GetPostByID(ctx, annaPost.ID)
	assert.NoError(t, err)
	_, err = s.GetCommentByID(ctx, ivanComment.ID)
	assert.NoError(t, err)

	follows, err := s.GetFollows(ctx, storage.FollowFilter{})
	require.NoError(t, err)
	require.Len(t, follows, 1)
	assert.Equal(t, ivanFollow.ID, follows[0].ID)

	assert.ErrorIs(t, s.DeleteUser(ctx, leo.ID), storage.ErrNotFound)
}

func testDeletePostCascadesComments(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo := mustUser(t, s, "leo")
	post := mustPost(t, s, leo, nil, "пост")
	other := mustPost(t, s, leo, nil, "другой пост")
	mustComment(t, s, leo, post, "первый")
	mustComment(t, s, leo, post, "второй")
	kept := mustComment(t, s, leo, other, "остается")

	require.NoError(t, s.DeletePost(ctx, post.ID))

	comments, err := s.GetComments(ctx, storage.CommentFilter{})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, kept.ID, comments[0].ID)
}

func testCommentTextMaxLength(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo := mustUser(t, s, "leo")
	post := mustPost(t, s, leo, nil, "пост")

	_, err := s.CreateComment(ctx, &domain.Comment{PostID: post.ID, AuthorID: leo.ID, Text: strings.Repeat("ы", 301)})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "text")

	c := mustComment(t, s, leo, post, strings.Repeat("ы", 300))

	c.Text = strings.Repeat("ы", 301)
	_, err = s.UpdateComment(ctx, c)
	require.ErrorAs(t, err, &ve)

	comments, err := s.GetComments(ctx, storage.CommentFilter{PostID: post.ID})
	require.NoError(t, err)
	require.Len(t, comments, 1)
	assert.Equal(t, strings.Repeat("ы", 300), comments[0].Text)
}

func testGroupTitleMaxLength(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.CreateGroup(ctx, &domain.Group{Title: strings.Repeat("t", 201), Slug: "long", Description: "d"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")

	g := mustGroup(t, s, strings.Repeat("t", 200), "long")
	g.Title += "t"
	_, err = s.UpdateGroup(ctx, g)
	require.ErrorAs(t, err, &ve)
}

func testGroupSlugIsUnique(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	mustGroup(t, s, "Котики", "cats")
	dogs := mustGroup(t, s, "Собаки", "dogs")

	_, err := s.CreateGroup(ctx, &domain.Group{Title: "Еще котики", Slug: "cats", Description: "d"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	dogs.Slug = "cats"
	_, err = s.UpdateGroup(ctx, dogs)
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	// Сохранение с тем же slug - не конфликт
	dogs.Slug = "dogs"
	dogs.Description = "про собак"
	updated, err := s.UpdateGroup(ctx, dogs)
	require.NoError(t, err)
	assert.Equal(t, "про собак", updated.Description)

	found, err := s.GetGroupBySlug(ctx, "dogs")
	require.NoError(t, err)
	assert.Equal(t, dogs.ID, found.ID)
}

func testGroupSlugFromTitle(t *testing.T, s storage.Storage) {
	g, err := s.CreateGroup(context.Background(), &domain.Group{Title: "Котики", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, "kotiki", g.Slug)
}

func testUsernameIsUnique(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo := mustUser(t, s, "leo")

	_, err := s.CreateUser(ctx, &domain.User{Username: "leo"})
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	found, err := s.GetUserByUsername(ctx, "leo")
	require.NoError(t, err)
	assert.Equal(t, leo.ID, found.ID)
	assert.False(t, found.DateJoined.IsZero())
}

func testPostsNewestFirst(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo := mustUser(t, s, "leo")
	first := mustPost(t, s, leo, nil, "первый")
	second := mustPost(t, s, leo, nil, "второй")
	third := mustPost(t, s, leo, nil, "третий")

	posts, err := s.GetPosts(ctx, storage.PostFilter{})
	require.NoError(t, err)
	require.Len(t, posts, 3)
	assert.Equal(t, []string{third.ID, second.ID, first.ID}, []string{posts[0].ID, posts[1].ID, posts[2].ID})

	page, err := s.GetPosts(ctx, storage.PostFilter{Page: storage.Page{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, second.ID, page[0].ID)

	page, err = s.GetPosts(ctx, storage.PostFilter{Page: storage.Page{Offset: 5}})
	require.NoError(t, err)
	assert.Empty(t, page)
}

func testPostFilters(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo, anna := mustUser(t, s, "leo"), mustUser(t, s, "anna")
	cats := mustGroup(t, s, "Котики", "cats")
	p1 := mustPost(t, s, leo, cats, "Ginger CAT sleeps")
	p2 := mustPost(t, s, anna, nil, "Собака лает")
	p3 := mustPost(t, s, anna, cats, "a cat catches mice")

	ids := func(posts []*domain.Post) []string {
		out := make([]string, len(posts))
		for i, p := range posts {
			out[i] = p.ID
		}
		return out
	}

	posts, err := s.GetPosts(ctx, storage.PostFilter{AuthorID: anna.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID, p2.ID}, ids(posts))

	posts, err = s.GetPosts(ctx, storage.PostFilter{GroupID: cats.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID, p1.ID}, ids(posts))

	posts, err = s.GetPosts(ctx, storage.PostFilter{WithoutGroup: true})
	require.NoError(t, err)
	assert.Equal(t, []string{p2.ID}, ids(posts))

	posts, err = s.GetPosts(ctx, storage.PostFilter{Search: "Cat"})
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID, p1.ID}, ids(posts))

	posts, err = s.GetPosts(ctx, storage.PostFilter{Search: "лает", AuthorID: anna.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{p2.ID}, ids(posts))

	posts, err = s.GetPosts(ctx, storage.PostFilter{Search: "100%"})
	require.NoError(t, err)
	assert.Empty(t, posts)

	posts, err = s.GetPosts(ctx, storage.PostFilter{Since: p2.PubDate})
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID, p2.ID}, ids(posts))
}

func testPostPubDateImmutable(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo, anna := mustUser(t, s, "leo"), mustUser(t, s, "anna")
	cats := mustGroup(t, s, "Котики", "cats")

	post, err := s.CreatePost(ctx, &domain.Post{
		Text:     "пост",
		AuthorID: leo.ID,
		PubDate:  time.Date(1999, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, 2024, post.PubDate.Year(), "pub_date is set by the store")
	pubDate := post.PubDate

	post.Text = "исправленный пост"
	post.AuthorID = anna.ID
	post.GroupID = &cats.ID
	post.PubDate = time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)
	_, err = s.UpdatePost(ctx, post)
	require.NoError(t, err)

	got, err := s.GetPostByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "исправленный пост", got.Text)
	assert.Equal(t, anna.ID, got.AuthorID)
	require.NotNil(t, got.GroupID)
	assert.Equal(t, cats.ID, *got.GroupID)
	assert.True(t, pubDate.Equal(got.PubDate), "pub_date must not change: was %v, got %v", pubDate, got.PubDate)
}

func testPostReferencesMustExist(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo := mustUser(t, s, "leo")
	missing := "missing"

	_, err := s.CreatePost(ctx, &domain.Post{Text: "пост", AuthorID: "missing"})
	assert.ErrorIs(t, err, storage.ErrInvalidReference)

	_, err = s.CreatePost(ctx, &domain.Post{Text: "пост", AuthorID: leo.ID, GroupID: &missing})
	assert.ErrorIs(t, err, storage.ErrInvalidReference)

	_, err = s.CreateComment(ctx, &domain.Comment{PostID: "missing", AuthorID: leo.ID, Text: "комментарий"})
	assert.ErrorIs(t, err, storage.ErrInvalidReference)

	_, err = s.UpdatePost(ctx, &domain.Post{ID: "missing", Text: "пост", AuthorID: leo.ID})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func testCommentsNewestFirst(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo := mustUser(t, s, "leo")
	post := mustPost(t, s, leo, nil, "пост")
	c1 := mustComment(t, s, leo, post, "первый")
	c2 := mustComment(t, s, leo, post, "второй")

	comments, err := s.GetComments(ctx, storage.CommentFilter{PostID: post.ID})
	require.NoError(t, err)
	require.Len(t, comments, 2)
	assert.Equal(t, c2.ID, comments[0].ID)
	assert.Equal(t, c1.ID, comments[1].ID)
	assert.True(t, comments[0].Created.After(comments[1].Created))
}

func testUpdateCommentKeepsCreated(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo := mustUser(t, s, "leo")
	post := mustPost(t, s, leo, nil, "пост")
	c := mustComment(t, s, leo, post, "опечатка")
	created := c.Created

	c.Text = "исправлено"
	c.Created = time.Time{}
	updated, err := s.UpdateComment(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, "исправлено", updated.Text)

	got, err := s.GetCommentByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "исправлено", got.Text)
	assert.True(t, created.Equal(got.Created))
}

func testGroupsReverseAlphabetical(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	mustGroup(t, s, "beta", "beta")
	mustGroup(t, s, "alpha", "alpha")
	mustGroup(t, s, "gamma", "gamma")

	groups, err := s.GetGroups(ctx, storage.GroupFilter{})
	require.NoError(t, err)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"gamma", "beta", "alpha"}, []string{groups[0].Title, groups[1].Title, groups[2].Title})

	groups, err = s.GetGroups(ctx, storage.GroupFilter{Search: "ALP"})
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "alpha", groups[0].Slug)
}

func testFollowsByFollowerDescending(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	users := []*domain.User{mustUser(t, s, "a"), mustUser(t, s, "b"), mustUser(t, s, "c")}
	target := mustUser(t, s, "target")
	for _, u := range users {
		mustFollow(t, s, u, target)
	}

	follows, err := s.GetFollows(ctx, storage.FollowFilter{AuthorID: target.ID})
	require.NoError(t, err)
	require.Len(t, follows, 3)

	want := []string{users[0].ID, users[1].ID, users[2].ID}
	sort.Sort(sort.Reverse(sort.StringSlice(want)))
	assert.Equal(t, want, []string{follows[0].UserID, follows[1].UserID, follows[2].UserID})

	require.NotNil(t, follows[0].Author)
	assert.Equal(t, "target", follows[0].Author.Username)
	require.NotNil(t, follows[0].User)
}

func testFollowSearchByAuthorUsername(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo := mustUser(t, s, "leo")
	tolstoy, chekhov := mustUser(t, s, "Tolstoy"), mustUser(t, s, "chekhov")
	mustFollow(t, s, leo, tolstoy)
	mustFollow(t, s, leo, chekhov)

	follows, err := s.GetFollows(ctx, storage.FollowFilter{UserID: leo.ID, Search: "tol"})
	require.NoError(t, err)
	require.Len(t, follows, 1)
	assert.Equal(t, tolstoy.ID, follows[0].AuthorID)
	assert.Equal(t, "leo подписан на Tolstoy", follows[0].String())
}

func testBatchLookups(t *testing.T, s storage.Storage) {
	ctx := context.Background()
	leo, anna := mustUser(t, s, "leo"), mustUser(t, s, "anna")
	cats := mustGroup(t, s, "Котики", "cats")
	post := mustPost(t, s, leo, cats, "пост")

	users, err := s.GetUsersByIDs(ctx, []string{leo.ID, anna.ID, "missing"})
	require.NoError(t, err)
	assert.Len(t, users, 2)
	assert.Equal(t, "anna", users[anna.ID].Username)

	groups, err := s.GetGroupsByIDs(ctx, []string{cats.ID})
	require.NoError(t, err)
	assert.Equal(t, "cats", groups[cats.ID].Slug)

	posts, err := s.GetPostsByIDs(ctx, []string{post.ID, "missing"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	assert.Equal(t, "пост", posts[post.ID].Text)
}

func testNotFound(t *testing.T, s storage.Storage) {
	ctx := context.Background()

	_, err := s.GetUserByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetGroupBySlug(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetPostByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.GetCommentByID(ctx, "missing")
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.UpdateComment(ctx, &domain.Comment{ID: "missing", Text: "x"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = s.UpdateGroup(ctx, &domain.Group{ID: "missing", Title: "t", Slug: "s", Description: "d"})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.ErrorIs(t, s.DeleteGroup(ctx, "missing"), storage.ErrNotFound)
	assert.ErrorIs(t, s.DeletePost(ctx, "missing"), storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteComment(ctx, "missing"), storage.ErrNotFound)
	assert.ErrorIs(t, s.DeleteFollow(ctx, "missing"), storage.ErrNotFound)
}
