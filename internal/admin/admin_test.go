package admin

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/UkralStul/yatube-api/internal/domain"
	"github.com/UkralStul/yatube-api/internal/storage"
	"github.com/UkralStul/yatube-api/internal/storage/inmemory"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type manualClock struct{ t time.Time }

func (c *manualClock) Now() time.Time { return c.t }

func at(s string) time.Time {
	t, err := time.Parse(DateTimeLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fixture struct {
	site  *Site
	store storage.Storage
	hook  *logtest.Hook
	leo   *domain.User
	anna  *domain.User
	cats  *domain.Group
	old   *domain.Post
	mid   *domain.Post
	fresh *domain.Post
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	clock := &manualClock{t: at("2024-01-01 00:00")}
	store := inmemory.New(inmemory.WithClock(clock.Now))

	logger, hook := logtest.NewNullLogger()
	site, err := Default(store, WithClock(func() time.Time { return at("2024-03-10 18:00") }), WithLogger(logger))
	require.NoError(t, err)

	f := &fixture{site: site, store: store, hook: hook}
	f.leo, err = store.CreateUser(ctx, &domain.User{Username: "leo"})
	require.NoError(t, err)
	f.anna, err = store.CreateUser(ctx, &domain.User{Username: "anna"})
	require.NoError(t, err)
	f.cats, err = store.CreateGroup(ctx, &domain.Group{Title: "Котики", Slug: "cats", Description: "про котиков"})
	require.NoError(t, err)

	clock.t = at("2024-01-15 12:00")
	f.old, err = store.CreatePost(ctx, &domain.Post{Text: "Старый пост про собак", AuthorID: f.leo.ID})
	require.NoError(t, err)
	clock.t = at("2024-03-05 12:00")
	f.mid, err = store.CreatePost(ctx, &domain.Post{Text: "Пост про котиков", AuthorID: f.anna.ID, GroupID: &f.cats.ID})
	require.NoError(t, err)
	clock.t = at("2024-03-10 09:00")
	f.fresh, err = store.CreatePost(ctx, &domain.Post{Text: "Свежий пост", AuthorID: f.leo.ID, GroupID: &f.cats.ID})
	require.NoError(t, err)
	return f
}

func pks(cl *Changelist) []string {
	out := make([]string, len(cl.Rows))
	for i, r := range cl.Rows {
		out[i] = r.PK
	}
	return out
}

func values(r Row) []string {
	out := make([]string, len(r.Cells))
	for i, c := range r.Cells {
		out[i] = c.Value
	}
	return out
}

func TestDefault_RegistersAllModels(t *testing.T) {
	site, err := Default(inmemory.New())
	require.NoError(t, err)
	assert.Equal(t, []Model{ModelComment, ModelFollow, ModelGroup, ModelPost}, site.Registered())

	follow, err := site.ModelAdmin(ModelFollow)
	require.NoError(t, err)
	assert.Equal(t, DefaultEmptyValueDisplay, follow.EmptyValueDisplay)

	post, err := site.ModelAdmin(ModelPost)
	require.NoError(t, err)
	assert.Equal(t, EmptyValue, post.EmptyValueDisplay)
}

func TestRegister_Checks(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		admin ModelAdmin
		msg   string
	}{
		{
			name:  "unknown model",
			model: "user",
			admin: ModelAdmin{},
			msg:   `unknown model "user"`,
		},
		{
			name:  "unknown field",
			model: ModelPost,
			admin: ModelAdmin{ListDisplay: []string{"pk", "title"}},
			msg:   `list_display refers to unknown field "title"`,
		},
		{
			name:  "link not displayed",
			model: ModelGroup,
			admin: ModelAdmin{ListDisplay: []string{"pk", "title"}, ListDisplayLinks: []string{"slug"}},
			msg:   `list_display_links refers to "slug"`,
		},
		{
			name:  "editable not displayed",
			model: ModelGroup,
			admin: ModelAdmin{ListDisplay: []string{"pk", "title"}, ListEditable: []string{"slug"}},
			msg:   `list_editable refers to "slug", which is not in list_display`,
		},
		{
			name:  "editable first column without links",
			model: ModelGroup,
			admin: ModelAdmin{ListDisplay: []string{"title", "slug"}, ListEditable: []string{"title"}},
			msg:   "cannot be used unless list_display_links is set",
		},
		{
			name:  "editable is a link",
			model: ModelGroup,
			admin: ModelAdmin{ListDisplay: []string{"pk", "title", "slug"}, ListDisplayLinks: []string{"slug"}, ListEditable: []string{"slug"}},
			msg:   "which is also in list_display_links",
		},
		{
			name:  "editable read-only field",
			model: ModelPost,
			admin: ModelAdmin{ListDisplay: []string{"pk", "pub_date"}, ListEditable: []string{"pub_date"}},
			msg:   `"pub_date", which is not editable`,
		},
		{
			name:  "bad filter",
			model: ModelGroup,
			admin: ModelAdmin{ListDisplay: []string{"pk"}, ListFilter: []string{"title"}},
			msg:   `list_filter refers to "title"`,
		},
		{
			name:  "bad search",
			model: ModelComment,
			admin: ModelAdmin{SearchFields: []string{"text"}},
			msg:   `search_fields refers to "text"`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			site := NewSite(inmemory.New())
			err := site.Register(tt.model, tt.admin)
			require.ErrorIs(t, err, ErrImproperlyConfigured)
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestRegister_Twice(t *testing.T) {
	site := NewSite(inmemory.New())
	require.NoError(t, site.Register(ModelFollow, ModelAdmin{}))

	err := site.Register(ModelFollow, ModelAdmin{})
	assert.ErrorIs(t, err, ErrAlreadyRegistered)

	ma, err := site.ModelAdmin(ModelFollow)
	require.NoError(t, err)
	assert.Equal(t, []string{StrField}, ma.ListDisplay)
}

func TestChangelist_Posts(t *testing.T) {
	f := newFixture(t)

	cl, err := f.site.Changelist(context.Background(), ModelPost, Query{})
	require.NoError(t, err)
	assert.Equal(t, []string{"pk", "text", "pub_date", "author", "group"}, cl.Columns)
	assert.Equal(t, []string{f.fresh.ID, f.mid.ID, f.old.ID}, pks(cl))

	assert.Equal(t, []string{f.fresh.ID, "Свежий пост", "2024-03-10 09:00", "leo", "Котики"}, values(cl.Rows[0]))
	assert.Equal(t, []string{f.old.ID, "Старый пост про собак", "2024-01-15 12:00", "leo", "-пусто-"}, values(cl.Rows[2]))

	cells := cl.Rows[0].Cells
	assert.False(t, cells[0].Link)
	assert.True(t, cells[1].Link)
	assert.True(t, cells[3].Link)
	assert.True(t, cells[4].Editable)
	assert.False(t, cells[1].Editable)
}

func TestChangelist_PostFilters(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query Query
		want  []string
	}{
		{"today", Query{Filters: map[string]string{"pub_date": DateToday}}, []string{f.fresh.ID}},
		{"past 7 days", Query{Filters: map[string]string{"pub_date": DatePast7Days}}, []string{f.fresh.ID, f.mid.ID}},
		{"this month", Query{Filters: map[string]string{"pub_date": DateThisMonth}}, []string{f.fresh.ID, f.mid.ID}},
		{"this year", Query{Filters: map[string]string{"pub_date": DateThisYear}}, []string{f.fresh.ID, f.mid.ID, f.old.ID}},
		{"any date", Query{Filters: map[string]string{"pub_date": DateAny}}, []string{f.fresh.ID, f.mid.ID, f.old.ID}},
		{"group", Query{Filters: map[string]string{"group": f.cats.ID}}, []string{f.fresh.ID, f.mid.ID}},
		{"no group", Query{Filters: map[string]string{"group": GroupFilterNone}}, []string{f.old.ID}},
		{"search", Query{Search: "ПОСТ ПРО"}, []string{f.mid.ID, f.old.ID}},
		{"page", Query{Limit: 1, Offset: 1}, []string{f.mid.ID}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cl, err := f.site.Changelist(ctx, ModelPost, tt.query)
			require.NoError(t, err)
			assert.Equal(t, tt.want, pks(cl))
		})
	}
}

func TestChangelist_UnsupportedQueries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.site.Changelist(ctx, ModelGroup, Query{Search: "кот"})
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = f.site.Changelist(ctx, ModelPost, Query{Filters: map[string]string{"author": f.leo.ID}})
	assert.ErrorIs(t, err, ErrUnsupportedQuery, "author is filterable but not in list_filter")

	_, err = f.site.Changelist(ctx, ModelPost, Query{Filters: map[string]string{"pub_date": "yesterday"}})
	assert.ErrorIs(t, err, ErrUnsupportedQuery)

	_, err = NewSite(f.store).Changelist(ctx, ModelPost, Query{})
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestChangelist_GroupsAndComments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	dogs, err := f.store.CreateGroup(ctx, &domain.Group{Title: "Собаки", Slug: "dogs", Description: "про собак"})
	require.NoError(t, err)

	cl, err := f.site.Changelist(ctx, ModelGroup, Query{})
	require.NoError(t, err)
	require.Len(t, cl.Rows, 2)
	assert.Equal(t, []string{dogs.ID, "Собаки", "dogs", "про собак"}, values(cl.Rows[0]))
	assert.True(t, cl.Rows[0].Cells[1].Link)
	assert.True(t, cl.Rows[0].Cells[2].Editable)

	comment, err := f.store.CreateComment(ctx, &domain.Comment{PostID: f.old.ID, AuthorID: f.anna.ID, Text: "Гав!"})
	require.NoError(t, err)

	cl, err = f.site.Changelist(ctx, ModelComment, Query{})
	require.NoError(t, err)
	require.Len(t, cl.Rows, 1)
	row := values(cl.Rows[0])
	assert.Equal(t, []string{comment.ID, "Гав!", "anna", "Старый пост про", comment.Created.Format(DateTimeLayout)}, row)
	assert.True(t, cl.Rows[0].Cells[0].Link)
}

func TestChangelist_Follows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	follow, err := f.store.CreateFollow(ctx, &domain.Follow{UserID: f.leo.ID, AuthorID: f.anna.ID})
	require.NoError(t, err)

	cl, err := f.site.Changelist(ctx, ModelFollow, Query{})
	require.NoError(t, err)
	require.Len(t, cl.Rows, 1)
	assert.Equal(t, []string{follow.ID, "leo", "anna"}, values(cl.Rows[0]))
	assert.True(t, cl.Rows[0].Cells[0].Link, "first column links by default")
}

func TestEdit_PostGroup(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.site.Edit(ctx, ModelPost, f.old.ID, "group", f.cats.ID))
	post, err := f.store.GetPostByID(ctx, f.old.ID)
	require.NoError(t, err)
	require.NotNil(t, post.GroupID)
	assert.Equal(t, f.cats.ID, *post.GroupID)
	assert.True(t, f.old.PubDate.Equal(post.PubDate))

	entry := f.hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, "admin: changed", entry.Message)
	assert.Equal(t, logrus.Fields{"model": ModelPost, "pk": f.old.ID, "field": "group"}, entry.Data)

	require.NoError(t, f.site.Edit(ctx, ModelPost, f.old.ID, "group", ""))
	post, err = f.store.GetPostByID(ctx, f.old.ID)
	require.NoError(t, err)
	assert.Nil(t, post.GroupID)

	err = f.site.Edit(ctx, ModelPost, f.old.ID, "group", "missing")
	assert.ErrorIs(t, err, storage.ErrInvalidReference)
}

func TestEdit_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	err := f.site.Edit(ctx, ModelPost, f.old.ID, "text", "новый текст")
	assert.ErrorIs(t, err, ErrNotEditable)

	err = f.site.Edit(ctx, ModelFollow, "any", "user", "x")
	assert.ErrorIs(t, err, ErrNotEditable)

	dogs, err := f.store.CreateGroup(ctx, &domain.Group{Title: "Собаки", Slug: "dogs", Description: "про собак"})
	require.NoError(t, err)
	err = f.site.Edit(ctx, ModelGroup, dogs.ID, "slug", "cats")
	assert.ErrorIs(t, err, storage.ErrAlreadyExists)

	comment, err := f.store.CreateComment(ctx, &domain.Comment{PostID: f.old.ID, AuthorID: f.anna.ID, Text: "Гав!"})
	require.NoError(t, err)
	err = f.site.Edit(ctx, ModelComment, comment.ID, "text", strings.Repeat("а", 301))
	var ve *domain.ValidationError
	assert.ErrorAs(t, err, &ve)

	require.NoError(t, f.site.Edit(ctx, ModelComment, comment.ID, "text", "Мяу!"))
	got, err := f.store.GetCommentByID(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "Мяу!", got.Text)

	err = f.site.Edit(ctx, ModelComment, "missing", "text", "x")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDelete_GroupKeepsPosts(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.site.Delete(ctx, ModelGroup, f.cats.ID))
	assert.Equal(t, "admin: deleted", f.hook.LastEntry().Message)

	cl, err := f.site.Changelist(ctx, ModelPost, Query{})
	require.NoError(t, err)
	require.Len(t, cl.Rows, 3)
	for _, row := range cl.Rows {
		assert.Equal(t, EmptyValue, row.Cells[4].Value)
	}

	assert.ErrorIs(t, f.site.Delete(ctx, ModelGroup, f.cats.ID), storage.ErrNotFound)
}
