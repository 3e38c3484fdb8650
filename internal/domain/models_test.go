package domain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate_GroupTitleTooLong(t *testing.T) {
	g := &Group{Title: strings.Repeat("я", GroupTitleMaxLen+1), Slug: "cats", Description: "про котиков"}

	err := Validate(g)
	require.Error(t, err)

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Fields, "title")
	assert.NotContains(t, ve.Fields, "slug")
}

func TestValidate_GroupTitleAtLimit(t *testing.T) {
	g := &Group{Title: strings.Repeat("я", GroupTitleMaxLen), Slug: "cats", Description: "про котиков"}
	assert.NoError(t, Validate(g))
}

func TestValidate_GroupSlugFormat(t *testing.T) {
	g := &Group{Title: "Котики", Slug: "котики!", Description: "про котиков"}

	var ve *ValidationError
	require.ErrorAs(t, Validate(g), &ve)
	assert.Contains(t, ve.Fields, "slug")

	g.Slug = "Cats_and-dogs-2"
	assert.NoError(t, Validate(g))
}

func TestValidate_CommentTextCountsRunes(t *testing.T) {
	c := &Comment{PostID: "p", AuthorID: "u", Text: strings.Repeat("ж", CommentTextMaxLen)}
	assert.NoError(t, Validate(c))

	c.Text += "ж"
	var ve *ValidationError
	require.ErrorAs(t, Validate(c), &ve)
	assert.Equal(t, "ensure this field has no more than 300 characters", ve.Fields["text"])
}

func TestValidate_RequiredFields(t *testing.T) {
	var ve *ValidationError
	require.ErrorAs(t, Validate(&Post{}), &ve)
	assert.Contains(t, ve.Fields, "text")
	assert.Contains(t, ve.Fields, "author")
	assert.NotContains(t, ve.Fields, "group")
	assert.True(t, strings.HasPrefix(ve.Error(), "validation failed: author: "))
}

func TestValidate_PostImagePath(t *testing.T) {
	img := "avatars/cat.png"
	p := &Post{Text: "text", AuthorID: "u", Image: &img}

	var ve *ValidationError
	require.ErrorAs(t, Validate(p), &ve)
	assert.Contains(t, ve.Fields, "image")

	img = "posts/cat.png"
	assert.NoError(t, Validate(p))
}

func TestDisplayStrings(t *testing.T) {
	p := &Post{Text: "Очень длинный текст статьи про котиков"}
	assert.Equal(t, "Очень длинный т", p.String())

	c := &Comment{Text: "коротко"}
	assert.Equal(t, "коротко", c.String())

	g := &Group{Title: "Котики"}
	assert.Equal(t, "Котики", g.String())

	f := &Follow{UserID: "1", AuthorID: "2"}
	assert.Equal(t, "1 подписан на 2", f.String())

	f.User = &User{Username: "leo"}
	f.Author = &User{Username: "tolstoy"}
	assert.Equal(t, "leo подписан на tolstoy", f.String())
}

func TestSlugFromTitle(t *testing.T) {
	assert.Equal(t, "kotiki-i-sobaki", SlugFromTitle("Котики и собаки"))

	long := SlugFromTitle(strings.Repeat("word ", 30))
	assert.LessOrEqual(t, len(long), GroupSlugMaxLen)
	assert.False(t, strings.HasSuffix(long, "-"))
	assert.NoError(t, Validate(&Group{Title: "t", Slug: long, Description: "d"}))
}
