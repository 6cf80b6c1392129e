package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseContentType(t *testing.T) {
	assert.Equal(t, TypeBlog, ParseContentType("blog"))
	assert.Equal(t, TypeGuide, ParseContentType(" Guide "))
	assert.Equal(t, TypeOther, ParseContentType("newsletter"))
	assert.Equal(t, TypeOther, ParseContentType(""))
}

func TestContentTypeValid(t *testing.T) {
	for _, ct := range ContentTypes {
		assert.True(t, ct.Valid(), ct)
	}
	assert.False(t, ContentType("document").Valid())
}

func TestNewItemIDStable(t *testing.T) {
	a := NewItemID("https://example.com/a", "A")
	b := NewItemID("https://example.com/a", "A")
	c := NewItemID("https://example.com/a", "B")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Len(t, a, 36)
}
