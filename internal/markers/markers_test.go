package markers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagsRecognizesSingleBracket(t *testing.T) {
	assert.Equal(t, []string{"izu:blog", "izu:cat:testing"}, Tags("[izu:blog] [izu:cat:testing]"))
	assert.Equal(t, []string{"izu:blog"}, Tags("[izu:blog]"))
}

func TestTagsIgnoresEscapedMarkers(t *testing.T) {
	assert.Empty(t, Tags("[[izu:blog]]"))
	assert.Empty(t, Tags("write [[izu:blog] to start a blog"))
	assert.Equal(t, []string{"izu:break"}, Tags("[[izu:blog]] then [izu:break]"))
}

func TestTagsAcceptsDashForm(t *testing.T) {
	assert.Equal(t, []string{"izu-legacy"}, Tags("[izu-legacy]"))
}

func TestOnlyMarkers(t *testing.T) {
	assert.True(t, OnlyMarkers(" [izu:blog]  [izu:cat:x] "))
	assert.False(t, OnlyMarkers("[izu:blog] hello"))
	assert.False(t, OnlyMarkers("plain text"))
	assert.False(t, OnlyMarkers("[[izu:blog]]"))
	assert.False(t, OnlyMarkers("[izu:break] [[izu:blog]]"))
}

func TestTagValues(t *testing.T) {
	tags := []string{"izu:blog", "izu:cat:", "izu:cat: news ", "izu:old_s:2020-01-01:A", "izu:old_s:2021-01-01:B"}

	assert.True(t, Contains(tags, Blog))
	assert.False(t, Contains(tags, BlogEnd))
	assert.True(t, HasPrefix(tags, Category))
	assert.Equal(t, "news", Value(tags, Category))
	assert.Equal(t, "", Value(tags, Desc))
	assert.Equal(t, []string{"2020-01-01:A", "2021-01-01:B"}, Values(tags, OldSection))
}

func TestFindSection(t *testing.T) {
	s, ok := FindSection("[s:1901-01-02:Title 2] Whatever")
	require.True(t, ok)
	assert.Equal(t, "1901-01-02:Title 2", s.Value)
	assert.Equal(t, " Whatever", s.After)

	s, ok = FindSection("[s:1901-01-01] Title 1")
	require.True(t, ok)
	assert.Equal(t, "1901-01-01", s.Value)
	assert.Equal(t, " Title 1", s.After)

	_, ok = FindSection("[[s:1901-01-01]] not a section")
	assert.False(t, ok)

	_, ok = FindSection("no marker here")
	assert.False(t, ok)
}

func TestStrip(t *testing.T) {
	assert.Equal(t, "Hello  world", Strip("Hello [izu:desc:greeting] world"))
	assert.Equal(t, "write [izu:blog] to start", Strip("write [[izu:blog]] to start"))
	assert.Equal(t, "see [s:2020-01-01]", Strip("see [[s:2020-01-01]]"))
	assert.Equal(t, "]", Strip("[izu:break]]"))
	assert.Equal(t, "no markers", Strip("no markers"))
}
