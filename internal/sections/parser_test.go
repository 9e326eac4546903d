package sections

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/izupress/internal/dom"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/markers"
)

// spanDocument wraps each line in a <span>, the way the exporter emits plain lines.
func spanDocument(lines ...string) []byte {
	wrapped := make([]string, len(lines))
	for i, l := range lines {
		wrapped[i] = "<span>" + l + "</span>"
	}
	return []byte("<html><body>" + strings.Join(wrapped, "\n") + "</body></html>")
}

func parse(t *testing.T, lines ...string) (*Result, error) {
	t.Helper()
	return NewParser().ParseDocument(spanDocument(lines...))
}

func TestParseBlogDocument(t *testing.T) {
	res, err := parse(t,
		"[izu:blog] [izu:cat:testing]",
		"Header content",
		"[izu:header:end]",
		"[s:1901-01-01] Title 1",
		"Post 1 Content",
		"[izu:break]",
		"Post 1 long version",
		"[s:1901-01-02:Title 2] Whatever",
		"Post 2 Content",
		"Post 2 is short",
		"[izu:blog:end]",
		"[s:1901-01-03:Title 3] Work in progress",
		"This post is not ready",
	)
	require.NoError(t, err)

	assert.Equal(t, "testing", res.Category)
	assert.Contains(t, res.Tags, markers.Blog)
	assert.Contains(t, res.Tags, markers.Category+"testing")
	require.NotNil(t, res.Header)
	assert.Equal(t,
		[]string{"[izu:blog] [izu:cat:testing]", "Header content", "[izu:header:end]"},
		dom.Texts(res.Header))

	require.Len(t, res.Sections, 2)
	s1, s2 := res.Sections[0], res.Sections[1]

	assert.Equal(t, time.Date(1901, 1, 1, 0, 0, 0, 0, time.UTC), s1.Date)
	assert.Equal(t, "Title 1", s1.Title)
	assert.Equal(t, "1901-01-01_title_1", s1.Key)
	assert.Equal(t, "testing", s1.Category)
	require.NotNil(t, s1.Short)
	assert.Equal(t, []string{"Post 1 Content", "[izu:break]"}, dom.Texts(s1.Short))
	assert.Equal(t, []string{"Post 1 Content", "[izu:break]", "Post 1 long version"}, dom.Texts(s1.Full))

	assert.Equal(t, time.Date(1901, 1, 2, 0, 0, 0, 0, time.UTC), s2.Date)
	assert.Equal(t, "Title 2", s2.Title)
	assert.Nil(t, s2.Short)
	assert.Equal(t, []string{"Post 2 Content", "Post 2 is short", "[izu:blog:end]"}, dom.Texts(s2.Full))
}

func TestParseFragmentsAreDetachedClones(t *testing.T) {
	body, err := dom.ParseBody("<p>[izu:blog] [izu:cat:x]</p><p>[s:2020-01-01] One</p><p>text</p>")
	require.NoError(t, err)

	res, err := NewParser().Parse(body)
	require.NoError(t, err)
	require.Len(t, res.Sections, 1)

	dom.First(res.Sections[0].Full, "p").FirstChild.Data = "changed"
	assert.Equal(t, "text", dom.Text(dom.Children(body)[2]))
	assert.Len(t, dom.Children(body), 3)
}

func TestParseIgnoresEscapedMarkers(t *testing.T) {
	res, err := parse(t,
		"Write [[izu:blog]] to start a blog.",
		"[izu:blog] [izu:cat:docs]",
		"[izu:header:end]",
		"[s:2020-02-03] How to",
		"Use [[s:2020-01-01]] to open a section and [[izu:break]] to split it.",
	)
	require.NoError(t, err)

	assert.Equal(t, "docs", res.Category)
	assert.Equal(t, []string{"[izu:blog] [izu:cat:docs]", "[izu:header:end]"}, dom.Texts(res.Header))
	require.Len(t, res.Sections, 1)
	assert.Nil(t, res.Sections[0].Short)
	assert.Len(t, dom.Children(res.Sections[0].Full), 1)
}

func TestParseHeaderEndsAtFirstSection(t *testing.T) {
	res, err := parse(t,
		"[izu:blog] [izu:cat:news]",
		"[izu:blog-title:Daily News]",
		"Welcome to the news.",
		"[izu:desc:not a header tag]",
		"[s:2021-05-06:First] ignored",
		"Body",
	)
	require.NoError(t, err)

	assert.Equal(t, "Daily News", res.Title())
	assert.Len(t, dom.Children(res.Header), 4)
	// tags stop being collected at the first line with free text
	assert.False(t, markers.HasPrefix(res.Tags, markers.Desc))
	require.Len(t, res.Sections, 1)
	assert.Equal(t, "First", res.Sections[0].Title)
}

func TestParseSectionTagsAndCategoryOverride(t *testing.T) {
	res, err := parse(t,
		"[izu:blog] [izu:cat:main]",
		"[izu:header:end]",
		"[s:2021-01-01] Moved [izu:cat:other]",
		"Content [izu:desc:short text]",
		"[s:2021-01-02] Stays",
		"More",
	)
	require.NoError(t, err)
	require.Len(t, res.Sections, 2)

	assert.Equal(t, "Moved", res.Sections[0].Title)
	assert.Equal(t, "other", res.Sections[0].Category)
	assert.Equal(t, "short text", markers.Value(res.Sections[0].Tags, markers.Desc))
	assert.Equal(t, "main", res.Sections[1].Category)
}

func TestParseOnlyFirstBreakSplits(t *testing.T) {
	res, err := parse(t,
		"[izu:blog] [izu:cat:main]",
		"[s:2021-01-01] Two breaks",
		"a",
		"[izu:break]",
		"b",
		"[izu:break]",
		"c",
	)
	require.NoError(t, err)
	require.Len(t, res.Sections, 1)
	assert.Equal(t, []string{"a", "[izu:break]"}, dom.Texts(res.Sections[0].Short))
	assert.Len(t, dom.Children(res.Sections[0].Full), 5)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name     string
		lines    []string
		category ferrors.ErrorCategory
	}{
		{
			name:     "missing category",
			lines:    []string{"[izu:blog]", "[s:2020-01-01] A", "x"},
			category: ferrors.CategoryMarker,
		},
		{
			name:     "no blog marker",
			lines:    []string{"just text"},
			category: ferrors.CategoryMarker,
		},
		{
			name:     "malformed date",
			lines:    []string{"[izu:blog] [izu:cat:c]", "[s:2020-13-01] A", "x"},
			category: ferrors.CategoryDate,
		},
		{
			name:     "non iso date",
			lines:    []string{"[izu:blog] [izu:cat:c]", "[s:1/2/2020] A", "x"},
			category: ferrors.CategoryDate,
		},
		{
			name:     "duplicate key",
			lines:    []string{"[izu:blog] [izu:cat:c]", "[s:2020-01-01] Same", "x", "[s:2020-01-01:same] other", "y"},
			category: ferrors.CategoryDuplicate,
		},
		{
			name:     "break before any section",
			lines:    []string{"[izu:blog] [izu:cat:c]", "[izu:header:end]", "[izu:break]", "[s:2020-01-01] A", "x"},
			category: ferrors.CategoryMarker,
		},
		{
			name:     "empty section",
			lines:    []string{"[izu:blog] [izu:cat:c]", "[s:2020-01-01] A", "[s:2020-01-02] B", "x"},
			category: ferrors.CategoryMarker,
		},
		{
			name:     "empty category override",
			lines:    []string{"[izu:blog] [izu:cat:c]", "[s:2020-01-01] A [izu:cat:]", "x"},
			category: ferrors.CategoryMarker,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse(t, tt.lines...)
			require.Error(t, err)
			assert.True(t, ferrors.HasCategory(err, tt.category), "got %v", err)
		})
	}
}

func TestDuplicateTitlesInDifferentCategoriesAreAllowed(t *testing.T) {
	res, err := parse(t,
		"[izu:blog] [izu:cat:a]",
		"[s:2020-01-01] Same",
		"x",
		"[s:2020-01-01] Same [izu:cat:b]",
		"y",
	)
	require.NoError(t, err)
	assert.Len(t, res.Sections, 2)
}
