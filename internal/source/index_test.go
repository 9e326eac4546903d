package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseIndex(t *testing.T) {
	idx := ParseIndex([]byte("\ufeffSite index\n" +
		"  about.html   1AbC_d-9  trailing notes\n" +
		"trains/layout.html 2xyz\n" +
		"Index.html upper-case names are skipped\n" +
		"blog 3blog\n" +
		"Blog2 (the train blog) 4blog\n" +
		"blog 12 5blog\n" +
		"blogroll is not a blog line\n" +
		"\n"))

	assert.Equal(t, []ArticleEntry{
		{DestName: "about.html", ID: "1AbC_d-9"},
		{DestName: "trains/layout.html", ID: "2xyz"},
	}, idx.Articles)
	assert.Equal(t, []BlogEntry{
		{ID: "3blog"},
		{ID: "4blog", Site: 2, Comment: "the train blog"},
		{ID: "5blog", Site: 12},
	}, idx.Blogs)
}
