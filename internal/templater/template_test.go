package templater

import (
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

func titles(site, page string) *Article {
	return &Article{Base: Base{SiteTitle: site, PageTitle: page}}
}

func render(t *testing.T, src string, data Data) string {
	t.Helper()
	tmpl, err := Parse("test", src)
	require.NoError(t, err)
	return tmpl.Execute(data)
}

func TestVarReplacement(t *testing.T) {
	src := "<h2> {{.SiteTitle}} - {{.PageTitle}} </h2>"
	assert.Equal(t, "<h2> A Site Title - A Page Title </h2>", render(t, src, titles("A Site Title", "A Page Title")))
	assert.Equal(t, "<h2>  -  </h2>", render(t, src, titles("", "")))
}

func TestUnknownFieldIsEmpty(t *testing.T) {
	assert.Equal(t, "[]", render(t, "[{{.NoSuchField}}]", titles("a", "b")))
}

func TestIfBlank(t *testing.T) {
	src := "<h2> {{.SiteTitle}} {{If.PageTitle}}- {{.PageTitle}} {{Endif}}</h2>"
	assert.Equal(t, "<h2> A Site - A Page </h2>", render(t, src, titles("A Site", "A Page")))
	assert.Equal(t, "<h2> A Site </h2>", render(t, src, titles("A Site", "")))
	assert.Equal(t, "<h2> A Site </h2>", render(t, src, titles("A Site", "   ")))
}

func TestIfNegated(t *testing.T) {
	src := "<h2> {{.SiteTitle}} {{If!.PageTitle}}- {{.PageTitle}} {{Endif}}</h2>"
	assert.Equal(t, "<h2> A Site </h2>", render(t, src, titles("A Site", "A Page")))
	assert.Equal(t, "<h2> A Site -  </h2>", render(t, src, titles("A Site", "")))
}

func TestIfEqual(t *testing.T) {
	src := "<h2> {{.SiteTitle}} {{If.PageTitle == .SiteTitle}}eq {{.PageTitle}} {{Endif}}</h2>"
	assert.Equal(t, "<h2> A Site </h2>", render(t, src, titles("A Site", "A Page")))
	assert.Equal(t, "<h2> A Site eq A Site </h2>", render(t, src, titles("A Site", "A Site")))
}

func TestIfNotEqual(t *testing.T) {
	src := "<h2> {{.SiteTitle}} {{If.PageTitle != .SiteTitle}}+ {{.PageTitle}} {{Endif}}</h2>"
	assert.Equal(t, "<h2> A Site + A Page </h2>", render(t, src, titles("A Site", "A Page")))
	assert.Equal(t, "<h2> A Site </h2>", render(t, src, titles("A Site", "A Site")))
}

func TestIfEqualLiteral(t *testing.T) {
	src := "{{if.PageTitle == Home}}home{{endif}}{{if.PageTitle != Home}}other{{endif}}"
	assert.Equal(t, "home", render(t, src, titles("s", "Home")))
	assert.Equal(t, "other", render(t, src, titles("s", "Homes")))
}

func TestIfComparisonIgnoresCase(t *testing.T) {
	src := "{{if.PageTitle==Foo}}eq{{endif}}{{if.PageTitle!=FOO}}ne{{endif}}"
	for _, page := range []string{"foo", "Foo", "FOO"} {
		assert.Equal(t, "eq", render(t, src, titles("s", page)), page)
	}
	assert.Equal(t, "ne", render(t, src, titles("s", "bar")))

	vars := "{{if.PageTitle == .SiteTitle}}same{{endif}}"
	assert.Equal(t, "same", render(t, vars, titles("My Site", "MY SITE")))
}

func TestNestedBlocks(t *testing.T) {
	src := "{{if.SiteTitle}}[{{if.PageTitle}}{{.PageTitle}}{{endif}}|{{.SiteTitle}}]{{endif}}."
	assert.Equal(t, "[P|S].", render(t, src, titles("S", "P")))
	assert.Equal(t, "[|S].", render(t, src, titles("S", "")))
	assert.Equal(t, ".", render(t, src, titles("", "P")))
}

func TestComplexTemplate(t *testing.T) {
	src := "" +
		"<!doctype html>\n" +
		"<meta property=\"og:url\" content=\"{{.AbsSiteLink}}{{.FwdPageLink}}{{.RelPageLink}}\" />\n" +
		"{{IF.Description}}<meta property=\"og:description\" content=\"{{.Description}}\" />{{ENDIF}}\n" +
		"<title>{{.PageTitle}}</title>\n" +
		"{{.Css}}\n" +
		"{{if.content}}{{.SourceContent}}{{endif}}\n" +
		"{{if.GAUid}}gtag('config', '{{.GAUid}}');{{EndIf}}\n"

	data := &Article{
		Base: Base{
			SiteTitle:   "Site Title replacement",
			AbsSiteLink: "http://Site URL/replacement/",
			RelSiteLink: "../../",
			FwdPageLink: "fwd/",
			CSS:         "CSS replacement",
			PageTitle:   "Page Title replacement",
			RelPageLink: "page_file.html",
		},
		Content: "SourceContent replacement\nMultiple content.",
	}

	assert.Equal(t, ""+
		"<!doctype html>\n"+
		"<meta property=\"og:url\" content=\"http://Site URL/replacement/fwd/page_file.html\" />\n"+
		"\n"+
		"<title>Page Title replacement</title>\n"+
		"CSS replacement\n"+
		"SourceContent replacement\nMultiple content.\n"+
		"\n", render(t, src, data))
}

func TestVariantFieldTables(t *testing.T) {
	post := &BlogPost{
		BlogPage: BlogPage{
			Article:   Article{Base: Base{SiteTitle: "site"}, Content: "body"},
			PostTitle: "title",
			PostDate:  "2024-01-02",
		},
		RelPostFullLink: "2024-01-02_title.html",
	}
	assert.Equal(t, "site|body|title|2024-01-02|2024-01-02_title.html",
		render(t, "{{.SiteTitle}}|{{.Content}}|{{.PostTitle}}|{{.PostDate}}|{{.RelPostFullLink}}", post))

	_, ok := (&Article{}).Lookup("posttitle")
	assert.False(t, ok, "articles have no post fields")
	assert.Equal(t, VariantBlogPost, post.Variant())
}

func TestParseErrors(t *testing.T) {
	for _, src := range []string{
		"{{if.PageTitle}} never closed",
		"{{if.A}}{{if.B}}x{{endif}}",
		"{{Invalid}}",
		"{{unknown.PageTitle}}",
		"text {{endif}}",
	} {
		_, err := Parse("broken.html", src)
		require.Error(t, err, src)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTemplate), src)
	}
}

func TestUnterminatedDelimiterIsText(t *testing.T) {
	assert.Equal(t, "a {{ b", render(t, "a {{ b", titles("", "")))
}

func TestEngineCachesPerVariant(t *testing.T) {
	fsys := fstest.MapFS{
		"article.html":   {Data: []byte("A:{{.PageTitle}}")},
		"custom.html":    {Data: []byte("P:{{.PostTitle}}")},
		"blog_post.html": {Data: []byte("{{if.broken}}")},
	}
	e := NewEngine(fsys, map[Variant]string{VariantBlogPage: "custom.html"})

	out, err := e.Render(titles("s", "Page"))
	require.NoError(t, err)
	assert.Equal(t, "A:Page", out)

	out, err = e.Render(&BlogPage{PostTitle: "Post"})
	require.NoError(t, err)
	assert.Equal(t, "P:Post", out)

	// later edits of the file are not seen
	fsys["article.html"] = &fstest.MapFile{Data: []byte("changed")}
	out, err = e.Render(titles("s", "Again"))
	require.NoError(t, err)
	assert.Equal(t, "A:Again", out)

	_, err = e.Render(&BlogPost{})
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryTemplate))
}

func TestDirEngineFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "article.html"), []byte("custom {{.PageTitle}}"), 0o600))

	e := NewDirEngine(dir, nil)
	out, err := e.Render(titles("s", "x"))
	require.NoError(t, err)
	assert.Equal(t, "custom x", out)

	out, err = e.Render(&BlogPost{BlogPage: BlogPage{PostTitle: "Hello"}, RelPostFullLink: "hello.html"})
	require.NoError(t, err)
	assert.Contains(t, out, `<a href="hello.html">Hello</a>`)
}

func TestDefaultTemplatesParse(t *testing.T) {
	e := NewEngine(DefaultFS(), nil)
	for _, v := range []Variant{VariantArticle, VariantBlogPage, VariantBlogPost} {
		_, err := e.Template(v)
		require.NoError(t, err, v)
	}
}

func TestWriteDefaults(t *testing.T) {
	dir := t.TempDir()
	written, err := WriteDefaults(dir, false)
	require.NoError(t, err)
	assert.Len(t, written, 3)

	custom := filepath.Join(dir, "article.html")
	require.NoError(t, os.WriteFile(custom, []byte("mine"), 0o600))
	written, err = WriteDefaults(dir, false)
	require.NoError(t, err)
	assert.Empty(t, written)
	data, err := os.ReadFile(custom)
	require.NoError(t, err)
	assert.Equal(t, "mine", string(data))

	written, err = WriteDefaults(dir, true)
	require.NoError(t, err)
	assert.Len(t, written, 3)
}
