package blog

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"git.home.luguber.info/inful/izupress/internal/content"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

const (
	// Root is the output directory holding every blog.
	Root = "blog"
	// IndexName is the listing page with the most recent posts.
	IndexName = "index.html"
	// FeedName is the Atom feed of a blog.
	FeedName = "atom.xml"
)

// DefaultPostsPerPage is the listing page size.
const DefaultPostsPerPage = 10

// Label turns a category into its display form. Three-letter categories are
// usually acronyms and are upper-cased; others are capitalized.
func Label(category string) string {
	if utf8.RuneCountInString(category) == 3 {
		return cases.Upper(language.English).String(category)
	}
	return cases.Title(language.English, cases.NoLower).String(category)
}

// Blog is the set of pages generated for one category.
type Blog struct {
	Category string
	Title    string
	Header   *content.Content
	// Pages lists the index first, then the numbered pages from the most recent to
	// the oldest.
	Pages []*Page
	// Posts lists the full posts from the most recent to the oldest.
	Posts []*FullPost
}

// CheckCategory rejects category names that cannot be used as a single
// directory below Root.
func CheckCategory(category string) error {
	if category == "" || category == "." || category == ".." ||
		strings.ContainsAny(category, "/\\\x00") {
		return ferrors.MarkerSyntaxError(fmt.Sprintf("invalid blog category %q", category)).
			WithContext("hint", "a category must not be empty, a dot segment or contain path separators").
			Build()
	}
	return nil
}

// Dir returns the blog directory relative to the output root.
func (b *Blog) Dir() string {
	return path.Join(Root, b.Category)
}

// Index returns the index page.
func (b *Blog) Index() *Page {
	return b.Pages[0]
}

// Page is a listing page.
type Page struct {
	Name   string
	Shorts []*ShortPost
}

// ShortPost is a post as shown on a listing page.
type ShortPost struct {
	Post *Post
	Full *FullPost
	// ReadMore is set when the listing shows the short content only.
	ReadMore bool
}

// Content returns the fragment shown on listing pages.
func (s *ShortPost) Content() *content.Content {
	return s.Post.ShortOrFull()
}

// FullPost is the page of one post.
type FullPost struct {
	Post *Post
	Name string
	// Newer and Older thread the posts of the whole blog in date order.
	Newer *FullPost
	Older *FullPost
}

// PageName returns the file name of the numbered page n, counting from 1.
func PageName(n int) string {
	return fmt.Sprintf("%04x.html", n)
}

// BuildBlog lays out the pages of src. Posts are taken in ascending key order;
// every perPage posts fill a numbered page, so a post keeps its page as the blog
// grows. The index always shows the last perPage posts. Posts of an incomplete
// last page only appear on the index.
func BuildBlog(src *SourceBlog, perPage int) *Blog {
	if perPage <= 0 {
		perPage = DefaultPostsPerPage
	}
	b := &Blog{Category: src.Category, Title: src.Title, Header: src.Header}
	if strings.TrimSpace(b.Title) == "" {
		b.Title = Label(src.Category)
	}

	posts := src.Posts()
	fulls := make(map[string]*FullPost, len(posts))
	for _, p := range posts {
		fulls[p.Key] = &FullPost{Post: p, Name: p.Key + ".html"}
	}

	index := &Page{Name: IndexName}
	var numbered []*Page
	for start := 0; start+perPage <= len(posts); start += perPage {
		page := &Page{Name: PageName(len(numbered) + 1)}
		fill(page, posts[start:start+perPage], fulls)
		numbered = append(numbered, page)
	}
	fill(index, posts[max(0, len(posts)-perPage):], fulls)

	b.Pages = append(b.Pages, index)
	for i := len(numbered) - 1; i >= 0; i-- {
		b.Pages = append(b.Pages, numbered[i])
	}

	for i := len(posts) - 1; i >= 0; i-- {
		b.Posts = append(b.Posts, fulls[posts[i].Key])
	}
	for i, f := range b.Posts {
		if i > 0 {
			f.Newer = b.Posts[i-1]
		}
		if i < len(b.Posts)-1 {
			f.Older = b.Posts[i+1]
		}
	}
	return b
}

// fill adds posts, given in ascending order, newest first.
func fill(page *Page, posts []*Post, fulls map[string]*FullPost) {
	for i := len(posts) - 1; i >= 0; i-- {
		p := posts[i]
		page.Shorts = append(page.Shorts, &ShortPost{Post: p, Full: fulls[p.Key], ReadMore: p.Short != nil})
	}
}

// Tree is the set of blogs generated for a site.
type Tree struct {
	Blogs []*Blog
	byCat map[string]*Blog
}

// BuildTree lays out the blogs of a site: one per category matching the site's
// single-category filter, plus the mixed blog when the mixed filter is not empty.
func BuildTree(src *SourceTree, site *Site, perPage int) (*Tree, error) {
	t := &Tree{byCat: make(map[string]*Blog)}
	if !site.GenSingle.Empty() {
		for _, sb := range src.Blogs() {
			if site.GenSingle.Matches(sb.Category) {
				t.add(BuildBlog(sb, perPage))
			}
		}
	}
	if !site.GenMixed.Empty() {
		mixed, err := src.MixedBlog(site.MixedCat, site.GenMixed)
		if err != nil {
			return nil, err
		}
		t.add(BuildBlog(mixed, perPage))
	}
	return t, nil
}

func (t *Tree) add(b *Blog) {
	if _, ok := t.byCat[b.Category]; ok {
		for i, existing := range t.Blogs {
			if existing.Category == b.Category {
				t.Blogs[i] = b
			}
		}
	} else {
		t.Blogs = append(t.Blogs, b)
	}
	t.byCat[b.Category] = b
}

// Blog returns the blog generated for category, or nil.
func (t *Tree) Blog(category string) *Blog {
	return t.byCat[category]
}
