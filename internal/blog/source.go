package blog

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"git.home.luguber.info/inful/izupress/internal/content"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/markers"
	"git.home.luguber.info/inful/izupress/internal/sections"
)

// Post is one dated section after parsing.
type Post struct {
	Category string
	Date     time.Time
	Title    string
	Key      string
	// Short is nil when the section has no break.
	Short *content.Content
	Full  *content.Content
	// Description overrides the meta description of the full page when set.
	Description string
	// Redirects are the keys the post was published under before.
	Redirects []string
}

// NewPost converts a parsed section.
func NewPost(s sections.ParsedSection) *Post {
	p := &Post{
		Category:    s.Category,
		Date:        s.Date,
		Title:       s.Title,
		Key:         s.Key,
		Short:       content.New(s.Short),
		Full:        content.New(s.Full),
		Description: markers.Value(s.Tags, markers.Desc),
	}
	for _, old := range markers.Values(s.Tags, markers.OldSection) {
		if key, ok := redirectKey(old, s.Title); ok && key != p.Key {
			p.Redirects = append(p.Redirects, key)
		}
	}
	return p
}

// redirectKey parses "<date>[:<title>]". A missing title means only the date
// changed. Invalid dates are ignored.
func redirectKey(value, title string) (string, bool) {
	datePart, titlePart, _ := strings.Cut(value, ":")
	date, err := sections.ParseDate(datePart)
	if err != nil {
		return "", false
	}
	if t := strings.TrimSpace(titlePart); t != "" {
		title = t
	}
	return sections.PostKey(date, title), true
}

// ShortOrFull returns the short content, or the full content when there is none.
func (p *Post) ShortOrFull() *content.Content {
	if p.Short != nil {
		return p.Short
	}
	return p.Full
}

// SourceBlog gathers the header and posts of one category.
type SourceBlog struct {
	Category string
	Title    string
	Header   *content.Content
	posts    map[string]*Post
}

func newSourceBlog(category string) *SourceBlog {
	return &SourceBlog{Category: category, posts: make(map[string]*Post)}
}

// Add adds post. Two posts with the same key are an error.
func (b *SourceBlog) Add(p *Post) error {
	if prev, ok := b.posts[p.Key]; ok {
		return ferrors.DuplicateKeyError(fmt.Sprintf("duplicate post key %q in blog category %q", p.Key, b.Category)).
			WithContext("first", prev.Title).
			WithContext("second", p.Title).
			Build()
	}
	b.posts[p.Key] = p
	return nil
}

// Posts returns the posts sorted by ascending key, which is chronological order.
func (b *SourceBlog) Posts() []*Post {
	out := make([]*Post, 0, len(b.posts))
	for _, p := range b.posts {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of posts.
func (b *SourceBlog) Len() int {
	return len(b.posts)
}

func (b *SourceBlog) clone() *SourceBlog {
	c := newSourceBlog(b.Category)
	c.Title = b.Title
	c.Header = b.Header
	for k, p := range b.posts {
		c.posts[k] = p
	}
	return c
}

// SourceTree merges the parsed documents of a site into one blog per category.
type SourceTree struct {
	blogs   map[string]*SourceBlog
	changed bool
}

// NewSourceTree returns an empty tree.
func NewSourceTree() *SourceTree {
	return &SourceTree{blogs: make(map[string]*SourceBlog)}
}

// Changed reports whether any merged document changed since the last run.
func (t *SourceTree) Changed() bool {
	return t.changed
}

// Blog returns the blog of category, or nil.
func (t *SourceTree) Blog(category string) *SourceBlog {
	return t.blogs[category]
}

// Blogs returns the blogs sorted by category.
func (t *SourceTree) Blogs() []*SourceBlog {
	out := make([]*SourceBlog, 0, len(t.blogs))
	for _, b := range t.blogs {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Category < out[j].Category })
	return out
}

func (t *SourceTree) blog(category string) *SourceBlog {
	b, ok := t.blogs[category]
	if !ok {
		b = newSourceBlog(category)
		t.blogs[category] = b
	}
	return b
}

// Merge adds a parsed document. Documents and posts whose category the site does
// not accept are skipped. A post with its own category goes to that category's
// blog. Only one document may provide the header of a category. A document that
// fails to merge leaves the tree unchanged.
func (t *SourceTree) Merge(res *sections.Result, changed bool, site *Site) error {
	if err := CheckCategory(res.Category); err != nil {
		return err
	}
	if !site.Accepts(res.Category) {
		t.changed = t.changed || changed
		return nil
	}

	staged := make(map[string]*SourceBlog)
	stage := func(category string) *SourceBlog {
		if b, ok := staged[category]; ok {
			return b
		}
		b := newSourceBlog(category)
		if existing, ok := t.blogs[category]; ok {
			b = existing.clone()
		}
		staged[category] = b
		return b
	}

	b := stage(res.Category)
	if b.Title == "" {
		b.Title = res.Title()
	}
	if res.Header != nil {
		if b.Header != nil {
			return ferrors.DuplicateKeyError(fmt.Sprintf("duplicate blog header for category %q", res.Category)).
				WithContext("hint", "only one document may start the blog of a category; everything before "+
					"["+markers.Blog+"] is ignored").
				Build()
		}
		b.Header = content.New(res.Header)
	}

	for _, s := range res.Sections {
		post := NewPost(s)
		if err := CheckCategory(post.Category); err != nil {
			return err
		}
		if !site.Accepts(post.Category) {
			continue
		}
		if err := stage(post.Category).Add(post); err != nil {
			return err
		}
	}

	for category, sb := range staged {
		t.blogs[category] = sb
	}
	t.changed = t.changed || changed
	return nil
}

// MixedBlog builds a synthetic blog holding the posts of every blog whose category
// matches filter. An existing blog named mixedCategory provides the title, header
// and initial posts.
func (t *SourceTree) MixedBlog(mixedCategory string, filter *CatFilter) (*SourceBlog, error) {
	mixed := newSourceBlog(mixedCategory)
	if existing, ok := t.blogs[mixedCategory]; ok {
		mixed = existing.clone()
	}
	for _, b := range t.Blogs() {
		if b.Category == mixedCategory || !filter.Matches(b.Category) {
			continue
		}
		for _, p := range b.Posts() {
			if err := mixed.Add(p); err != nil {
				return nil, err
			}
		}
	}
	return mixed, nil
}
