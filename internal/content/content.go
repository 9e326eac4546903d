// Package content holds document fragments that are finalized lazily, once per
// output page.
package content

import (
	"context"
	"strings"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/izupress/internal/dom"
)

// Finalizer binds content to one output context.
type Finalizer interface {
	// ContextKey identifies the output page, usually its destination path.
	ContextKey() string
	// Finalize returns a rewritten copy of source. It must not modify source.
	Finalize(ctx context.Context, source *html.Node) (*html.Node, error)
}

// Content wraps a normalized fragment. The fragment is shared between every page
// that shows it; finalization works on a copy.
type Content struct {
	source *html.Node

	mu        sync.Mutex
	key       string
	finalized *html.Node
}

// New wraps source. A nil source yields nil so optional fragments stay optional.
func New(source *html.Node) *Content {
	if source == nil {
		return nil
	}
	return &Content{source: source}
}

// Source returns the shared, un-finalized fragment.
func (c *Content) Source() *html.Node {
	return c.source
}

// Finalize returns the fragment finalized for f's context. Calling it again with the
// same context key returns the cached tree; a different key finalizes again.
func (c *Content) Finalize(ctx context.Context, f Finalizer) (*html.Node, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := f.ContextKey()
	if c.finalized != nil && c.key == key {
		return c.finalized, nil
	}
	out, err := f.Finalize(ctx, c.source)
	if err != nil {
		c.finalized = nil
		c.key = ""
		return nil, err
	}
	c.finalized = out
	c.key = key
	return out, nil
}

// Finalized returns the last finalized tree and its context key.
func (c *Content) Finalized() (*html.Node, string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.finalized, c.key, c.finalized != nil
}

// HTML renders the finalized fragment without its container, or "" before
// finalization.
func (c *Content) HTML() string {
	n, _, ok := c.Finalized()
	if !ok {
		return ""
	}
	return dom.InnerHTML(n)
}

// FirstImageSrc returns the src of the first <img> with a non-empty src in the
// finalized fragment.
func (c *Content) FirstImageSrc() string {
	n, _, ok := c.Finalized()
	if !ok {
		return ""
	}
	return FirstImageSrc(n)
}

// Description returns the text of the first non-empty paragraph of the finalized
// fragment.
func (c *Content) Description() string {
	n, _, ok := c.Finalized()
	if !ok {
		return ""
	}
	return Description(n)
}

// FirstImageSrc returns the src of the first <img> below root with a non-empty src.
func FirstImageSrc(root *html.Node) string {
	if root == nil {
		return ""
	}
	var src string
	goquery.NewDocumentFromNode(root).Find("img[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		src = strings.TrimSpace(s.AttrOr("src", ""))
		return src == ""
	})
	return src
}

// Description returns the whitespace-trimmed text of the first paragraph below root
// that has any text.
func Description(root *html.Node) string {
	if root == nil {
		return ""
	}
	var desc string
	goquery.NewDocumentFromNode(root).Find("p").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if len(s.Nodes) == 0 || !dom.HasChildNodes(s.Nodes[0]) {
			return true
		}
		desc = dom.Text(s.Nodes[0])
		return desc == ""
	})
	return desc
}
