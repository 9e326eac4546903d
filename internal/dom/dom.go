// Package dom holds the small set of golang.org/x/net/html tree helpers shared by
// the normalizer, the section parser and the content transformer.
package dom

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
	"golang.org/x/net/html/charset"
)

// Parse reads an HTML document, detecting its encoding from a BOM or meta tag.
func Parse(r io.Reader) (*html.Node, error) {
	utf8Reader, err := charset.NewReader(r, "text/html")
	if err != nil {
		return nil, fmt.Errorf("detect charset: %w", err)
	}
	doc, err := html.Parse(utf8Reader)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return doc, nil
}

// ParseBytes is Parse over an in-memory document.
func ParseBytes(data []byte) (*html.Node, error) {
	return Parse(bytes.NewReader(data))
}

// ParseBody parses markup as the content of a fresh <body> element and returns
// that element.
func ParseBody(markup string) (*html.Node, error) {
	body := &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
	nodes, err := html.ParseFragment(strings.NewReader(markup), body)
	if err != nil {
		return nil, fmt.Errorf("parse fragment: %w", err)
	}
	for _, n := range nodes {
		body.AppendChild(n)
	}
	return body, nil
}

// Body returns the first <body> element of doc, or nil.
func Body(doc *html.Node) *html.Node {
	return First(doc, "body")
}

// IsElement reports whether n is an element with the given tag name.
func IsElement(n *html.Node, tag string) bool {
	return n != nil && n.Type == html.ElementNode && n.Data == tag
}

// First returns the first element named tag in document order, root included.
func First(root *html.Node, tag string) *html.Node {
	var found *html.Node
	Walk(root, func(n *html.Node) bool {
		if found != nil {
			return false
		}
		if IsElement(n, tag) {
			found = n
			return false
		}
		return true
	})
	return found
}

// ElementsByTag returns every element named tag in document order, root included.
func ElementsByTag(root *html.Node, tag string) []*html.Node {
	return Elements(root, func(n *html.Node) bool { return n.Data == tag })
}

// Elements returns the elements below and including root that satisfy keep.
func Elements(root *html.Node, keep func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	Walk(root, func(n *html.Node) bool {
		if n.Type == html.ElementNode && keep(n) {
			out = append(out, n)
		}
		return true
	})
	return out
}

// Walk visits root and its descendants depth first. Returning false from fn
// skips the children of the current node.
func Walk(root *html.Node, fn func(*html.Node) bool) {
	if root == nil {
		return
	}
	if !fn(root) {
		return
	}
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		Walk(c, fn)
		c = next
	}
}

// Select returns the descendants of root matching a CSS selector.
func Select(root *html.Node, selector string) []*html.Node {
	return goquery.NewDocumentFromNode(root).Find(selector).Nodes
}

// Children returns the element children of n.
func Children(n *html.Node) []*html.Node {
	var out []*html.Node
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, c)
		}
	}
	return out
}

// HasChildNodes reports whether n has any child node, text included.
func HasChildNodes(n *html.Node) bool {
	return n.FirstChild != nil
}

// PrevElementSibling returns the closest preceding element sibling.
func PrevElementSibling(n *html.Node) *html.Node {
	for s := n.PrevSibling; s != nil; s = s.PrevSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// NextElementSibling returns the closest following element sibling.
func NextElementSibling(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}

// LastElementChild returns the last element child of n.
func LastElementChild(n *html.Node) *html.Node {
	for c := n.LastChild; c != nil; c = c.PrevSibling {
		if c.Type == html.ElementNode {
			return c
		}
	}
	return nil
}

// NewElement creates a detached element. attrs are key, value pairs.
func NewElement(tag string, attrs ...string) *html.Node {
	n := &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
	for i := 0; i+1 < len(attrs); i += 2 {
		n.Attr = append(n.Attr, html.Attribute{Key: attrs[i], Val: attrs[i+1]})
	}
	return n
}

// NewText creates a detached text node.
func NewText(text string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: text}
}

// NewContainer returns an empty <div> used to hold a slice of top-level nodes.
func NewContainer() *html.Node {
	return NewElement("div")
}

// Clone deep-copies n. The copy is detached.
func Clone(n *html.Node) *html.Node {
	if n == nil {
		return nil
	}
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
	}
	if len(n.Attr) > 0 {
		c.Attr = make([]html.Attribute, len(n.Attr))
		copy(c.Attr, n.Attr)
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		c.AppendChild(Clone(child))
	}
	return c
}

// Remove detaches n from its parent.
func Remove(n *html.Node) {
	if n != nil && n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

// ReplaceWith puts replacement where old is and detaches old.
func ReplaceWith(old, replacement *html.Node) {
	if old.Parent == nil {
		return
	}
	Remove(replacement)
	old.Parent.InsertBefore(replacement, old)
	old.Parent.RemoveChild(old)
}

// Wrap moves n into wrapper and puts wrapper where n was.
func Wrap(n, wrapper *html.Node) {
	if n.Parent == nil {
		wrapper.AppendChild(n)
		return
	}
	n.Parent.InsertBefore(wrapper, n)
	n.Parent.RemoveChild(n)
	wrapper.AppendChild(n)
}

// MoveTo detaches n and appends it to parent.
func MoveTo(n, parent *html.Node) {
	Remove(n)
	parent.AppendChild(n)
}
