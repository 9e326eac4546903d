package dom

import (
	"strings"

	"golang.org/x/net/html"
)

// Text returns the whitespace-normalized text of n and all its descendants.
// Block boundaries and <br> count as whitespace.
func Text(n *html.Node) string {
	var b strings.Builder
	appendText(&b, n)
	return strings.Join(strings.Fields(b.String()), " ")
}

func appendText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "br" {
			b.WriteByte(' ')
			return
		}
		if isBlock(n.Data) {
			b.WriteByte(' ')
			defer b.WriteByte(' ')
		}
	case html.CommentNode:
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		appendText(b, c)
	}
}

// OwnText returns the normalized text of n's direct text children only.
func OwnText(n *html.Node) string {
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// Texts returns Text of every element child of n, in order.
func Texts(n *html.Node) []string {
	var out []string
	for _, c := range Children(n) {
		out = append(out, Text(c))
	}
	return out
}

// ElementsContainingOwnText returns elements whose direct text contains needle.
func ElementsContainingOwnText(root *html.Node, needle string) []*html.Node {
	return Elements(root, func(n *html.Node) bool {
		return strings.Contains(OwnText(n), needle)
	})
}
