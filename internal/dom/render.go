package dom

import (
	"strings"

	"golang.org/x/net/html"
)

var blockTags = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "body": true,
	"dd": true, "div": true, "dl": true, "dt": true, "figure": true, "footer": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "iframe": true, "li": true, "ol": true, "p": true,
	"pre": true, "section": true, "table": true, "tbody": true, "td": true,
	"tfoot": true, "th": true, "thead": true, "tr": true, "ul": true,
}

func isBlock(tag string) bool { return blockTags[tag] }

// Render returns the compact outer HTML of n.
func Render(n *html.Node) string {
	var b strings.Builder
	_ = html.Render(&b, n)
	return b.String()
}

// InnerHTML returns the children of n, indented one space per level of block
// nesting. Runs of inline content stay on one line untouched.
func InnerHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	writeChildren(&b, n, 0, false)
	return b.String()
}

// OuterHTML is InnerHTML including n itself.
func OuterHTML(n *html.Node) string {
	if n == nil {
		return ""
	}
	var b strings.Builder
	writeNode(&b, n, 0)
	return b.String()
}

func hasBlockChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && isBlock(c.Data) {
			return true
		}
	}
	return false
}

func writeChildren(b *strings.Builder, n *html.Node, depth int, leadingBreak bool) {
	if n.Data == "pre" || !hasBlockChild(n) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			_ = html.Render(b, c)
		}
		return
	}
	first := !leadingBreak
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode && strings.TrimSpace(c.Data) == "" {
			continue
		}
		if !first {
			b.WriteByte('\n')
		}
		first = false
		b.WriteString(strings.Repeat(" ", depth))
		if c.Type == html.TextNode {
			b.WriteString(html.EscapeString(strings.TrimSpace(c.Data)))
			continue
		}
		writeNode(b, c, depth)
	}
}

func writeNode(b *strings.Builder, n *html.Node, depth int) {
	if n.Type != html.ElementNode || n.Data == "pre" || !hasBlockChild(n) {
		_ = html.Render(b, n)
		return
	}
	b.WriteByte('<')
	b.WriteString(n.Data)
	for _, a := range n.Attr {
		b.WriteByte(' ')
		b.WriteString(a.Key)
		b.WriteString(`="`)
		b.WriteString(html.EscapeString(a.Val))
		b.WriteByte('"')
	}
	b.WriteByte('>')
	writeChildren(b, n, depth+1, true)
	b.WriteByte('\n')
	b.WriteString(strings.Repeat(" ", depth))
	b.WriteString("</")
	b.WriteString(n.Data)
	b.WriteByte('>')
}
