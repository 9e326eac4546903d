// Package normalize canonicalizes the noisy HTML produced by the document
// service's exporter into a compact tree the section parser can walk.
//
// The passes run in a fixed order and each one tolerates the output of the
// earlier ones: sanitize, remove empty elements, rewrite bullet lists, clean line
// styles, tag monospace blocks, and finally diff inline styles against a baseline.
// Markers are left untouched; link rewriting and marker stripping happen later,
// once the destination of the content is known.
package normalize

import (
	"bytes"
	"io"
	"log/slog"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"

	"git.home.luguber.info/inful/izupress/internal/dom"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/style"
)

// DefaultBaseline lists the declarations treated as inherited by every element,
// on top of the first paragraph's own style.
var DefaultBaseline = []string{
	"height:11pt",
	`font-family:"Arial"`,
	"font-size:11pt",
	"font-style:normal",
	"font-weight:400",
	"color:#000000",
	"text-decoration:none",
	"vertical-align:baseline",
	"text-align:justify",
}

// Normalizer runs the cleanup passes. It is safe for concurrent use; each call
// works on its own tree.
type Normalizer struct {
	policy   *bluemonday.Policy
	baseline []string
	logger   *slog.Logger
}

// Option configures a Normalizer.
type Option func(*Normalizer)

// WithLogger sets the logger used for pass timings.
func WithLogger(l *slog.Logger) Option {
	return func(n *Normalizer) {
		if l != nil {
			n.logger = l
		}
	}
}

// WithBaseline replaces DefaultBaseline.
func WithBaseline(decls []string) Option {
	return func(n *Normalizer) { n.baseline = decls }
}

// New returns a Normalizer with the exporter's sanitize policy.
func New(opts ...Option) *Normalizer {
	n := &Normalizer{
		policy:   newPolicy(),
		baseline: DefaultBaseline,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// NormalizeBytes is Normalize over an in-memory export.
func (n *Normalizer) NormalizeBytes(content []byte) (*html.Node, error) {
	return n.Normalize(bytes.NewReader(content))
}

// Normalize parses an exported document and returns its cleaned <body> element.
// The returned tree is owned by the caller.
func (n *Normalizer) Normalize(r io.Reader) (*html.Node, error) {
	start := time.Now()
	doc, err := dom.Parse(r)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "unreadable document").Build()
	}

	body, err := n.sanitize(doc)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryInternal, "sanitized markup did not parse").Build()
	}

	removeEmptyElements(body, "a")
	removeEmptyElements(body, "span")
	rewriteBulletLists(body)
	cleanupLineStyle(body)
	cleanupMonospaceBlocks(body)
	cleanupInlineStyle(body, n.baseline)

	n.logger.Debug("Normalized document", slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	return body, nil
}

// sanitize keeps the body only and filters it through the allow-list.
func (n *Normalizer) sanitize(doc *html.Node) (*html.Node, error) {
	root := dom.Body(doc)
	if root == nil {
		root = doc
	}
	var buf bytes.Buffer
	for c := root.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, err
		}
	}
	return dom.ParseBody(n.policy.Sanitize(buf.String()))
}

// newPolicy mirrors a "relaxed" allow-list and re-admits what the exporter relies
// on: <hr>, <style>, id and style attributes everywhere, and #anchor links.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.NewPolicy()
	p.RequireParseableURLs(true)
	p.AllowRelativeURLs(true)
	p.AllowURLSchemes("http", "https", "mailto", "ftp")

	p.AllowElements(
		"a", "b", "blockquote", "br", "caption", "cite", "code", "col", "colgroup",
		"dd", "div", "dl", "dt", "em", "h1", "h2", "h3", "h4", "h5", "h6", "i", "img",
		"li", "ol", "p", "pre", "q", "small", "span", "strike", "strong", "sub", "sup",
		"table", "tbody", "td", "tfoot", "th", "thead", "tr", "u", "ul",
		"hr", "style",
	)
	p.AllowUnsafe(true)

	p.AllowAttrs("href", "title").OnElements("a")
	p.AllowAttrs("align", "alt", "height", "src", "title", "width").OnElements("img")
	p.AllowAttrs("summary", "width").OnElements("table")
	p.AllowAttrs("abbr", "axis", "colspan", "rowspan", "width").OnElements("td", "th")
	p.AllowAttrs("span", "width").OnElements("col", "colgroup")
	p.AllowAttrs("start", "type").OnElements("ol")
	p.AllowAttrs("type").OnElements("ul")
	p.AllowAttrs("cite").OnElements("blockquote", "q")
	p.AllowAttrs("id", "style").Globally()
	return p
}

// removeEmptyElements drops elements named tag that have no child node at all.
func removeEmptyElements(root *html.Node, tag string) {
	for _, el := range dom.ElementsByTag(root, tag) {
		if !dom.HasChildNodes(el) {
			dom.Remove(el)
		}
	}
}

// applyStyle writes s back to n, removing the attribute when s is empty.
func applyStyle(n *html.Node, s *style.Set) {
	if v := s.String(); v != "" {
		dom.SetAttr(n, "style", v)
		return
	}
	dom.RemoveAttr(n, "style")
}

// cleanupLineStyle drops paragraph padding, which the exporter repeats on every line.
func cleanupLineStyle(root *html.Node) {
	for _, p := range dom.ElementsByTag(root, "p") {
		if !dom.HasAttr(p, "style") {
			continue
		}
		s := style.Parse(dom.Attr(p, "style"))
		s.Remove("padding-bottom", "padding-left", "padding-right", "padding-top", "padding")
		applyStyle(p, s)
	}
}

// cleanupInlineStyle keeps on each element only the declarations that differ from
// its effective ancestor style. The baseline is the first paragraph's style plus
// the exporter defaults.
func cleanupInlineStyle(root *html.Node, defaults []string) {
	baseline := style.New()
	if p := dom.First(root, "p"); p != nil {
		baseline = style.Parse(dom.Attr(p, "style"))
	}
	for _, decl := range defaults {
		baseline.Add(decl)
	}
	cleanupInlineStyleRecursive(root, baseline)
}

func cleanupInlineStyleRecursive(parent *html.Node, inherited *style.Set) {
	for c := parent.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode {
			continue
		}
		if !dom.HasAttr(c, "style") {
			cleanupInlineStyleRecursive(c, inherited)
			continue
		}
		merged, residual, changed := inherited.Diff(dom.Attr(c, "style"))
		if !changed {
			dom.RemoveAttr(c, "style")
			cleanupInlineStyleRecursive(c, inherited)
			continue
		}
		dom.SetAttr(c, "style", residual)
		cleanupInlineStyleRecursive(c, merged)
	}
}
