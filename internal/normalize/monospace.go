package normalize

import (
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/izupress/internal/dom"
	"git.home.luguber.info/inful/izupress/internal/style"
)

const (
	monospaceFont = "Consolas"
	consoleClass  = "console"
	nbsp          = "\u00a0"
)

// cleanupMonospaceBlocks tags code lines. Authors paste code as one paragraph
// plus span per line in a Consolas font, usually inside a single-cell table.
// Paragraphs holding such a span get the "console" class. In a table cell with at
// least one such span every paragraph is tagged, loses its fixed height, and an
// empty one receives a non-breaking space in the captured font so blank code lines
// keep their height.
func cleanupMonospaceBlocks(root *html.Node) {
	for _, span := range dom.Select(root, "p > span") {
		if strings.Contains(dom.Attr(span, "style"), monospaceFont) {
			addConsoleClass(span.Parent)
		}
	}

	cells := make(map[*html.Node]bool)
	for _, span := range dom.Select(root, "tr > td > p > span") {
		td := span.Parent.Parent
		if cells[td] {
			continue
		}
		cells[td] = true

		consoleStyle, ok := findMonospaceStyle(td)
		if !ok {
			continue
		}
		for _, p := range dom.ElementsByTag(td, "p") {
			s := style.Parse(dom.Attr(p, "style"))
			if s.Has("height") {
				s.Remove("height")
				applyStyle(p, s)
			}
			addConsoleClass(p)
			if !dom.HasChildNodes(p) {
				filler := dom.NewElement("span", "style", consoleStyle)
				filler.AppendChild(dom.NewText(nbsp))
				p.AppendChild(filler)
			}
		}
	}
}

func findMonospaceStyle(td *html.Node) (string, bool) {
	for _, span := range dom.Select(td, "p > span") {
		if s := dom.Attr(span, "style"); strings.Contains(s, monospaceFont) {
			return s, true
		}
	}
	return "", false
}

func addConsoleClass(p *html.Node) {
	if !dom.IsElement(p, "p") {
		return
	}
	class := dom.Attr(p, "class")
	if strings.Contains(class, consoleClass) {
		return
	}
	dom.SetAttr(p, "class", strings.TrimSpace(consoleClass+" "+class))
}
