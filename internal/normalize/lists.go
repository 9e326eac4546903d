package normalize

import (
	"sort"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/izupress/internal/dom"
	"git.home.luguber.info/inful/izupress/internal/style"
)

// rewriteBulletLists merges runs of sibling <ul> elements that hold only <li>
// children into the first list of the run, then rebuilds nesting from each
// item's margin-left.
//
// Margins are relative: the first item sets the base level, a larger margin opens
// a nested list and a smaller one returns to the list recorded for that margin
// (or the deepest recorded margin below it). After every merge the scan restarts,
// since the merge invalidates the sibling iteration; each round marks at least one
// more list visited, so the loop ends.
func rewriteBulletLists(root *html.Node) {
	visited := make(map[*html.Node]bool)
	for {
		merged := false
		for _, ul := range dom.ElementsByTag(root, "ul") {
			if visited[ul] {
				continue
			}
			visited[ul] = true

			items, absorbed := collectListRun(ul)
			if len(items) == 0 {
				continue
			}
			for _, other := range absorbed {
				visited[other] = true
				dom.Remove(other)
			}
			for _, nested := range renestItems(ul, items) {
				visited[nested] = true
			}
			merged = true
			break
		}
		if !merged {
			return
		}
	}
}

// collectListRun detaches the items of first and of every following sibling list
// that holds only <li> children. It returns the items in order and the sibling
// lists that were emptied.
func collectListRun(first *html.Node) ([]*html.Node, []*html.Node) {
	var items, absorbed []*html.Node
	for ul := first; dom.IsElement(ul, "ul"); ul = dom.NextElementSibling(ul) {
		children := dom.Children(ul)
		onlyItems := true
		for _, c := range children {
			if c.Data != "li" {
				onlyItems = false
				break
			}
		}
		if !onlyItems {
			break
		}
		items = append(items, children...)
		if ul != first {
			absorbed = append(absorbed, ul)
		}
	}
	for _, li := range items {
		dom.Remove(li)
	}
	return items, absorbed
}

// renestItems appends items back under root, opening nested lists as margins grow.
// It returns the lists it created.
func renestItems(root *html.Node, items []*html.Node) []*html.Node {
	ulStyle := style.Parse(dom.Attr(root, "style"))
	ulStyle.Remove("padding")
	applyStyle(root, ulStyle)

	// Whitespace between the old items is meaningless once they move.
	for c := root.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.TextNode {
			root.RemoveChild(c)
		}
		c = next
	}

	var created []*html.Node
	base := style.Parse(dom.Attr(items[0], "style")).IntValue("margin-left", 0)
	if base < 0 {
		base = 0
	}
	last := base
	current := root
	levels := map[int]*html.Node{base: root}

	for _, li := range items {
		s := style.Parse(dom.Attr(li, "style"))
		margin := s.IntValue("margin-left", last)
		s.Remove("margin-left", "margin-right", "margin-top", "margin-bottom", "padding")
		applyStyle(li, s)

		switch {
		case margin > last:
			nested := dom.NewElement("ul")
			if parentItem := dom.LastElementChild(current); parentItem != nil && parentItem.Data == "li" {
				parentItem.AppendChild(nested)
			} else {
				current.AppendChild(nested)
			}
			created = append(created, nested)
			current = nested
			last = margin
			levels[margin] = nested
		case margin < last:
			if margin < 0 {
				margin = 0
			}
			last = margin
			current = closestLevel(levels, margin, root)
		default:
			// An outdent to a margin between recorded levels binds it here.
			if _, ok := levels[margin]; !ok {
				levels[margin] = current
			}
		}
		current.AppendChild(li)
	}
	return created
}

// closestLevel returns the list recorded for margin, else the one recorded for the
// largest margin below it, else root.
func closestLevel(levels map[int]*html.Node, margin int, root *html.Node) *html.Node {
	if n, ok := levels[margin]; ok {
		return n
	}
	keys := make([]int, 0, len(levels))
	for k := range levels {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	found := root
	for _, k := range keys {
		if k >= margin {
			break
		}
		found = levels[k]
	}
	return found
}
