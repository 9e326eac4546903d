package transform

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/izupress/internal/dom"
	"git.home.luguber.info/inful/izupress/internal/markers"
)

// embedFlag marks a video link the author wants embedded.
const embedFlag = "rig4embed"

// expandVideoEmbeds replaces flagged YouTube watch and playlist links with an
// iframe player. width, height and frameborder come from the link query.
func expandVideoEmbeds(root *html.Node) {
	for _, a := range dom.ElementsByTag(root, "a") {
		href := dom.Attr(a, "href")
		if !strings.Contains(href, embedFlag) {
			continue
		}
		u, err := url.Parse(href)
		if err != nil || u.Host != "www.youtube.com" {
			continue
		}
		q := u.Query()

		var src string
		switch u.Path {
		case "/watch":
			src = "https://www.youtube.com/embed/" + q.Get("v")
		case "/playlist":
			src = "https://www.youtube.com/embed/videoseries?list=" + q.Get("list")
		default:
			continue
		}

		iframe := dom.NewElement("iframe",
			"width", valueOr(q.Get("width"), "560"),
			"height", valueOr(q.Get("height"), "315"),
			"src", src,
			"frameborder", valueOr(q.Get("frameborder"), "0"),
			"allowfullscreen", "",
		)
		dom.ReplaceWith(a, iframe)
	}
}

func valueOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

// previousElement steps backward in document order: the deepest last descendant of
// the previous element sibling, or the parent when there is none.
func previousElement(n *html.Node) *html.Node {
	sibling := dom.PrevElementSibling(n)
	if sibling == nil {
		if n.Parent != nil && n.Parent.Type == html.ElementNode {
			return n.Parent
		}
		return nil
	}
	for {
		last := dom.LastElementChild(sibling)
		if last == nil {
			return sibling
		}
		sibling = last
	}
}

// linkifyImages wraps the image preceding each [izu:link-img:] marker in a link. The
// marker value is the target; without one the link before the image provides both
// the target and the image alt/title text.
func linkifyImages(root *html.Node) {
	visited := make(map[*html.Node]bool)

next:
	for _, el := range dom.ElementsContainingOwnText(root, "["+markers.LinkImg) {
		visited[el] = true

		var text, href string
		whole := strings.TrimSpace(dom.Text(el))
		if tags := markers.Tags(whole); len(tags) == 1 && whole == "["+tags[0]+"]" {
			href = strings.TrimSpace(strings.TrimPrefix(tags[0], markers.LinkImg))
		}

		img := previousElement(el)
		for img != nil {
			if visited[img] {
				continue next
			}
			if img.Data == "img" {
				break
			}
			img = previousElement(img)
		}
		if img == nil {
			continue
		}

		if href == "" {
			link := previousElement(img)
			for link != nil && link.Data != "a" {
				link = previousElement(link)
			}
			if link == nil {
				continue
			}
			text = dom.Text(link)
			href = dom.Attr(link, "href")
			if text == "" || href == "" {
				continue
			}
			visited[link] = true
		}
		visited[img] = true

		dom.Wrap(img, dom.NewElement("a", "href", href))
		if text != "" {
			dom.SetAttr(img, "alt", text)
			dom.SetAttr(img, "title", text)
		}
	}
}

// removeComments drops [!-- ... --] ranges. The element whose own text opens the
// range is removed with everything after it up to and including the element whose
// text closes it.
func removeComments(root *html.Node) {
	removing := false
	dom.Walk(root, func(n *html.Node) bool {
		if n == root {
			return true
		}
		if n.Type == html.ElementNode {
			sub := dom.Text(n)
			if removing {
				if strings.Contains(sub, markers.CommentClose) {
					removing = false
					dom.Remove(n)
					return false
				}
			} else if strings.Contains(dom.OwnText(n), markers.CommentOpen) {
				removing = !strings.Contains(sub, markers.CommentClose)
				dom.Remove(n)
				return false
			}
		}
		if removing {
			dom.Remove(n)
			return false
		}
		return true
	})
}

// stripMarkers removes leftover markers from every text node.
func stripMarkers(root *html.Node) {
	dom.Walk(root, func(n *html.Node) bool {
		if n.Type == html.TextNode && strings.Contains(n.Data, "[") {
			n.Data = markers.Strip(n.Data)
		}
		return true
	})
}
