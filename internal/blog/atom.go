package blog

import (
	"context"
	"crypto/sha1" // #nosec G505 -- used to spread timestamps, not for security
	"encoding/xml"
	"time"
	"unicode/utf8"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/version"
)

// abridgedNotice ends feed entries that do not carry the whole post.
const abridgedNotice = `<p><em>(Abridged. Read the full post on the site.)</em></p>`

type atomFeed struct {
	XMLName   xml.Name    `xml:"http://www.w3.org/2005/Atom feed"`
	Title     atomText    `xml:"title"`
	Updated   string      `xml:"updated"`
	ID        string      `xml:"id"`
	Links     []atomLink  `xml:"link"`
	Generator atomGen     `xml:"generator"`
	Entries   []atomEntry `xml:"entry"`
}

type atomText struct {
	Type string `xml:"type,attr,omitempty"`
	Body string `xml:",chardata"`
}

type atomLink struct {
	Rel  string `xml:"rel,attr,omitempty"`
	Type string `xml:"type,attr,omitempty"`
	Href string `xml:"href,attr"`
}

type atomGen struct {
	Version string `xml:"version,attr,omitempty"`
	Name    string `xml:",chardata"`
}

type atomPerson struct {
	Name string `xml:"name"`
}

type atomCategory struct {
	Term  string `xml:"term,attr"`
	Label string `xml:"label,attr,omitempty"`
}

type atomContent struct {
	Type string `xml:"type,attr"`
	Lang string `xml:"xml:lang,attr,omitempty"`
	Base string `xml:"xml:base,attr,omitempty"`
	Body string `xml:",chardata"`
}

type atomEntry struct {
	Title    atomText      `xml:"title"`
	Links    []atomLink    `xml:"link"`
	ID       string        `xml:"id"`
	Updated  string        `xml:"updated"`
	Author   *atomPerson   `xml:"author,omitempty"`
	Category *atomCategory `xml:"category,omitempty"`
	Content  atomContent   `xml:"content"`
}

// entryTime places an entry on its post date with a seconds value derived from the
// content, so that entries of the same day keep distinct but stable timestamps.
func entryTime(date time.Time, body string, loc *time.Location) time.Time {
	sum := sha1.Sum([]byte(body)) // #nosec G401 -- see import
	return time.Date(date.Year(), date.Month(), date.Day(), 0, 0, int(sum[0])%60, 0, loc)
}

func (g *Generator) feed(ctx context.Context, b *Blog) error {
	dest := g.dest(b, FeedName)
	base := g.site.BaseURL + b.Dir() + "/"
	f := atomFeed{
		Title: atomText{Type: "html", Body: g.site.Title + " - " + b.Title},
		ID:    base + FeedName,
		Links: []atomLink{
			{Rel: "alternate", Type: "text/html", Href: base},
			{Rel: "self", Type: "application/atom+xml", Href: base + FeedName},
		},
		Generator: atomGen{Name: "izupress", Version: version.Version},
	}

	var updated time.Time
	for i, full := range b.Posts {
		body, err := g.feedContent(ctx, b, full, i < g.feedFull)
		if err != nil {
			return err
		}
		p := full.Post
		when := entryTime(p.Date, body, g.location)
		if when.After(updated) {
			updated = when
		}
		e := atomEntry{
			Title:    atomText{Type: "html", Body: p.Title},
			Links:    []atomLink{{Rel: "alternate", Type: "text/html", Href: base + full.Name}},
			ID:       base + full.Name,
			Updated:  when.Format(time.RFC3339),
			Category: &atomCategory{Term: p.Category, Label: Label(p.Category)},
			Content:  atomContent{Type: "html", Lang: "en", Base: base, Body: body},
		}
		if g.site.Author != "" {
			e.Author = &atomPerson{Name: g.site.Author}
		}
		f.Entries = append(f.Entries, e)
	}
	if updated.IsZero() {
		updated = time.Date(1970, 1, 1, 0, 0, 0, 0, time.UTC)
	}
	f.Updated = updated.Format(time.RFC3339)

	out, err := xml.MarshalIndent(f, "", "  ")
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryInternal, "encode feed").
			WithContext("category", b.Category).
			Build()
	}
	data := append([]byte(xml.Header), out...)
	data = append(data, '\n')
	_, err = g.writer.Write(dest, data)
	return err
}

// feedContent returns the entry body. The first entries carry the full post unless
// it is too long; the others carry the short content followed by a notice. A post
// without a break has nothing shorter to offer and is always sent whole.
func (g *Generator) feedContent(ctx context.Context, b *Blog, full *FullPost, wantFull bool) (string, error) {
	p := full.Post
	dest := g.dest(b, full.Name)
	if wantFull || p.Short == nil {
		_, body, err := g.finalize(ctx, p.Full, "full:"+dest, dest)
		if err != nil {
			return "", err
		}
		if p.Short == nil || utf8.RuneCountInString(body) <= g.feedMaxChars {
			return body, nil
		}
	}
	_, body, err := g.finalize(ctx, p.Short, "short:"+p.Key+":"+dest, dest)
	if err != nil {
		return "", err
	}
	return body + "\n" + abridgedNotice, nil
}
