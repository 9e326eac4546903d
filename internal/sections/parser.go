// Package sections splits a normalized blog document into its header and its
// dated sections.
//
// The parser is a single forward pass over the element children of <body>:
//
//	seeking  until an element carries [izu:blog]; its [izu:cat:] value is required
//	header   until [izu:header:end] or the first [s:] opener
//	body     one section per [s:] opener, [izu:break] splits short from full
//
// [izu:blog:end] stops the scan in any state. Everything before [izu:blog] and after
// [izu:blog:end] is ignored.
package sections

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/izupress/internal/dom"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/logfields"
	"git.home.luguber.info/inful/izupress/internal/markers"
	"git.home.luguber.info/inful/izupress/internal/normalize"
)

// ParsedSection is one dated post carved out of a document.
type ParsedSection struct {
	Date  time.Time
	Title string
	// Category is the blog category, or the post's own [izu:cat:] override.
	Category string
	Key      string
	// Short holds the elements up to and including the break marker. It is nil
	// when the section has no break.
	Short *html.Node
	// Full holds every element of the section except its title line. Never empty.
	Full *html.Node
	// Tags are the izu tags found in the title line and the content.
	Tags []string
}

// Result is a parsed blog document.
type Result struct {
	Category string
	// Tags are the tags of the start line and of the pure-marker lines right after it.
	Tags []string
	// Header holds the start line up to [izu:header:end], or up to the line before
	// the first section.
	Header   *html.Node
	Sections []ParsedSection
}

// Title returns the [izu:blog-title:] value, or "".
func (r *Result) Title() string {
	return markers.Value(r.Tags, markers.BlogTitle)
}

// Parser turns normalized documents into a Result.
type Parser struct {
	normalizer *normalize.Normalizer
	logger     *slog.Logger
}

// Option configures a Parser.
type Option func(*Parser)

// WithLogger sets the parser logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Parser) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithNormalizer replaces the default normalizer used by ParseDocument.
func WithNormalizer(n *normalize.Normalizer) Option {
	return func(p *Parser) {
		if n != nil {
			p.normalizer = n
		}
	}
}

// NewParser returns a Parser.
func NewParser(opts ...Option) *Parser {
	p := &Parser{logger: slog.Default()}
	for _, opt := range opts {
		opt(p)
	}
	if p.normalizer == nil {
		p.normalizer = normalize.New(normalize.WithLogger(p.logger))
	}
	return p
}

// ParseDocument normalizes raw exported bytes and parses the result.
func (p *Parser) ParseDocument(content []byte) (*Result, error) {
	body, err := p.normalizer.Normalize(bytes.NewReader(content))
	if err != nil {
		return nil, err
	}
	return p.Parse(body)
}

type parseState int

const (
	stateSeeking parseState = iota
	stateHeader
	stateBody
)

type openSection struct {
	tag      markers.SectionTag
	content  []*html.Node
	tags     []string
	breakAt  int
	titleRef string
}

// Parse walks the element children of body. body is not modified.
func (p *Parser) Parse(body *html.Node) (*Result, error) {
	res := &Result{}
	state := stateSeeking
	collectHeaderTags := true
	var header []*html.Node
	var current *openSection
	seen := make(map[string]string)

	finish := func() error {
		if current == nil {
			return nil
		}
		section, err := p.finalize(res.Category, current)
		current = nil
		if err != nil {
			return err
		}
		id := section.Category + "/" + section.Key
		if prev, ok := seen[id]; ok {
			return ferrors.DuplicateKeyError(fmt.Sprintf("duplicate post key %q in category %q", section.Key, section.Category)).
				WithContext("first", prev).
				WithContext("second", section.Title).
				Build()
		}
		seen[id] = section.Title
		res.Sections = append(res.Sections, section)
		return nil
	}

scan:
	for _, el := range dom.Children(body) {
		text := dom.Text(el)
		tags := markers.Tags(text)

		if state == stateSeeking {
			if !markers.Contains(tags, markers.Blog) {
				continue
			}
			res.Category = markers.Value(tags, markers.Category)
			if res.Category == "" {
				return nil, ferrors.MarkerSyntaxError("blog start marker has no category").
					WithContext("line", text).
					Build()
			}
			res.Tags = append(res.Tags, tags...)
			header = append(header, el)
			state = stateHeader
			if markers.Contains(tags, markers.BlogEnd) {
				break scan
			}
			if markers.Contains(tags, markers.HeaderEnd) {
				state = stateBody
			}
			continue
		}

		sectionTag, isSection := markers.FindSection(text)

		if state == stateHeader && !isSection {
			if markers.Contains(tags, markers.Break) {
				return nil, ferrors.MarkerSyntaxError("break marker outside of a section").
					WithContext("line", text).
					Build()
			}
			header = append(header, el)
			if collectHeaderTags && markers.OnlyMarkers(text) {
				res.Tags = append(res.Tags, tags...)
			} else {
				collectHeaderTags = false
			}
			if markers.Contains(tags, markers.BlogEnd) {
				break scan
			}
			if markers.Contains(tags, markers.HeaderEnd) {
				state = stateBody
			}
			continue
		}
		state = stateBody

		if isSection {
			if err := finish(); err != nil {
				return nil, err
			}
			current = &openSection{tag: sectionTag, tags: tags, breakAt: -1, titleRef: text}
			if markers.Contains(tags, markers.BlogEnd) {
				break scan
			}
			continue
		}

		if current == nil {
			if markers.Contains(tags, markers.Break) {
				return nil, ferrors.MarkerSyntaxError("break marker outside of a section").
					WithContext("line", text).
					Build()
			}
			if markers.Contains(tags, markers.BlogEnd) {
				break scan
			}
			continue
		}

		current.content = append(current.content, el)
		current.tags = append(current.tags, tags...)
		if current.breakAt < 0 && markers.Contains(tags, markers.Break) {
			current.breakAt = len(current.content) - 1
		}
		if markers.Contains(tags, markers.BlogEnd) {
			break scan
		}
	}

	if state == stateSeeking {
		return nil, ferrors.MarkerSyntaxError("document has no blog start marker").Build()
	}
	if err := finish(); err != nil {
		return nil, err
	}
	res.Header = cloneAll(header)

	p.logger.Debug("Parsed blog document",
		logfields.Category(res.Category),
		slog.Int("sections", len(res.Sections)),
		slog.Int("header_tags", len(res.Tags)))
	return res, nil
}

func (p *Parser) finalize(blogCategory string, s *openSection) (ParsedSection, error) {
	datePart, titlePart, hasTitle := strings.Cut(s.tag.Value, ":")
	date, err := ParseDate(datePart)
	if err != nil {
		return ParsedSection{}, err
	}

	title := strings.TrimSpace(titlePart)
	if !hasTitle || title == "" {
		title = strings.TrimSpace(markers.Strip(s.tag.After))
	}
	if title == "" {
		return ParsedSection{}, ferrors.MarkerSyntaxError("section has no title").
			WithContext("line", s.titleRef).
			Build()
	}
	if len(s.content) == 0 {
		return ParsedSection{}, ferrors.MarkerSyntaxError("section has no content").
			WithContext("line", s.titleRef).
			Build()
	}

	category := blogCategory
	if markers.HasPrefix(s.tags, markers.Category) {
		category = markers.Value(s.tags, markers.Category)
		if category == "" {
			return ParsedSection{}, ferrors.MarkerSyntaxError("empty category marker in section").
				WithContext("line", s.titleRef).
				Build()
		}
	}

	section := ParsedSection{
		Date:     date,
		Title:    title,
		Category: category,
		Key:      PostKey(date, title),
		Full:     cloneAll(s.content),
		Tags:     s.tags,
	}
	if s.breakAt >= 0 {
		section.Short = cloneAll(s.content[:s.breakAt+1])
	}
	return section, nil
}

func cloneAll(nodes []*html.Node) *html.Node {
	container := dom.NewContainer()
	for _, n := range nodes {
		container.AppendChild(dom.Clone(n))
	}
	return container
}
