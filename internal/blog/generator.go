package blog

import (
	"context"
	"html"
	"log/slog"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	xhtml "golang.org/x/net/html"

	"git.home.luguber.info/inful/izupress/internal/content"
	"git.home.luguber.info/inful/izupress/internal/dom"
	"git.home.luguber.info/inful/izupress/internal/logfields"
	"git.home.luguber.info/inful/izupress/internal/sections"
	"git.home.luguber.info/inful/izupress/internal/templater"
	"git.home.luguber.info/inful/izupress/internal/transform"
)

// relSiteLink leads from blog/<category>/ back to the site root.
const relSiteLink = "../../"

// SiteInfo carries the site-wide values of every page.
type SiteInfo struct {
	Title   string
	BaseURL string
	Banner  string
	CSS     string
	GAUid   string
	Author  string
	GenInfo string
}

// Writer writes a generated file, skipping unchanged content.
// *incremental.WriteGate implements it.
type Writer interface {
	Write(path string, content []byte) (bool, error)
}

// MediaFor returns the media fetcher of the page written at destFile.
type MediaFor func(destFile string) transform.MediaFetcher

// Generator renders blogs into an output directory.
type Generator struct {
	engine       *templater.Engine
	transformer  *transform.Transformer
	writer       Writer
	site         SiteInfo
	outDir       string
	media        MediaFor
	feedFull     int
	feedMaxChars int
	location     *time.Location
	logger       *slog.Logger
}

// GeneratorOption configures a Generator.
type GeneratorOption func(*Generator)

// WithGeneratorLogger sets the logger.
func WithGeneratorLogger(logger *slog.Logger) GeneratorOption {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithMedia sets how pages download their media. Without it media URLs are left
// unchanged.
func WithMedia(fn MediaFor) GeneratorOption {
	return func(g *Generator) { g.media = fn }
}

// WithFeedLimits sets how many feed entries carry full content and the largest
// full content, in characters, a feed entry may carry.
func WithFeedLimits(fullPosts, maxChars int) GeneratorOption {
	return func(g *Generator) {
		if fullPosts >= 0 {
			g.feedFull = fullPosts
		}
		if maxChars > 0 {
			g.feedMaxChars = maxChars
		}
	}
}

// WithLocation sets the time zone of feed timestamps. The default is time.Local.
func WithLocation(loc *time.Location) GeneratorOption {
	return func(g *Generator) {
		if loc != nil {
			g.location = loc
		}
	}
}

// NewGenerator returns a Generator writing below outDir through w.
func NewGenerator(engine *templater.Engine, tr *transform.Transformer, w Writer, site SiteInfo, outDir string, opts ...GeneratorOption) *Generator {
	g := &Generator{
		engine:       engine,
		transformer:  tr,
		writer:       w,
		site:         site,
		outDir:       outDir,
		feedFull:     10,
		feedMaxChars: 100000,
		location:     time.Local,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate writes every blog of tree. It stops at the first blog that fails.
func (g *Generator) Generate(ctx context.Context, tree *Tree, site *Site) error {
	for _, b := range tree.Blogs {
		if err := g.GenerateBlog(ctx, tree, b, site); err != nil {
			return err
		}
	}
	return nil
}

// GenerateBlog writes the listing pages, full post pages, redirect pages and feed
// of b.
func (g *Generator) GenerateBlog(ctx context.Context, tree *Tree, b *Blog, site *Site) error {
	start := time.Now()
	for i := range b.Pages {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.listingPage(ctx, tree, b, i, site); err != nil {
			return err
		}
	}
	for _, full := range b.Posts {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := g.fullPage(ctx, tree, b, full, site); err != nil {
			return err
		}
		if err := g.redirects(b, full); err != nil {
			return err
		}
	}
	if err := g.feed(ctx, b); err != nil {
		return err
	}
	g.logger.Info("Generated blog",
		logfields.Category(b.Category),
		slog.Int("pages", len(b.Pages)),
		slog.Int("posts", len(b.Posts)),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return nil
}

func (g *Generator) dest(b *Blog, name string) string {
	return filepath.Join(g.outDir, filepath.FromSlash(b.Dir()), name)
}

func (g *Generator) pageURL(b *Blog, name string) string {
	return g.site.BaseURL + b.Dir() + "/" + name
}

// finalize binds c to the page at dest and returns the tree and its markup.
func (g *Generator) finalize(ctx context.Context, c *content.Content, key, dest string) (*xhtml.Node, string, error) {
	if c == nil {
		return nil, "", nil
	}
	var media transform.MediaFetcher
	if g.media != nil {
		media = g.media(dest)
	}
	n, err := c.Finalize(ctx, g.transformer.Bind(key, media))
	if err != nil {
		return nil, "", err
	}
	return n, dom.InnerHTML(n), nil
}

func (g *Generator) base(b *Blog, site *Site, pageTitle, pageName, description string) templater.Base {
	banner := g.site.Banner
	if site != nil && site.BannerExclude.Matches(b.Category) {
		banner = ""
	}
	return templater.Base{
		SiteTitle:     html.EscapeString(g.site.Title),
		AbsSiteLink:   g.site.BaseURL,
		RelSiteLink:   relSiteLink,
		FwdPageLink:   b.Dir() + "/",
		RelBannerLink: banner,
		CSS:           g.site.CSS,
		GAUid:         g.site.GAUid,
		PageTitle:     html.EscapeString(pageTitle),
		RelPageLink:   pageName,
		Description:   html.EscapeString(description),
		GenInfo:       html.EscapeString(g.site.GenInfo),
	}
}

// catLink returns the link from a blog page to the blog of category, or "" when
// that category has no blog of its own.
func catLink(tree *Tree, category string) string {
	if tree == nil || tree.Blog(category) == nil {
		return ""
	}
	return "../" + url.PathEscape(category) + "/"
}

func (g *Generator) listingPage(ctx context.Context, tree *Tree, b *Blog, i int, site *Site) error {
	page := b.Pages[i]
	dest := g.dest(b, page.Name)

	header, headerHTML, err := g.finalize(ctx, b.Header, "header:"+dest, dest)
	if err != nil {
		return err
	}
	var image, description string
	if header != nil {
		image = content.FirstImageSrc(header)
	}

	var posts strings.Builder
	for _, s := range page.Shorts {
		n, body, err := g.finalize(ctx, s.Content(), "short:"+s.Post.Key+":"+dest, dest)
		if err != nil {
			return err
		}
		if image == "" {
			image = content.FirstImageSrc(n)
		}
		if description == "" {
			description = content.Description(n)
		}
		out, err := g.engine.Render(g.shortData(tree, b, site, page, s, body))
		if err != nil {
			return err
		}
		posts.WriteString(out)
	}

	data := &templater.BlogPage{
		Article: templater.Article{
			Base:         g.base(b, site, b.Title, page.Name, description),
			Content:      posts.String(),
			RelImageLink: image,
		},
		BlogHeader: headerHTML,
	}
	if i > 0 {
		data.RelPrevPageLink = b.Pages[i-1].Name
	}
	if i < len(b.Pages)-1 {
		data.RelNextPageLink = b.Pages[i+1].Name
	}
	return g.render(dest, data)
}

func (g *Generator) shortData(tree *Tree, b *Blog, site *Site, page *Page, s *ShortPost, body string) *templater.BlogPost {
	p := s.Post
	data := &templater.BlogPost{
		BlogPage: templater.BlogPage{
			Article: templater.Article{
				Base:    g.base(b, site, b.Title, page.Name, ""),
				Content: body,
			},
			PostTitle:      html.EscapeString(p.Title),
			PostDate:       p.Date.Format(sections.DateLayout),
			PostCategory:   html.EscapeString(Label(p.Category)),
			RelPostCatLink: catLink(tree, p.Category),
		},
		RelPostFullLink: s.Full.Name,
	}
	if s.ReadMore {
		data.RelPostExtraLink = s.Full.Name
	}
	return data
}

func (g *Generator) fullPage(ctx context.Context, tree *Tree, b *Blog, full *FullPost, site *Site) error {
	p := full.Post
	dest := g.dest(b, full.Name)

	_, headerHTML, err := g.finalize(ctx, b.Header, "header:"+dest, dest)
	if err != nil {
		return err
	}
	n, body, err := g.finalize(ctx, p.Full, "full:"+dest, dest)
	if err != nil {
		return err
	}
	description := p.Description
	if description == "" {
		description = content.Description(n)
	}

	data := &templater.BlogPage{
		Article: templater.Article{
			Base:         g.base(b, site, p.Title, full.Name, description),
			Content:      body,
			RelImageLink: content.FirstImageSrc(n),
		},
		BlogHeader:     headerHTML,
		PostTitle:      html.EscapeString(p.Title),
		PostDate:       p.Date.Format(sections.DateLayout),
		PostCategory:   html.EscapeString(Label(p.Category)),
		RelPostCatLink: catLink(tree, p.Category),
	}
	if full.Newer != nil {
		data.RelPrevPageLink = full.Newer.Name
	}
	if full.Older != nil {
		data.RelNextPageLink = full.Older.Name
	}
	return g.render(dest, data)
}

// redirects writes a forwarding page at every key the post had before. Keys taken
// by a current post are left alone.
func (g *Generator) redirects(b *Blog, full *FullPost) error {
	for _, key := range full.Post.Redirects {
		if taken(b, key) {
			g.logger.Warn("Redirect shadowed by a post", logfields.PostKey(key), logfields.Category(b.Category))
			continue
		}
		target := html.EscapeString(full.Name)
		canonical := html.EscapeString(g.pageURL(b, full.Name))
		page := "<!doctype html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n" +
			"<meta http-equiv=\"refresh\" content=\"0; url=" + target + "\">\n" +
			"<link rel=\"canonical\" href=\"" + canonical + "\">\n" +
			"<title>" + html.EscapeString(full.Post.Title) + "</title>\n</head>\n" +
			"<body><p><a href=\"" + target + "\">" + html.EscapeString(full.Post.Title) + "</a></p></body>\n</html>\n"
		if _, err := g.writer.Write(g.dest(b, key+".html"), []byte(page)); err != nil {
			return err
		}
	}
	return nil
}

func taken(b *Blog, key string) bool {
	for _, f := range b.Posts {
		if f.Post.Key == key {
			return true
		}
	}
	return false
}

func (g *Generator) render(dest string, data templater.Data) error {
	out, err := g.engine.Render(data)
	if err != nil {
		return err
	}
	_, err = g.writer.Write(dest, []byte(out))
	return err
}
