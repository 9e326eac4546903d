package publish

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"git.home.luguber.info/inful/izupress/internal/blog"
	"git.home.luguber.info/inful/izupress/internal/config"
	"git.home.luguber.info/inful/izupress/internal/content"
	"git.home.luguber.info/inful/izupress/internal/dom"
	"git.home.luguber.info/inful/izupress/internal/eventstore"
	"git.home.luguber.info/inful/izupress/internal/incremental"
	"git.home.luguber.info/inful/izupress/internal/logfields"
	"git.home.luguber.info/inful/izupress/internal/media"
	"git.home.luguber.info/inful/izupress/internal/metrics"
	"git.home.luguber.info/inful/izupress/internal/normalize"
	"git.home.luguber.info/inful/izupress/internal/sections"
	"git.home.luguber.info/inful/izupress/internal/source"
	"git.home.luguber.info/inful/izupress/internal/templater"
	"git.home.luguber.info/inful/izupress/internal/transform"
	"git.home.luguber.info/inful/izupress/internal/version"
)

// Stage names reported to metrics.
const (
	stageIndex    = "index"
	stageFetch    = "fetch"
	stageArticles = "articles"
	stageBlogs    = "blogs"
)

const articleHashPrefix = "html-hash-"

// run is the state of one Publisher.Run.
type run struct {
	p              *Publisher
	runID          string
	opts           Options
	force          bool
	versionChanged bool
	logger         *slog.Logger
	summary        *Summary

	hashes      *incremental.HashStore
	gate        *incremental.WriteGate
	media       *media.Processor
	src         *source.Source
	transformer *transform.Transformer
	normalizer  *normalize.Normalizer
	parser      *sections.Parser

	mu      sync.Mutex
	written []string
}

// fetched is a prefetched document.
type fetched struct {
	entity  *source.Entity
	content []byte
	err     error
}

type outcome struct {
	doc      string
	kind     string
	category string
	changed  bool
	start    time.Time
	err      error
}

func (r *run) onWrite(path string) {
	rel := relOutput(r.p.cfg.Output.Directory, path)
	r.mu.Lock()
	r.written = append(r.written, rel)
	r.mu.Unlock()
}

func (r *run) writtenPaths() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]string(nil), r.written...)
	sort.Strings(out)
	return out
}

func (r *run) timed(stage string, start time.Time) {
	r.p.recorder.ObserveStageDuration(stage, time.Since(start))
}

func (r *run) publish(ctx context.Context) error {
	cfg := r.p.cfg
	r.src = source.New(r.p.reader, r.hashes, source.WithLogger(r.logger))
	r.transformer = transform.New(r.hashes,
		transform.WithLogger(r.logger),
		transform.WithRewrittenBase(cfg.Site.RewrittenURL, cfg.Site.BaseURL))
	r.normalizer = normalize.New(normalize.WithLogger(r.logger))
	r.parser = sections.NewParser(sections.WithLogger(r.logger), sections.WithNormalizer(r.normalizer))

	idx, err := r.readIndex(ctx)
	if err != nil {
		return err
	}
	docs := r.prefetch(ctx, idx)
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	for _, entry := range idx.Articles {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.article(ctx, entry, docs[entry.ID])
	}
	r.timed(stageArticles, start)

	start = time.Now()
	for _, group := range groupSites(idx.Blogs) {
		if err := ctx.Err(); err != nil {
			return err
		}
		r.site(ctx, group, docs)
	}
	r.timed(stageBlogs, start)
	return ctx.Err()
}

// readIndex loads the index document. Without it nothing can be published.
func (r *run) readIndex(ctx context.Context) (source.Index, error) {
	defer r.timed(stageIndex, time.Now())
	id := r.p.cfg.Source.IndexID
	e, err := r.src.Get(ctx, id, source.FormatText)
	if err != nil {
		return source.Index{}, fmt.Errorf("read index document %s: %w", id, err)
	}
	data, err := e.Content(ctx)
	if err != nil {
		return source.Index{}, fmt.Errorf("read index document %s: %w", id, err)
	}
	idx := source.ParseIndex(data)
	if !r.opts.DryRun {
		if err := e.Sync(); err != nil {
			r.logger.Warn("Index freshness not recorded", logfields.Error(err))
		}
	}
	r.logger.Info("Read index",
		logfields.Document(id),
		slog.Int("articles", len(idx.Articles)),
		slog.Int("blogs", len(idx.Blogs)))
	return idx, nil
}

// prefetch loads every listed document in parallel. Failures are kept per document.
func (r *run) prefetch(ctx context.Context, idx source.Index) map[string]*fetched {
	defer r.timed(stageFetch, time.Now())
	docs := make(map[string]*fetched)
	var ids []string
	add := func(id string) {
		if _, ok := docs[id]; !ok {
			docs[id] = &fetched{}
			ids = append(ids, id)
		}
	}
	for _, a := range idx.Articles {
		add(a.ID)
	}
	for _, b := range idx.Blogs {
		add(b.ID)
	}

	var g errgroup.Group
	g.SetLimit(max(1, r.p.cfg.Media.Parallelism))
	for _, id := range ids {
		f := docs[id]
		g.Go(func() error {
			e, err := r.src.Get(ctx, id, source.FormatHTML)
			if err == nil {
				f.content, err = e.Content(ctx)
			}
			f.entity, f.err = e, err
			return nil
		})
	}
	_ = g.Wait()
	return docs
}

func (r *run) finish(ctx context.Context, o outcome) {
	r.summary.Documents++
	payload := eventstore.DocumentPayload{
		Document:   o.doc,
		Kind:       o.kind,
		Changed:    o.changed,
		DurationMS: time.Since(o.start).Milliseconds(),
		Category:   o.category,
	}
	if o.err != nil {
		r.summary.Failures = append(r.summary.Failures, Failure{Document: o.doc, Kind: o.kind, Err: o.err})
		r.p.recorder.IncDocumentResult(o.kind, metrics.ResultFailed)
		payload.Error = o.err.Error()
		r.logger.Error("Document failed",
			logfields.Document(o.doc),
			slog.String("kind", o.kind),
			logfields.Error(o.err))
		r.p.record(ctx, r.logger, func() (*eventstore.BaseEvent, error) {
			return eventstore.NewDocumentFailed(r.runID, payload)
		})
		return
	}
	result := metrics.ResultPublished
	if !o.changed {
		result = metrics.ResultUnchanged
		r.summary.Unchanged++
	}
	r.p.recorder.IncDocumentResult(o.kind, result)
	r.p.record(ctx, r.logger, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewDocumentPublished(r.runID, payload)
	})
}

func isFile(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.Mode().IsRegular()
}

func (r *run) article(ctx context.Context, entry source.ArticleEntry, f *fetched) {
	o := outcome{doc: entry.ID, kind: KindArticle, start: time.Now()}
	if f.err != nil {
		o.err = fmt.Errorf("article %s: %w", entry.DestName, f.err)
	} else {
		o.changed, o.err = r.renderArticle(ctx, entry, f)
		if o.err != nil {
			o.err = fmt.Errorf("article %s: %w", entry.DestName, o.err)
		}
	}
	r.finish(ctx, o)
}

// renderArticle publishes one standalone page. An article whose document and
// output are both unchanged is not rendered again.
func (r *run) renderArticle(ctx context.Context, entry source.ArticleEntry, f *fetched) (bool, error) {
	cfg := r.p.cfg
	dest := filepath.Join(cfg.Output.Directory, filepath.FromSlash(entry.DestName))
	hashKey := articleHashPrefix + dest
	if !r.force && f.entity.UpToDate && isFile(dest) {
		stored, ok, err := r.hashes.GetString(hashKey)
		if err == nil && ok && stored == f.entity.Metadata.ContentHash {
			r.logger.Debug("Keep existing article", logfields.Path(dest))
			return false, nil
		}
	}

	body, err := r.normalizer.NormalizeBytes(f.content)
	if err != nil {
		return false, err
	}
	n, err := content.New(body).Finalize(ctx, r.transformer.Bind(dest, r.media.ForPage(dest)))
	if err != nil {
		return false, err
	}

	dir, name := path.Split(entry.DestName)
	title := f.entity.Metadata.Title
	if title == "" {
		title = strings.TrimSuffix(name, path.Ext(name))
	}
	data := &templater.Article{
		Base: templater.Base{
			SiteTitle:     html.EscapeString(cfg.Site.Title),
			AbsSiteLink:   cfg.Site.BaseURL,
			RelSiteLink:   strings.Repeat("../", strings.Count(entry.DestName, "/")),
			FwdPageLink:   dir,
			RelBannerLink: cfg.Site.Banner,
			CSS:           cfg.Site.CSS,
			GAUid:         cfg.Site.GAUid,
			PageTitle:     html.EscapeString(title),
			RelPageLink:   name,
			Description:   html.EscapeString(content.Description(n)),
			GenInfo:       html.EscapeString(version.GenInfo()),
		},
		Content:      dom.InnerHTML(n),
		RelImageLink: content.FirstImageSrc(n),
	}
	out, err := r.p.engine.Render(data)
	if err != nil {
		return false, err
	}
	if _, err := r.gate.Write(dest, []byte(out)); err != nil {
		return false, err
	}
	if r.opts.DryRun {
		return true, nil
	}
	if err := r.hashes.PutString(hashKey, f.entity.Metadata.ContentHash); err != nil {
		return true, err
	}
	return true, f.entity.Sync()
}

// siteGroup is the blog documents sharing one site number in the index.
type siteGroup struct {
	number  int
	entries []source.BlogEntry
}

func groupSites(entries []source.BlogEntry) []siteGroup {
	byNumber := make(map[int]*siteGroup)
	seen := make(map[string]bool)
	var numbers []int
	for _, e := range entries {
		key := fmt.Sprintf("%d/%s", e.Site, e.ID)
		if seen[key] {
			continue
		}
		seen[key] = true
		g, ok := byNumber[e.Site]
		if !ok {
			g = &siteGroup{number: e.Site}
			byNumber[e.Site] = g
			numbers = append(numbers, e.Site)
		}
		g.entries = append(g.entries, e)
	}
	sort.Ints(numbers)
	out := make([]siteGroup, 0, len(numbers))
	for _, n := range numbers {
		out = append(out, *byNumber[n])
	}
	return out
}

type blogDoc struct {
	entry  source.BlogEntry
	entity *source.Entity
	res    *sections.Result
	start  time.Time
}

func (r *run) failBlog(ctx context.Context, e source.BlogEntry, category string, start time.Time, err error) {
	r.finish(ctx, outcome{
		doc:      e.ID,
		kind:     KindBlog,
		category: category,
		start:    start,
		err:      fmt.Errorf("blog document %s: %w", e.ID, err),
	})
}

// site publishes the blogs of one site. The pages of a site are generated from all
// its documents together, so the site is only generated when every document of it
// could be read, parsed and merged.
func (r *run) site(ctx context.Context, g siteGroup, docs map[string]*fetched) {
	cfg := r.p.cfg
	logger := r.logger.With(slog.Int("site", g.number))
	site, err := blog.NewSite(g.number, cfg.Blog)
	if err != nil {
		for _, e := range g.entries {
			r.failBlog(ctx, e, "", time.Now(), err)
		}
		return
	}

	var ok []blogDoc
	failed := 0
	for _, e := range g.entries {
		start := time.Now()
		f := docs[e.ID]
		if f.err != nil {
			r.failBlog(ctx, e, "", start, f.err)
			failed++
			continue
		}
		res, err := r.parser.ParseDocument(f.content)
		if err == nil {
			err = site.UpdateFrom(res.Tags)
		}
		if err != nil {
			r.failBlog(ctx, e, "", start, err)
			failed++
			continue
		}
		ok = append(ok, blogDoc{entry: e, entity: f.entity, res: res, start: start})
	}

	tree := blog.NewSourceTree()
	merged := ok[:0]
	for _, d := range ok {
		if err := tree.Merge(d.res, !d.entity.UpToDate, site); err != nil {
			r.failBlog(ctx, d.entry, d.res.Category, d.start, err)
			failed++
			continue
		}
		merged = append(merged, d)
	}

	if failed > 0 {
		cause := fmt.Errorf("site %d not generated: %d of its documents failed", g.number, failed)
		for _, d := range merged {
			r.failBlog(ctx, d.entry, d.res.Category, d.start, cause)
		}
		return
	}

	// Pages are always generated; the write gate skips files whose bytes
	// did not change and restores missing ones.
	if !tree.Changed() {
		logger.Debug("Blog sources unchanged, checking outputs")
	}
	err = r.generate(ctx, tree, site)
	for _, d := range merged {
		o := outcome{
			doc:      d.entry.ID,
			kind:     KindBlog,
			category: d.res.Category,
			changed:  !d.entity.UpToDate,
			start:    d.start,
			err:      err,
		}
		if err == nil && !r.opts.DryRun {
			o.err = d.entity.Sync()
		}
		if o.err != nil {
			o.err = fmt.Errorf("blog document %s: %w", d.entry.ID, o.err)
		}
		r.finish(ctx, o)
	}
}

func (r *run) generate(ctx context.Context, tree *blog.SourceTree, site *blog.Site) error {
	cfg := r.p.cfg
	pages, err := blog.BuildTree(tree, site, cfg.Blog.PostsPerPage)
	if err != nil {
		return err
	}
	if len(pages.Blogs) == 0 {
		r.logger.Warn("No blog matches the generation filters", slog.Int("site", site.Number))
		return nil
	}
	gen := blog.NewGenerator(r.p.engine, r.transformer, r.gate, siteInfo(cfg.Site), cfg.Output.Directory,
		blog.WithGeneratorLogger(r.logger),
		blog.WithMedia(func(dest string) transform.MediaFetcher { return r.media.ForPage(dest) }),
		blog.WithFeedLimits(cfg.Blog.FeedFullPosts, cfg.Blog.FeedFullMaxChars))
	return gen.Generate(ctx, pages, site)
}

func siteInfo(c config.SiteConfig) blog.SiteInfo {
	return blog.SiteInfo{
		Title:   c.Title,
		BaseURL: c.BaseURL,
		Banner:  c.Banner,
		CSS:     c.CSS,
		GAUid:   c.GAUid,
		Author:  c.Author,
		GenInfo: version.GenInfo(),
	}
}
