package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"git.home.luguber.info/inful/izupress/internal/blog"
	"git.home.luguber.info/inful/izupress/internal/config"
	"git.home.luguber.info/inful/izupress/internal/incremental"
	"git.home.luguber.info/inful/izupress/internal/sections"
	"git.home.luguber.info/inful/izupress/internal/storage"
	"git.home.luguber.info/inful/izupress/internal/transform"
)

// RenderFile generates the blog pages of one exported document read from disk into
// outDir. Nothing is cached between calls and remote media keep their original
// addresses. It returns the number of files written.
func RenderFile(ctx context.Context, cfg *config.Config, file, outDir string, logger *slog.Logger) (int64, error) {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(file) // #nosec G304 -- path given on the command line
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", file, err)
	}
	res, err := sections.NewParser(sections.WithLogger(logger)).ParseDocument(data)
	if err != nil {
		return 0, err
	}
	site, err := blog.NewSite(0, cfg.Blog)
	if err != nil {
		return 0, err
	}
	if err := site.UpdateFrom(res.Tags); err != nil {
		return 0, err
	}
	tree := blog.NewSourceTree()
	if err := tree.Merge(res, true, site); err != nil {
		return 0, err
	}
	pages, err := blog.BuildTree(tree, site, cfg.Blog.PostsPerPage)
	if err != nil {
		return 0, err
	}

	hashes := incremental.NewHashStore(storage.NewMemoryStore(), incremental.WithLogger(logger))
	gate := incremental.NewWriteGate(hashes, incremental.WithForce(true), incremental.WithGateLogger(logger))
	engine := newEngine(cfg.Templates)
	tr := transform.New(hashes,
		transform.WithLogger(logger),
		transform.WithRewrittenBase(cfg.Site.RewrittenURL, cfg.Site.BaseURL))
	gen := blog.NewGenerator(engine, tr, gate, siteInfo(cfg.Site), outDir,
		blog.WithGeneratorLogger(logger),
		blog.WithFeedLimits(cfg.Blog.FeedFullPosts, cfg.Blog.FeedFullMaxChars))
	if err := gen.Generate(ctx, pages, site); err != nil {
		return gate.Written(), err
	}
	return gate.Written(), nil
}
