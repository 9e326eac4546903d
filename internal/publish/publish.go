// Package publish runs the whole pipeline once: it reads the index document,
// publishes the standalone articles and the blogs it lists, and reports the run to
// metrics, history, notifications and the optional git commit.
//
// A document that fails is logged and counted; the other documents of the run are
// still published. A failure while generating a blog fails every document of that
// blog's site, since their pages are generated together.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"git.home.luguber.info/inful/izupress/internal/config"
	"git.home.luguber.info/inful/izupress/internal/deploy"
	"git.home.luguber.info/inful/izupress/internal/eventstore"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/incremental"
	"git.home.luguber.info/inful/izupress/internal/logfields"
	"git.home.luguber.info/inful/izupress/internal/media"
	"git.home.luguber.info/inful/izupress/internal/metrics"
	"git.home.luguber.info/inful/izupress/internal/notify"
	"git.home.luguber.info/inful/izupress/internal/source"
	"git.home.luguber.info/inful/izupress/internal/storage"
	"git.home.luguber.info/inful/izupress/internal/templater"
	"git.home.luguber.info/inful/izupress/internal/version"
)

// Options controls one run.
type Options struct {
	// Trigger says what started the run (cli, schedule, watch...).
	Trigger string
	// Force regenerates every page, as after a version change.
	Force bool
	// DryRun computes everything but writes no output file.
	DryRun bool
	// Commit commits the output directory when it is a git work tree.
	Commit bool
}

// Publisher owns the collaborators shared by successive runs.
type Publisher struct {
	cfg       *config.Config
	store     storage.Store
	reader    source.Reader
	download  media.Downloader
	engine    *templater.Engine
	recorder  metrics.Recorder
	history   eventstore.Store
	notifier  notify.Publisher
	committer *deploy.Committer
	logger    *slog.Logger

	mu sync.Mutex
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithReader replaces the Reader built from the source configuration.
func WithReader(r source.Reader) Option {
	return func(p *Publisher) { p.reader = r }
}

// WithDownloader replaces the media downloader built from the source configuration.
func WithDownloader(d media.Downloader) Option {
	return func(p *Publisher) { p.download = d }
}

// WithEngine replaces the template engine built from the templates configuration.
func WithEngine(e *templater.Engine) Option {
	return func(p *Publisher) { p.engine = e }
}

// WithRecorder sets the metrics recorder.
func WithRecorder(r metrics.Recorder) Option {
	return func(p *Publisher) {
		if r != nil {
			p.recorder = r
		}
	}
}

// WithHistory records every run in s.
func WithHistory(s eventstore.Store) Option {
	return func(p *Publisher) { p.history = s }
}

// WithNotifier publishes an event for every written page.
func WithNotifier(n notify.Publisher) Option {
	return func(p *Publisher) {
		if n != nil {
			p.notifier = n
		}
	}
}

// WithCommitter sets the committer used by runs with Options.Commit.
func WithCommitter(c *deploy.Committer) Option {
	return func(p *Publisher) { p.committer = c }
}

// New creates a Publisher over the cache store. The caller keeps ownership of store.
func New(cfg *config.Config, store storage.Store, opts ...Option) (*Publisher, error) {
	if cfg == nil {
		return nil, ferrors.ValidationError("configuration is required").Build()
	}
	if store == nil {
		return nil, ferrors.ValidationError("cache store is required").Build()
	}
	p := &Publisher{
		cfg:      cfg,
		store:    store,
		recorder: metrics.NoopRecorder{},
		notifier: notify.Noop{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reader == nil || p.download == nil {
		client := &http.Client{Timeout: cfg.Retry.Timeout.Duration()}
		reader, fetcher := source.NewReader(cfg.Source, cfg.Retry, client, p.logger)
		if p.reader == nil {
			p.reader = reader
		}
		if p.download == nil {
			p.download = fetcher
		}
	}
	if p.engine == nil {
		p.engine = newEngine(cfg.Templates)
	}
	if p.committer == nil {
		p.committer = deploy.NewCommitter(cfg.Deploy.AuthorName, cfg.Deploy.AuthorEmail, deploy.WithLogger(p.logger))
	}
	return p, nil
}

// Run publishes the site once. Runs of one Publisher never overlap.
//
// The returned error is the fatal error that stopped the run, or else the error of
// the first document that failed. The summary is returned in both cases.
func (p *Publisher) Run(ctx context.Context, opts Options) (*Summary, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if opts.Trigger == "" {
		opts.Trigger = "cli"
	}
	start := time.Now()
	runID := uuid.NewString()
	logger := p.logger.With(logfields.RunID(runID))
	logger.Info("Publish run starting",
		slog.String("trigger", opts.Trigger),
		slog.Bool("force", opts.Force),
		slog.Bool("dry_run", opts.DryRun))

	sum := &Summary{RunID: runID, Trigger: opts.Trigger}
	p.record(ctx, logger, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewRunStarted(runID, eventstore.RunStartedPayload{
			Trigger: opts.Trigger, Force: opts.Force, DryRun: opts.DryRun,
		})
	})

	r, err := p.newRun(ctx, runID, opts, logger, sum)
	if err == nil {
		err = r.publish(ctx)
	}
	if err == nil && len(sum.Failures) == 0 && r.versionChanged && !opts.DryRun {
		if _, verr := incremental.CheckVersion(r.hashes, version.Version); verr != nil {
			logger.Warn("Tool version not recorded", logfields.Error(verr))
		}
	}
	if r != nil {
		sum.PagesWritten = r.gate.Written()
		sum.PagesSkipped = r.gate.Skipped()
		sum.Media = r.media.Stats()
		sum.Written = r.writtenPaths()
	}
	sum.Duration = time.Since(start)
	sum.Fatal = err
	sum.Status = sum.status()

	if err == nil && !opts.DryRun {
		p.afterRun(ctx, logger, opts, sum)
	}
	p.report(ctx, logger, sum)

	if err != nil {
		return sum, err
	}
	return sum, sum.Err()
}

func (p *Publisher) newRun(ctx context.Context, runID string, opts Options, logger *slog.Logger, sum *Summary) (*run, error) {
	hashes := incremental.NewHashStore(p.store, incremental.WithLogger(logger))
	r := &run{
		p:       p,
		runID:   runID,
		opts:    opts,
		logger:  logger,
		summary: sum,
		hashes:  hashes,
	}
	r.media = media.New(p.download, hashes,
		media.WithLogger(logger),
		media.WithJPEGQuality(p.cfg.Media.JPEGQuality),
		media.WithDryRun(opts.DryRun))

	// The version is only recorded after a clean run, so an upgrade keeps forcing
	// regeneration until one run got through.
	changed, err := incremental.VersionChanged(hashes, version.Version)
	if err != nil {
		changed = true
		logger.Warn("Version check failed, regenerating everything", logfields.Error(err))
	}
	r.versionChanged = changed
	r.force = opts.Force || changed
	r.gate = incremental.NewWriteGate(hashes,
		incremental.WithForce(r.force),
		incremental.WithDryRun(opts.DryRun),
		incremental.WithGateLogger(logger),
		incremental.WithWriteHook(r.onWrite))
	return r, ctx.Err()
}

// afterRun commits the output and announces the written pages.
func (p *Publisher) afterRun(ctx context.Context, logger *slog.Logger, opts Options, sum *Summary) {
	outDir := p.cfg.Output.Directory
	if (opts.Commit || p.cfg.Deploy.GitCommit) && len(sum.Written)+int(sum.Media.Written) > 0 {
		res, err := p.committer.Commit(outDir, []string{outDir},
			fmt.Sprintf("izupress publish %s (%d pages)", sum.RunID[:8], len(sum.Written)))
		if err != nil {
			logger.Error("Commit of output failed", logfields.Error(err))
		} else if res.Committed {
			sum.Commit = res.Hash
		}
	}

	for _, path := range sum.Written {
		event := notify.PageEvent{
			RunID:     sum.RunID,
			Path:      path,
			URL:       p.cfg.Site.BaseURL + path,
			Timestamp: time.Now().UTC(),
		}
		if err := p.notifier.Publish(ctx, event); err != nil {
			logger.Warn("Page event not published", logfields.Path(path), logfields.Error(err))
			break
		}
	}
}

// report sends the summary to metrics, history and the log.
func (p *Publisher) report(ctx context.Context, logger *slog.Logger, sum *Summary) {
	p.recorder.ObserveRunDuration(sum.Duration)
	p.recorder.IncRunOutcome(sum.Status)
	p.recorder.AddPages(sum.PagesWritten, sum.PagesSkipped)
	p.recorder.AddMedia(sum.Media.Downloaded, sum.Media.Written, sum.Media.Reused)

	var errText string
	if err := sum.firstError(); err != nil {
		errText = err.Error()
	}
	p.record(ctx, logger, func() (*eventstore.BaseEvent, error) {
		return eventstore.NewRunCompleted(sum.RunID, eventstore.RunCompletedPayload{
			Status:       sum.Status,
			Documents:    sum.Documents,
			Failed:       len(sum.Failures),
			PagesWritten: sum.PagesWritten,
			PagesSkipped: sum.PagesSkipped,
			MediaWritten: sum.Media.Written,
			DurationMS:   sum.Duration.Milliseconds(),
			Error:        errText,
		})
	})

	attrs := []any{
		slog.String("status", sum.Status),
		slog.Int("documents", sum.Documents),
		slog.Int("unchanged", sum.Unchanged),
		slog.Int("failed", len(sum.Failures)),
		slog.Int64("pages_written", sum.PagesWritten),
		slog.Int64("pages_skipped", sum.PagesSkipped),
		slog.Int64("media_written", sum.Media.Written),
		logfields.DurationMS(float64(sum.Duration.Microseconds()) / 1000),
	}
	if sum.Status == eventstore.StatusSuccess {
		logger.Info("Publish run completed", attrs...)
		return
	}
	logger.Warn("Publish run completed with failures", append(attrs, logfields.Error(sum.firstError()))...)
}

// record appends an event to the history. History failures never fail a run.
func (p *Publisher) record(ctx context.Context, logger *slog.Logger, build func() (*eventstore.BaseEvent, error)) {
	if p.history == nil {
		return
	}
	e, err := build()
	if err == nil {
		err = eventstore.Record(ctx, p.history, e)
	}
	if err != nil {
		logger.Warn("Run history not recorded", logfields.Error(err))
	}
}

func newEngine(c config.TemplatesConfig) *templater.Engine {
	return templater.NewDirEngine(c.Dir, map[templater.Variant]string{
		templater.VariantArticle:  c.Article,
		templater.VariantBlogPage: c.BlogPage,
		templater.VariantBlogPost: c.BlogPost,
	})
}

// relOutput returns path relative to the output directory, with forward slashes.
func relOutput(outDir, path string) string {
	rel, err := filepath.Rel(outDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
