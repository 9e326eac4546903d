// Package transform finalizes normalized fragments for one output page: it rewrites
// links and media, expands video embeds, links captioned images and strips the
// remaining markers.
package transform

import (
	"context"
	"crypto/sha1" // #nosec G505 -- change detection only
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/net/html"

	"git.home.luguber.info/inful/izupress/internal/dom"
	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/logfields"
	"git.home.luguber.info/inful/izupress/internal/style"
)

// HashStore is the part of the incremental cache the transformer needs.
type HashStore interface {
	GetString(key string) (string, bool, error)
	PutString(key, value string) error
}

// MediaFetcher downloads media referenced by a page and returns the value to put
// in the referencing attribute. An empty result leaves the attribute unchanged.
type MediaFetcher interface {
	ProcessDrawing(ctx context.Context, id string, width, height int, useCache bool) (string, error)
	ProcessImage(ctx context.Context, uri *url.URL, width, height int, useCache bool) (string, error)
}

// Transformer holds the site-wide settings shared by every binding.
type Transformer struct {
	hashes        HashStore
	siteBase      string
	rewrittenBase string
	logger        *slog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(t *Transformer) {
		if l != nil {
			t.logger = l
		}
	}
}

// WithRewrittenBase makes redirect targets starting with rewritten point at siteBase
// instead. It is used when a site moved and documents still link to the old address.
func WithRewrittenBase(rewritten, siteBase string) Option {
	return func(t *Transformer) {
		t.rewrittenBase = rewritten
		t.siteBase = siteBase
	}
}

// New returns a Transformer storing its change hashes in hashes.
func New(hashes HashStore, opts ...Option) *Transformer {
	t := &Transformer{hashes: hashes, logger: slog.Default()}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Binding is a Transformer bound to one output context. It implements
// content.Finalizer.
type Binding struct {
	t     *Transformer
	key   string
	media MediaFetcher
}

// Bind returns a finalizer for the page identified by contextKey. media writes the
// page's assets; nil leaves media URLs untouched.
func (t *Transformer) Bind(contextKey string, media MediaFetcher) *Binding {
	if media == nil {
		media = passthroughMedia{}
	}
	return &Binding{t: t, key: contextKey, media: media}
}

// ContextKey returns the key the binding was created with.
func (b *Binding) ContextKey() string {
	return b.key
}

// Finalize returns a transformed copy of source.
func (b *Binding) Finalize(ctx context.Context, source *html.Node) (*html.Node, error) {
	if source == nil {
		return nil, nil
	}
	start := time.Now()
	root := dom.Clone(source)

	if err := b.rewriteURLs(ctx, root, "href"); err != nil {
		return nil, err
	}
	if err := b.rewriteURLs(ctx, root, "src"); err != nil {
		return nil, err
	}
	expandVideoEmbeds(root)
	linkifyImages(root)
	removeComments(root)
	stripMarkers(root)

	b.t.logger.Debug("Finalized content",
		logfields.ContextKey(b.key),
		logfields.DurationMS(float64(time.Since(start).Microseconds())/1000))
	return root, nil
}

// rewriteURLs rewrites every attr value under root. The media cache hint is true
// when the fragment text is unchanged since the last run for this context.
func (b *Binding) rewriteURLs(ctx context.Context, root *html.Node, attr string) error {
	sum := sha1.Sum([]byte(dom.Text(root))) // #nosec G401 -- change detection only
	textHash := hex.EncodeToString(sum[:])
	cacheKey := fmt.Sprintf("rewrite_url_hash_A%s_K%s", attr, b.key)

	previous, found, err := b.t.hashes.GetString(cacheKey)
	if err != nil {
		return ferrors.WrapError(err, ferrors.CategoryCache, "read rewrite hash").
			WithContext("key", cacheKey).
			Build()
	}
	useCache := found && previous == textHash

	for _, el := range dom.ElementsWithAttr(root, attr) {
		value := dom.Attr(el, attr)
		u, err := url.Parse(strings.TrimSpace(value))
		if err != nil || u.Host == "" {
			// anchors, relative links and opaque schemes stay as they are
			continue
		}
		replacement, err := b.rewrite(ctx, el, attr, u, useCache)
		if err != nil {
			return err
		}
		if replacement != "" {
			dom.SetAttr(el, attr, replacement)
		}
	}

	if !useCache {
		if err := b.t.hashes.PutString(cacheKey, textHash); err != nil {
			return ferrors.WrapError(err, ferrors.CategoryCache, "store rewrite hash").
				WithContext("key", cacheKey).
				Build()
		}
	}
	return nil
}

const (
	drawingPrefix = "/drawings/d/"
	drawingSuffix = "/image"
)

func (b *Binding) rewrite(ctx context.Context, el *html.Node, attr string, u *url.URL, useCache bool) (string, error) {
	host, path := u.Host, u.Path
	switch {
	case host == "www.google.com" && path == "/url":
		target := u.Query().Get("q")
		if target == "" {
			return "", nil
		}
		if b.t.rewrittenBase != "" && strings.HasPrefix(target, b.t.rewrittenBase) {
			target = b.t.siteBase + strings.TrimPrefix(target, b.t.rewrittenBase)
		}
		return target, nil

	case host == "docs.google.com" && path == "/drawings/image":
		q := u.Query()
		w, h, err := drawingSize(q)
		if err != nil {
			return "", b.unhandled(u, err)
		}
		return b.processDrawing(ctx, q.Get("id"), w, h, useCache, u)

	case host == "docs.google.com" && strings.HasPrefix(path, drawingPrefix) && strings.HasSuffix(path, drawingSuffix) &&
		len(path) > len(drawingPrefix)+len(drawingSuffix):
		id := path[len(drawingPrefix) : len(path)-len(drawingSuffix)]
		w, h, err := drawingSize(u.Query())
		if err != nil {
			return "", b.unhandled(u, err)
		}
		return b.processDrawing(ctx, id, w, h, useCache, u)

	case strings.Contains(host, ".google.com"):
		return "", b.unhandled(u, nil)

	case attr == "src" && dom.IsElement(el, "img"):
		s := style.Parse(dom.Attr(el, "style"))
		width := dom.Attr(el, "width")
		if width == "" {
			width, _ = s.Get("width")
		}
		height := dom.Attr(el, "height")
		if height == "" {
			height, _ = s.Get("height")
		}
		out, err := b.media.ProcessImage(ctx, u, style.ParseInt(width, 0), style.ParseInt(height, 0), useCache)
		if err != nil {
			return "", fmt.Errorf("process image %s: %w", u.String(), err)
		}
		return out, nil
	}
	return "", nil
}

func (b *Binding) processDrawing(ctx context.Context, id string, w, h int, useCache bool, u *url.URL) (string, error) {
	if id == "" {
		return "", b.unhandled(u, errors.New("drawing without id"))
	}
	out, err := b.media.ProcessDrawing(ctx, id, w, h, useCache)
	if err != nil {
		return "", fmt.Errorf("process drawing %s: %w", id, err)
	}
	return out, nil
}

func (b *Binding) unhandled(u *url.URL, cause error) error {
	builder := ferrors.UnhandledLinkError(fmt.Sprintf("unprocessed document service URL for %s, path %s", u.Host, u.Path)).
		WithContext("url", u.String()).
		WithContext("context_key", b.key)
	if cause != nil {
		builder = builder.WithCause(cause)
	}
	return builder.Build()
}

func drawingSize(q url.Values) (int, int, error) {
	w, err := strconv.Atoi(q.Get("w"))
	if err != nil {
		return 0, 0, fmt.Errorf("drawing width: %w", err)
	}
	h, err := strconv.Atoi(q.Get("h"))
	if err != nil {
		return 0, 0, fmt.Errorf("drawing height: %w", err)
	}
	return w, h, nil
}

// passthroughMedia keeps media URLs as they are.
type passthroughMedia struct{}

func (passthroughMedia) ProcessDrawing(context.Context, string, int, int, bool) (string, error) {
	return "", nil
}

func (passthroughMedia) ProcessImage(context.Context, *url.URL, int, int, bool) (string, error) {
	return "", nil
}
