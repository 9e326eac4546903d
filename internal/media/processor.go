// Package media downloads the images and drawings a page references and writes
// them next to the page, re-encoded as PNG or JPEG, whichever is smaller.
package media

import (
	"context"
	"crypto/sha1" // #nosec G505 -- file naming and change detection only
	"encoding/hex"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/logfields"
	"git.home.luguber.info/inful/izupress/internal/source"
)

// DefaultDrawingURL is the export address of a drawing. {id} is replaced by the
// drawing id.
const DefaultDrawingURL = "https://docs.google.com/drawings/d/{id}/export/png"

// Downloader fetches the raw bytes of a URL. *source.Fetcher implements it.
type Downloader interface {
	Get(ctx context.Context, url string) (*source.Response, error)
}

// Cache remembers which file each download produced.
type Cache interface {
	GetString(descriptor string) (string, bool, error)
	PutString(descriptor, value string) error
}

// Stats counts what a Processor did.
type Stats struct {
	Downloaded int64
	Written    int64
	Reused     int64
}

// Processor holds the settings shared by every page.
type Processor struct {
	dl          Downloader
	cache       Cache
	drawingURL  string
	jpegQuality int
	dryRun      bool
	logger      *slog.Logger

	downloaded atomic.Int64
	written    atomic.Int64
	reused     atomic.Int64
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithDrawingURL overrides DefaultDrawingURL.
func WithDrawingURL(pattern string) Option {
	return func(p *Processor) {
		if pattern != "" {
			p.drawingURL = pattern
		}
	}
}

// WithJPEGQuality sets the JPEG encoder quality, 1 to 100.
func WithJPEGQuality(q int) Option {
	return func(p *Processor) {
		if q > 0 && q <= 100 {
			p.jpegQuality = q
		}
	}
}

// WithDryRun computes file names without writing files or cache entries.
func WithDryRun(dryRun bool) Option {
	return func(p *Processor) { p.dryRun = dryRun }
}

// New returns a Processor downloading through dl.
func New(dl Downloader, cache Cache, opts ...Option) *Processor {
	p := &Processor{
		dl:          dl,
		cache:       cache,
		drawingURL:  DefaultDrawingURL,
		jpegQuality: 90,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stats returns the counters accumulated so far.
func (p *Processor) Stats() Stats {
	return Stats{
		Downloaded: p.downloaded.Load(),
		Written:    p.written.Load(),
		Reused:     p.reused.Load(),
	}
}

// ForPage returns the media fetcher of the page written at destFile. Media files
// go into the page's directory and their names start with the page's name.
func (p *Processor) ForPage(destFile string) *PageMedia {
	return &PageMedia{p: p, destFile: destFile}
}

// PageMedia implements transform.MediaFetcher for one page.
type PageMedia struct {
	p        *Processor
	destFile string
}

// ProcessDrawing exports drawing id as an image. When both width and height are
// set the drawing is cropped to its visible part and flattened on white.
func (m *PageMedia) ProcessDrawing(ctx context.Context, id string, width, height int, useCache bool) (string, error) {
	cacheKey := fmt.Sprintf("dl_drawing_fullpath_I%s_D%s_W%d_H%d", id, m.destFile, width, height)
	req := request{
		cacheKey: cacheKey,
		destName: m.namePrefix() + sha1Hex("_drawing_"+id) + "d",
		url:      strings.ReplaceAll(m.p.drawingURL, "{id}", url.PathEscape(id)),
		width:    width,
		height:   height,
		drawing:  width > 0 && height > 0,
		useCache: useCache,
	}
	return m.process(ctx, req)
}

// ProcessImage downloads uri. Only absolute http(s) URLs are processed; anything
// else is left for the page to reference as is.
func (m *PageMedia) ProcessImage(ctx context.Context, uri *url.URL, width, height int, useCache bool) (string, error) {
	if uri == nil || (uri.Scheme != "http" && uri.Scheme != "https") || uri.Host == "" {
		return "", nil
	}
	req := request{
		cacheKey: fmt.Sprintf("dl_image_fullpath_U%s_D%s_W%d_H%d", uri.String(), m.destFile, width, height),
		destName: m.namePrefix() + sha1Hex("_image_"+uri.Path) + "i",
		url:      uri.String(),
		width:    width,
		height:   height,
		useCache: useCache,
	}
	return m.process(ctx, req)
}

type request struct {
	cacheKey string
	destName string
	url      string
	width    int
	height   int
	drawing  bool
	useCache bool
}

func (m *PageMedia) process(ctx context.Context, req request) (string, error) {
	p := m.p
	dir := filepath.Dir(m.destFile)

	if req.useCache {
		stored, ok, err := p.cache.GetString(req.cacheKey)
		if err != nil {
			return "", err
		}
		if ok && isFile(stored) {
			p.reused.Add(1)
			p.logger.Debug("Media cached", logfields.Path(stored))
			return filepath.Base(stored), nil
		}
	}

	resp, err := p.dl.Get(ctx, req.url)
	if err != nil {
		return "", err
	}
	p.downloaded.Add(1)

	img, err := decode(resp.Body)
	if err != nil {
		return "", ferrors.FetchError("undecodable image").
			WithCause(err).
			WithContext("url", req.url).
			Build()
	}

	keyImageHash := req.destName
	keyImageName := req.destName + "_name"
	imageHash := pixelHash(img, req.width, req.height)

	if name, ok, err := m.unchanged(keyImageHash, keyImageName, imageHash, dir); err != nil {
		return "", err
	} else if ok {
		p.reused.Add(1)
		if !p.dryRun {
			if err := p.cache.PutString(req.cacheKey, filepath.Join(dir, name)); err != nil {
				return "", err
			}
		}
		return name, nil
	}

	if req.drawing {
		img = cropDrawing(img, req.width, req.height)
	}
	encoded, err := encodeSmallest(img, req.width, req.height, p.jpegQuality, req.drawing)
	if err != nil {
		return "", ferrors.InternalError("encode image").WithCause(err).WithContext("url", req.url).Build()
	}
	name := req.destName + "." + encoded.ext
	path := filepath.Join(dir, name)

	if p.dryRun {
		p.logger.Info("Would write media", logfields.Path(path), slog.Int("bytes", len(encoded.data)))
		return name, nil
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", ferrors.FileSystemError("create media directory").WithCause(err).WithContext("path", dir).Build()
	}
	if err := os.WriteFile(path, encoded.data, 0o644); err != nil { // #nosec G306 -- published site assets
		return "", ferrors.FileSystemError("write media file").WithCause(err).WithContext("path", path).Build()
	}
	p.written.Add(1)
	p.logger.Debug("Wrote media",
		logfields.Path(path),
		slog.String("format", encoded.ext),
		slog.Int("width", encoded.width),
		slog.Int("height", encoded.height))

	for _, kv := range [][2]string{
		{req.cacheKey, path},
		{keyImageHash, imageHash},
		{keyImageName, name},
	} {
		if err := p.cache.PutString(kv[0], kv[1]); err != nil {
			return "", err
		}
	}
	return name, nil
}

// unchanged reports the file name written earlier for the same pixels, provided the
// file is still there.
func (m *PageMedia) unchanged(keyHash, keyName, hash, dir string) (string, bool, error) {
	stored, ok, err := m.p.cache.GetString(keyHash)
	if err != nil || !ok || stored != hash {
		return "", false, err
	}
	name, ok, err := m.p.cache.GetString(keyName)
	if err != nil || !ok {
		return "", false, err
	}
	if !isFile(filepath.Join(dir, name)) {
		return "", false, nil
	}
	return name, true, nil
}

// namePrefix turns "2024-01-02_trip.html" into "2024-01-02_trip_".
func (m *PageMedia) namePrefix() string {
	name := filepath.Base(m.destFile)
	name = strings.ReplaceAll(name, ".html", "_")
	return strings.ReplaceAll(name, ".", "_")
}

func sha1Hex(s string) string {
	sum := sha1.Sum([]byte(s)) // #nosec G401 -- file naming only
	return hex.EncodeToString(sum[:])
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
