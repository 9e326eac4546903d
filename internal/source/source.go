// Package source reads exported documents and tracks their freshness.
//
// A Reader talks to the document service (or a local directory). Source wraps a
// Reader with the hash cache: it compares the metadata hash of a document with
// the one recorded at the last successful use and serves the cached export when
// they match.
package source

import (
	"context"
	"log/slog"
	"sync"

	"git.home.luguber.info/inful/izupress/internal/logfields"
)

// Format selects the export flavour of a document.
type Format string

const (
	FormatHTML Format = "html"
	FormatText Format = "txt"
)

// Metadata describes a document without its content.
type Metadata struct {
	Title string
	// ContentHash changes whenever the document changes.
	ContentHash string
}

// Reader fetches documents.
type Reader interface {
	Metadata(ctx context.Context, id string) (Metadata, error)
	Content(ctx context.Context, id string, format Format) ([]byte, error)
}

// Cache is the subset of the hash cache Source needs.
type Cache interface {
	GetString(descriptor string) (string, bool, error)
	PutString(descriptor, value string) error
	GetBytes(descriptor string) ([]byte, bool, error)
	PutBytes(descriptor string, value []byte) error
}

// Source serves documents through the cache.
type Source struct {
	reader Reader
	cache  Cache
	logger *slog.Logger
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New creates a Source.
func New(reader Reader, cache Cache, opts ...Option) *Source {
	s := &Source{reader: reader, cache: cache, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func hashDescriptor(id string) string { return "gdoc-hash-" + id }

func contentDescriptor(id string, format Format) string {
	return "gdoc-content-" + id + "-" + string(format)
}

// Entity is a document whose metadata is known and whose content is loaded on
// first use.
type Entity struct {
	ID       string
	Format   Format
	Metadata Metadata
	// UpToDate is true when the metadata hash matches the one recorded at the
	// last Sync.
	UpToDate bool

	src *Source

	mu      sync.Mutex
	content []byte
	fetched bool
}

// Get reads the metadata of id now and defers the content. The metadata and
// the content are two separate requests; a change in between is picked up on
// the next run because the recorded hash then differs again.
func (s *Source) Get(ctx context.Context, id string, format Format) (*Entity, error) {
	md, err := s.reader.Metadata(ctx, id)
	if err != nil {
		return nil, err
	}
	stored, ok, err := s.cache.GetString(hashDescriptor(id))
	if err != nil {
		s.logger.Warn("Freshness check failed", logfields.Document(id), logfields.Error(err))
	}
	return &Entity{
		ID:       id,
		Format:   format,
		Metadata: md,
		UpToDate: ok && stored == md.ContentHash,
		src:      s,
	}, nil
}

// GetNow is Get followed by loading the content and syncing the cache.
func (s *Source) GetNow(ctx context.Context, id string, format Format) (*Entity, error) {
	e, err := s.Get(ctx, id, format)
	if err != nil {
		return nil, err
	}
	if _, err := e.Content(ctx); err != nil {
		return nil, err
	}
	if err := e.Sync(); err != nil {
		return nil, err
	}
	return e, nil
}

// Content returns the document content, from the cache when the entity is up
// to date and the cache has it, otherwise from the Reader.
func (e *Entity) Content(ctx context.Context) ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.content != nil {
		return e.content, nil
	}

	s := e.src
	if e.UpToDate {
		data, ok, err := s.cache.GetBytes(contentDescriptor(e.ID, e.Format))
		if err != nil {
			s.logger.Warn("Cached content unreadable", logfields.Document(e.ID), logfields.Error(err))
		}
		if ok {
			e.content = data
			return data, nil
		}
	}

	s.logger.Debug("Fetching document", logfields.Document(e.ID), slog.String("format", string(e.Format)))
	data, err := s.reader.Content(ctx, e.ID, e.Format)
	if err != nil {
		return nil, err
	}
	e.content = data
	e.fetched = true
	return data, nil
}

// Sync records the fetched content and the metadata hash, so the next run sees
// this entity as up to date. It must only be called after the content was used
// successfully.
func (e *Entity) Sync() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.UpToDate && !e.fetched {
		return nil
	}
	s := e.src
	if e.fetched && e.content != nil {
		if err := s.cache.PutBytes(contentDescriptor(e.ID, e.Format), e.content); err != nil {
			return err
		}
	}
	if err := s.cache.PutString(hashDescriptor(e.ID), e.Metadata.ContentHash); err != nil {
		return err
	}
	e.UpToDate = true
	return nil
}
