package incremental

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/logfields"
)

const pageHashPrefix = "html-hash-"

// ContentHash is the hash recorded for rendered output.
func ContentHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// WriteGate writes output files only when they are missing or their content
// changed since the hash recorded at the last write.
type WriteGate struct {
	hashes *HashStore
	force  bool
	dryRun bool
	logger *slog.Logger

	written atomic.Int64
	skipped atomic.Int64
	onWrite func(path string)
}

// GateOption configures a WriteGate.
type GateOption func(*WriteGate)

// WithForce makes every ShouldWrite true. Used after a tool upgrade or --force.
func WithForce(force bool) GateOption {
	return func(g *WriteGate) { g.force = force }
}

// WithDryRun reports decisions without touching files or hashes.
func WithDryRun(dryRun bool) GateOption {
	return func(g *WriteGate) { g.dryRun = dryRun }
}

// WithGateLogger sets a custom logger.
func WithGateLogger(logger *slog.Logger) GateOption {
	return func(g *WriteGate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithWriteHook registers fn to run after each file actually written.
func WithWriteHook(fn func(path string)) GateOption {
	return func(g *WriteGate) { g.onWrite = fn }
}

// NewWriteGate builds a gate recording page hashes in hashes.
func NewWriteGate(hashes *HashStore, opts ...GateOption) *WriteGate {
	g := &WriteGate{hashes: hashes, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ShouldWrite reports whether path must be (re)written for content.
func (g *WriteGate) ShouldWrite(path string, content []byte) (bool, error) {
	if g.force {
		return true, nil
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return true, nil
		}
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat output").
			WithContext("path", path).
			Build()
	}
	stored, ok, err := g.hashes.GetString(pageHashPrefix + path)
	if err != nil {
		return false, err
	}
	return !ok || stored != ContentHash(content), nil
}

// Write writes content to path when ShouldWrite says so, then records its hash.
// It reports whether the file was written.
func (g *WriteGate) Write(path string, content []byte) (bool, error) {
	write, err := g.ShouldWrite(path, content)
	if err != nil {
		return false, err
	}
	if !write {
		g.skipped.Add(1)
		g.logger.Debug("Keep existing", logfields.Path(path))
		return false, nil
	}
	if g.dryRun {
		g.written.Add(1)
		g.logger.Info("Would write", logfields.Path(path))
		return true, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "create output directory").
			WithContext("path", path).
			Build()
	}
	if err := os.WriteFile(path, content, 0o644); err != nil { // #nosec G306 -- published web content
		return false, ferrors.WrapError(err, ferrors.CategoryFileSystem, "write output").
			WithContext("path", path).
			Build()
	}
	if err := g.hashes.PutString(pageHashPrefix+path, ContentHash(content)); err != nil {
		return true, fmt.Errorf("record hash of %s: %w", path, err)
	}
	g.written.Add(1)
	g.logger.Debug("Write page", logfields.Path(path), slog.Int("bytes", len(content)))
	if g.onWrite != nil {
		g.onWrite(path)
	}
	return true, nil
}

// Written returns how many files were written (or would be, in a dry run).
func (g *WriteGate) Written() int64 { return g.written.Load() }

// Skipped returns how many files were kept unchanged.
func (g *WriteGate) Skipped() int64 { return g.skipped.Load() }
