// Package deploy commits the files a run wrote when the output directory is a git
// work tree. Pushing is left to whatever watches the repository.
package deploy

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
	"git.home.luguber.info/inful/izupress/internal/logfields"
)

// Committer stages and commits output files.
type Committer struct {
	name   string
	email  string
	logger *slog.Logger
	now    func() time.Time
}

// Option configures a Committer.
type Option func(*Committer)

// WithLogger sets a custom logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Committer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCommitter returns a Committer signing commits as name <email>.
func NewCommitter(name, email string, opts ...Option) *Committer {
	c := &Committer{name: name, email: email, logger: slog.Default(), now: time.Now}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Result describes a commit attempt.
type Result struct {
	Committed bool
	Hash      string
	Files     int
}

// Commit stages paths, which must lie inside the work tree containing outDir, and
// commits them with message. Nothing is committed when the staged files match HEAD.
func (c *Committer) Commit(outDir string, paths []string, message string) (Result, error) {
	repo, err := git.PlainOpenWithOptions(outDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if errors.Is(err, git.ErrRepositoryNotExists) {
			return Result{}, ferrors.ConfigError("output directory is not inside a git work tree").
				WithContext("dir", outDir).
				Build()
		}
		return Result{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "open output repository").
			WithContext("dir", outDir).
			Build()
	}
	wt, err := repo.Worktree()
	if err != nil {
		return Result{}, fmt.Errorf("open worktree: %w", err)
	}
	root, err := filepath.Abs(wt.Filesystem.Root())
	if err != nil {
		return Result{}, fmt.Errorf("resolve worktree root: %w", err)
	}

	staged := 0
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return Result{}, fmt.Errorf("resolve %s: %w", p, err)
		}
		rel, err := filepath.Rel(root, abs)
		if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
			c.logger.Warn("Skipping file outside the work tree", logfields.Path(p))
			continue
		}
		if _, err := wt.Add(filepath.ToSlash(rel)); err != nil {
			return Result{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "stage output file").
				WithContext("path", rel).
				Build()
		}
		staged++
	}

	status, err := wt.Status()
	if err != nil {
		return Result{}, fmt.Errorf("worktree status: %w", err)
	}
	changed := 0
	for _, s := range status {
		if s.Staging != git.Unmodified && s.Staging != git.Untracked {
			changed++
		}
	}
	if changed == 0 {
		c.logger.Info("Nothing to commit", logfields.Path(root))
		return Result{Files: staged}, nil
	}

	hash, err := wt.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: c.name, Email: c.email, When: c.now()},
	})
	if err != nil {
		return Result{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "commit output").Build()
	}
	c.logger.Info("Committed output",
		slog.String("commit", hash.String()[:8]),
		slog.Int("files", changed),
		logfields.Path(root))
	return Result{Committed: true, Hash: hash.String(), Files: changed}, nil
}
