package templater

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

//go:embed defaults/*.html
var defaultTemplates embed.FS

// DefaultFS returns the built-in templates.
func DefaultFS() fs.FS {
	sub, err := fs.Sub(defaultTemplates, "defaults")
	if err != nil {
		panic(err) // embedded layout is fixed at build time
	}
	return sub
}

// DefaultNames maps each variant to its conventional file name.
var DefaultNames = map[Variant]string{
	VariantArticle:  "article.html",
	VariantBlogPage: "blog_page.html",
	VariantBlogPost: "blog_post.html",
}

// Engine loads one template per variant on first use and keeps it for the life of
// the engine.
type Engine struct {
	fsys  fs.FS
	names map[Variant]string

	mu    sync.Mutex
	cache map[Variant]*Template
}

// NewEngine reads templates from fsys. names overrides DefaultNames per variant.
func NewEngine(fsys fs.FS, names map[Variant]string) *Engine {
	merged := make(map[Variant]string, len(DefaultNames))
	for v, n := range DefaultNames {
		merged[v] = n
	}
	for v, n := range names {
		if n != "" {
			merged[v] = n
		}
	}
	return &Engine{fsys: fsys, names: merged, cache: make(map[Variant]*Template)}
}

// NewDirEngine reads templates from dir, falling back to the built-in templates
// for files dir does not have. An empty dir uses the built-in templates only.
func NewDirEngine(dir string, names map[Variant]string) *Engine {
	if dir == "" {
		return NewEngine(DefaultFS(), names)
	}
	return NewEngine(layeredFS{os.DirFS(dir), DefaultFS()}, names)
}

// Template returns the parsed template of a variant.
func (e *Engine) Template(v Variant) (*Template, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if t, ok := e.cache[v]; ok {
		return t, nil
	}
	name, ok := e.names[v]
	if !ok {
		return nil, ferrors.TemplateSyntaxError(fmt.Sprintf("no template for variant %q", v)).Build()
	}
	src, err := fs.ReadFile(e.fsys, name)
	if err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read template").
			WithContext("template", name).
			Build()
	}
	t, err := Parse(name, string(src))
	if err != nil {
		return nil, err
	}
	e.cache[v] = t
	return t, nil
}

// Render renders data with the template of its variant.
func (e *Engine) Render(data Data) (string, error) {
	t, err := e.Template(data.Variant())
	if err != nil {
		return "", err
	}
	return t.Execute(data), nil
}

// layeredFS opens a name from the first layer that has it.
type layeredFS []fs.FS

func (l layeredFS) Open(name string) (fs.File, error) {
	var firstErr error
	for _, layer := range l {
		f, err := layer.Open(name)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	if firstErr == nil {
		firstErr = &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return nil, firstErr
}

// WriteDefaults copies the built-in templates into dir. Existing files are kept
// unless force is set. It returns the paths written.
func WriteDefaults(dir string, force bool) ([]string, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("create template directory: %w", err)
	}
	var written []string
	for _, name := range []string{"article.html", "blog_page.html", "blog_post.html"} {
		dest := filepath.Join(dir, name)
		if _, err := os.Stat(dest); err == nil && !force {
			continue
		}
		data, err := fs.ReadFile(DefaultFS(), name)
		if err != nil {
			return written, fmt.Errorf("read built-in template %s: %w", name, err)
		}
		if err := os.WriteFile(dest, data, 0o644); err != nil { // #nosec G306 -- templates are not secret
			return written, fmt.Errorf("write template %s: %w", dest, err)
		}
		written = append(written, dest)
	}
	return written, nil
}
