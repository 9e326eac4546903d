package source

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

// Extensions tried, in order, for an id without one.
var dirExtensions = []string{".html", ".htm", ".md", ".txt"}

// DirReader serves documents from a local directory. An id names a file in the
// directory, with or without its extension. Markdown files are rendered to HTML
// for the html format.
type DirReader struct {
	root string
	md   goldmark.Markdown
}

// NewDirReader creates a DirReader over root.
func NewDirReader(root string) *DirReader {
	return &DirReader{
		root: root,
		md: goldmark.New(
			goldmark.WithExtensions(extension.Table, extension.Strikethrough),
			goldmark.WithRendererOptions(html.WithUnsafe()),
		),
	}
}

// Root returns the served directory.
func (r *DirReader) Root() string { return r.root }

func (r *DirReader) resolve(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || strings.Contains(id, "..") {
		return "", ferrors.ValidationError("invalid document id").WithContext("document", id).Build()
	}
	candidates := []string{id}
	if filepath.Ext(id) == "" {
		candidates = candidates[:0]
		for _, ext := range dirExtensions {
			candidates = append(candidates, id+ext)
		}
	}
	for _, name := range candidates {
		path := filepath.Join(r.root, name)
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			return path, nil
		}
	}
	return "", ferrors.NewError(ferrors.CategoryNotFound, "document not found").
		WithContext("document", id).
		WithContext("dir", r.root).
		Build()
}

func (r *DirReader) read(id string) (string, []byte, time.Time, error) {
	path, err := r.resolve(id)
	if err != nil {
		return "", nil, time.Time{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", nil, time.Time{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "stat document").
			WithContext("path", path).Build()
	}
	// #nosec G304 -- path is resolved inside the source directory
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil, time.Time{}, ferrors.NewError(ferrors.CategoryNotFound, "document not found").
				WithContext("path", path).Build()
		}
		return "", nil, time.Time{}, ferrors.WrapError(err, ferrors.CategoryFileSystem, "read document").
			WithContext("path", path).Build()
	}
	return path, data, info.ModTime(), nil
}

// Metadata implements Reader. The hash covers the modification time and the
// file content.
func (r *DirReader) Metadata(_ context.Context, id string) (Metadata, error) {
	path, data, mod, err := r.read(id)
	if err != nil {
		return Metadata{}, err
	}
	sum := sha256.Sum256(data)
	title := ""
	if isMarkdown(path) {
		title = r.markdownTitle(data)
	}
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return Metadata{
		Title:       title,
		ContentHash: MetadataHash("", mod.UTC().Format(time.RFC3339Nano), hex.EncodeToString(sum[:])),
	}, nil
}

// Content implements Reader.
func (r *DirReader) Content(_ context.Context, id string, format Format) ([]byte, error) {
	path, data, _, err := r.read(id)
	if err != nil {
		return nil, err
	}
	if format != FormatHTML || !isMarkdown(path) {
		return data, nil
	}
	var buf bytes.Buffer
	buf.WriteString("<html><body>\n")
	if err := r.md.Convert(data, &buf); err != nil {
		return nil, ferrors.WrapError(err, ferrors.CategoryValidation, "render markdown").
			WithContext("path", path).Build()
	}
	buf.WriteString("</body></html>\n")
	return buf.Bytes(), nil
}

func isMarkdown(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".md" || ext == ".markdown"
}

// markdownTitle returns the text of the first level 1 heading.
func (r *DirReader) markdownTitle(body []byte) string {
	root := r.md.Parser().Parse(text.NewReader(body))
	var title strings.Builder
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		h, ok := n.(*gmast.Heading)
		if !ok || h.Level != 1 {
			return gmast.WalkContinue, nil
		}
		_ = gmast.Walk(h, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
			if t, ok := c.(*gmast.Text); ok && entering {
				title.Write(t.Segment.Value(body))
			}
			return gmast.WalkContinue, nil
		})
		return gmast.WalkStop, nil
	})
	return strings.TrimSpace(title.String())
}
