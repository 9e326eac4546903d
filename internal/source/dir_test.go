package source

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/izupress/internal/foundation/errors"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestDirReaderResolvesExtensions(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "page.html", "<p>html</p>")
	writeFile(t, dir, "index.txt", "about.html page")
	r := NewDirReader(dir)

	data, err := r.Content(context.Background(), "page", FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, "<p>html</p>", string(data))

	data, err = r.Content(context.Background(), "index.txt", FormatText)
	require.NoError(t, err)
	assert.Equal(t, "about.html page", string(data))

	md, err := r.Metadata(context.Background(), "page")
	require.NoError(t, err)
	assert.Equal(t, "page", md.Title)
}

func TestDirReaderRendersMarkdown(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "post.md", "# Trip Report\n\n[izu:blog] [izu:cat:travel]\n\n[s:2024-05-01] Day one\n\nSome *text*.\n")
	r := NewDirReader(dir)

	data, err := r.Content(context.Background(), "post", FormatHTML)
	require.NoError(t, err)
	html := string(data)
	assert.Contains(t, html, "<body>")
	assert.Contains(t, html, "<h1>Trip Report</h1>")
	assert.Contains(t, html, "[izu:blog] [izu:cat:travel]")
	assert.Contains(t, html, "<em>text</em>")

	md, err := r.Metadata(context.Background(), "post")
	require.NoError(t, err)
	assert.Equal(t, "Trip Report", md.Title)

	raw, err := r.Content(context.Background(), "post", FormatText)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "# Trip Report")
}

func TestDirReaderHashFollowsChanges(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.html", "one")
	r := NewDirReader(dir)

	first, err := r.Metadata(context.Background(), "a")
	require.NoError(t, err)
	again, err := r.Metadata(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, first.ContentHash, again.ContentHash)

	require.NoError(t, os.WriteFile(path, []byte("two"), 0o600))
	future := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, future, future))
	changed, err := r.Metadata(context.Background(), "a")
	require.NoError(t, err)
	assert.NotEqual(t, first.ContentHash, changed.ContentHash)
}

func TestDirReaderRejectsBadIDs(t *testing.T) {
	r := NewDirReader(t.TempDir())
	for _, id := range []string{"", "../etc/passwd", "a/b"} {
		_, err := r.Content(context.Background(), id, FormatHTML)
		assert.True(t, ferrors.HasCategory(err, ferrors.CategoryValidation), id)
	}
	_, err := r.Content(context.Background(), "missing", FormatHTML)
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryNotFound))
}
