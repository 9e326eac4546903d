package incremental

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/izupress/internal/storage"
)

func TestWriteGateWritesOnlyChanges(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "blog", "x", "index.html")

	var hooked []string
	g := NewWriteGate(NewHashStore(storage.NewMemoryStore()), WithWriteHook(func(p string) { hooked = append(hooked, p) }))

	wrote, err := g.Write(path, []byte("v1"))
	require.NoError(t, err)
	assert.True(t, wrote, "missing file")

	wrote, err = g.Write(path, []byte("v1"))
	require.NoError(t, err)
	assert.False(t, wrote, "unchanged content")

	wrote, err = g.Write(path, []byte("v2"))
	require.NoError(t, err)
	assert.True(t, wrote, "changed content")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", string(data))
	assert.Equal(t, int64(2), g.Written())
	assert.Equal(t, int64(1), g.Skipped())
	assert.Equal(t, []string{path, path}, hooked)
}

func TestWriteGateRewritesDeletedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.html")
	g := NewWriteGate(NewHashStore(storage.NewMemoryStore()))

	_, err := g.Write(path, []byte("same"))
	require.NoError(t, err)
	require.NoError(t, os.Remove(path))

	should, err := g.ShouldWrite(path, []byte("same"))
	require.NoError(t, err)
	assert.True(t, should)
}

func TestWriteGateWithoutRecordedHash(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.html")
	require.NoError(t, os.WriteFile(path, []byte("same"), 0o600))

	g := NewWriteGate(NewHashStore(storage.NewMemoryStore()))
	should, err := g.ShouldWrite(path, []byte("same"))
	require.NoError(t, err)
	assert.True(t, should, "an existing file with no recorded hash is rewritten")
}

func TestWriteGateForce(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.html")
	hashes := NewHashStore(storage.NewMemoryStore())

	_, err := NewWriteGate(hashes).Write(path, []byte("x"))
	require.NoError(t, err)

	wrote, err := NewWriteGate(hashes, WithForce(true)).Write(path, []byte("x"))
	require.NoError(t, err)
	assert.True(t, wrote)
}

func TestWriteGateDryRun(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.html")
	mem := storage.NewMemoryStore()
	g := NewWriteGate(NewHashStore(mem), WithDryRun(true))

	wrote, err := g.Write(path, []byte("x"))
	require.NoError(t, err)
	assert.True(t, wrote)
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
	assert.Equal(t, 0, mem.Len())
}

func TestContentHashIsStable(t *testing.T) {
	assert.Equal(t, ContentHash([]byte("abc")), ContentHash([]byte("abc")))
	assert.NotEqual(t, ContentHash([]byte("abc")), ContentHash([]byte("abd")))
	assert.Len(t, ContentHash(nil), 64)
}
