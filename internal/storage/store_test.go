package storage

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"git.home.luguber.info/inful/izupress/internal/config"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()
	dir := t.TempDir()

	fsStore, err := NewFSStore(filepath.Join(dir, "fs"))
	require.NoError(t, err)
	boltStore, err := NewBoltStore(filepath.Join(dir, "bolt", "cache.bolt"))
	require.NoError(t, err)
	sqliteStore, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)

	stores := map[string]Store{
		"memory": NewMemoryStore(),
		"fs":     fsStore,
		"bolt":   boltStore,
		"sqlite": sqliteStore,
	}
	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(ctx, "missing")
			require.Error(t, err)
			assert.True(t, IsNotFound(err))

			require.NoError(t, store.Put(ctx, "version", []byte("1.0.0")))
			require.NoError(t, store.Put(ctx, "ab", []byte("short")))
			require.NoError(t, store.Put(ctx, "abcdef0123s", []byte("first")))
			require.NoError(t, store.Put(ctx, "abcdef0123s", []byte("second")))
			require.NoError(t, store.Put(ctx, "empty", nil))

			v, err := store.Get(ctx, "abcdef0123s")
			require.NoError(t, err)
			assert.Equal(t, "second", string(v))

			v, err = store.Get(ctx, "ab")
			require.NoError(t, err)
			assert.Equal(t, "short", string(v))

			v, err = store.Get(ctx, "empty")
			require.NoError(t, err)
			assert.Empty(t, v)

			keys, err := store.Keys(ctx)
			require.NoError(t, err)
			sort.Strings(keys)
			assert.Equal(t, []string{"ab", "abcdef0123s", "empty", "version"}, keys)

			require.NoError(t, store.Delete(ctx, "version"))
			require.NoError(t, store.Delete(ctx, "version"))
			_, err = store.Get(ctx, "version")
			assert.True(t, IsNotFound(err))
		})
	}
}

func TestGetReturnsCopies(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			value := []byte("abc")
			require.NoError(t, store.Put(ctx, "key", value))
			value[0] = 'X'

			got, err := store.Get(ctx, "key")
			require.NoError(t, err)
			assert.Equal(t, "abc", string(got))
		})
	}
}

func TestInvalidKeysAreRejected(t *testing.T) {
	ctx := context.Background()
	for name, store := range backends(t) {
		t.Run(name, func(t *testing.T) {
			for _, key := range []string{"", "../escape", "a/b", ".hidden", "with space", "a~b"} {
				assert.Error(t, store.Put(ctx, key, []byte("x")), key)
			}
		})
	}
}

func TestFSStoreLayout(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFSStore(dir)
	require.NoError(t, err)

	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "0123abcds", []byte("x")))
	_, err = os.Stat(filepath.Join(dir, "01", "23abcds"))
	require.NoError(t, err)

	require.NoError(t, store.Delete(ctx, "0123abcds"))
	_, err = os.Stat(filepath.Join(dir, "01"))
	assert.True(t, os.IsNotExist(err), "empty key directory is removed")
}

func TestPersistentBackendsSurviveReopen(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	for _, backend := range []config.StoreBackend{config.StoreFS, config.StoreBolt, config.StoreSQLite} {
		t.Run(string(backend), func(t *testing.T) {
			cfg := config.StoreConfig{Backend: backend, Dir: filepath.Join(dir, string(backend))}

			store, err := Open(ctx, cfg)
			require.NoError(t, err)
			require.NoError(t, store.Put(ctx, "version", []byte("2")))
			require.NoError(t, store.Close())

			store, err = Open(ctx, cfg)
			require.NoError(t, err)
			defer func() { _ = store.Close() }()
			v, err := store.Get(ctx, "version")
			require.NoError(t, err)
			assert.Equal(t, "2", string(v))
		})
	}
}

func TestOpenUnknownBackend(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Backend: "tape"})
	require.Error(t, err)
}

func TestMemoryStoreCalls(t *testing.T) {
	ctx := context.Background()
	m := NewMemoryStore()
	require.NoError(t, m.Put(ctx, "a1", []byte("1")))
	_, _ = m.Get(ctx, "a1")
	_, _ = m.Get(ctx, "zz")
	assert.Equal(t, MemoryCalls{Get: 2, Put: 1}, m.Calls())
	assert.Equal(t, 1, m.Len())
}
